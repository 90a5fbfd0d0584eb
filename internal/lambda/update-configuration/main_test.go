package main

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/savaki/config-provisioner/internal/cfn"
	"github.com/savaki/config-provisioner/internal/content"
	"github.com/savaki/config-provisioner/internal/dao/configdao"
	"github.com/savaki/config-provisioner/internal/services"
	"github.com/stretchr/testify/assert"
)

type mockDynamoClient struct {
	puts []*dynamodb.PutItemInput
}

func (m *mockDynamoClient) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	m.puts = append(m.puts, params)
	return &dynamodb.PutItemOutput{}, nil
}

func (m *mockDynamoClient) GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	return &dynamodb.GetItemOutput{}, nil
}

func (m *mockDynamoClient) DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	// the lifecycle handler must never delete
	panic("unexpected DeleteItem")
}

type mockS3Client struct{}

func (m *mockS3Client) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	return nil, assert.AnError
}

func newTestHandler(db *mockDynamoClient) *Handler {
	dao := configdao.New(db, "test-configuration")
	resolver := content.NewResolver(&mockS3Client{})
	return NewHandler(
		cfn.NewAdapter(cfn.LogSender{}, "test-log-stream"),
		services.NewConfigurationService(dao, resolver),
	)
}

func TestHandleEventDirect(t *testing.T) {
	ctx := context.Background()

	t.Run("create writes records", func(t *testing.T) {
		db := &mockDynamoClient{}
		out, err := newTestHandler(db).HandleEvent(ctx, &cfn.Event{
			RequestType: "Create",
			ResourceProperties: map[string]any{
				"ServiceToken": "arn:aws:lambda:us-west-2:123:function:handler",
				"Default":      map[string]any{"classification": map[string]any{"model": "A"}},
			},
		})
		assert.NoError(t, err)
		assert.Equal(t, "SUCCESS", out["Status"])
		assert.Equal(t, "Successfully created configurations", out["Message"])

		if assert.Len(t, db.puts, 1) {
			assert.NotContains(t, db.puts[0].Item, "ServiceToken")
		}
	})

	t.Run("update reports its own verb", func(t *testing.T) {
		db := &mockDynamoClient{}
		out, err := newTestHandler(db).HandleEvent(ctx, &cfn.Event{
			RequestType:        "Update",
			ResourceProperties: map[string]any{"Schema": map[string]any{"version": "1"}},
		})
		assert.NoError(t, err)
		assert.Equal(t, "Successfully updated configurations", out["Message"])
	})

	t.Run("missing properties write nothing and succeed", func(t *testing.T) {
		db := &mockDynamoClient{}
		out, err := newTestHandler(db).HandleEvent(ctx, &cfn.Event{RequestType: "Create"})
		assert.NoError(t, err)
		assert.Equal(t, "SUCCESS", out["Status"])
		assert.Empty(t, db.puts)
	})

	t.Run("delete preserves all records", func(t *testing.T) {
		db := &mockDynamoClient{}
		out, err := newTestHandler(db).HandleEvent(ctx, &cfn.Event{
			RequestType:        "Delete",
			ResourceProperties: map[string]any{"Default": map[string]any{"a": "b"}},
		})
		assert.NoError(t, err)
		assert.Equal(t, "SUCCESS", out["Status"])
		assert.Empty(t, db.puts)
	})

	t.Run("resolution failure is a structured failure", func(t *testing.T) {
		db := &mockDynamoClient{}
		out, err := newTestHandler(db).HandleEvent(ctx, &cfn.Event{
			RequestType:        "Create",
			ResourceProperties: map[string]any{"Schema": "s3://bucket/missing.json"},
		})
		assert.NoError(t, err)
		assert.Equal(t, "FAILED", out["Status"])
		assert.Contains(t, out, "Error")
	})
}

func TestHandleEventOrchestrator(t *testing.T) {
	sender := &captureSender{}
	db := &mockDynamoClient{}

	dao := configdao.New(db, "test-configuration")
	handler := NewHandler(
		cfn.NewAdapter(sender, "test-log-stream"),
		services.NewConfigurationService(dao, content.NewResolver(&mockS3Client{})),
	)

	event := &cfn.Event{
		RequestType:        "Update",
		ResponseURL:        "https://example.com/cb",
		StackId:            "stack",
		RequestId:          "req-1",
		LogicalResourceId:  "ConfigResource",
		ResourceProperties: map[string]any{"Schema": map[string]any{"version": "1"}},
	}

	out, err := handler.HandleEvent(context.Background(), event)
	assert.NoError(t, err)
	assert.Equal(t, "SUCCESS", out["Status"])

	if assert.Len(t, sender.sent, 1) {
		resp := sender.sent[0]
		assert.Equal(t, cfn.StatusSuccess, resp.Status)
		assert.Equal(t, "stack/ConfigResource/configuration", resp.PhysicalResourceId)
		assert.Equal(t, "req-1", resp.RequestId)
	}
}

type captureSender struct {
	sent []*cfn.Response
}

func (c *captureSender) Send(ctx context.Context, url string, response *cfn.Response) error {
	c.sent = append(c.sent, response)
	return nil
}
