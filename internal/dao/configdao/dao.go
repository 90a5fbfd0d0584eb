// Package configdao provides data access for configuration records stored
// in a single DynamoDB table keyed on the Configuration attribute.
package configdao

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// PartitionKey is the table's partition key attribute.
const PartitionKey = "Configuration"

// Name identifies a configuration record.
type Name string

const (
	NameSchema  Name = "Schema"
	NameDefault Name = "Default"
	NameCustom  Name = "Custom"
)

// String returns the string representation
func (n Name) String() string {
	return string(n)
}

// DynamoDBAPI is the subset of the DynamoDB client used by the DAO.
type DynamoDBAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// TableName derives the configuration table name from the environment.
// Deployments normally override it via CONFIGURATION_TABLE_NAME.
func TableName(env string) string {
	return fmt.Sprintf("%s-configuration", env)
}

// DAO provides data access operations for configuration records
type DAO struct {
	client    DynamoDBAPI
	tableName string
}

// New creates a new DAO instance
func New(client DynamoDBAPI, tableName string) *DAO {
	return &DAO{
		client:    client,
		tableName: tableName,
	}
}

// Put writes the record for name as a full-item upsert: any existing record
// under the same name is replaced, not patched. The partition key is always
// set from name; a same-named attribute inside content is discarded so the
// key is never sourced from resolved content.
func (d *DAO) Put(ctx context.Context, name Name, content map[string]any) error {
	item, err := adaptItem(content)
	if err != nil {
		return fmt.Errorf("failed to convert configuration %s: %w", name, err)
	}
	item[PartitionKey] = &types.AttributeValueMemberS{Value: name.String()}

	_, err = d.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(d.tableName),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("failed to put configuration %s: %w", name, err)
	}
	return nil
}

// Find retrieves a configuration record by name.
// Returns nil if not found.
func (d *DAO) Find(ctx context.Context, name Name) (map[string]any, error) {
	out, err := d.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(d.tableName),
		Key: map[string]types.AttributeValue{
			PartitionKey: &types.AttributeValueMemberS{Value: name.String()},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get configuration %s: %w", name, err)
	}
	if out.Item == nil {
		return nil, nil
	}

	var record map[string]any
	if err := attributevalue.UnmarshalMap(out.Item, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration %s: %w", name, err)
	}
	return record, nil
}

// Delete removes the record for name. The lifecycle handlers never call
// this: custom resource deletion preserves configuration data that other
// resources may depend on.
func (d *DAO) Delete(ctx context.Context, name Name) error {
	_, err := d.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(d.tableName),
		Key: map[string]types.AttributeValue{
			PartitionKey: &types.AttributeValueMemberS{Value: name.String()},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to delete configuration %s: %w", name, err)
	}
	return nil
}
