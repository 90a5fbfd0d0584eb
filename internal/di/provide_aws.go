package di

import (
	"context"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ProvideContext returns the base context with the process logger attached,
// so providers resolved during container startup can log through zerolog.Ctx.
func ProvideContext() context.Context {
	logger := ProvideLogger()
	return logger.WithContext(context.Background())
}

// ProvideAWSConfig loads the default AWS config. AWS_ENDPOINT_URL_LOCAL
// points the SDK at a local endpoint (e.g. DynamoDB Local) with static
// credentials for development.
func ProvideAWSConfig(ctx context.Context) (aws.Config, error) {
	if endpoint := os.Getenv("AWS_ENDPOINT_URL_LOCAL"); endpoint != "" {
		return config.LoadDefaultConfig(ctx,
			config.WithBaseEndpoint(endpoint),
			config.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider("local", "local", ""),
			),
		)
	}
	return config.LoadDefaultConfig(ctx)
}

func ProvideDynamoDB(config aws.Config) *dynamodb.Client {
	return dynamodb.NewFromConfig(config)
}

func ProvideS3Client(config aws.Config) *s3.Client {
	return s3.NewFromConfig(config)
}
