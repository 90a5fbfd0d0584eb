package di

import (
	"os"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/savaki/config-provisioner/internal/cfn"
	"github.com/savaki/config-provisioner/internal/content"
	"github.com/savaki/config-provisioner/internal/s3copy"
)

func ProvideResolver(client *s3.Client) *content.Resolver {
	return content.NewResolver(client)
}

func ProvideCopier(client *s3.Client) *s3copy.Copier {
	return s3copy.New(client)
}

func ProvideResponseSender() cfn.ResponseSender {
	return cfn.NewHTTPSender()
}

func ProvideAdapter(sender cfn.ResponseSender) *cfn.Adapter {
	return cfn.NewAdapter(sender, os.Getenv("AWS_LAMBDA_LOG_STREAM_NAME"))
}
