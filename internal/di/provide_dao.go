package di

import (
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/savaki/config-provisioner/internal/dao/configdao"
	"github.com/savaki/config-provisioner/internal/services"
)

func ProvideConfigDAO(config *services.Config, client *dynamodb.Client) *configdao.DAO {
	return configdao.New(client, config.TableName)
}
