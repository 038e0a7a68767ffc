package database

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbiface"
	"github.com/rs/zerolog"
	"github.com/yukikurage/task-tracker/internal/config"
)

// ConnectDynamo builds a DynamoDB client for the configured region. An explicit
// endpoint points it at DynamoDB Local.
func ConnectDynamo(cfg *config.Config) (dynamodbiface.DynamoDBAPI, error) {
	awsCfg := aws.NewConfig().WithRegion(cfg.AWSRegion)
	if cfg.DynamoDBEndpoint != "" {
		awsCfg = awsCfg.WithEndpoint(cfg.DynamoDBEndpoint)
	}

	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}
	return dynamodb.New(sess), nil
}

// EnsureDynamoTables creates the task and comment tables when missing. Both
// use a single string hash key and on-demand billing.
func EnsureDynamoTables(ctx context.Context, client dynamodbiface.DynamoDBAPI, cfg *config.Config, log zerolog.Logger) error {
	tables := []struct {
		name string
		key  string
	}{
		{cfg.DDBTaskTable, "task_id"},
		{cfg.DDBCommentTable, "comment_id"},
	}

	for _, t := range tables {
		_, err := client.DescribeTableWithContext(ctx, &dynamodb.DescribeTableInput{
			TableName: aws.String(t.name),
		})
		if err == nil {
			continue
		}
		if aerr, ok := err.(awserr.Error); !ok || aerr.Code() != dynamodb.ErrCodeResourceNotFoundException {
			return fmt.Errorf("failed to describe table %s: %w", t.name, err)
		}

		_, err = client.CreateTableWithContext(ctx, &dynamodb.CreateTableInput{
			TableName:   aws.String(t.name),
			BillingMode: aws.String(dynamodb.BillingModePayPerRequest),
			AttributeDefinitions: []*dynamodb.AttributeDefinition{
				{AttributeName: aws.String(t.key), AttributeType: aws.String(dynamodb.ScalarAttributeTypeS)},
			},
			KeySchema: []*dynamodb.KeySchemaElement{
				{AttributeName: aws.String(t.key), KeyType: aws.String(dynamodb.KeyTypeHash)},
			},
		})
		if err != nil {
			return fmt.Errorf("failed to create table %s: %w", t.name, err)
		}

		if err := client.WaitUntilTableExistsWithContext(ctx, &dynamodb.DescribeTableInput{
			TableName: aws.String(t.name),
		}); err != nil {
			return fmt.Errorf("failed waiting for table %s: %w", t.name, err)
		}
		log.Info().Str("table", t.name).Msg("created DynamoDB table")
	}

	return nil
}
