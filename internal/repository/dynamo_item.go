package repository

import (
	"context"
	"errors"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbiface"
	"github.com/rs/zerolog"
	"github.com/yukikurage/task-tracker/internal/models"
	"github.com/yukikurage/task-tracker/internal/utils"
)

// taskItem is the item-store shape of a task. Timestamps are ISO-8601 strings.
type taskItem struct {
	TaskID      string `dynamodbav:"task_id"`
	Title       string `dynamodbav:"title"`
	Description string `dynamodbav:"description"`
	AssignedTo  string `dynamodbav:"assigned_to"`
	CreatedBy   string `dynamodbav:"created_by"`
	Status      string `dynamodbav:"status"`
	DueDate     string `dynamodbav:"due_date"`
	CreatedAt   string `dynamodbav:"created_at"`
	UpdatedAt   string `dynamodbav:"updated_at"`
}

// commentItem is the item-store shape of a comment.
type commentItem struct {
	CommentID string `dynamodbav:"comment_id"`
	TaskID    string `dynamodbav:"task_id"`
	Author    string `dynamodbav:"username"`
	Text      string `dynamodbav:"content"`
	CreatedAt string `dynamodbav:"created_at"`
}

const (
	taskKey    = "task_id"
	commentKey = "comment_id"
)

func stringKey(name, value string) map[string]*dynamodb.AttributeValue {
	return map[string]*dynamodb.AttributeValue{
		name: {S: aws.String(value)},
	}
}

// scanAll follows LastEvaluatedKey until the table is exhausted.
func scanAll(ctx context.Context, client dynamodbiface.DynamoDBAPI, input *dynamodb.ScanInput) ([]map[string]*dynamodb.AttributeValue, error) {
	var items []map[string]*dynamodb.AttributeValue
	for {
		out, err := client.ScanWithContext(ctx, input)
		if err != nil {
			return nil, err
		}
		items = append(items, out.Items...)
		if len(out.LastEvaluatedKey) == 0 {
			return items, nil
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}
}

func isConditionFailed(err error) bool {
	var aerr awserr.Error
	return errors.As(err, &aerr) && aerr.Code() == dynamodb.ErrCodeConditionalCheckFailedException
}

// parseStoredTime reads a stored timestamp. An unparsable value is replaced by
// the current time and logged, so a bad row never blocks the edit flow.
func parseStoredTime(log zerolog.Logger, raw, field, id string) time.Time {
	t, err := utils.ParseTimestamp(raw)
	if err != nil {
		log.Warn().
			Str("id", id).
			Str("field", field).
			Str("value", raw).
			Err(err).
			Msg("unparsable stored timestamp, substituting current time")
		return time.Now().UTC()
	}
	return t
}

// parseStoredStatus maps a status outside the known set to PENDING.
func parseStoredStatus(log zerolog.Logger, raw, id string) models.TaskStatus {
	status := models.TaskStatus(raw)
	if status.Valid() {
		return status
	}
	log.Warn().
		Str("id", id).
		Str("value", raw).
		Msg("unknown stored status, substituting PENDING")
	return models.TaskStatusPending
}
