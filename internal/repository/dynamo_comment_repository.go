package repository

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbattribute"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbiface"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/yukikurage/task-tracker/internal/models"
	"github.com/yukikurage/task-tracker/internal/utils"
)

// DynamoCommentRepository is a DynamoDB implementation of CommentRepository
type DynamoCommentRepository struct {
	client    dynamodbiface.DynamoDBAPI
	table     string
	taskTable string
	log       zerolog.Logger
}

// NewDynamoCommentRepository creates an item-store CommentRepository
func NewDynamoCommentRepository(client dynamodbiface.DynamoDBAPI, table, taskTable string, log zerolog.Logger) CommentRepository {
	return &DynamoCommentRepository{
		client:    client,
		table:     table,
		taskTable: taskTable,
		log:       log,
	}
}

// Add checks the task exists, then puts the comment item
func (r *DynamoCommentRepository) Add(ctx context.Context, taskID, author, text string) (string, error) {
	if err := validateComment(taskID, author, text); err != nil {
		return "", err
	}

	out, err := r.client.GetItemWithContext(ctx, &dynamodb.GetItemInput{
		TableName:            aws.String(r.taskTable),
		Key:                  stringKey(taskKey, taskID),
		ProjectionExpression: aws.String(taskKey),
		ConsistentRead:       aws.Bool(true),
	})
	if err != nil {
		return "", backendErr("add comment", err)
	}
	if len(out.Item) == 0 {
		return "", ErrTaskNotFound
	}

	item := commentItem{
		CommentID: uuid.NewString(),
		TaskID:    taskID,
		Author:    author,
		Text:      text,
		CreatedAt: utils.FormatTimestamp(time.Now()),
	}

	av, err := dynamodbattribute.MarshalMap(item)
	if err != nil {
		return "", backendErr("marshal comment", err)
	}

	if _, err := r.client.PutItemWithContext(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.table),
		Item:      av,
	}); err != nil {
		return "", backendErr("add comment", err)
	}
	return item.CommentID, nil
}

// ListForTask scans the comment table filtered on task_id. Cost grows with the
// whole table, not with the task's comment count.
func (r *DynamoCommentRepository) ListForTask(ctx context.Context, taskID string) ([]models.Comment, error) {
	if strings.TrimSpace(taskID) == "" {
		return []models.Comment{}, nil
	}

	items, err := scanCommentsForTask(ctx, r.client, r.table, taskID)
	if err != nil {
		return nil, backendErr("list comments", err)
	}

	comments := make([]models.Comment, len(items))
	for i, item := range items {
		comments[i] = models.Comment{
			ID:        item.CommentID,
			TaskID:    item.TaskID,
			Author:    item.Author,
			Text:      item.Text,
			CreatedAt: parseStoredTime(r.log, item.CreatedAt, "created_at", item.CommentID),
		}
	}

	sort.SliceStable(comments, func(i, j int) bool {
		if comments[i].CreatedAt.Equal(comments[j].CreatedAt) {
			return comments[i].ID > comments[j].ID
		}
		return comments[i].CreatedAt.After(comments[j].CreatedAt)
	})
	return comments, nil
}

func scanCommentsForTask(ctx context.Context, client dynamodbiface.DynamoDBAPI, table, taskID string) ([]commentItem, error) {
	raw, err := scanAll(ctx, client, &dynamodb.ScanInput{
		TableName:        aws.String(table),
		FilterExpression: aws.String("#task_id = :task_id"),
		ExpressionAttributeNames: map[string]*string{
			"#task_id": aws.String(taskKey),
		},
		ExpressionAttributeValues: map[string]*dynamodb.AttributeValue{
			":task_id": {S: aws.String(taskID)},
		},
	})
	if err != nil {
		return nil, err
	}

	var items []commentItem
	if err := dynamodbattribute.UnmarshalListOfMaps(raw, &items); err != nil {
		return nil, err
	}
	return items, nil
}
