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

// DynamoTaskRepository is a DynamoDB implementation of TaskRepository
type DynamoTaskRepository struct {
	client       dynamodbiface.DynamoDBAPI
	table        string
	commentTable string
	log          zerolog.Logger
}

// NewDynamoTaskRepository creates an item-store TaskRepository. The comment
// table is needed so Delete can drop a task's comments with it.
func NewDynamoTaskRepository(client dynamodbiface.DynamoDBAPI, table, commentTable string, log zerolog.Logger) TaskRepository {
	return &DynamoTaskRepository{
		client:       client,
		table:        table,
		commentTable: commentTable,
		log:          log,
	}
}

// Create puts a new item under a random UUID
func (r *DynamoTaskRepository) Create(ctx context.Context, fields TaskFields) (string, error) {
	if err := validateNewTask(fields); err != nil {
		return "", err
	}

	now := utils.FormatTimestamp(time.Now())
	status := models.TaskStatusPending
	if fields.Status != nil {
		status = *fields.Status
	}

	item := taskItem{
		TaskID:      uuid.NewString(),
		Title:       *fields.Title,
		Description: stringOrEmpty(fields.Description),
		AssignedTo:  *fields.AssignedTo,
		CreatedBy:   stringOrEmpty(fields.CreatedBy),
		Status:      string(status),
		DueDate:     utils.FormatTimestamp(*fields.DueDate),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	av, err := dynamodbattribute.MarshalMap(item)
	if err != nil {
		return "", backendErr("marshal task", err)
	}

	_, err = r.client.PutItemWithContext(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.table),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(task_id)"),
	})
	if err != nil {
		return "", backendErr("create task", err)
	}
	return item.TaskID, nil
}

// Get reads one item by key
func (r *DynamoTaskRepository) Get(ctx context.Context, id string) (*models.Task, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrTaskNotFound
	}

	out, err := r.client.GetItemWithContext(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.table),
		Key:            stringKey(taskKey, id),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, backendErr("get task", err)
	}
	if len(out.Item) == 0 {
		return nil, ErrTaskNotFound
	}

	var item taskItem
	if err := dynamodbattribute.UnmarshalMap(out.Item, &item); err != nil {
		return nil, backendErr("unmarshal task", err)
	}

	task := r.toModel(item)
	return &task, nil
}

// List scans the whole table and sorts newest first, since a scan has no order
func (r *DynamoTaskRepository) List(ctx context.Context) ([]models.Task, error) {
	raw, err := scanAll(ctx, r.client, &dynamodb.ScanInput{
		TableName: aws.String(r.table),
	})
	if err != nil {
		return nil, backendErr("list tasks", err)
	}

	var items []taskItem
	if err := dynamodbattribute.UnmarshalListOfMaps(raw, &items); err != nil {
		return nil, backendErr("unmarshal tasks", err)
	}

	tasks := make([]models.Task, len(items))
	for i, item := range items {
		tasks[i] = r.toModel(item)
	}
	sortTasksNewestFirst(tasks)
	return tasks, nil
}

// Update sets the named attributes on an existing item
func (r *DynamoTaskRepository) Update(ctx context.Context, id string, fields TaskFields) error {
	if err := validateTaskUpdate(fields); err != nil {
		return err
	}
	if strings.TrimSpace(id) == "" {
		return ErrTaskNotFound
	}

	b := newSetExpression()
	if fields.Title != nil {
		b.set("title", &dynamodb.AttributeValue{S: fields.Title})
	}
	if fields.Description != nil {
		b.set("description", stringAttr(*fields.Description))
	}
	if fields.AssignedTo != nil {
		b.set("assigned_to", &dynamodb.AttributeValue{S: fields.AssignedTo})
	}
	if fields.CreatedBy != nil {
		b.set("created_by", stringAttr(*fields.CreatedBy))
	}
	if fields.Status != nil {
		b.set("status", &dynamodb.AttributeValue{S: aws.String(string(*fields.Status))})
	}
	if fields.DueDate != nil {
		b.set("due_date", &dynamodb.AttributeValue{S: aws.String(utils.FormatTimestamp(*fields.DueDate))})
	}
	b.set("updated_at", &dynamodb.AttributeValue{S: aws.String(utils.FormatTimestamp(time.Now()))})

	b.names["#pk"] = aws.String(taskKey)
	_, err := r.client.UpdateItemWithContext(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.table),
		Key:                       stringKey(taskKey, id),
		UpdateExpression:          aws.String(b.expression()),
		ConditionExpression:       aws.String("attribute_exists(#pk)"),
		ExpressionAttributeNames:  b.names,
		ExpressionAttributeValues: b.values,
	})
	if err != nil {
		if isConditionFailed(err) {
			return ErrTaskNotFound
		}
		return backendErr("update task", err)
	}
	return nil
}

// Delete removes the task's comments, then the task. Missing keys are a no-op.
func (r *DynamoTaskRepository) Delete(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return nil
	}

	comments, err := scanCommentsForTask(ctx, r.client, r.commentTable, id)
	if err != nil {
		return backendErr("delete task comments", err)
	}
	for _, c := range comments {
		if _, err := r.client.DeleteItemWithContext(ctx, &dynamodb.DeleteItemInput{
			TableName: aws.String(r.commentTable),
			Key:       stringKey(commentKey, c.CommentID),
		}); err != nil {
			return backendErr("delete task comments", err)
		}
	}

	_, err = r.client.DeleteItemWithContext(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.table),
		Key:       stringKey(taskKey, id),
	})
	if err != nil {
		return backendErr("delete task", err)
	}
	return nil
}

func (r *DynamoTaskRepository) toModel(item taskItem) models.Task {
	return models.Task{
		ID:          item.TaskID,
		Title:       item.Title,
		Description: item.Description,
		AssignedTo:  item.AssignedTo,
		CreatedBy:   item.CreatedBy,
		Status:      parseStoredStatus(r.log, item.Status, item.TaskID),
		DueDate:     parseStoredTime(r.log, item.DueDate, "due_date", item.TaskID),
		CreatedAt:   parseStoredTime(r.log, item.CreatedAt, "created_at", item.TaskID),
		UpdatedAt:   parseStoredTime(r.log, item.UpdatedAt, "updated_at", item.TaskID),
	}
}

func sortTasksNewestFirst(tasks []models.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		if tasks[i].CreatedAt.Equal(tasks[j].CreatedAt) {
			return tasks[i].ID > tasks[j].ID
		}
		return tasks[i].CreatedAt.After(tasks[j].CreatedAt)
	})
}

// stringAttr encodes an empty string as NULL, matching dynamodbattribute.
func stringAttr(s string) *dynamodb.AttributeValue {
	if s == "" {
		return &dynamodb.AttributeValue{NULL: aws.Bool(true)}
	}
	return &dynamodb.AttributeValue{S: aws.String(s)}
}

// setExpression builds "SET #a = :a, #b = :b". Every attribute goes through a
// name placeholder because status is a reserved word.
type setExpression struct {
	clauses []string
	names   map[string]*string
	values  map[string]*dynamodb.AttributeValue
}

func newSetExpression() *setExpression {
	return &setExpression{
		names:  map[string]*string{},
		values: map[string]*dynamodb.AttributeValue{},
	}
}

func (b *setExpression) set(attr string, value *dynamodb.AttributeValue) {
	b.clauses = append(b.clauses, "#"+attr+" = :"+attr)
	b.names["#"+attr] = aws.String(attr)
	b.values[":"+attr] = value
}

func (b *setExpression) expression() string {
	return "SET " + strings.Join(b.clauses, ", ")
}
