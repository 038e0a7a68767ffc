package repository_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/task-tracker/internal/database/dynamotest"
	"github.com/yukikurage/task-tracker/internal/models"
	"github.com/yukikurage/task-tracker/internal/repository"
)

func newFakeDynamo() *dynamotest.DB {
	return dynamotest.New(map[string]string{
		testTaskTable:    "task_id",
		testCommentTable: "comment_id",
	})
}

func TestDynamoTaskRepository_UnparsableTimestampFallsBackToNow(t *testing.T) {
	fake := newFakeDynamo()
	var buf bytes.Buffer
	repo := repository.NewDynamoTaskRepository(fake, testTaskTable, testCommentTable, zerolog.New(&buf))

	fake.PutRaw(testTaskTable, map[string]*dynamodb.AttributeValue{
		"task_id":     {S: aws.String("legacy-1")},
		"title":       {S: aws.String("Imported")},
		"assigned_to": {S: aws.String("bob")},
		"created_by":  {S: aws.String("alice")},
		"status":      {S: aws.String("PENDING")},
		"due_date":    {S: aws.String("next tuesday")},
		"created_at":  {S: aws.String("2025-01-10T08:00:00")},
		"updated_at":  {S: aws.String("2025-01-10T08:00:00.123456")},
	})

	before := time.Now().UTC()
	task, err := repo.Get(context.Background(), "legacy-1")
	require.NoError(t, err)

	assert.False(t, task.DueDate.Before(before.Add(-time.Second)))
	assert.True(t, task.CreatedAt.Equal(time.Date(2025, 1, 10, 8, 0, 0, 0, time.UTC)))
	assert.Equal(t, "", task.Description)
	assert.Contains(t, buf.String(), "unparsable stored timestamp")
	assert.Contains(t, buf.String(), "due_date")
	assert.Contains(t, buf.String(), "legacy-1")
}

func TestDynamoTaskRepository_UnknownStatusFallsBackToPending(t *testing.T) {
	fake := newFakeDynamo()
	var buf bytes.Buffer
	repo := repository.NewDynamoTaskRepository(fake, testTaskTable, testCommentTable, zerolog.New(&buf))

	fake.PutRaw(testTaskTable, map[string]*dynamodb.AttributeValue{
		"task_id":     {S: aws.String("legacy-2")},
		"title":       {S: aws.String("Imported")},
		"assigned_to": {S: aws.String("bob")},
		"created_by":  {S: aws.String("alice")},
		"status":      {S: aws.String("DONE")},
		"due_date":    {S: aws.String("2025-03-01T00:00:00Z")},
		"created_at":  {S: aws.String("2025-01-10T08:00:00Z")},
		"updated_at":  {S: aws.String("2025-01-10T08:00:00Z")},
	})

	task, err := repo.Get(context.Background(), "legacy-2")
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusPending, task.Status)

	tasks, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, models.TaskStatusPending, tasks[0].Status)

	assert.Contains(t, buf.String(), "unknown stored status")
	assert.Contains(t, buf.String(), "DONE")
	assert.Contains(t, buf.String(), "legacy-2")
}

func TestDynamoCommentRepository_AddReadsTaskConsistently(t *testing.T) {
	fake := newFakeDynamo()
	tasks := repository.NewDynamoTaskRepository(fake, testTaskTable, testCommentTable, zerolog.Nop())
	comments := repository.NewDynamoCommentRepository(fake, testCommentTable, testTaskTable, zerolog.Nop())
	ctx := context.Background()

	id, err := tasks.Create(ctx, repository.TaskFields{
		Title:      ptr("Fresh task"),
		AssignedTo: ptr("bob"),
		DueDate:    ptr(time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)),
	})
	require.NoError(t, err)

	_, err = comments.Add(ctx, id, "bob", "on it")
	require.NoError(t, err)
	assert.Zero(t, fake.EventualReads)
}

func TestDynamoTaskRepository_ListFollowsPagination(t *testing.T) {
	fake := newFakeDynamo()
	fake.PageSize = 2
	repo := repository.NewDynamoTaskRepository(fake, testTaskTable, testCommentTable, zerolog.Nop())

	for i := 0; i < 5; i++ {
		_, err := repo.Create(context.Background(), repository.TaskFields{
			Title:      ptr(fmt.Sprintf("task %d", i)),
			AssignedTo: ptr("bob"),
			DueDate:    ptr(time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)),
		})
		require.NoError(t, err)
	}

	tasks, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, tasks, 5)
	assert.GreaterOrEqual(t, fake.Scans, 3)
}

func TestDynamoTaskRepository_StatusUsesNamePlaceholder(t *testing.T) {
	fake := newFakeDynamo()
	repo := repository.NewDynamoTaskRepository(fake, testTaskTable, testCommentTable, zerolog.Nop())
	ctx := context.Background()

	id, err := repo.Create(ctx, repository.TaskFields{
		Title:      ptr("t"),
		AssignedTo: ptr("bob"),
		DueDate:    ptr(time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)),
	})
	require.NoError(t, err)

	require.NoError(t, repo.Update(ctx, id, repository.TaskFields{Status: ptr(models.TaskStatusInProgress)}))

	task, err := repo.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusInProgress, task.Status)
	assert.Equal(t, 1, fake.Len(testTaskTable))
}

func TestDynamoRepositories_BackendFailure(t *testing.T) {
	fake := newFakeDynamo()
	tasks := repository.NewDynamoTaskRepository(fake, testTaskTable, testCommentTable, zerolog.Nop())
	comments := repository.NewDynamoCommentRepository(fake, testCommentTable, testTaskTable, zerolog.Nop())
	ctx := context.Background()

	cause := errors.New("throughput exceeded")
	fake.FailWith(cause)

	_, err := tasks.Get(ctx, "any")
	assert.ErrorIs(t, err, repository.ErrBackend)
	assert.ErrorIs(t, err, cause)

	_, err = tasks.List(ctx)
	assert.ErrorIs(t, err, repository.ErrBackend)

	err = tasks.Update(ctx, "any", repository.TaskFields{Status: ptr(models.TaskStatusCompleted)})
	assert.ErrorIs(t, err, repository.ErrBackend)

	err = tasks.Delete(ctx, "any")
	assert.ErrorIs(t, err, repository.ErrBackend)

	_, err = comments.Add(ctx, "any", "bob", "hi")
	assert.ErrorIs(t, err, repository.ErrBackend)

	var backendErr *repository.BackendError
	require.ErrorAs(t, err, &backendErr)
	assert.Equal(t, "add comment", backendErr.Op)
}

func TestNewStore(t *testing.T) {
	_, err := repository.NewStore("hybrid", repository.StoreOptions{})
	assert.Error(t, err)

	_, err = repository.NewStore("local", repository.StoreOptions{})
	assert.Error(t, err)

	_, err = repository.NewStore("cloud", repository.StoreOptions{Dynamo: newFakeDynamo()})
	assert.Error(t, err)

	store, err := repository.NewStore("cloud", repository.StoreOptions{
		Dynamo:       newFakeDynamo(),
		TaskTable:    testTaskTable,
		CommentTable: testCommentTable,
	})
	require.NoError(t, err)
	assert.IsType(t, &repository.DynamoTaskRepository{}, store.Tasks)
	assert.IsType(t, &repository.DynamoCommentRepository{}, store.Comments)
}
