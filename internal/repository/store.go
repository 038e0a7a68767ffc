package repository

import (
	"fmt"

	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbiface"
	"github.com/rs/zerolog"
	"github.com/yukikurage/task-tracker/internal/config"
	"gorm.io/gorm"
)

// Store bundles the task and comment repositories of one backend.
type Store struct {
	Mode     config.BackendMode
	Tasks    TaskRepository
	Comments CommentRepository
}

// StoreOptions carries the connections a backend may need. Only the one
// matching the mode has to be set.
type StoreOptions struct {
	DB           *gorm.DB
	Dynamo       dynamodbiface.DynamoDBAPI
	TaskTable    string
	CommentTable string
	Logger       zerolog.Logger
}

// NewStore picks the backend once, at construction.
func NewStore(mode config.BackendMode, opts StoreOptions) (*Store, error) {
	switch mode {
	case config.BackendLocal:
		if opts.DB == nil {
			return nil, fmt.Errorf("local backend requires a database connection")
		}
		return &Store{
			Mode:     mode,
			Tasks:    NewGormTaskRepository(opts.DB),
			Comments: NewGormCommentRepository(opts.DB),
		}, nil

	case config.BackendCloud:
		if opts.Dynamo == nil {
			return nil, fmt.Errorf("cloud backend requires a DynamoDB client")
		}
		if opts.TaskTable == "" || opts.CommentTable == "" {
			return nil, fmt.Errorf("cloud backend requires task and comment table names")
		}
		log := opts.Logger.With().Str("backend", string(mode)).Logger()
		return &Store{
			Mode:     mode,
			Tasks:    NewDynamoTaskRepository(opts.Dynamo, opts.TaskTable, opts.CommentTable, log),
			Comments: NewDynamoCommentRepository(opts.Dynamo, opts.CommentTable, opts.TaskTable, log),
		}, nil

	default:
		return nil, fmt.Errorf("unknown backend mode %q", mode)
	}
}
