package handlers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/suite"
	"github.com/yukikurage/task-tracker/internal/config"
	"github.com/yukikurage/task-tracker/internal/dto"
	apierrors "github.com/yukikurage/task-tracker/internal/errors"
	"github.com/yukikurage/task-tracker/internal/models"
)

// TaskHandlerTestSuite drives the task routes over HTTP on one backend
type TaskHandlerTestSuite struct {
	suite.Suite
	mode  config.BackendMode
	env   *testEnv
	admin *client
	alice *client
	bob   *client
	carol *client
}

// SetupTest runs before each test
func (s *TaskHandlerTestSuite) SetupTest() {
	s.env = setupTestEnv(s.T(), s.mode)
	s.env.createUser("root", rolePtr(models.RoleAdmin))
	s.env.createUser("alice", rolePtr(models.RoleManager))
	s.env.createUser("bob", rolePtr(models.RoleEmployee))
	s.env.createUser("carol", rolePtr(models.RoleEmployee))

	s.admin = s.env.login("root")
	s.alice = s.env.login("alice")
	s.bob = s.env.login("bob")
	s.carol = s.env.login("carol")
}

func (s *TaskHandlerTestSuite) createTask(title, assignee string) dto.TaskDTO {
	w := s.alice.do(http.MethodPost, "/api/tasks", map[string]string{
		"title":       title,
		"description": "details",
		"assigned_to": assignee,
		"due_date":    "2025-03-01T17:00",
	})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	return decode[dto.TaskDTO](s.T(), w)
}

func (s *TaskHandlerTestSuite) TestScenario() {
	task := s.createTask("Write report", "bob")
	s.Equal(models.TaskStatusPending, task.Status)
	s.Equal("alice", task.CreatedBy)
	s.Equal("2025-03-01T17:00:00Z", task.DueDate.UTC().Format("2006-01-02T15:04:05Z07:00"))

	w := s.bob.do(http.MethodPut, "/api/tasks/"+task.ID, map[string]string{
		"title":  "HACKED",
		"status": "IN_PROGRESS",
	})
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	updated := decode[dto.TaskDTO](s.T(), w)
	s.Equal("Write report", updated.Title)
	s.Equal(models.TaskStatusInProgress, updated.Status)

	w = s.carol.do(http.MethodPut, "/api/tasks/"+task.ID, map[string]string{"status": "COMPLETED"})
	s.Equal(http.StatusForbidden, w.Code)

	w = s.carol.do(http.MethodGet, "/api/tasks/"+task.ID, nil)
	s.Equal(http.StatusForbidden, w.Code)

	w = s.carol.do(http.MethodGet, "/api/dashboard", nil)
	s.Require().Equal(http.StatusOK, w.Code)
	carolView := decode[dto.DashboardDTO](s.T(), w)
	s.Contains(carolView.Messages, "You do not have permission to perform this action.")
	s.Require().Len(carolView.Tasks, 1)
	s.False(carolView.Tasks[0].CanEdit)

	w = s.bob.do(http.MethodPost, "/api/tasks/"+task.ID+"/comments", map[string]string{"text": "halfway there"})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	w = s.bob.do(http.MethodGet, "/api/tasks/"+task.ID, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	detail := decode[dto.TaskDetailDTO](s.T(), w)
	s.True(detail.Task.CanEdit)
	s.Require().Len(detail.Comments, 1)
	s.Equal("bob", detail.Comments[0].Author)
	s.Equal("halfway there", detail.Comments[0].Text)

	w = s.bob.do(http.MethodGet, "/api/dashboard", nil)
	s.Require().Equal(http.StatusOK, w.Code)
	bobView := decode[dto.DashboardDTO](s.T(), w)
	s.Equal(1, bobView.Stats.Total)
	s.Equal(1, bobView.Stats.InProgress)
	s.Contains(bobView.Messages, "Task updated successfully.")
	s.Contains(bobView.Messages, "Comment added successfully.")

	// flashes are shown once
	w = s.bob.do(http.MethodGet, "/api/dashboard", nil)
	s.Empty(decode[dto.DashboardDTO](s.T(), w).Messages)
}

func (s *TaskHandlerTestSuite) TestCreateTask_RequiresManager() {
	payload := map[string]string{"title": "t", "assigned_to": "bob", "due_date": "2025-03-01"}

	s.Equal(http.StatusForbidden, s.bob.do(http.MethodPost, "/api/tasks", payload).Code)
	s.Equal(http.StatusForbidden, s.admin.do(http.MethodPost, "/api/tasks", payload).Code)
	s.Equal(http.StatusUnauthorized, s.env.anonymous().do(http.MethodPost, "/api/tasks", payload).Code)
}

func (s *TaskHandlerTestSuite) TestCreateTask_Validation() {
	w := s.alice.do(http.MethodPost, "/api/tasks", map[string]string{"title": "t", "assigned_to": "bob"})
	s.Require().Equal(http.StatusBadRequest, w.Code)
	apiErr := decode[apierrors.APIError](s.T(), w)
	s.Equal(apierrors.ErrCodeValidation, apiErr.Code)
	s.Equal(map[string]interface{}{"field": "due_date"}, apiErr.Details)

	w = s.alice.do(http.MethodPost, "/api/tasks", map[string]string{"title": "t", "assigned_to": "bob", "due_date": "soon"})
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *TaskHandlerTestSuite) TestUpdateTask_ManagerNeedsFullForm() {
	task := s.createTask("t", "bob")

	w := s.alice.do(http.MethodPut, "/api/tasks/"+task.ID, map[string]string{"status": "COMPLETED"})
	s.Equal(http.StatusBadRequest, w.Code)

	w = s.alice.do(http.MethodPut, "/api/tasks/"+task.ID, map[string]string{
		"title":       "Renamed",
		"description": "",
		"assigned_to": "carol",
		"status":      "completed",
		"due_date":    "2025-04-01T09:00:00Z",
	})
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	updated := decode[dto.TaskDTO](s.T(), w)
	s.Equal("carol", updated.AssignedTo)
	s.Equal(models.TaskStatusCompleted, updated.Status)

	w = s.carol.do(http.MethodGet, "/api/tasks/"+task.ID, nil)
	s.Equal(http.StatusOK, w.Code)
}

func (s *TaskHandlerTestSuite) TestUpdateTask_InvalidStatusAndMissingTask() {
	task := s.createTask("t", "bob")

	w := s.bob.do(http.MethodPut, "/api/tasks/"+task.ID, map[string]string{"status": "DONE"})
	s.Equal(http.StatusBadRequest, w.Code)

	w = s.alice.do(http.MethodPut, "/api/tasks/424242", map[string]string{"status": "DONE"})
	s.Equal(http.StatusNotFound, w.Code)

	w = s.alice.do(http.MethodGet, "/api/tasks/424242", nil)
	s.Equal(http.StatusNotFound, w.Code)
}

func (s *TaskHandlerTestSuite) TestNoRoleIsDenied() {
	task := s.createTask("t", "ghost")
	s.env.createUser("ghost", nil)
	ghost := s.env.login("ghost")

	w := ghost.do(http.MethodPut, "/api/tasks/"+task.ID, map[string]string{"status": "COMPLETED"})
	s.Require().Equal(http.StatusForbidden, w.Code)
	s.Equal(apierrors.ErrCodeNoRole, decode[apierrors.APIError](s.T(), w).Code)

	w = ghost.do(http.MethodPost, "/api/tasks", map[string]string{"title": "t", "assigned_to": "bob", "due_date": "2025-03-01"})
	s.Equal(http.StatusForbidden, w.Code)
}

func (s *TaskHandlerTestSuite) TestDeleteTask() {
	task := s.createTask("t", "bob")

	s.Equal(http.StatusForbidden, s.alice.do(http.MethodDelete, "/api/tasks/"+task.ID, nil).Code)
	s.Equal(http.StatusForbidden, s.bob.do(http.MethodDelete, "/api/tasks/"+task.ID, nil).Code)

	s.Equal(http.StatusOK, s.admin.do(http.MethodDelete, "/api/tasks/"+task.ID, nil).Code)
	s.Equal(http.StatusOK, s.admin.do(http.MethodDelete, "/api/tasks/"+task.ID, nil).Code)

	s.Equal(http.StatusNotFound, s.alice.do(http.MethodGet, "/api/tasks/"+task.ID, nil).Code)
}

func (s *TaskHandlerTestSuite) TestComments() {
	task := s.createTask("t", "bob")

	w := s.bob.do(http.MethodPost, "/api/tasks/"+task.ID+"/comments", map[string]string{"text": ""})
	s.Equal(http.StatusBadRequest, w.Code)

	w = s.carol.do(http.MethodPost, "/api/tasks/"+task.ID+"/comments", map[string]string{"text": "hi"})
	s.Equal(http.StatusForbidden, w.Code)

	w = s.alice.do(http.MethodPost, "/api/tasks/424242/comments", map[string]string{"text": "hi"})
	s.Equal(http.StatusNotFound, w.Code)

	w = s.alice.do(http.MethodPost, "/api/tasks/"+task.ID+"/comments", map[string]string{"text": "please hurry"})
	s.Require().Equal(http.StatusCreated, w.Code)

	w = s.bob.do(http.MethodGet, "/api/tasks/"+task.ID+"/comments", nil)
	s.Require().Equal(http.StatusOK, w.Code)
	body := decode[map[string][]dto.CommentDTO](s.T(), w)
	s.Require().Len(body["comments"], 1)
	s.Equal("alice", body["comments"][0].Author)
}

func (s *TaskHandlerTestSuite) TestGenerateTasks_NotConfigured() {
	w := s.alice.do(http.MethodPost, "/api/tasks/generate", map[string]string{"text": "bob should send the invoice"})
	s.Equal(http.StatusServiceUnavailable, w.Code)

	w = s.bob.do(http.MethodPost, "/api/tasks/generate", map[string]string{"text": "x"})
	s.Equal(http.StatusForbidden, w.Code)
}

func (s *TaskHandlerTestSuite) TestDashboard_RequiresLogin() {
	w := s.env.anonymous().do(http.MethodGet, "/api/dashboard", nil)
	s.Equal(http.StatusUnauthorized, w.Code)
}

func TestTaskHandlerTestSuite_Local(t *testing.T) {
	suite.Run(t, &TaskHandlerTestSuite{mode: config.BackendLocal})
}

func TestTaskHandlerTestSuite_Cloud(t *testing.T) {
	suite.Run(t, &TaskHandlerTestSuite{mode: config.BackendCloud})
}
