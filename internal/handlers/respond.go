package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/yukikurage/task-tracker/internal/constants"
	apierrors "github.com/yukikurage/task-tracker/internal/errors"
	"github.com/yukikurage/task-tracker/internal/repository"
	"github.com/yukikurage/task-tracker/internal/services"
)

// addFlash queues a one-time message for the next dashboard view. It must run
// before the response body is written so the session cookie is still sent.
func addFlash(c *gin.Context, log zerolog.Logger, message string) {
	session := sessions.Default(c)
	session.AddFlash(message)
	if err := session.Save(); err != nil {
		log.Warn().Err(err).Msg("failed to save flash message")
	}
}

// drainFlashes returns and clears the queued messages.
func drainFlashes(c *gin.Context, log zerolog.Logger) []string {
	session := sessions.Default(c)
	flashes := session.Flashes()
	if len(flashes) == 0 {
		return []string{}
	}
	if err := session.Save(); err != nil {
		log.Warn().Err(err).Msg("failed to clear flash messages")
	}

	messages := make([]string, 0, len(flashes))
	for _, f := range flashes {
		if s, ok := f.(string); ok {
			messages = append(messages, s)
		}
	}
	return messages
}

// respondTaskError maps task and comment errors onto API errors.
func respondTaskError(c *gin.Context, log zerolog.Logger, err error) {
	var verr *repository.ValidationError

	switch {
	case errors.As(err, &verr):
		addFlash(c, log, verr.Error())
		apierrors.ValidationFailed(c, verr.Field, verr.Error())
	case errors.Is(err, repository.ErrValidation):
		apierrors.BadRequest(c, err.Error())
	case errors.Is(err, repository.ErrTaskNotFound):
		apierrors.NotFound(c, "Task not found")
	case errors.Is(err, services.ErrNoRole):
		addFlash(c, log, "Your account has no role assigned.")
		apierrors.NoRole(c)
	case errors.Is(err, services.ErrPermissionDenied):
		addFlash(c, log, "You do not have permission to perform this action.")
		apierrors.Forbidden(c, "")
	case errors.Is(err, services.ErrAIServiceNotConfigured):
		apierrors.ServiceUnavailable(c, err.Error())
	case errors.Is(err, services.ErrAINoTasksGenerated),
		errors.Is(err, services.ErrAINoValidTasks):
		apierrors.RespondWithError(c, http.StatusUnprocessableEntity, apierrors.NewAPIError(apierrors.ErrCodeInvalidInput, err.Error()))
	case errors.Is(err, repository.ErrBackend):
		log.Error().Err(err).Str("path", c.FullPath()).Msg("task store failure")
		addFlash(c, log, "The task store is unavailable, please try again.")
		apierrors.BackendFailure(c)
	default:
		log.Error().Err(err).Str("path", c.FullPath()).Msg("unexpected error")
		apierrors.InternalError(c, "")
	}
}

func respondAuthError(c *gin.Context, log zerolog.Logger, err error) {
	switch {
	case errors.Is(err, services.ErrUsernameRequired),
		errors.Is(err, services.ErrInvalidRole):
		apierrors.BadRequest(c, err.Error())
	case errors.Is(err, services.ErrPasswordTooShort):
		apierrors.BadRequest(c, fmt.Sprintf("Password must be at least %d characters", constants.MinPasswordLength))
	case errors.Is(err, services.ErrUsernameTaken):
		apierrors.Conflict(c, err.Error())
	case errors.Is(err, services.ErrInvalidCredentials):
		apierrors.InvalidCredentials(c)
	case errors.Is(err, services.ErrUserNotFound):
		apierrors.NotFound(c, err.Error())
	case errors.Is(err, services.ErrNoRole):
		apierrors.NoRole(c)
	case errors.Is(err, services.ErrPermissionDenied):
		apierrors.Forbidden(c, "")
	case errors.Is(err, services.ErrFailedToHashPassword),
		errors.Is(err, services.ErrFailedToCreateUser),
		errors.Is(err, services.ErrFailedToCreateRole):
		log.Error().Err(err).Msg("account creation failed")
		apierrors.InternalError(c, err.Error())
	default:
		log.Error().Err(err).Str("path", c.FullPath()).Msg("unexpected error")
		apierrors.InternalError(c, "")
	}
}
