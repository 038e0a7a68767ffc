package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/yukikurage/task-tracker/internal/dto"
	apierrors "github.com/yukikurage/task-tracker/internal/errors"
	"github.com/yukikurage/task-tracker/internal/middleware"
	"github.com/yukikurage/task-tracker/internal/services"
)

type CommentHandler struct {
	commentService *services.CommentService
	log            zerolog.Logger
}

func NewCommentHandler(commentService *services.CommentService, log zerolog.Logger) *CommentHandler {
	return &CommentHandler{
		commentService: commentService,
		log:            log,
	}
}

// ListComments returns a task's comments, newest first
func (h *CommentHandler) ListComments(c *gin.Context) {
	identity, _ := middleware.GetIdentity(c)

	comments, err := h.commentService.ListComments(c.Request.Context(), identity, c.Param("id"))
	if err != nil {
		respondTaskError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"comments": dto.ToCommentDTOs(comments),
	})
}

// AddComment posts a comment as the current user
func (h *CommentHandler) AddComment(c *gin.Context) {
	type AddCommentRequest struct {
		Text string `json:"text"`
	}

	var req AddCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	identity, _ := middleware.GetIdentity(c)
	id, err := h.commentService.AddComment(c.Request.Context(), identity, c.Param("id"), req.Text)
	if err != nil {
		respondTaskError(c, h.log, err)
		return
	}

	addFlash(c, h.log, "Comment added successfully.")
	c.JSON(http.StatusCreated, gin.H{
		"comment_id": id,
	})
}
