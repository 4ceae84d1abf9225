package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"facevoice-chat/internal/app"
	"facevoice-chat/internal/transport/http/middleware"
	"facevoice-chat/internal/transport/http/response"
)

type FeedHandler struct {
	feedService *app.FeedService
}

type CommentRequest struct {
	Content string `json:"content" binding:"required,max=2000"`
}

func NewFeedHandler(feedService *app.FeedService) *FeedHandler {
	return &FeedHandler{feedService: feedService}
}

func (h *FeedHandler) ListTools(c *gin.Context) {
	tools, err := h.feedService.ListTools()
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "list tools failed")
		return
	}
	response.OK(c, tools)
}

func (h *FeedHandler) Like(c *gin.Context) {
	h.interact(c, h.feedService.Like)
}

func (h *FeedHandler) Share(c *gin.Context) {
	h.interact(c, h.feedService.Share)
}

func (h *FeedHandler) interact(c *gin.Context, apply func(ctx context.Context, toolID, userID uint) error) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	toolID, ok := parseToolID(c)
	if !ok {
		return
	}

	if err := apply(c.Request.Context(), toolID, userID); err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		case errors.Is(err, app.ErrToolNotFound):
			response.Error(c, http.StatusNotFound, response.CodeToolNotFound, err.Error())
		case errors.Is(err, app.ErrInteractionEnqueue):
			response.Error(c, http.StatusServiceUnavailable, response.CodeInternalServer, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "apply interaction failed")
		}
		return
	}

	response.OK(c, gin.H{"tool_id": toolID, "accepted": true})
}

func (h *FeedHandler) Comment(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	toolID, ok := parseToolID(c)
	if !ok {
		return
	}

	var req CommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	author, _ := c.Get(middleware.ContextEmailKey)
	authorEmail, _ := author.(string)

	comment, err := h.feedService.Comment(toolID, userID, authorEmail, req.Content)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrCommentEmpty), errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		case errors.Is(err, app.ErrToolNotFound):
			response.Error(c, http.StatusNotFound, response.CodeToolNotFound, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "create comment failed")
		}
		return
	}

	response.OK(c, comment)
}

func (h *FeedHandler) ListComments(c *gin.Context) {
	toolID, ok := parseToolID(c)
	if !ok {
		return
	}

	limit := 100
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		}
	}

	comments, err := h.feedService.Comments(toolID, limit)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "list comments failed")
		return
	}
	response.OK(c, comments)
}

func parseToolID(c *gin.Context) (uint, bool) {
	toolID64, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || toolID64 == 0 {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid tool id")
		return 0, false
	}
	return uint(toolID64), true
}
