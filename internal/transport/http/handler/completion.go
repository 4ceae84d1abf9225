package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"facevoice-chat/internal/ai"
	"facevoice-chat/internal/app"
)

// CompletionHandler serves the raw chat-completion contract consumed by the
// site front-end. Unlike the /api/v1 surface it does not wrap responses in
// the envelope: the request/response shapes are an external contract.
type CompletionHandler struct {
	gateway app.CompletionGateway
}

type CompletionRequest struct {
	Messages []ai.ChatMessage `json:"messages"`
	Model    string           `json:"model"`
}

func NewCompletionHandler(gateway app.CompletionGateway) *CompletionHandler {
	return &CompletionHandler{gateway: gateway}
}

func (h *CompletionHandler) Complete(c *gin.Context) {
	var req CompletionRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Messages == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Messages array is required"})
		return
	}

	completion, err := h.gateway.Complete(c.Request.Context(), req.Model, req.Messages)
	if err != nil {
		if errors.Is(err, ai.ErrNoMessages) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Messages array is required"})
			return
		}

		var apiErr *ai.Error
		if errors.As(err, &apiErr) {
			status := apiErr.Status
			if status == 0 {
				status = http.StatusInternalServerError
			}
			body := gin.H{"error": apiErr.Message}
			if apiErr.Code != "" {
				body["type"] = apiErr.Code
			}
			c.JSON(status, body)
			return
		}

		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get AI response"})
		return
	}

	c.JSON(http.StatusOK, completion)
}
