package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"facevoice-chat/internal/app"
)

// GroupChatHandler serves the group-chat link endpoints. Like the completion
// endpoint, the shapes are an external contract and skip the envelope.
type GroupChatHandler struct {
	groupService *app.GroupChatService
}

type CreateGroupChatRequest struct {
	Name      string `json:"name"`
	CreatorID string `json:"creatorId"`
}

func NewGroupChatHandler(groupService *app.GroupChatService) *GroupChatHandler {
	return &GroupChatHandler{groupService: groupService}
}

func (h *GroupChatHandler) Create(c *gin.Context) {
	var req CreateGroupChatRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Group name is required"})
		return
	}

	groupChat, err := h.groupService.CreateGroupLink(c.Request.Context(), req.Name, req.CreatorID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create group chat"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"groupChat": groupChat})
}

func (h *GroupChatHandler) Resolve(c *gin.Context) {
	groupID := c.Query("id")
	if groupID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Group ID is required"})
		return
	}

	status, err := h.groupService.ResolveGroupLink(groupID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve group chat"})
		return
	}

	c.JSON(http.StatusOK, status)
}
