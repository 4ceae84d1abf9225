package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"facevoice-chat/internal/app"
	"facevoice-chat/internal/transport/http/response"
)

type ChatHandler struct {
	chatService *app.ChatService
}

type SendMessageRequest struct {
	SessionID string `json:"session_id"`
	Content   string `json:"content" binding:"required"`
}

type SelectModelRequest struct {
	Model string `json:"model" binding:"required,max=64"`
}

type CreateProjectRequest struct {
	Name  string `json:"name" binding:"required,max=128"`
	Color string `json:"color" binding:"max=32"`
}

type AddToProjectRequest struct {
	SessionID string `json:"session_id" binding:"required"`
}

func NewChatHandler(chatService *app.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

func (h *ChatHandler) CreateSession(c *gin.Context) {
	session := h.chatService.CreateSession()
	response.OK(c, session)
}

// ListSessions returns all sessions, optionally narrowed by the q query
// parameter (case-insensitive match on title or message content).
func (h *ChatHandler) ListSessions(c *gin.Context) {
	if query := c.Query("q"); query != "" {
		response.OK(c, h.chatService.FilterByQuery(query))
		return
	}
	response.OK(c, h.chatService.Sessions())
}

func (h *ChatHandler) GetSession(c *gin.Context) {
	session, ok := h.chatService.SessionByID(c.Param("id"))
	if !ok {
		response.Error(c, http.StatusNotFound, response.CodeSessionNotFound, "session not found")
		return
	}
	response.OK(c, session)
}

// SelectSession is a silent no-op for unknown ids, mirroring the client
// behavior this replaces.
func (h *ChatHandler) SelectSession(c *gin.Context) {
	h.chatService.SelectSession(c.Param("id"))
	session, ok := h.chatService.ActiveSession()
	if !ok {
		response.OK(c, nil)
		return
	}
	response.OK(c, session)
}

func (h *ChatHandler) DeleteSession(c *gin.Context) {
	id := c.Param("id")
	if err := h.chatService.DeleteSession(id); err != nil {
		switch {
		case errors.Is(err, app.ErrSessionNotFound):
			response.Error(c, http.StatusNotFound, response.CodeSessionNotFound, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "delete session failed")
		}
		return
	}
	response.OK(c, gin.H{"deleted_session_id": id})
}

func (h *ChatHandler) SendMessage(c *gin.Context) {
	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	result, err := h.chatService.SendMessage(c.Request.Context(), app.SendMessageInput{
		SessionID: req.SessionID,
		Content:   req.Content,
	})
	if err != nil {
		switch {
		case errors.Is(err, app.ErrMessageEmpty):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		case errors.Is(err, app.ErrSessionNotFound):
			response.Error(c, http.StatusNotFound, response.CodeSessionNotFound, err.Error())
		case errors.Is(err, app.ErrCompletionInFlight):
			response.Error(c, http.StatusConflict, response.CodeCompletionBusy, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "send message failed")
		}
		return
	}

	response.OK(c, result)
}

func (h *ChatHandler) SelectModel(c *gin.Context) {
	var req SelectModelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	h.chatService.SelectModel(req.Model)
	response.OK(c, gin.H{"model": req.Model})
}

func (h *ChatHandler) ListProjects(c *gin.Context) {
	response.OK(c, h.chatService.Projects())
}

func (h *ChatHandler) CreateProject(c *gin.Context) {
	var req CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	project, err := h.chatService.CreateProject(req.Name, req.Color)
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		return
	}
	response.OK(c, project)
}

func (h *ChatHandler) DeleteProject(c *gin.Context) {
	id := c.Param("id")
	if err := h.chatService.DeleteProject(id); err != nil {
		switch {
		case errors.Is(err, app.ErrProjectNotFound):
			response.Error(c, http.StatusNotFound, response.CodeProjectNotFound, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "delete project failed")
		}
		return
	}
	response.OK(c, gin.H{"deleted_project_id": id})
}

func (h *ChatHandler) AddSessionToProject(c *gin.Context) {
	var req AddToProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	if err := h.chatService.AddSessionToProject(req.SessionID, c.Param("id")); err != nil {
		switch {
		case errors.Is(err, app.ErrSessionNotFound):
			response.Error(c, http.StatusNotFound, response.CodeSessionNotFound, err.Error())
		case errors.Is(err, app.ErrProjectNotFound):
			response.Error(c, http.StatusNotFound, response.CodeProjectNotFound, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "add session to project failed")
		}
		return
	}
	response.OK(c, gin.H{"project_id": c.Param("id"), "session_id": req.SessionID})
}
