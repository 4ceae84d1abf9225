package app

import (
	"context"
	"errors"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"facevoice-chat/internal/ai"
	"facevoice-chat/internal/model"
	"facevoice-chat/internal/store"
)

var (
	ErrMessageEmpty       = errors.New("message content is empty")
	ErrSessionNotFound    = errors.New("session not found")
	ErrProjectNotFound    = errors.New("project not found")
	ErrCompletionInFlight = errors.New("a completion is already in flight for this session")
)

const (
	defaultTitle = "New Chat"
	titleMaxLen  = 50

	// Shown as an assistant turn when the gateway fails; the failure is
	// absorbed into the conversation, never re-thrown to the caller.
	apologyMessage = "Sorry, I encountered an error. Please try again."
)

// CompletionGateway produces a reply for an ordered message list, or a typed
// failure.
type CompletionGateway interface {
	Complete(ctx context.Context, modelID string, messages []ai.ChatMessage) (*ai.Completion, error)
}

// ChatService owns the session list, the project groupings and the active
// session. All mutations persist through the injected Store; those writes are
// best-effort and failures are only logged, the in-memory state stays the
// read model.
type ChatService struct {
	gateway CompletionGateway
	store   store.Store

	mu          sync.Mutex
	sessions    []*model.ChatSession // most-recent-first
	projects    []*model.Project
	activeID    string
	activeModel string
	inFlight    map[string]bool
	lastID      int64
}

type SendMessageInput struct {
	// SessionID selects the target session. Empty targets the active
	// session, creating one if none is active.
	SessionID string
	Content   string
}

type SendMessageResult struct {
	Session  model.ChatSession   `json:"session"`
	Messages []model.ChatMessage `json:"messages"`
	Model    string              `json:"model,omitempty"`
	Usage    ai.Usage            `json:"usage"`
}

func NewChatService(gateway CompletionGateway, st store.Store, defaultModel string) *ChatService {
	return &ChatService{
		gateway:     gateway,
		store:       st,
		activeModel: defaultModel,
		inFlight:    map[string]bool{},
	}
}

// LoadState restores sessions, projects and the active session id from the
// store. Missing keys are not an error.
func (s *ChatService) LoadState(ctx context.Context) error {
	var sessions []*model.ChatSession
	if _, err := s.store.Load(ctx, store.KeyChats, &sessions); err != nil {
		return err
	}
	var projects []*model.Project
	if _, err := s.store.Load(ctx, store.KeyProjects, &projects); err != nil {
		return err
	}
	var currentID string
	if _, err := s.store.Load(ctx, store.KeyCurrentChat, &currentID); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = sessions
	s.projects = projects
	s.activeID = ""
	for _, session := range s.sessions {
		if session.ID == currentID {
			s.activeID = currentID
			if session.Model != "" {
				s.activeModel = session.Model
			}
			break
		}
	}
	return nil
}

// CreateSession inserts a new session at the head of the list and makes it
// active.
func (s *ChatService) CreateSession() model.ChatSession {
	s.mu.Lock()
	defer s.mu.Unlock()

	session := s.newSessionLocked()
	s.persistLocked(context.Background())
	return cloneSession(session)
}

// SelectSession marks the session active. Unknown ids are a silent no-op. If
// the session carries a selected model, it becomes the active model.
func (s *ChatService) SelectSession(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session := s.findSessionLocked(id)
	if session == nil {
		return
	}
	s.activeID = session.ID
	if session.Model != "" {
		s.activeModel = session.Model
	}
	s.persistLocked(context.Background())
}

// DeleteSession removes the session from the global list and from every
// project that references it. Deleting the active session leaves no session
// active.
func (s *ChatService) DeleteSession(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i, session := range s.sessions {
		if session.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrSessionNotFound
	}

	s.sessions = append(s.sessions[:idx], s.sessions[idx+1:]...)
	for _, project := range s.projects {
		project.ChatIDs = removeString(project.ChatIDs, id)
	}
	if s.activeID == id {
		s.activeID = ""
	}
	s.persistLocked(context.Background())
	return nil
}

// Sessions returns the session list, most recent first.
func (s *ChatService) Sessions() []model.ChatSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneSessions(s.sessions)
}

// SessionByID returns a copy of one session.
func (s *ChatService) SessionByID(id string) (model.ChatSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if session := s.findSessionLocked(id); session != nil {
		return cloneSession(session), true
	}
	return model.ChatSession{}, false
}

// ActiveSession returns a copy of the active session, if any.
func (s *ChatService) ActiveSession() (model.ChatSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if session := s.findSessionLocked(s.activeID); session != nil {
		return cloneSession(session), true
	}
	return model.ChatSession{}, false
}

// FilterByQuery returns sessions whose title or any message content contains
// the query, case-insensitively. An empty query returns everything.
func (s *ChatService) FilterByQuery(query string) []model.ChatSession {
	s.mu.Lock()
	defer s.mu.Unlock()

	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return cloneSessions(s.sessions)
	}

	var matched []*model.ChatSession
	for _, session := range s.sessions {
		if strings.Contains(strings.ToLower(session.Title), query) {
			matched = append(matched, session)
			continue
		}
		for _, msg := range session.Messages {
			if strings.Contains(strings.ToLower(msg.Content), query) {
				matched = append(matched, session)
				break
			}
		}
	}
	return cloneSessions(matched)
}

func (s *ChatService) CreateProject(name, color string) (model.Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Project{}, ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	project := &model.Project{
		ID:    s.nextIDLocked(),
		Name:  name,
		Color: color,
	}
	s.projects = append(s.projects, project)
	s.persistLocked(context.Background())
	return cloneProject(project), nil
}

// DeleteProject removes the project. Referenced sessions stay in the global
// list.
func (s *ChatService) DeleteProject(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, project := range s.projects {
		if project.ID == id {
			s.projects = append(s.projects[:i], s.projects[i+1:]...)
			s.persistLocked(context.Background())
			return nil
		}
	}
	return ErrProjectNotFound
}

func (s *ChatService) Projects() []model.Project {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.Project, 0, len(s.projects))
	for _, project := range s.projects {
		out = append(out, cloneProject(project))
	}
	return out
}

// AddSessionToProject appends a session reference to the project. Re-adding
// moves the reference to the end. A session may be referenced by several
// projects at once.
func (s *ChatService) AddSessionToProject(sessionID, projectID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.findSessionLocked(sessionID) == nil {
		return ErrSessionNotFound
	}
	for _, project := range s.projects {
		if project.ID == projectID {
			project.ChatIDs = append(removeString(project.ChatIDs, sessionID), sessionID)
			s.persistLocked(context.Background())
			return nil
		}
	}
	return ErrProjectNotFound
}

// SelectModel records the model for the active session and persists
// immediately, independent of message flow.
func (s *ChatService) SelectModel(modelID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.activeModel = modelID
	if session := s.findSessionLocked(s.activeID); session != nil {
		session.Model = modelID
	}
	s.persistLocked(context.Background())
}

// SendMessage appends a user turn, calls the gateway with the full history
// and appends the reply. Gateway failures surface as an apology assistant
// turn, not as an error. At most one completion may be in flight per session;
// concurrent sends are rejected with ErrCompletionInFlight.
func (s *ChatService) SendMessage(ctx context.Context, input SendMessageInput) (*SendMessageResult, error) {
	content := strings.TrimSpace(input.Content)
	if content == "" {
		return nil, ErrMessageEmpty
	}

	s.mu.Lock()
	var session *model.ChatSession
	if input.SessionID != "" {
		session = s.findSessionLocked(input.SessionID)
		if session == nil {
			s.mu.Unlock()
			return nil, ErrSessionNotFound
		}
		s.activeID = session.ID
	} else if session = s.findSessionLocked(s.activeID); session == nil {
		session = s.newSessionLocked()
	}

	if s.inFlight[session.ID] {
		s.mu.Unlock()
		return nil, ErrCompletionInFlight
	}
	s.inFlight[session.ID] = true

	now := time.Now()
	userMessage := model.ChatMessage{
		ID:        s.nextIDLocked(),
		Role:      model.RoleUser,
		Content:   content,
		Timestamp: now,
	}
	session.Messages = append(session.Messages, userMessage)
	if session.Title == defaultTitle {
		session.Title = truncateTitle(content)
	}
	session.UpdatedAt = now

	sessionID := session.ID
	modelID := session.Model
	if modelID == "" {
		modelID = s.activeModel
	}
	history := make([]ai.ChatMessage, 0, len(session.Messages))
	for _, msg := range session.Messages {
		history = append(history, ai.ChatMessage{Role: msg.Role, Content: msg.Content})
	}
	s.persistLocked(ctx)
	s.mu.Unlock()

	completion, err := s.gateway.Complete(ctx, modelID, history)

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, sessionID)

	replyContent := apologyMessage
	servedModel := ""
	var usage ai.Usage
	if err != nil {
		log.Printf("completion failed for session %s: %v", sessionID, err)
	} else {
		replyContent = completion.Message
		servedModel = completion.Model
		usage = completion.Usage
	}

	// The session may have been deleted while the completion was running.
	session = s.findSessionLocked(sessionID)
	if session == nil {
		return nil, ErrSessionNotFound
	}

	assistantMessage := model.ChatMessage{
		ID:        s.nextIDLocked(),
		Role:      model.RoleAssistant,
		Content:   replyContent,
		Timestamp: time.Now(),
	}
	session.Messages = append(session.Messages, assistantMessage)
	session.UpdatedAt = assistantMessage.Timestamp
	s.persistLocked(ctx)

	return &SendMessageResult{
		Session:  cloneSession(session),
		Messages: []model.ChatMessage{userMessage, assistantMessage},
		Model:    servedModel,
		Usage:    usage,
	}, nil
}

func (s *ChatService) newSessionLocked() *model.ChatSession {
	now := time.Now()
	session := &model.ChatSession{
		ID:        s.nextIDLocked(),
		Title:     defaultTitle,
		CreatedAt: now,
		UpdatedAt: now,
		Model:     s.activeModel,
	}
	s.sessions = append([]*model.ChatSession{session}, s.sessions...)
	s.activeID = session.ID
	return session
}

func (s *ChatService) findSessionLocked(id string) *model.ChatSession {
	if id == "" {
		return nil
	}
	for _, session := range s.sessions {
		if session.ID == id {
			return session
		}
	}
	return nil
}

// nextIDLocked allocates a millisecond-timestamp id, bumping on collision so
// ids stay unique for the process lifetime.
func (s *ChatService) nextIDLocked() string {
	id := time.Now().UnixMilli()
	if id <= s.lastID {
		id = s.lastID + 1
	}
	s.lastID = id
	return strconv.FormatInt(id, 10)
}

func (s *ChatService) persistLocked(ctx context.Context) {
	if s.store == nil {
		return
	}
	if err := s.store.Save(ctx, store.KeyChats, s.sessions); err != nil {
		log.Printf("persist chats failed: %v", err)
	}
	if err := s.store.Save(ctx, store.KeyProjects, s.projects); err != nil {
		log.Printf("persist projects failed: %v", err)
	}
	if s.activeID == "" {
		if err := s.store.Delete(ctx, store.KeyCurrentChat); err != nil {
			log.Printf("clear current chat id failed: %v", err)
		}
	} else if err := s.store.Save(ctx, store.KeyCurrentChat, s.activeID); err != nil {
		log.Printf("persist current chat id failed: %v", err)
	}
}

func truncateTitle(content string) string {
	runes := []rune(content)
	if len(runes) <= titleMaxLen {
		return content
	}
	return string(runes[:titleMaxLen])
}

func removeString(list []string, value string) []string {
	out := make([]string, 0, len(list))
	for _, item := range list {
		if item != value {
			out = append(out, item)
		}
	}
	return out
}

func cloneSession(session *model.ChatSession) model.ChatSession {
	out := *session
	out.Messages = append([]model.ChatMessage(nil), session.Messages...)
	return out
}

func cloneSessions(sessions []*model.ChatSession) []model.ChatSession {
	out := make([]model.ChatSession, 0, len(sessions))
	for _, session := range sessions {
		out = append(out, cloneSession(session))
	}
	return out
}

func cloneProject(project *model.Project) model.Project {
	out := *project
	out.ChatIDs = append([]string(nil), project.ChatIDs...)
	return out
}
