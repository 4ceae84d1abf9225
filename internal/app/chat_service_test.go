package app

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"facevoice-chat/internal/ai"
	"facevoice-chat/internal/model"
	"facevoice-chat/internal/store"
)

type stubGateway struct {
	mu          sync.Mutex
	calls       int
	reply       string
	err         error
	lastModel   string
	lastHistory []ai.ChatMessage

	// When set, Complete signals started and blocks until release closes.
	started chan struct{}
	release chan struct{}
}

func (g *stubGateway) Complete(_ context.Context, modelID string, messages []ai.ChatMessage) (*ai.Completion, error) {
	g.mu.Lock()
	g.calls++
	g.lastModel = modelID
	g.lastHistory = append([]ai.ChatMessage(nil), messages...)
	started, release := g.started, g.release
	g.started = nil
	g.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if release != nil {
		<-release
	}
	if g.err != nil {
		return nil, g.err
	}
	return &ai.Completion{
		Message: g.reply,
		Model:   ai.ResolveModel(modelID),
		Usage:   ai.Usage{PromptTokens: 5, CompletionTokens: 5, TotalTokens: 10},
	}, nil
}

func (g *stubGateway) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

func newTestChatService(gateway *stubGateway) *ChatService {
	return NewChatService(gateway, store.NewMemoryStore(), "llama-3.1-8b-instant")
}

func TestSendMessageAlternatesTurns(t *testing.T) {
	gateway := &stubGateway{reply: "pong"}
	svc := newTestChatService(gateway)

	var sessionID string
	for i, content := range []string{"first", "second", "third"} {
		result, err := svc.SendMessage(context.Background(), SendMessageInput{SessionID: sessionID, Content: content})
		if err != nil {
			t.Fatalf("send %d failed: %v", i, err)
		}
		sessionID = result.Session.ID
		if len(result.Messages) != 2 {
			t.Fatalf("send %d: expected user+assistant pair, got %d messages", i, len(result.Messages))
		}
	}

	session, ok := svc.SessionByID(sessionID)
	if !ok {
		t.Fatal("session disappeared")
	}
	if len(session.Messages) != 6 {
		t.Fatalf("expected 6 messages, got %d", len(session.Messages))
	}
	for i, msg := range session.Messages {
		want := model.RoleUser
		if i%2 == 1 {
			want = model.RoleAssistant
		}
		if msg.Role != want {
			t.Fatalf("message %d has role %q, want %q", i, msg.Role, want)
		}
	}
	if gateway.callCount() != 3 {
		t.Fatalf("expected 3 gateway calls, got %d", gateway.callCount())
	}
}

func TestSendMessageCreatesSessionWhenNoneActive(t *testing.T) {
	svc := newTestChatService(&stubGateway{reply: "hi"})

	result, err := svc.SendMessage(context.Background(), SendMessageInput{Content: "Hello"})
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if result.Session.ID == "" {
		t.Fatal("expected an implicit session")
	}
	active, ok := svc.ActiveSession()
	if !ok || active.ID != result.Session.ID {
		t.Fatalf("implicit session is not active: %+v", active)
	}
}

func TestSendMessageRejectsBlankContent(t *testing.T) {
	gateway := &stubGateway{reply: "x"}
	svc := newTestChatService(gateway)

	for _, content := range []string{"", "   ", "\n\t"} {
		if _, err := svc.SendMessage(context.Background(), SendMessageInput{Content: content}); !errors.Is(err, ErrMessageEmpty) {
			t.Fatalf("content %q: expected ErrMessageEmpty, got %v", content, err)
		}
	}
	if gateway.callCount() != 0 {
		t.Fatalf("gateway called %d times for blank input", gateway.callCount())
	}
	if len(svc.Sessions()) != 0 {
		t.Fatal("blank input must not create a session")
	}
}

func TestSendMessageUnknownSession(t *testing.T) {
	svc := newTestChatService(&stubGateway{reply: "x"})

	_, err := svc.SendMessage(context.Background(), SendMessageInput{SessionID: "missing", Content: "hi"})
	if !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestTitleDerivedFromFirstUserMessage(t *testing.T) {
	svc := newTestChatService(&stubGateway{reply: "ok"})

	session := svc.CreateSession()
	if session.Title != "New Chat" {
		t.Fatalf("fresh session title = %q", session.Title)
	}

	long := strings.Repeat("héllo ", 12) // 72 runes
	result, err := svc.SendMessage(context.Background(), SendMessageInput{SessionID: session.ID, Content: long})
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}
	title := []rune(result.Session.Title)
	if len(title) != 50 {
		t.Fatalf("expected 50-rune title, got %d runes (%q)", len(title), result.Session.Title)
	}
	if !strings.HasPrefix(long, string(title)) {
		t.Fatalf("title %q is not a prefix of the first message", result.Session.Title)
	}

	// The title is set once; later messages leave it alone.
	result, err = svc.SendMessage(context.Background(), SendMessageInput{SessionID: session.ID, Content: "a different topic"})
	if err != nil {
		t.Fatalf("second send failed: %v", err)
	}
	if string(title) != result.Session.Title {
		t.Fatalf("title changed on second message: %q", result.Session.Title)
	}
}

func TestSendMessageBusyGuard(t *testing.T) {
	gateway := &stubGateway{
		reply:   "slow reply",
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	svc := newTestChatService(gateway)
	session := svc.CreateSession()

	done := make(chan error, 1)
	go func() {
		_, err := svc.SendMessage(context.Background(), SendMessageInput{SessionID: session.ID, Content: "first"})
		done <- err
	}()
	<-gateway.started

	_, err := svc.SendMessage(context.Background(), SendMessageInput{SessionID: session.ID, Content: "second"})
	if !errors.Is(err, ErrCompletionInFlight) {
		t.Fatalf("expected ErrCompletionInFlight, got %v", err)
	}

	close(gateway.release)
	if err := <-done; err != nil {
		t.Fatalf("first send failed: %v", err)
	}
	if gateway.callCount() != 1 {
		t.Fatalf("expected 1 gateway call, got %d", gateway.callCount())
	}

	got, _ := svc.SessionByID(session.ID)
	if len(got.Messages) != 2 {
		t.Fatalf("expected 2 messages after rejected send, got %d", len(got.Messages))
	}

	// The guard clears once the completion finishes.
	if _, err := svc.SendMessage(context.Background(), SendMessageInput{SessionID: session.ID, Content: "third"}); err != nil {
		t.Fatalf("send after completion failed: %v", err)
	}
}

func TestSessionDeletedDuringCompletion(t *testing.T) {
	gateway := &stubGateway{
		reply:   "too late",
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	svc := newTestChatService(gateway)
	session := svc.CreateSession()

	done := make(chan error, 1)
	go func() {
		_, err := svc.SendMessage(context.Background(), SendMessageInput{SessionID: session.ID, Content: "hi"})
		done <- err
	}()
	<-gateway.started

	if err := svc.DeleteSession(session.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	close(gateway.release)

	if err := <-done; !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound after mid-flight delete, got %v", err)
	}
}

func TestGatewayFailureBecomesApologyTurn(t *testing.T) {
	gateway := &stubGateway{err: errors.New("provider exploded")}
	svc := newTestChatService(gateway)

	result, err := svc.SendMessage(context.Background(), SendMessageInput{Content: "hi"})
	if err != nil {
		t.Fatalf("expected failure to be absorbed, got %v", err)
	}
	assistant := result.Messages[1]
	if assistant.Role != model.RoleAssistant {
		t.Fatalf("second message role = %q", assistant.Role)
	}
	if assistant.Content != "Sorry, I encountered an error. Please try again." {
		t.Fatalf("unexpected apology text %q", assistant.Content)
	}
	if result.Model != "" {
		t.Fatalf("failed completion must not report a served model, got %q", result.Model)
	}
}

func TestDeleteSessionCascadesToProjects(t *testing.T) {
	svc := newTestChatService(&stubGateway{reply: "ok"})

	session := svc.CreateSession()
	other := svc.CreateSession()
	project, err := svc.CreateProject("Research", "#ff0000")
	if err != nil {
		t.Fatalf("create project failed: %v", err)
	}
	if err := svc.AddSessionToProject(session.ID, project.ID); err != nil {
		t.Fatalf("add to project failed: %v", err)
	}
	if err := svc.AddSessionToProject(other.ID, project.ID); err != nil {
		t.Fatalf("add to project failed: %v", err)
	}

	svc.SelectSession(session.ID)
	if err := svc.DeleteSession(session.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	if _, ok := svc.SessionByID(session.ID); ok {
		t.Fatal("session still listed after delete")
	}
	if _, ok := svc.ActiveSession(); ok {
		t.Fatal("deleted session left active")
	}
	projects := svc.Projects()
	if len(projects) != 1 || len(projects[0].ChatIDs) != 1 || projects[0].ChatIDs[0] != other.ID {
		t.Fatalf("project references not cleaned: %+v", projects)
	}

	if err := svc.DeleteSession(session.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("double delete: expected ErrSessionNotFound, got %v", err)
	}
}

func TestDeleteProjectKeepsSessions(t *testing.T) {
	svc := newTestChatService(&stubGateway{reply: "ok"})

	session := svc.CreateSession()
	project, _ := svc.CreateProject("Temp", "")
	if err := svc.AddSessionToProject(session.ID, project.ID); err != nil {
		t.Fatalf("add to project failed: %v", err)
	}
	if err := svc.DeleteProject(project.ID); err != nil {
		t.Fatalf("delete project failed: %v", err)
	}
	if _, ok := svc.SessionByID(session.ID); !ok {
		t.Fatal("session vanished with its project")
	}
	if err := svc.DeleteProject(project.ID); !errors.Is(err, ErrProjectNotFound) {
		t.Fatalf("expected ErrProjectNotFound, got %v", err)
	}
}

func TestSessionMayBelongToSeveralProjects(t *testing.T) {
	svc := newTestChatService(&stubGateway{reply: "ok"})

	session := svc.CreateSession()
	first, _ := svc.CreateProject("First", "")
	second, _ := svc.CreateProject("Second", "")

	if err := svc.AddSessionToProject(session.ID, first.ID); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if err := svc.AddSessionToProject(session.ID, second.ID); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	for _, project := range svc.Projects() {
		if len(project.ChatIDs) != 1 || project.ChatIDs[0] != session.ID {
			t.Fatalf("project %q missing the shared session: %+v", project.Name, project.ChatIDs)
		}
	}

	// Re-adding is idempotent, not duplicating.
	if err := svc.AddSessionToProject(session.ID, first.ID); err != nil {
		t.Fatalf("re-add failed: %v", err)
	}
	for _, project := range svc.Projects() {
		if project.ID == first.ID && len(project.ChatIDs) != 1 {
			t.Fatalf("re-add duplicated the reference: %+v", project.ChatIDs)
		}
	}
}

func TestFilterByQuery(t *testing.T) {
	gateway := &stubGateway{reply: "The capital of France is Paris."}
	svc := newTestChatService(gateway)

	titled := svc.CreateSession()
	if _, err := svc.SendMessage(context.Background(), SendMessageInput{SessionID: titled.ID, Content: "Geography Questions about Europe"}); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	svc.CreateSession()

	if got := svc.FilterByQuery("geography"); len(got) != 1 || got[0].ID != titled.ID {
		t.Fatalf("title match failed: %+v", got)
	}
	if got := svc.FilterByQuery("PARIS"); len(got) != 1 || got[0].ID != titled.ID {
		t.Fatalf("content match should be case-insensitive: %+v", got)
	}
	if got := svc.FilterByQuery("  "); len(got) != 2 {
		t.Fatalf("blank query should return everything, got %d", len(got))
	}
	if got := svc.FilterByQuery("nothing-matches-this"); len(got) != 0 {
		t.Fatalf("expected no matches, got %+v", got)
	}
}

func TestSelectSessionPropagatesModel(t *testing.T) {
	gateway := &stubGateway{reply: "ok"}
	svc := newTestChatService(gateway)

	first := svc.CreateSession()
	svc.SelectModel("mixtral-8x7b-32768")

	second := svc.CreateSession()
	got, _ := svc.SessionByID(second.ID)
	if got.Model != "mixtral-8x7b-32768" {
		t.Fatalf("new session should inherit the active model, got %q", got.Model)
	}

	// Selecting a session with its own model switches the active model back.
	svc.SelectSession(first.ID)
	third := svc.CreateSession()
	got, _ = svc.SessionByID(third.ID)
	if got.Model != "llama-3.1-8b-instant" {
		t.Fatalf("expected model from selected session, got %q", got.Model)
	}

	if _, err := svc.SendMessage(context.Background(), SendMessageInput{SessionID: second.ID, Content: "hi"}); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if gateway.lastModel != "mixtral-8x7b-32768" {
		t.Fatalf("gateway received model %q", gateway.lastModel)
	}
}

func TestSelectUnknownSessionIsNoop(t *testing.T) {
	svc := newTestChatService(&stubGateway{reply: "ok"})
	session := svc.CreateSession()

	svc.SelectSession("does-not-exist")

	active, ok := svc.ActiveSession()
	if !ok || active.ID != session.ID {
		t.Fatalf("unknown select changed the active session: %+v", active)
	}
}

func TestStateRoundTripThroughStore(t *testing.T) {
	st := store.NewMemoryStore()
	gateway := &stubGateway{reply: "pong"}

	svc := NewChatService(gateway, st, "llama-3.1-8b-instant")
	result, err := svc.SendMessage(context.Background(), SendMessageInput{Content: "remember me"})
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}
	project, _ := svc.CreateProject("Saved", "#00ff00")
	if err := svc.AddSessionToProject(result.Session.ID, project.ID); err != nil {
		t.Fatalf("add to project failed: %v", err)
	}

	restored := NewChatService(gateway, st, "llama-3.1-8b-instant")
	if err := restored.LoadState(context.Background()); err != nil {
		t.Fatalf("LoadState failed: %v", err)
	}

	sessions := restored.Sessions()
	if len(sessions) != 1 {
		t.Fatalf("expected 1 restored session, got %d", len(sessions))
	}
	got := sessions[0]
	if got.ID != result.Session.ID || got.Title != "remember me" {
		t.Fatalf("restored session mismatch: %+v", got)
	}
	if len(got.Messages) != 2 || got.Messages[1].Content != "pong" {
		t.Fatalf("restored messages mismatch: %+v", got.Messages)
	}
	if !got.UpdatedAt.Equal(result.Session.UpdatedAt) {
		t.Fatalf("timestamps drifted: %v vs %v", got.UpdatedAt, result.Session.UpdatedAt)
	}

	active, ok := restored.ActiveSession()
	if !ok || active.ID != result.Session.ID {
		t.Fatalf("active session not restored: %+v", active)
	}
	projects := restored.Projects()
	if len(projects) != 1 || len(projects[0].ChatIDs) != 1 {
		t.Fatalf("projects not restored: %+v", projects)
	}
}

func TestLoadStateIgnoresStaleActiveID(t *testing.T) {
	st := store.NewMemoryStore()
	if err := st.Save(context.Background(), store.KeyCurrentChat, "gone"); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	svc := NewChatService(&stubGateway{}, st, "llama-3.1-8b-instant")
	if err := svc.LoadState(context.Background()); err != nil {
		t.Fatalf("LoadState failed: %v", err)
	}
	if _, ok := svc.ActiveSession(); ok {
		t.Fatal("stale current-chat id resolved to an active session")
	}
}

func TestMessageIDsAreUnique(t *testing.T) {
	svc := newTestChatService(&stubGateway{reply: "ok"})

	seen := map[string]bool{}
	for i := 0; i < 5; i++ {
		result, err := svc.SendMessage(context.Background(), SendMessageInput{Content: "ping"})
		if err != nil {
			t.Fatalf("send failed: %v", err)
		}
		for _, msg := range result.Messages {
			if seen[msg.ID] {
				t.Fatalf("duplicate message id %s", msg.ID)
			}
			seen[msg.ID] = true
		}
		time.Sleep(time.Millisecond)
	}
}
