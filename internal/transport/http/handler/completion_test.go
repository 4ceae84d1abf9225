package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"facevoice-chat/internal/ai"
)

type stubCompletionGateway struct {
	completion *ai.Completion
	err        error
	lastModel  string
}

func (g *stubCompletionGateway) Complete(_ context.Context, modelID string, messages []ai.ChatMessage) (*ai.Completion, error) {
	g.lastModel = modelID
	if g.err != nil {
		return nil, g.err
	}
	return g.completion, nil
}

func newCompletionRouter(gateway *stubCompletionGateway) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/api/chat", NewCompletionHandler(gateway).Complete)
	return router
}

func postJSON(t *testing.T, router *gin.Engine, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON response %q: %v", rec.Body.String(), err)
	}
	return body
}

func TestCompleteEndpointSuccessShape(t *testing.T) {
	gateway := &stubCompletionGateway{completion: &ai.Completion{
		Message: "Hello!",
		Model:   "llama-3.1-8b-instant",
		Usage:   ai.Usage{PromptTokens: 4, CompletionTokens: 2, TotalTokens: 6},
	}}
	router := newCompletionRouter(gateway)

	rec := postJSON(t, router, "/api/chat", `{"messages":[{"role":"user","content":"hi"}],"model":"llama-3.1-8b-instant"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	body := decodeBody(t, rec)
	if body["message"] != "Hello!" || body["model"] != "llama-3.1-8b-instant" {
		t.Fatalf("unexpected body %v", body)
	}
	usage, ok := body["usage"].(map[string]interface{})
	if !ok || usage["total_tokens"].(float64) != 6 {
		t.Fatalf("unexpected usage %v", body["usage"])
	}
	if gateway.lastModel != "llama-3.1-8b-instant" {
		t.Fatalf("gateway received model %q", gateway.lastModel)
	}
}

func TestCompleteEndpointRequiresMessages(t *testing.T) {
	gateway := &stubCompletionGateway{completion: &ai.Completion{Message: "x"}}
	router := newCompletionRouter(gateway)

	for _, body := range []string{
		`{}`,
		`{"model":"llama-3.1-8b-instant"}`,
		`not json`,
	} {
		rec := postJSON(t, router, "/api/chat", body)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("body %q: status = %d", body, rec.Code)
		}
		if got := decodeBody(t, rec)["error"]; got != "Messages array is required" {
			t.Fatalf("body %q: error = %v", body, got)
		}
	}
}

func TestCompleteEndpointSanitizedToNothing(t *testing.T) {
	gateway := &stubCompletionGateway{err: ai.ErrNoMessages}
	router := newCompletionRouter(gateway)

	rec := postJSON(t, router, "/api/chat", `{"messages":[{"role":"user","content":"   "}]}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := decodeBody(t, rec)["error"]; got != "Messages array is required" {
		t.Fatalf("error = %v", got)
	}
}

func TestCompleteEndpointMapsProviderErrors(t *testing.T) {
	gateway := &stubCompletionGateway{err: &ai.Error{
		Message: "rate limit exceeded",
		Status:  http.StatusTooManyRequests,
		Code:    "rate_limit_exceeded",
	}}
	router := newCompletionRouter(gateway)

	rec := postJSON(t, router, "/api/chat", `{"messages":[{"role":"user","content":"hi"}]}`)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["error"] != "rate limit exceeded" || body["type"] != "rate_limit_exceeded" {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestCompleteEndpointOpaqueFailure(t *testing.T) {
	gateway := &stubCompletionGateway{err: context.DeadlineExceeded}
	router := newCompletionRouter(gateway)

	rec := postJSON(t, router, "/api/chat", `{"messages":[{"role":"user","content":"hi"}]}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := decodeBody(t, rec)["error"]; got != "Failed to get AI response" {
		t.Fatalf("error = %v", got)
	}
}
