package model

import "time"

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// ChatMessage is one turn of a conversation. Messages are immutable once
// appended; their order within a session is insertion order.
type ChatMessage struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// ChatSession is the unit the browser client persists under the "ai-chats"
// key. JSON field names match that stored shape, timestamps serialize as
// RFC 3339.
type ChatSession struct {
	ID        string        `json:"id"`
	Title     string        `json:"title"`
	Messages  []ChatMessage `json:"messages"`
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`
	Model     string        `json:"model,omitempty"`
}

// Project groups sessions by reference. Deleting a project leaves its
// sessions in the global list untouched.
type Project struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Color   string   `json:"color"`
	ChatIDs []string `json:"chatIds"`
}
