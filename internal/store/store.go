package store

import "context"

// Keys of the persisted collections. They match the names the browser client
// used for its local store, so state migrated from it round-trips.
const (
	KeyChats       = "ai-chats"
	KeyProjects    = "ai-projects"
	KeyCurrentChat = "current-chat-id"
	KeyGroupChats  = "group-chats"
)

// Store persists keyed JSON documents. Saves are best-effort from the
// caller's point of view: the in-memory state is always the read model and
// a failed write must never roll it back.
type Store interface {
	// Load unmarshals the document at key into out. The boolean reports
	// whether the key existed.
	Load(ctx context.Context, key string, out interface{}) (bool, error)
	Save(ctx context.Context, key string, value interface{}) error
	Delete(ctx context.Context, key string) error
}
