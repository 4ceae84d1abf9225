package model

import "time"

// AITool is one entry of the public tools feed. Likes and Shares are
// counters maintained asynchronously by the interaction worker.
type AITool struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:128;not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	Category    string    `gorm:"size:64;index" json:"category"`
	URL         string    `gorm:"size:255" json:"url"`
	Likes       int64     `gorm:"not null;default:0" json:"likes"`
	Shares      int64     `gorm:"not null;default:0" json:"shares"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type ToolComment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ToolID    uint      `gorm:"not null;index" json:"tool_id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	Author    string    `gorm:"size:64;not null" json:"author"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

const (
	InteractionLike  = "like"
	InteractionShare = "share"
)

// InteractionEvent is published to RabbitMQ when a user likes or shares a
// tool; the worker applies the counter increment.
type InteractionEvent struct {
	ToolID     uint      `json:"tool_id"`
	Kind       string    `json:"kind"`
	UserID     uint      `json:"user_id"`
	OccurredAt time.Time `json:"occurred_at"`
}
