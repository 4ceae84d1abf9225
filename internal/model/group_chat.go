package model

import "time"

// GroupChat is the shareable multi-party chat record. Created on demand and
// never mutated afterwards.
type GroupChat struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Name      string    `gorm:"size:128;not null" json:"name"`
	CreatorID string    `gorm:"size:64;not null" json:"creatorId"`
	ShareLink string    `gorm:"size:255;not null" json:"shareLink"`
	CreatedAt time.Time `json:"createdAt"`
}
