package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"facevoice-chat/internal/model"
)

type GroupChatRepository struct {
	db *gorm.DB
}

func NewGroupChatRepository(db *gorm.DB) *GroupChatRepository {
	return &GroupChatRepository{db: db}
}

func (r *GroupChatRepository) Create(groupChat *model.GroupChat) error {
	if err := r.db.Create(groupChat).Error; err != nil {
		return fmt.Errorf("create group chat failed: %w", err)
	}
	return nil
}

func (r *GroupChatRepository) GetByID(id string) (*model.GroupChat, error) {
	var groupChat model.GroupChat
	if err := r.db.Where("id = ?", id).First(&groupChat).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get group chat failed: %w", err)
	}
	return &groupChat, nil
}
