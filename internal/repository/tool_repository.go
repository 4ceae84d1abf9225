package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"facevoice-chat/internal/model"
)

type ToolRepository struct {
	db *gorm.DB
}

func NewToolRepository(db *gorm.DB) *ToolRepository {
	return &ToolRepository{db: db}
}

func (r *ToolRepository) List() ([]model.AITool, error) {
	var tools []model.AITool
	if err := r.db.Order("created_at DESC").Find(&tools).Error; err != nil {
		return nil, fmt.Errorf("list tools failed: %w", err)
	}
	return tools, nil
}

func (r *ToolRepository) GetByID(id uint) (*model.AITool, error) {
	var tool model.AITool
	if err := r.db.First(&tool, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get tool failed: %w", err)
	}
	return &tool, nil
}

// IncrementCounter bumps the likes or shares column atomically.
func (r *ToolRepository) IncrementCounter(id uint, column string) error {
	if column != "likes" && column != "shares" {
		return fmt.Errorf("unknown counter column %q", column)
	}
	result := r.db.Model(&model.AITool{}).
		Where("id = ?", id).
		UpdateColumn(column, gorm.Expr(column+" + 1"))
	if result.Error != nil {
		return fmt.Errorf("increment tool %s failed: %w", column, result.Error)
	}
	return nil
}

func (r *ToolRepository) CreateComment(comment *model.ToolComment) error {
	if err := r.db.Create(comment).Error; err != nil {
		return fmt.Errorf("create tool comment failed: %w", err)
	}
	return nil
}

func (r *ToolRepository) ListComments(toolID uint, limit int) ([]model.ToolComment, error) {
	if limit <= 0 || limit > 200 {
		limit = 100
	}

	var comments []model.ToolComment
	if err := r.db.Where("tool_id = ?", toolID).Order("created_at ASC").Limit(limit).Find(&comments).Error; err != nil {
		return nil, fmt.Errorf("list tool comments failed: %w", err)
	}
	return comments, nil
}
