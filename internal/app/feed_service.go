package app

import (
	"context"
	"errors"
	"strings"
	"time"

	"facevoice-chat/internal/model"
	"facevoice-chat/internal/repository"
)

var (
	ErrToolNotFound       = errors.New("tool not found")
	ErrCommentEmpty       = errors.New("comment content is empty")
	ErrInteractionEnqueue = errors.New("interaction enqueue failed")
)

// InteractionPublisher hands like/share events to the broker; the worker
// applies the counter increments.
type InteractionPublisher interface {
	Publish(ctx context.Context, event model.InteractionEvent) error
}

// FeedService backs the AI-tools feed: listing, comments, and asynchronous
// like/share counters.
type FeedService struct {
	toolRepo  *repository.ToolRepository
	publisher InteractionPublisher
}

func NewFeedService(toolRepo *repository.ToolRepository, publisher InteractionPublisher) *FeedService {
	return &FeedService{toolRepo: toolRepo, publisher: publisher}
}

func (s *FeedService) ListTools() ([]model.AITool, error) {
	return s.toolRepo.List()
}

func (s *FeedService) Like(ctx context.Context, toolID, userID uint) error {
	return s.publishInteraction(ctx, toolID, userID, model.InteractionLike)
}

func (s *FeedService) Share(ctx context.Context, toolID, userID uint) error {
	return s.publishInteraction(ctx, toolID, userID, model.InteractionShare)
}

func (s *FeedService) Comment(toolID, userID uint, author, content string) (*model.ToolComment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrCommentEmpty
	}
	if toolID == 0 || userID == 0 {
		return nil, ErrInvalidInput
	}

	tool, err := s.toolRepo.GetByID(toolID)
	if err != nil {
		return nil, err
	}
	if tool == nil {
		return nil, ErrToolNotFound
	}

	comment := &model.ToolComment{
		ToolID:    toolID,
		UserID:    userID,
		Author:    author,
		Content:   content,
		CreatedAt: time.Now(),
	}
	if err := s.toolRepo.CreateComment(comment); err != nil {
		return nil, err
	}
	return comment, nil
}

func (s *FeedService) Comments(toolID uint, limit int) ([]model.ToolComment, error) {
	if toolID == 0 {
		return nil, ErrInvalidInput
	}
	return s.toolRepo.ListComments(toolID, limit)
}

func (s *FeedService) publishInteraction(ctx context.Context, toolID, userID uint, kind string) error {
	if toolID == 0 || userID == 0 {
		return ErrInvalidInput
	}

	tool, err := s.toolRepo.GetByID(toolID)
	if err != nil {
		return err
	}
	if tool == nil {
		return ErrToolNotFound
	}

	if s.publisher == nil {
		return ErrInteractionEnqueue
	}
	event := model.InteractionEvent{
		ToolID:     toolID,
		Kind:       kind,
		UserID:     userID,
		OccurredAt: time.Now(),
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		return ErrInteractionEnqueue
	}
	return nil
}
