package app

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"facevoice-chat/internal/model"
	"facevoice-chat/internal/store"
)

var ErrGroupNameRequired = errors.New("group name is required")

// GroupChatRepository is the durable home of issued group-chat links.
type GroupChatRepository interface {
	Create(groupChat *model.GroupChat) error
	GetByID(id string) (*model.GroupChat, error)
}

// GroupChatService issues shareable group-chat links. Records are created on
// demand and never mutated.
type GroupChatService struct {
	repo         GroupChatRepository
	store        store.Store
	shareBaseURL string
}

// GroupChatStatus reports whether a group id resolves to a known group.
// Resolution never fails on unknown ids.
type GroupChatStatus struct {
	ID        string    `json:"id"`
	Exists    bool      `json:"exists"`
	Name      string    `json:"name,omitempty"`
	ShareLink string    `json:"shareLink,omitempty"`
	CreatedAt time.Time `json:"createdAt,omitempty"`
}

func NewGroupChatService(repo GroupChatRepository, st store.Store, shareBaseURL string) *GroupChatService {
	return &GroupChatService{
		repo:         repo,
		store:        st,
		shareBaseURL: strings.TrimRight(shareBaseURL, "/"),
	}
}

// CreateGroupLink mints a group id and composes the share URL
// <base>/ai-chat/group/<id>. An absent creator is recorded as "anonymous".
func (s *GroupChatService) CreateGroupLink(ctx context.Context, name, creatorID string) (*model.GroupChat, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrGroupNameRequired
	}
	if strings.TrimSpace(creatorID) == "" {
		creatorID = "anonymous"
	}

	groupChat := &model.GroupChat{
		ID:        uuid.NewString(),
		Name:      name,
		CreatorID: creatorID,
		CreatedAt: time.Now(),
	}
	groupChat.ShareLink = s.shareBaseURL + "/ai-chat/group/" + groupChat.ID

	if err := s.repo.Create(groupChat); err != nil {
		return nil, err
	}
	s.mirrorToStore(ctx, groupChat)
	return groupChat, nil
}

// ResolveGroupLink reports existence and metadata for a group id. Unknown ids
// yield Exists=false with a nil error.
func (s *GroupChatService) ResolveGroupLink(id string) (*GroupChatStatus, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrInvalidInput
	}

	groupChat, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if groupChat == nil {
		return &GroupChatStatus{ID: id, Exists: false}, nil
	}
	return &GroupChatStatus{
		ID:        groupChat.ID,
		Exists:    true,
		Name:      groupChat.Name,
		ShareLink: groupChat.ShareLink,
		CreatedAt: groupChat.CreatedAt,
	}, nil
}

// mirrorToStore keeps the "group-chats" mapping the browser client reads in
// sync. Best-effort: failures are logged only.
func (s *GroupChatService) mirrorToStore(ctx context.Context, groupChat *model.GroupChat) {
	if s.store == nil {
		return
	}
	groupChats := map[string]*model.GroupChat{}
	if _, err := s.store.Load(ctx, store.KeyGroupChats, &groupChats); err != nil {
		log.Printf("load group chats mirror failed: %v", err)
		return
	}
	groupChats[groupChat.ID] = groupChat
	if err := s.store.Save(ctx, store.KeyGroupChats, groupChats); err != nil {
		log.Printf("persist group chats mirror failed: %v", err)
	}
}
