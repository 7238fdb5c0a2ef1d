package services

import (
	"context"
	"sort"
	"time"

	"armonia/internal/chatstore"
	"armonia/internal/events"
	"armonia/internal/models"
	"armonia/pkg/logger"
)

// SidebarService is the read-only projection of stored chats. The store
// yields creation-ascending order; the sidebar presents most recently
// updated first.
type SidebarService struct {
	store *chatstore.Store
	chat  *ChatService
	log   *logger.Logger
	ctx   context.Context
}

func NewSidebarService(store *chatstore.Store, chat *ChatService, log *logger.Logger) *SidebarService {
	if log == nil {
		log = logger.NewNop()
	}
	return &SidebarService{store: store, chat: chat, log: log, ctx: context.Background()}
}

func (s *SidebarService) Startup(ctx context.Context) {
	s.ctx = ctx
}

// List returns all stored chats sorted by UpdatedAt descending.
func (s *SidebarService) List() ([]models.ChatHistory, error) {
	histories, err := s.store.List()
	if err != nil {
		return nil, err
	}
	sort.SliceStable(histories, func(i, j int) bool {
		return histories[i].UpdatedAt > histories[j].UpdatedAt
	})
	return histories, nil
}

// Delete removes a chat. When the deleted chat is the active session the
// controller starts a fresh one; deleting from an empty store never errors.
func (s *SidebarService) Delete(id string) error {
	if err := s.store.Delete(id); err != nil {
		return err
	}
	if s.chat != nil && s.chat.ActiveChatID() == id {
		s.chat.Reset()
	}
	events.Emit(s.ctx, events.ChatEvent{
		Type:      events.EventChatDeleted,
		ChatID:    id,
		Timestamp: time.Now(),
	})
	return nil
}
