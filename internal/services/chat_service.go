package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"armonia/internal/api"
	"armonia/internal/chatstore"
	"armonia/internal/events"
	"armonia/internal/models"
	"armonia/pkg/logger"
)

// SessionState is the controller's position in the exchange lifecycle.
type SessionState string

const (
	// StateIdle: a fresh session with no messages yet.
	StateIdle SessionState = "idle"
	// StateActive: at least one completed exchange.
	StateActive SessionState = "active"
	// StateStreaming: an assistant reply is in flight.
	StateStreaming SessionState = "streaming"
	// StateError: the last exchange failed; the error text stands in as the
	// assistant message and the session stays usable.
	StateError SessionState = "error"
)

const (
	titleMaxRunes = 50
	defaultTitle  = "New Chat"

	// DefaultHistoryTTL is how long a chat survives after creation.
	DefaultHistoryTTL = 24 * time.Hour
)

// ChatAPI is the remote collaborator the controller dispatches questions to.
type ChatAPI interface {
	Chat(ctx context.Context, question, kbID string) (*api.ChatResponse, error)
	ChatStream(ctx context.Context, question, kbID string, onDelta func(delta string)) (*api.ChatResponse, error)
}

// ChatService orchestrates the active conversation: it owns the in-memory
// message list, persists after every mutation, and recovers when the TTL
// sweep removes the chat it is holding.
type ChatService struct {
	store *chatstore.Store
	api   ChatAPI
	log   *logger.Logger
	ttl   time.Duration
	kbID  string
	ctx   context.Context

	mu       sync.Mutex
	chatID   string
	messages []models.Message
	state    SessionState
}

func NewChatService(store *chatstore.Store, chatAPI ChatAPI, log *logger.Logger) *ChatService {
	if log == nil {
		log = logger.NewNop()
	}
	return &ChatService{
		store: store,
		api:   chatAPI,
		log:   log,
		ttl:   DefaultHistoryTTL,
		ctx:   context.Background(),
		state: StateIdle,
	}
}

// Startup records the application context; emitted events carry it rather
// than the per-request context, which may be long gone by the time a
// listener reacts.
func (s *ChatService) Startup(ctx context.Context) {
	s.ctx = ctx
}

// SetHistoryTTL overrides the expiry window. Zero or negative keeps the default.
func (s *ChatService) SetHistoryTTL(ttl time.Duration) {
	if ttl > 0 {
		s.ttl = ttl
	}
}

// SetKnowledgeBase pins an optional knowledge-base id sent with every question.
func (s *ChatService) SetKnowledgeBase(kbID string) {
	s.kbID = kbID
}

// NewChat starts a fresh, empty session and returns its id. Nothing is
// persisted until the first message exists.
func (s *ChatService) NewChat() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.newChatLocked()
}

// SelectChat loads a stored chat into the controller. A missing id surfaces
// chatstore.ErrNotFound and leaves the current session in place.
func (s *ChatService) SelectChat(id string) error {
	history, err := s.store.Get(id)
	if err != nil {
		return err
	}
	if history == nil {
		return fmt.Errorf("%w: %s", chatstore.ErrNotFound, id)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.chatID = history.ID
	s.messages = history.Messages
	if len(s.messages) > 0 {
		s.state = StateActive
	} else {
		s.state = StateIdle
	}
	return nil
}

// Submit sends a question and blocks until the whole answer arrives.
func (s *ChatService) Submit(ctx context.Context, text string) (*models.Message, error) {
	return s.submit(ctx, text, nil, false)
}

// SubmitStream sends a question over the streaming endpoint; onDelta fires
// for every content fragment before the final message is returned.
func (s *ChatService) SubmitStream(ctx context.Context, text string, onDelta func(delta string)) (*models.Message, error) {
	return s.submit(ctx, text, onDelta, true)
}

func (s *ChatService) submit(ctx context.Context, text string, onDelta func(string), stream bool) (*models.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.New("question is required")
	}

	s.mu.Lock()
	if s.state == StateStreaming {
		s.mu.Unlock()
		return nil, errors.New("a reply is already in flight")
	}
	if s.chatID == "" {
		s.newChatLocked()
	}

	now := models.NewMessageTime(time.Now())
	userMsg := models.Message{
		ID:        uuid.NewString(),
		Role:      models.RoleUser,
		Content:   text,
		Timestamp: now,
	}
	assistantID := uuid.NewString()
	s.messages = append(s.messages,
		userMsg,
		models.Message{
			ID:          assistantID,
			Role:        models.RoleAssistant,
			Timestamp:   now,
			IsStreaming: true,
		},
	)
	s.state = StateStreaming
	if err := s.saveLocked(); err != nil {
		s.log.Warn("failed to save chat", zap.String("chat_id", s.chatID), zap.Error(err))
	}
	s.mu.Unlock()

	var resp *api.ChatResponse
	var err error
	if stream {
		resp, err = s.api.ChatStream(ctx, text, s.kbID, onDelta)
	} else {
		resp, err = s.api.Chat(ctx, text, s.kbID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// The session may have moved on while the request was in flight (chat
	// switched, sweep recovered). Locate the placeholder by id; if it is
	// gone the result is applied nowhere, which is tolerated.
	target := -1
	for i := range s.messages {
		if s.messages[i].ID == assistantID {
			target = i
			break
		}
	}
	if target == -1 {
		s.log.Debug("discarding reply for a session no longer loaded",
			zap.String("message_id", assistantID))
		if s.state == StateStreaming {
			s.state = StateActive
		}
		return nil, err
	}

	if err != nil {
		s.messages[target].Content = err.Error()
		s.messages[target].IsStreaming = false
		s.state = StateError
		s.log.Warn("chat request failed", zap.String("chat_id", s.chatID), zap.Error(err))
	} else {
		s.messages[target].Content = resp.Answer
		s.messages[target].Reasoning = resp.Reasoning
		s.messages[target].Sources = resp.Sources
		s.messages[target].IsStreaming = false
		s.state = StateActive
	}

	if saveErr := s.saveLocked(); saveErr != nil {
		s.log.Warn("failed to save chat", zap.String("chat_id", s.chatID), zap.Error(saveErr))
	}

	final := s.messages[target]
	return &final, nil
}

// RunExpirySweep deletes chats older than the TTL. If the active chat was
// among them a fresh session replaces it. Runs at startup and on the
// cleanup service's interval.
func (s *ChatService) RunExpirySweep(ctx context.Context) (int64, error) {
	deleted, err := s.store.DeleteOlderThan(s.ttl)
	if err != nil {
		return 0, err
	}
	if deleted == 0 {
		return 0, nil
	}

	s.log.Info("expired old chats", zap.Int64("deleted", deleted))
	events.Emit(ctx, events.ChatEvent{
		Type:      events.EventChatSwept,
		Deleted:   deleted,
		Timestamp: time.Now(),
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.chatID != "" {
		current, getErr := s.store.Get(s.chatID)
		if getErr == nil && current == nil && len(s.messages) > 0 {
			s.newChatLocked()
		}
	}
	return deleted, nil
}

// ActiveChatID returns the id of the session currently loaded.
func (s *ChatService) ActiveChatID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chatID
}

// State returns the controller state.
func (s *ChatService) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Messages returns a copy of the in-memory message list.
func (s *ChatService) Messages() []models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Reset is invoked by the sidebar when the active chat was deleted there.
func (s *ChatService) Reset() string {
	return s.NewChat()
}

func (s *ChatService) newChatLocked() string {
	s.chatID = newChatID()
	s.messages = nil
	s.state = StateIdle
	return s.chatID
}

// saveLocked persists the current session. Empty sessions are never written
// so abandoned chats do not pollute storage. Callers hold s.mu.
func (s *ChatService) saveLocked() error {
	if len(s.messages) == 0 || s.chatID == "" {
		return nil
	}
	now := time.Now().UnixMilli()
	history := &models.ChatHistory{
		ID:        s.chatID,
		Title:     DeriveTitle(s.messages),
		Messages:  s.messages,
		CreatedAt: createdAtFromID(s.chatID),
		UpdatedAt: now,
	}
	if err := s.store.Save(history); err != nil {
		return err
	}
	events.Emit(s.ctx, events.ChatEvent{
		Type:      events.EventHistoryRefresh,
		ChatID:    s.chatID,
		Timestamp: time.Now(),
	})
	return nil
}

// DeriveTitle labels a chat with its first user message, bounded at
// titleMaxRunes with an ellipsis marker when longer.
func DeriveTitle(messages []models.Message) string {
	for _, msg := range messages {
		if msg.Role != models.RoleUser {
			continue
		}
		runes := []rune(msg.Content)
		if len(runes) > titleMaxRunes {
			return string(runes[:titleMaxRunes]) + "..."
		}
		return msg.Content
	}
	return defaultTitle
}

// newChatID derives the id from the creation instant. Chats are user-paced,
// so collisions between independent sessions are not a realistic concern.
func newChatID() string {
	return strconv.FormatInt(time.Now().UnixMilli(), 10)
}

// createdAtFromID recovers the creation instant embedded in the id,
// falling back to now for ids minted elsewhere.
func createdAtFromID(id string) int64 {
	if millis, err := strconv.ParseInt(id, 10, 64); err == nil {
		return millis
	}
	return time.Now().UnixMilli()
}
