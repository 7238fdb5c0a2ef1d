package unit_tests

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"armonia/internal/api"
	"armonia/internal/chatstore"
	"armonia/internal/events"
	"armonia/internal/models"
	"armonia/internal/services"
	"armonia/internal/tests/mocks"
)

func newChatService(t *testing.T, chatAPI services.ChatAPI) (*services.ChatService, *chatstore.Store) {
	t.Helper()
	store, _ := newTestStore(t)
	svc := services.NewChatService(store, chatAPI, nil)
	svc.Startup(context.Background())
	return svc, store
}

func TestChatService_SubmitPersistsExchange(t *testing.T) {
	chatAPI := &mocks.ChatAPIMock{
		ChatFunc: func(ctx context.Context, question, kbID string) (*api.ChatResponse, error) {
			assert.Equal(t, "Hello", question)
			return &api.ChatResponse{Answer: "Hi there"}, nil
		},
	}
	svc, store := newChatService(t, chatAPI)

	id := svc.NewChat()
	assert.Equal(t, services.StateIdle, svc.State())

	msg, err := svc.Submit(context.Background(), "Hello")
	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.Equal(t, "Hi there", msg.Content)
	assert.Equal(t, services.StateActive, svc.State())

	loaded, err := store.Get(id)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	require.Len(t, loaded.Messages, 2)
	assert.Equal(t, models.RoleUser, loaded.Messages[0].Role)
	assert.Equal(t, "Hello", loaded.Messages[0].Content)
	assert.Equal(t, models.RoleAssistant, loaded.Messages[1].Role)
	assert.Equal(t, "Hi there", loaded.Messages[1].Content)
	assert.False(t, loaded.Messages[0].IsStreaming)
	assert.False(t, loaded.Messages[1].IsStreaming)
	assert.Equal(t, "Hello", loaded.Title)
	assert.GreaterOrEqual(t, loaded.UpdatedAt, loaded.CreatedAt)
}

func TestChatService_SubmitFailureBecomesAssistantMessage(t *testing.T) {
	chatAPI := &mocks.ChatAPIMock{
		ChatFunc: func(ctx context.Context, question, kbID string) (*api.ChatResponse, error) {
			return nil, &api.RemoteError{StatusCode: 502, Message: "upstream unavailable"}
		},
	}
	svc, store := newChatService(t, chatAPI)

	id := svc.NewChat()
	msg, err := svc.Submit(context.Background(), "Hello")
	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.Equal(t, "upstream unavailable", msg.Content)
	assert.False(t, msg.IsStreaming)
	assert.Equal(t, services.StateError, svc.State())

	// The failed exchange is persisted too; the conversation stays usable.
	loaded, err := store.Get(id)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "upstream unavailable", loaded.Messages[1].Content)
}

func TestChatService_SubmitStream(t *testing.T) {
	chatAPI := &mocks.ChatAPIMock{
		ChatStreamFunc: func(ctx context.Context, question, kbID string, onDelta func(string)) (*api.ChatResponse, error) {
			onDelta("Hi ")
			onDelta("there")
			return &api.ChatResponse{Answer: "Hi there"}, nil
		},
	}
	svc, _ := newChatService(t, chatAPI)
	svc.NewChat()

	var deltas []string
	msg, err := svc.SubmitStream(context.Background(), "Hello", func(delta string) {
		deltas = append(deltas, delta)
	})
	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.Equal(t, []string{"Hi ", "there"}, deltas)
	assert.Equal(t, "Hi there", msg.Content)
	assert.False(t, msg.IsStreaming)
}

func TestChatService_EmptySessionIsNeverPersisted(t *testing.T) {
	svc, store := newChatService(t, &mocks.ChatAPIMock{})

	svc.NewChat()
	svc.NewChat()

	histories, err := store.List()
	require.NoError(t, err)
	assert.Empty(t, histories)
}

func TestChatService_SubmitRejectsBlankQuestion(t *testing.T) {
	svc, _ := newChatService(t, &mocks.ChatAPIMock{})
	svc.NewChat()

	_, err := svc.Submit(context.Background(), "   ")
	assert.Error(t, err)
}

func TestChatService_SelectChat_NotFound(t *testing.T) {
	svc, _ := newChatService(t, &mocks.ChatAPIMock{})
	id := svc.NewChat()

	err := svc.SelectChat("missing")
	assert.ErrorIs(t, err, chatstore.ErrNotFound)
	assert.Equal(t, id, svc.ActiveChatID())
}

func TestChatService_SelectChat_LoadsStoredMessages(t *testing.T) {
	svc, store := newChatService(t, &mocks.ChatAPIMock{})

	require.NoError(t, store.Save(sampleHistory("777", 777)))
	require.NoError(t, svc.SelectChat("777"))

	assert.Equal(t, "777", svc.ActiveChatID())
	assert.Equal(t, services.StateActive, svc.State())
	require.Len(t, svc.Messages(), 2)
	assert.Equal(t, "Hello", svc.Messages()[0].Content)
}

func TestChatService_SweepRecreatesExpiredActiveChat(t *testing.T) {
	svc, store := newChatService(t, &mocks.ChatAPIMock{})

	// A chat whose id dates it 25 hours back.
	oldID := time.Now().Add(-25 * time.Hour).UnixMilli()
	expired := sampleHistory(strconv.FormatInt(oldID, 10), oldID)
	require.NoError(t, store.Save(expired))
	require.NoError(t, svc.SelectChat(expired.ID))

	deleted, err := svc.RunExpirySweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	assert.NotEqual(t, expired.ID, svc.ActiveChatID())
	assert.Equal(t, services.StateIdle, svc.State())
	assert.Empty(t, svc.Messages())

	gone, err := store.Get(expired.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestChatService_SweepLeavesFreshChatsAlone(t *testing.T) {
	chatAPI := &mocks.ChatAPIMock{
		ChatFunc: func(ctx context.Context, question, kbID string) (*api.ChatResponse, error) {
			return &api.ChatResponse{Answer: "ok"}, nil
		},
	}
	svc, _ := newChatService(t, chatAPI)

	id := svc.NewChat()
	_, err := svc.Submit(context.Background(), "Hello")
	require.NoError(t, err)

	deleted, err := svc.RunExpirySweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, deleted)
	assert.Equal(t, id, svc.ActiveChatID())
}

// The accepted race: a sweep that removes the record mid-composition is
// undone by the next save, which re-creates it via the upsert.
func TestChatService_SweptActiveChatIsResurrectedByNextSave(t *testing.T) {
	chatAPI := &mocks.ChatAPIMock{
		ChatFunc: func(ctx context.Context, question, kbID string) (*api.ChatResponse, error) {
			return &api.ChatResponse{Answer: "still here"}, nil
		},
	}
	svc, store := newChatService(t, chatAPI)

	require.NoError(t, store.Save(sampleHistory("888", 888)))
	require.NoError(t, svc.SelectChat("888"))

	// Simulate the sweep winning the race.
	require.NoError(t, store.Delete("888"))

	_, err := svc.Submit(context.Background(), "are you there?")
	require.NoError(t, err)

	resurrected, err := store.Get("888")
	require.NoError(t, err)
	require.NotNil(t, resurrected)
	assert.Len(t, resurrected.Messages, 4)
}

func TestChatService_SubmitEmitsRefreshEvent(t *testing.T) {
	var seen []events.EventType
	events.SetCustomEmitter(func(ctx context.Context, evt events.ChatEvent) {
		seen = append(seen, evt.Type)
	})
	defer events.SetCustomEmitter(nil)

	chatAPI := &mocks.ChatAPIMock{
		ChatFunc: func(ctx context.Context, question, kbID string) (*api.ChatResponse, error) {
			return &api.ChatResponse{Answer: "ok"}, nil
		},
	}
	svc, _ := newChatService(t, chatAPI)
	svc.NewChat()

	_, err := svc.Submit(context.Background(), "Hello")
	require.NoError(t, err)
	assert.Contains(t, seen, events.EventHistoryRefresh)
}

type appCtxKey struct{}

// Events ride on the application context handed to Startup, not the
// per-request context, which may be cancelled before a listener reacts.
func TestChatService_EmitsWithStartupContext(t *testing.T) {
	var got context.Context
	events.SetCustomEmitter(func(ctx context.Context, evt events.ChatEvent) {
		got = ctx
	})
	defer events.SetCustomEmitter(nil)

	store, _ := newTestStore(t)
	svc := services.NewChatService(store, &mocks.ChatAPIMock{}, nil)
	svc.Startup(context.WithValue(context.Background(), appCtxKey{}, "app"))
	svc.NewChat()

	_, err := svc.Submit(context.Background(), "Hello")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "app", got.Value(appCtxKey{}))
}

func TestChatService_SubmitFailureWrapsAnyError(t *testing.T) {
	chatAPI := &mocks.ChatAPIMock{
		ChatFunc: func(ctx context.Context, question, kbID string) (*api.ChatResponse, error) {
			return nil, errors.New("connection reset")
		},
	}
	svc, _ := newChatService(t, chatAPI)
	svc.NewChat()

	msg, err := svc.Submit(context.Background(), "Hello")
	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.Equal(t, "connection reset", msg.Content)
}

func TestDeriveTitle(t *testing.T) {
	long := strings.Repeat("a", 80)
	title := services.DeriveTitle([]models.Message{
		{Role: models.RoleUser, Content: long},
	})
	assert.Len(t, title, 53)
	assert.Equal(t, strings.Repeat("a", 50)+"...", title)

	assert.Equal(t, "short question", services.DeriveTitle([]models.Message{
		{Role: models.RoleUser, Content: "short question"},
	}))

	assert.Equal(t, "New Chat", services.DeriveTitle(nil))
	assert.Equal(t, "New Chat", services.DeriveTitle([]models.Message{
		{Role: models.RoleAssistant, Content: "unsolicited greeting"},
	}))
}
