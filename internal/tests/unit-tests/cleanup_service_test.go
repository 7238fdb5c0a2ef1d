package unit_tests

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"armonia/internal/services"
	"armonia/internal/tests/mocks"
)

func TestCleanupService_StartSweepsImmediately(t *testing.T) {
	svc, store := newChatService(t, &mocks.ChatAPIMock{})

	oldID := time.Now().Add(-25 * time.Hour).UnixMilli()
	require.NoError(t, store.Save(sampleHistory(strconv.FormatInt(oldID, 10), oldID)))

	cleanup := services.NewCleanupServiceWithInterval(svc, nil, time.Hour)
	cleanup.Start(context.Background())
	defer cleanup.Stop()

	assert.Eventually(t, func() bool {
		histories, err := store.List()
		return err == nil && len(histories) == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestCleanupService_StopWaitsForShutdown(t *testing.T) {
	svc, _ := newChatService(t, &mocks.ChatAPIMock{})

	cleanup := services.NewCleanupService(svc, nil)
	cleanup.Start(context.Background())
	cleanup.Stop()

	// Stopping twice or stopping a never-started service must not hang.
	cleanup.Stop()
	services.NewCleanupService(svc, nil).Stop()
}

func TestCleanupService_StartTwiceIsNoop(t *testing.T) {
	svc, _ := newChatService(t, &mocks.ChatAPIMock{})

	cleanup := services.NewCleanupService(svc, nil)
	cleanup.Start(context.Background())
	cleanup.Start(context.Background())
	cleanup.Stop()
}
