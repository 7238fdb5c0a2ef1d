package unit_tests

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"

	"armonia/internal/events"
)

func TestSetCustomEmitter_NilRestoresDiscard(t *testing.T) {
	var calls atomic.Int64
	events.SetCustomEmitter(func(ctx context.Context, evt events.ChatEvent) {
		calls.Add(1)
	})
	events.Emit(context.Background(), events.ChatEvent{Type: events.EventHistoryRefresh})

	events.SetCustomEmitter(nil)
	events.Emit(context.Background(), events.ChatEvent{Type: events.EventHistoryRefresh})

	assert.Equal(t, int64(1), calls.Load())
}

// Swapping the listener while another goroutine emits must stay race-free;
// the background sweep can fire an event at any moment.
func TestEmitter_SwapWhileEmitting(t *testing.T) {
	defer events.SetCustomEmitter(nil)

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
				events.Emit(context.Background(), events.ChatEvent{Type: events.EventChatSwept})
			}
		}
	}()

	var calls atomic.Int64
	for i := 0; i < 200; i++ {
		events.SetCustomEmitter(func(ctx context.Context, evt events.ChatEvent) {
			calls.Add(1)
		})
		events.SetCustomEmitter(nil)
	}

	close(stop)
	wg.Wait()
}
