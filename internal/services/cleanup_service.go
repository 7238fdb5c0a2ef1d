package services

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"armonia/pkg/logger"
)

// DefaultCleanupInterval is how often the expiry sweep runs in the background.
const DefaultCleanupInterval = time.Hour

// CleanupService runs the chat expiry sweep on a recurring interval.
type CleanupService struct {
	chat     *ChatService
	log      *logger.Logger
	interval time.Duration

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
}

func NewCleanupService(chat *ChatService, log *logger.Logger) *CleanupService {
	return NewCleanupServiceWithInterval(chat, log, DefaultCleanupInterval)
}

func NewCleanupServiceWithInterval(chat *ChatService, log *logger.Logger, interval time.Duration) *CleanupService {
	if log == nil {
		log = logger.NewNop()
	}
	if interval <= 0 {
		interval = DefaultCleanupInterval
	}
	return &CleanupService{chat: chat, log: log, interval: interval}
}

// Start sweeps once immediately, then on every tick until the context is
// cancelled or Stop is called. Calling Start on a running service is a no-op.
func (c *CleanupService) Start(ctx context.Context) {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return
	}
	sweepCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.done = make(chan struct{})
	c.running = true
	c.mu.Unlock()

	go c.run(sweepCtx)
}

// Stop halts the background sweep and waits for it to wind down.
func (c *CleanupService) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	cancel := c.cancel
	done := c.done
	c.mu.Unlock()

	cancel()
	<-done

	c.mu.Lock()
	c.running = false
	c.cancel = nil
	c.done = nil
	c.mu.Unlock()
}

func (c *CleanupService) run(ctx context.Context) {
	defer close(c.done)

	c.sweep(ctx)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.sweep(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (c *CleanupService) sweep(ctx context.Context) {
	if _, err := c.chat.RunExpirySweep(ctx); err != nil {
		c.log.Warn("expiry sweep failed", zap.Error(err))
	}
}
