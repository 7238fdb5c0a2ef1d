// Package events carries the refresh signal between the mutating services
// and whatever is presenting the chat list. The emitter is a swappable
// process-wide hook so tests and the terminal shell can each plug in their
// own listener; the default discards everything.
package events

import (
	"context"
	"sync/atomic"
)

type emitFunc func(ctx context.Context, evt ChatEvent)

var emitter atomic.Pointer[emitFunc]

func init() {
	SetCustomEmitter(nil)
}

// Emit delivers the event to the current listener. Safe to call while
// another goroutine swaps the listener.
func Emit(ctx context.Context, evt ChatEvent) {
	(*emitter.Load())(ctx, evt)
}

// SetCustomEmitter replaces the listener; nil restores the discarding default.
func SetCustomEmitter(f func(ctx context.Context, evt ChatEvent)) {
	if f == nil {
		f = func(context.Context, ChatEvent) {}
	}
	fn := emitFunc(f)
	emitter.Store(&fn)
}
