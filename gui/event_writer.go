package main

import (
	"context"
	"sync"

	"github.com/wailsapp/wails/v2/pkg/runtime"
)

// EventEmittingWriter forwards every write to the wails frontend as a
// "vm:output" event. It carries no buffer of its own: service.DebuggerService
// keeps the buffer GetOutput drains, this writer only needs to exist at all
// once a wails runtime context is available.
type EventEmittingWriter struct {
	mu  sync.Mutex
	ctx context.Context
}

// NewEventEmittingWriter creates a writer with no context yet; SetContext
// is called once the wails app's startup hook fires.
func NewEventEmittingWriter() *EventEmittingWriter {
	return &EventEmittingWriter{}
}

// SetContext records the wails runtime context events are emitted through.
func (w *EventEmittingWriter) SetContext(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.ctx = ctx
}

// Write implements io.Writer, emitting p as a "vm:output" event.
func (w *EventEmittingWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	ctx := w.ctx
	w.mu.Unlock()

	if ctx != nil {
		runtime.EventsEmit(ctx, "vm:output", string(p))
	}
	return len(p), nil
}
