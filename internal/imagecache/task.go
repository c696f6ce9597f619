package imagecache

import (
	"context"
	"sync"
	"sync/atomic"

	"review_feed/internal/domain"
)

// Task is the handle returned by Fetch. Cancel aborts the fetch and
// suppresses delivery; Done closes once the fetch work has finished,
// whether or not the result was delivered.
type Task struct {
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	cancelled atomic.Bool

	mu  sync.Mutex
	img domain.Image
	err error
}

func newTask(parent context.Context) *Task {
	ctx, cancel := context.WithCancel(parent)
	return &Task{ctx: ctx, cancel: cancel, done: make(chan struct{})}
}

func (t *Task) Cancel() {
	t.cancelled.Store(true)
	t.cancel()
}

func (t *Task) Done() <-chan struct{} { return t.done }

// Cancelled reports whether Cancel was called.
func (t *Task) Cancelled() bool { return t.cancelled.Load() }

// Result returns the fetch outcome. It is only meaningful after Done is closed.
func (t *Task) Result() (domain.Image, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.img, t.err
}

func (t *Task) finish(img domain.Image, err error) {
	t.mu.Lock()
	t.img, t.err = img, err
	t.mu.Unlock()
	t.cancel()
	close(t.done)
}

var _ domain.Task = (*Task)(nil)
