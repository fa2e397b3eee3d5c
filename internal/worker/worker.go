// Package worker implements the compiler-worker side of §5's three-process
// concurrency model: a background goroutine that serialises GUI commands
// over a single channel, replies in observed order, and is supervised by a
// monitor goroutine that turns a panic into an event instead of crashing
// the process or restarting the worker.
package worker

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/tadgo/tad/internal/pitch"
)

// ItemID identifies an instrument/song/SFX across threads regardless of
// list order (§5 "Shared resources").
type ItemID int64

// IDAllocator hands out process-wide monotonically increasing ItemIDs.
type IDAllocator struct {
	next atomic.Int64
}

func (a *IDAllocator) Next() ItemID {
	return ItemID(a.next.Add(1))
}

// Worker serialises compile commands onto one goroutine and posts replies
// to Events() in the order the commands were observed (§5 "Ordering
// guarantees").
type Worker struct {
	commands chan Command
	events   chan Event
	log      *log.Logger
	pitch    pitch.Table
	ids      *IDAllocator
}

// New creates a Worker. pitchTable resolves instrument pitches for song and
// sound-effect compilation (the pitch oracle named in §9); logger receives
// the worker's own trace output (§4.0b) — pass nil to use a default
// stderr logger.
func New(pitchTable pitch.Table, ids *IDAllocator, logger *log.Logger) *Worker {
	if logger == nil {
		logger = log.Default()
	}
	return &Worker{
		commands: make(chan Command, 64),
		events:   make(chan Event, 64),
		log:      logger,
		pitch:    pitchTable,
		ids:      ids,
	}
}

// Submit enqueues a command. Cancellation is handled by idempotent
// reprocessing (§5 "Cancellation"): submitting a newer command for the same
// item does not cancel an older in-flight one, it is simply processed
// after it, and the GUI discards stale replies by ItemID.
func (w *Worker) Submit(cmd Command) {
	w.commands <- cmd
}

// Events returns the channel replies and the panic event are posted to, in
// the order their commands were observed.
func (w *Worker) Events() <-chan Event {
	return w.events
}

// Close signals the worker to stop accepting new commands once its queue
// drains.
func (w *Worker) Close() {
	close(w.commands)
}

// Run drives the worker and its monitor until the command channel is
// closed and drained or ctx is cancelled. A panic during command
// processing is captured by the monitor goroutine and posted as an
// Event{Kind: EventPanic}; per §5 "Panic policy" the worker is not
// restarted, so Run returns once that happens.
func (w *Worker) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	panicked := make(chan any, 1)

	g.Go(func() error {
		defer close(panicked)
		defer func() {
			if r := recover(); r != nil {
				panicked <- r
			}
		}()
		w.processLoop(ctx)
		return nil
	})

	g.Go(func() error {
		select {
		case r, ok := <-panicked:
			if ok {
				w.log.Error("worker panic captured", "recovered", r)
				w.postEvent(Event{Kind: EventPanic, Message: formatPanic(r)})
			}
		case <-ctx.Done():
		}
		return nil
	})

	return g.Wait()
}

func (w *Worker) processLoop(ctx context.Context) {
	for {
		select {
		case cmd, ok := <-w.commands:
			if !ok {
				return
			}
			w.handle(cmd)
		case <-ctx.Done():
			return
		}
	}
}

func (w *Worker) postEvent(evt Event) {
	w.events <- evt
}

func formatPanic(r any) string {
	if err, ok := r.(error); ok {
		return err.Error()
	}
	return fmt.Sprint(r)
}
