package events

import (
	"context"
	"log/slog"
	"sync"

	"github.com/areduca/classbuilder/internal/queue"
)

// Async hands events to a background goroutine so that slow sinks never
// delay a save. Events beyond the buffer size are dropped and logged.
type Async struct {
	next   Publisher
	logger *slog.Logger
	queue  *queue.Queue[Event]

	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewAsync starts the delivery goroutine for next.
func NewAsync(next Publisher, bufferSize int, logger *slog.Logger) *Async {
	a := &Async{
		next:   next,
		logger: logger,
		queue:  queue.New[Event](bufferSize),
		done:   make(chan struct{}),
	}
	a.wg.Add(1)
	go a.run()
	return a
}

// Publish enqueues e. It never blocks on the sink.
func (a *Async) Publish(ctx context.Context, e Event) error {
	if dropped := a.queue.Push(e); dropped > 0 {
		a.logger.Warn("Event buffer full, dropping event", "kind", string(e.Kind), "classId", e.ClassID)
	}
	return nil
}

func (a *Async) run() {
	defer a.wg.Done()
	for {
		select {
		case <-a.queue.Ready():
			a.drain()
		case <-a.done:
			a.drain()
			return
		}
	}
}

func (a *Async) drain() {
	for _, e := range a.queue.GetAndEmpty() {
		if err := a.next.Publish(context.Background(), e); err != nil {
			a.logger.Error("Failed to publish event", "kind", string(e.Kind), "classId", e.ClassID, "error", err)
		}
	}
}

// Close delivers what is queued, then closes the wrapped publisher.
func (a *Async) Close() error {
	var err error
	a.closeOnce.Do(func() {
		close(a.done)
		a.wg.Wait()
		err = a.next.Close()
	})
	return err
}
