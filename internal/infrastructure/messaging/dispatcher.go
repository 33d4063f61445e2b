package messaging

import (
	"context"
	"errors"
	"expvar"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-chat/internal/domain/entity"
	"github.com/oksasatya/go-ddd-chat/internal/domain/repository"
)

const defaultHandlerTimeout = 10 * time.Second

// ErrDispatcherClosed is returned by Shutdown when called twice.
var ErrDispatcherClosed = errors.New("dispatcher closed")

// Exposed under /api/debug/vars.
var (
	publishedEvents = expvar.NewMap("chat_events_published")
	handlerFailures = expvar.NewMap("chat_event_handler_failures")
	droppedEvents   = expvar.NewInt("chat_events_dropped")
)

// EventHandler reacts to a published domain event.
type EventHandler interface {
	Name() string
	Handle(ctx context.Context, event entity.DomainEvent) error
}

type handlerFunc struct {
	name string
	fn   func(ctx context.Context, event entity.DomainEvent) error
}

func (h handlerFunc) Name() string { return h.name }
func (h handlerFunc) Handle(ctx context.Context, e entity.DomainEvent) error {
	return h.fn(ctx, e)
}

// HandlerFunc adapts a function to EventHandler.
func HandlerFunc(name string, fn func(ctx context.Context, event entity.DomainEvent) error) EventHandler {
	return handlerFunc{name: name, fn: fn}
}

// Dispatcher fans each published event out to the handlers subscribed to its
// name. Every handler runs on its own goroutine with its own timeout, so a
// slow or failing handler neither blocks the publisher nor affects the other
// handlers. Failures and panics are logged and counted, never returned.
type Dispatcher struct {
	logger  *logrus.Logger
	timeout time.Duration

	mu       sync.RWMutex
	closed   bool
	handlers map[string][]EventHandler
	wg       sync.WaitGroup
}

func NewDispatcher(logger *logrus.Logger, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = defaultHandlerTimeout
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Dispatcher{
		logger:   logger,
		timeout:  timeout,
		handlers: make(map[string][]EventHandler),
	}
}

// Subscribe registers h for events named eventName.
func (d *Dispatcher) Subscribe(eventName string, h EventHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[eventName] = append(d.handlers[eventName], h)
}

// Publish returns as soon as the handlers have been started. The handlers get
// a context that keeps ctx's values but not its cancellation.
func (d *Dispatcher) Publish(ctx context.Context, event entity.DomainEvent) {
	d.mu.RLock()
	if d.closed {
		d.mu.RUnlock()
		droppedEvents.Add(1)
		d.logger.WithFields(logrus.Fields{
			"event":    event.EventName(),
			"event_id": event.EventID().String(),
		}).Warn("dispatcher closed, dropping event")
		return
	}
	handlers := append([]EventHandler(nil), d.handlers[event.EventName()]...)
	d.wg.Add(len(handlers))
	d.mu.RUnlock()

	publishedEvents.Add(event.EventName(), 1)
	base := context.WithoutCancel(ctx)
	for _, h := range handlers {
		go d.run(base, h, event)
	}
}

func (d *Dispatcher) run(base context.Context, h EventHandler, event entity.DomainEvent) {
	defer d.wg.Done()

	log := d.logger.WithFields(logrus.Fields{
		"handler":  h.Name(),
		"event":    event.EventName(),
		"event_id": event.EventID().String(),
		"chat_id":  event.AggregateID().String(),
	})
	defer func() {
		if r := recover(); r != nil {
			handlerFailures.Add(h.Name(), 1)
			log.WithField("panic", fmt.Sprint(r)).Error("event handler panicked")
		}
	}()

	ctx, cancel := context.WithTimeout(base, d.timeout)
	defer cancel()

	if err := h.Handle(ctx, event); err != nil {
		handlerFailures.Add(h.Name(), 1)
		log.WithError(err).Warn("event handler failed")
		return
	}
	log.Debug("event handled")
}

// Shutdown stops accepting events and waits for running handlers until ctx is done.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return ErrDispatcherClosed
	}
	d.closed = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

var _ repository.EventPublisher = (*Dispatcher)(nil)
