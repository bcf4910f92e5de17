package messaging

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/mentora-hub/mentora-progression/internal/domain/shared"
	"github.com/mentora-hub/mentora-progression/pkg/logger"
	"github.com/mentora-hub/mentora-progression/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// DISPATCHER
// ══════════════════════════════════════════════════════════════════════════════

// Dispatcher registers event handlers on a bus with a hardening layer:
// panic recovery, per-handler retries with exponential backoff, and a
// dead letter queue for events whose handlers exhausted their retries.
type Dispatcher struct {
	bus         shared.EventSubscriber
	middlewares []Middleware
	retrier     *retry.Retrier
	deadLetterQ *DeadLetterQueue
	log         *logger.Logger
	mu          sync.Mutex
}

// DispatcherConfig contains configuration for the Dispatcher.
type DispatcherConfig struct {
	// Bus is the underlying event bus handlers are registered on.
	Bus shared.EventSubscriber

	// Retrier controls retry behavior for failing handlers.
	Retrier *retry.Retrier

	// EnableDeadLetterQueue enables the DLQ for exhausted events.
	EnableDeadLetterQueue bool

	// DeadLetterQueueSize is the max size of the DLQ.
	DeadLetterQueueSize int

	// Logger for structured logging.
	Logger *logger.Logger
}

// DefaultDispatcherConfig returns sensible defaults.
func DefaultDispatcherConfig(bus shared.EventSubscriber) DispatcherConfig {
	return DispatcherConfig{
		Bus: bus,
		Retrier: retry.New(
			retry.WithMaxAttempts(3),
			retry.WithInitialDelay(100*time.Millisecond),
			retry.WithMaxDelay(5*time.Second),
		),
		EnableDeadLetterQueue: true,
		DeadLetterQueueSize:   1000,
	}
}

// NewDispatcher creates a new event dispatcher.
func NewDispatcher(config DispatcherConfig) *Dispatcher {
	if config.Logger == nil {
		config.Logger = logger.Default()
	}
	if config.Retrier == nil {
		config.Retrier = retry.New(retry.WithMaxAttempts(1))
	}

	d := &Dispatcher{
		bus:     config.Bus,
		retrier: config.Retrier,
		log:     config.Logger.With(logger.Component("dispatcher")),
	}

	if config.EnableDeadLetterQueue {
		d.deadLetterQ = NewDeadLetterQueue(config.DeadLetterQueueSize)
	}

	return d
}

// ══════════════════════════════════════════════════════════════════════════════
// MIDDLEWARE
// ══════════════════════════════════════════════════════════════════════════════

// Middleware wraps an event handler with cross-cutting behavior.
type Middleware func(shared.EventHandler) shared.EventHandler

// Use adds a middleware applied to every handler registered afterwards.
// Middlewares run in registration order, outermost first.
func (d *Dispatcher) Use(middleware Middleware) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.middlewares = append(d.middlewares, middleware)
}

// handlerFunc adapts a function to shared.EventHandler.
type handlerFunc struct {
	name string
	fn   func(shared.Event) error
}

func (h handlerFunc) Handle(event shared.Event) error { return h.fn(event) }
func (h handlerFunc) Name() string                    { return h.name }

// RecoveryMiddleware converts handler panics into errors.
func RecoveryMiddleware(log *logger.Logger) Middleware {
	return func(next shared.EventHandler) shared.EventHandler {
		return handlerFunc{
			name: next.Name(),
			fn: func(event shared.Event) (err error) {
				defer func() {
					if r := recover(); r != nil {
						log.Error("handler panic",
							logger.String("handler", next.Name()),
							logger.String("event_type", string(event.EventType())),
							logger.Any("panic", r),
							logger.String("stack", string(debug.Stack())),
						)
						err = fmt.Errorf("handler %s panicked: %v", next.Name(), r)
					}
				}()
				return next.Handle(event)
			},
		}
	}
}

// LoggingMiddleware logs every handler execution with its duration.
func LoggingMiddleware(log *logger.Logger) Middleware {
	return func(next shared.EventHandler) shared.EventHandler {
		return handlerFunc{
			name: next.Name(),
			fn: func(event shared.Event) error {
				start := time.Now()
				err := next.Handle(event)
				fields := []logger.Field{
					logger.String("handler", next.Name()),
					logger.String("event_type", string(event.EventType())),
					logger.Duration("duration", time.Since(start)),
				}
				if err != nil {
					log.Error("event handler failed", append(fields, logger.Err(err))...)
				} else {
					log.Debug("event handled", fields...)
				}
				return err
			},
		}
	}
}

// TimeoutMiddleware fails a handler that runs longer than timeout. The
// handler goroutine itself is not killed, only abandoned.
func TimeoutMiddleware(timeout time.Duration) Middleware {
	return func(next shared.EventHandler) shared.EventHandler {
		return handlerFunc{
			name: next.Name(),
			fn: func(event shared.Event) error {
				done := make(chan error, 1)
				go func() {
					done <- next.Handle(event)
				}()

				select {
				case err := <-done:
					return err
				case <-time.After(timeout):
					return fmt.Errorf("handler %s timed out after %s", next.Name(), timeout)
				}
			},
		}
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// REGISTRATION
// ══════════════════════════════════════════════════════════════════════════════

// Register subscribes a handler for an event type, wrapped with the
// dispatcher's middlewares, retries and DLQ capture.
func (d *Dispatcher) Register(eventType shared.EventType, handler shared.EventHandler) {
	d.bus.Subscribe(eventType, d.wrap(handler))
}

// RegisterAll subscribes a handler for every event type.
func (d *Dispatcher) RegisterAll(handler shared.EventHandler) {
	d.bus.SubscribeAll(d.wrap(handler))
}

func (d *Dispatcher) wrap(handler shared.EventHandler) shared.EventHandler {
	d.mu.Lock()
	middlewares := make([]Middleware, len(d.middlewares))
	copy(middlewares, d.middlewares)
	d.mu.Unlock()

	wrapped := handler
	for i := len(middlewares) - 1; i >= 0; i-- {
		wrapped = middlewares[i](wrapped)
	}

	return handlerFunc{
		name: handler.Name(),
		fn:   d.withRetry(wrapped),
	}
}

// withRetry retries a failing handler with backoff; when attempts are
// exhausted the event goes to the dead letter queue.
func (d *Dispatcher) withRetry(handler shared.EventHandler) func(shared.Event) error {
	return func(event shared.Event) error {
		err := d.retrier.Do(context.Background(), func(ctx context.Context) error {
			return handler.Handle(event)
		})
		if err == nil {
			return nil
		}

		if d.deadLetterQ != nil {
			d.deadLetterQ.Add(DeadLetterEntry{
				Event:       event,
				HandlerName: handler.Name(),
				Error:       err.Error(),
				FailedAt:    time.Now().UTC(),
			})
		}

		d.log.Error("handler exhausted retries",
			logger.String("handler", handler.Name()),
			logger.String("event_type", string(event.EventType())),
			logger.Err(err),
		)
		return err
	}
}

// DeadLetterQueue returns the DLQ (nil when disabled).
func (d *Dispatcher) DeadLetterQueue() *DeadLetterQueue {
	return d.deadLetterQ
}

// ══════════════════════════════════════════════════════════════════════════════
// DEAD LETTER QUEUE
// ══════════════════════════════════════════════════════════════════════════════

// DeadLetterEntry records an event a handler could not process.
type DeadLetterEntry struct {
	Event       shared.Event
	HandlerName string
	Error       string
	FailedAt    time.Time
}

// DeadLetterQueue is a bounded in-memory queue of failed events.
// When full, the oldest entry is dropped.
type DeadLetterQueue struct {
	mu      sync.Mutex
	entries []DeadLetterEntry
	maxSize int
}

// NewDeadLetterQueue creates a queue bounded to maxSize entries.
func NewDeadLetterQueue(maxSize int) *DeadLetterQueue {
	if maxSize <= 0 {
		maxSize = 1000
	}
	return &DeadLetterQueue{maxSize: maxSize}
}

// Add appends an entry, evicting the oldest when the queue is full.
func (q *DeadLetterQueue) Add(entry DeadLetterEntry) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.entries) >= q.maxSize {
		q.entries = q.entries[1:]
	}
	q.entries = append(q.entries, entry)
}

// Entries returns a copy of all entries.
func (q *DeadLetterQueue) Entries() []DeadLetterEntry {
	q.mu.Lock()
	defer q.mu.Unlock()

	entries := make([]DeadLetterEntry, len(q.entries))
	copy(entries, q.entries)
	return entries
}

// Size returns the number of queued entries.
func (q *DeadLetterQueue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// Pop removes and returns the oldest entry.
func (q *DeadLetterQueue) Pop() (DeadLetterEntry, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.entries) == 0 {
		return DeadLetterEntry{}, false
	}

	entry := q.entries[0]
	q.entries = q.entries[1:]
	return entry, true
}

// Clear drops all entries.
func (q *DeadLetterQueue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.entries = nil
}
