package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sigmarp/medical-api/pkg/logger"
	"github.com/sigmarp/medical-api/pkg/messaging"
	"github.com/sigmarp/medical-api/pkg/metrics"
)

// ErrQueueFull is returned by Publish when the buffer has no room left.
var ErrQueueFull = errors.New("event queue is full")

// ErrDispatcherClosed is returned by Publish once shutdown has begun.
var ErrDispatcherClosed = errors.New("event dispatcher is closed")

type DispatcherConfig struct {
	QueueSize     int
	RetryAttempts int
	RetryDelay    time.Duration
}

func DefaultDispatcherConfig() DispatcherConfig {
	return DispatcherConfig{
		QueueSize:     256,
		RetryAttempts: 3,
		RetryDelay:    500 * time.Millisecond,
	}
}

type envelope struct {
	eventType string
	payload   interface{}
}

// Dispatcher decouples request handling from the broker: Publish only
// enqueues, and Start drains the queue into the downstream publisher with
// retries.
type Dispatcher struct {
	next   messaging.Publisher
	queue  chan envelope
	config DispatcherConfig
	logger *logger.Logger
	done   chan struct{}

	mu     sync.RWMutex
	closed bool
}

var _ messaging.Publisher = (*Dispatcher)(nil)

func NewDispatcher(next messaging.Publisher, config DispatcherConfig, log *logger.Logger) *Dispatcher {
	defaults := DefaultDispatcherConfig()
	if config.QueueSize <= 0 {
		config.QueueSize = defaults.QueueSize
	}
	if config.RetryAttempts <= 0 {
		config.RetryAttempts = defaults.RetryAttempts
	}
	if config.RetryDelay < 0 {
		config.RetryDelay = 0
	}
	return &Dispatcher{
		next:   next,
		queue:  make(chan envelope, config.QueueSize),
		config: config,
		logger: log.With("event_dispatcher"),
		done:   make(chan struct{}),
	}
}

// Publish never blocks. A full queue drops the event, and nothing is
// accepted once Start has begun its final flush.
func (d *Dispatcher) Publish(_ context.Context, eventType string, payload interface{}) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		metrics.RecordEvent(eventType, "dropped")
		return ErrDispatcherClosed
	}

	select {
	case d.queue <- envelope{eventType: eventType, payload: payload}:
		return nil
	default:
		metrics.RecordEvent(eventType, "dropped")
		return ErrQueueFull
	}
}

// Start blocks until ctx is cancelled, then flushes what is already queued.
func (d *Dispatcher) Start(ctx context.Context) {
	defer close(d.done)
	d.logger.Info("Starting event dispatcher", "queue_size", d.config.QueueSize)

	for {
		select {
		case <-ctx.Done():
			d.mu.Lock()
			d.closed = true
			d.mu.Unlock()
			d.drain()
			d.logger.Info("Shutting down event dispatcher")
			return
		case e := <-d.queue:
			d.dispatch(ctx, e)
		}
	}
}

// Done is closed once Start has returned.
func (d *Dispatcher) Done() <-chan struct{} {
	return d.done
}

func (d *Dispatcher) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		select {
		case e := <-d.queue:
			d.dispatch(ctx, e)
		default:
			return
		}
	}
}

func (d *Dispatcher) dispatch(ctx context.Context, e envelope) {
	err := retry(ctx, d.config.RetryAttempts, d.config.RetryDelay, func() error {
		return d.next.Publish(ctx, e.eventType, e.payload)
	})
	if err != nil {
		metrics.RecordEvent(e.eventType, "failed")
		d.logger.Error(err, "Failed to publish event", "event_type", e.eventType)
		return
	}
	metrics.RecordEvent(e.eventType, "published")
}

func retry(ctx context.Context, attempts int, delay time.Duration, fn func() error) error {
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if i < attempts-1 {
			select {
			case <-ctx.Done():
				return errors.Join(err, ctx.Err())
			case <-time.After(delay):
			}
		}
	}
	return err
}
