package queue

import (
	"context"
	"errors"
	"os"
	"sync"

	"github.com/sirupsen/logrus"

	"cphhousing/internal/models"
)

var (
	ErrQueueFull   = errors.New("queue is full")
	ErrQueueClosed = errors.New("queue is closed")
)

// AddressQueue represents an in-memory queue for address batches. A single
// consumer hands batches to the subscribed handlers in push order.
type AddressQueue struct {
	items   chan []models.AddressRow
	done    chan struct{}
	maxSize int
	closed  bool
	started bool
	mu      sync.RWMutex
	logger  *logrus.Logger

	handlersMu sync.Mutex
	handlers   []func([]models.AddressRow) error
}

// NewAddressQueue creates a new address queue with the specified buffer size
func NewAddressQueue(bufferSize int, logger *logrus.Logger) *AddressQueue {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}
	return &AddressQueue{
		items:    make(chan []models.AddressRow, bufferSize),
		done:     make(chan struct{}),
		maxSize:  bufferSize,
		logger:   logger,
		handlers: make([]func([]models.AddressRow) error, 0),
	}
}

// Push adds a batch without blocking.
func (q *AddressQueue) Push(batch []models.AddressRow) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}

	select {
	case q.items <- batch:
		q.logger.WithField("batch_size", len(batch)).Debug("Pushed batch to queue")
		return nil
	default:
		return ErrQueueFull
	}
}

// PushWait adds a batch, waiting for room in the buffer.
func (q *AddressQueue) PushWait(ctx context.Context, batch []models.AddressRow) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}

	select {
	case q.items <- batch:
		q.logger.WithField("batch_size", len(batch)).Debug("Pushed batch to queue")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Subscribe adds a handler function that will be called for each batch
func (q *AddressQueue) Subscribe(handler func([]models.AddressRow) error) {
	q.handlersMu.Lock()
	defer q.handlersMu.Unlock()
	q.handlers = append(q.handlers, handler)
}

// Start begins processing items in the queue. Further calls are no-ops.
func (q *AddressQueue) Start() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started {
		return
	}
	q.started = true
	go q.process()
}

func (q *AddressQueue) process() {
	defer close(q.done)
	for batch := range q.items {
		q.processBatch(batch)
	}
}

// processBatch sends the batch to all subscribed handlers
func (q *AddressQueue) processBatch(batch []models.AddressRow) {
	q.handlersMu.Lock()
	handlers := q.handlers
	q.handlersMu.Unlock()

	for _, handler := range handlers {
		if err := handler(batch); err != nil {
			q.logger.WithError(err).Error("Handler failed to process batch")
		}
	}
}

// Close stops accepting batches. Batches already queued are still
// processed.
func (q *AddressQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}

	q.closed = true
	close(q.items)
	return nil
}

// Wait blocks until a closed queue has been drained. It returns at once if
// the queue was never started.
func (q *AddressQueue) Wait() {
	q.mu.RLock()
	started := q.started
	q.mu.RUnlock()
	if !started {
		return
	}
	<-q.done
}

// Len returns the current number of batches in the queue
func (q *AddressQueue) Len() int {
	return len(q.items)
}

// IsClosed returns whether the queue has been closed
func (q *AddressQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
