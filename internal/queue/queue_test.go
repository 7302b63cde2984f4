package queue

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cphhousing/internal/models"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func rows(lines ...int) []models.AddressRow {
	out := make([]models.AddressRow, len(lines))
	for i, line := range lines {
		out[i] = models.AddressRow{Line: line}
	}
	return out
}

func TestNewAddressQueue(t *testing.T) {
	q := NewAddressQueue(10, quietLogger())
	assert.NotNil(t, q)
	assert.Equal(t, 10, q.maxSize)
	assert.False(t, q.IsClosed())
}

func TestAddressQueue_Push(t *testing.T) {
	q := NewAddressQueue(2, quietLogger())

	// Test successful push
	err := q.Push(rows(1))
	assert.NoError(t, err)
	assert.Equal(t, 1, q.Len())

	// Test queue full
	require.NoError(t, q.Push(rows(2)))
	err = q.Push(rows(3))
	assert.Equal(t, ErrQueueFull, err)

	// Test closed queue
	q.Close()
	err = q.Push(rows(4))
	assert.Equal(t, ErrQueueClosed, err)
}

func TestAddressQueue_PushWait(t *testing.T) {
	q := NewAddressQueue(1, quietLogger())
	require.NoError(t, q.PushWait(context.Background(), rows(1)))

	// Buffer is full and nobody consumes
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := q.PushWait(ctx, rows(2))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))

	q.Close()
	assert.Equal(t, ErrQueueClosed, q.PushWait(context.Background(), rows(3)))
}

func TestAddressQueue_PreservesOrder(t *testing.T) {
	q := NewAddressQueue(2, quietLogger())

	var processed []int
	q.Subscribe(func(batch []models.AddressRow) error {
		for _, r := range batch {
			processed = append(processed, r.Line)
		}
		return nil
	})
	q.Start()

	for i := 0; i < 20; i += 2 {
		require.NoError(t, q.PushWait(context.Background(), rows(i, i+1)))
	}
	q.Close()
	q.Wait()

	require.Len(t, processed, 20)
	for i, line := range processed {
		assert.Equal(t, i, line)
	}
}

func TestAddressQueue_Close(t *testing.T) {
	q := NewAddressQueue(10, quietLogger())

	// Test first close
	err := q.Close()
	assert.NoError(t, err)
	assert.True(t, q.IsClosed())

	// Test second close (should be no-op)
	err = q.Close()
	assert.NoError(t, err)

	// Never started, nothing to wait for
	q.Wait()
}

func TestAddressQueue_ProcessBatch(t *testing.T) {
	q := NewAddressQueue(10, quietLogger())

	var wg sync.WaitGroup
	processedBatches := 0
	var mu sync.Mutex

	// Add multiple handlers, one of them failing
	for i := 0; i < 3; i++ {
		wg.Add(1)
		fail := i == 1
		q.Subscribe(func(batch []models.AddressRow) error {
			mu.Lock()
			processedBatches++
			mu.Unlock()
			wg.Done()
			if fail {
				return errors.New("handler failed")
			}
			return nil
		})
	}

	// Start queue
	q.Start()

	// Push a batch
	err := q.Push(rows(1))
	assert.NoError(t, err)

	// Wait for all handlers
	wg.Wait()

	// Verify all handlers processed the batch
	mu.Lock()
	assert.Equal(t, 3, processedBatches)
	mu.Unlock()
}
