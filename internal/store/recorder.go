package store

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const defaultFlushSize = 32

// Recorder buffers calculation rows and writes them in batches off the
// caller's goroutine. Wait blocks until every started flush has finished.
type Recorder struct {
	store     *Store
	logger    *zap.Logger
	mu        sync.Mutex
	buffer    []Calculation
	flushSize int
	inflight  sync.WaitGroup
}

// NewRecorder creates a recorder writing to store. flushSize controls how
// many rows are buffered before a batch insert.
func NewRecorder(store *Store, flushSize int, logger *zap.Logger) *Recorder {
	if flushSize <= 0 {
		flushSize = defaultFlushSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{
		store:     store,
		logger:    logger,
		buffer:    make([]Calculation, 0, flushSize),
		flushSize: flushSize,
	}
}

// Record queues calcs and flushes when the buffer is full.
func (r *Recorder) Record(calcs ...Calculation) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	for _, c := range calcs {
		if c.CreatedAt.IsZero() {
			c.CreatedAt = now
		}
		r.buffer = append(r.buffer, c)
	}
	if len(r.buffer) >= r.flushSize {
		r.flushLocked()
	}
}

// Flush starts a write of anything buffered.
func (r *Recorder) Flush() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.flushLocked()
}

// Close flushes the buffer and waits for pending writes.
func (r *Recorder) Close() {
	r.Flush()
	r.inflight.Wait()
}

func (r *Recorder) flushLocked() {
	if len(r.buffer) == 0 {
		return
	}
	batch := make([]Calculation, len(r.buffer))
	copy(batch, r.buffer)
	r.buffer = r.buffer[:0]

	r.inflight.Add(1)
	go func() {
		defer r.inflight.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := r.store.SaveCalculations(ctx, batch); err != nil {
			r.logger.Error("flush calculations failed", zap.Int("rows", len(batch)), zap.Error(err))
			return
		}
		r.logger.Debug("calculations flushed", zap.Int("rows", len(batch)))
	}()
}
