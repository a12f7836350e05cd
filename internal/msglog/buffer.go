// Package msglog buffers observed messages in memory and periodically writes
// them to a storage sink, grouped by conversation and day.
package msglog

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/xaenox/relay-bot/internal/models"
	"github.com/xaenox/relay-bot/internal/storage"
	"go.uber.org/zap"
)

// DefaultFlushInterval is used when Run is given a non-positive period.
const DefaultFlushInterval = 5 * time.Minute

// Buffer accumulates MessageRecords per bucket. Record never touches the
// sink; Flush moves buffered records to it. A bucket whose write fails keeps
// its records, ahead of anything recorded meanwhile, for the next flush.
type Buffer struct {
	sink   storage.LogSink
	logger *zap.Logger
	now    func() time.Time

	mu      sync.Mutex
	buckets map[models.BucketKey][]models.MessageRecord

	// flushMu keeps flushes from interleaving their read-modify-write cycles.
	flushMu sync.Mutex
}

// Option configures a Buffer.
type Option func(*Buffer)

// WithClock overrides the time source used to pick the bucket date.
func WithClock(now func() time.Time) Option {
	return func(b *Buffer) {
		b.now = now
	}
}

func NewBuffer(sink storage.LogSink, logger *zap.Logger, opts ...Option) *Buffer {
	b := &Buffer{
		sink:    sink,
		logger:  logger,
		now:     time.Now,
		buckets: make(map[models.BucketKey][]models.MessageRecord),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Record appends rec to the bucket for label and today's date.
func (b *Buffer) Record(label string, rec models.MessageRecord) {
	key := models.NewBucketKey(label, b.now())

	b.mu.Lock()
	b.buckets[key] = append(b.buckets[key], rec)
	b.mu.Unlock()
}

// Pending returns a copy of the buffered records for key.
func (b *Buffer) Pending(key models.BucketKey) []models.MessageRecord {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]models.MessageRecord, len(b.buckets[key]))
	copy(out, b.buckets[key])
	return out
}

// Len returns the total number of buffered records.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := 0
	for _, recs := range b.buckets {
		n += len(recs)
	}
	return n
}

// Flush writes every non-empty bucket to the sink. A failing bucket does not
// stop the others; the returned error joins all failures.
func (b *Buffer) Flush(ctx context.Context) error {
	b.flushMu.Lock()
	defer b.flushMu.Unlock()

	taken := b.drain()

	var errs []error
	written := 0
	for key, recs := range taken {
		if err := b.sink.Append(ctx, key, recs); err != nil {
			b.logger.Error("Failed to flush message log",
				zap.Error(err),
				zap.String("file", key.Filename()),
				zap.Int("records", len(recs)))
			b.restore(key, recs)
			errs = append(errs, fmt.Errorf("flush %s: %w", key.Filename(), err))
			continue
		}
		written += len(recs)
	}

	b.logger.Info("Messages saved",
		zap.Int("buckets", len(taken)),
		zap.Int("records", written),
		zap.Int("failed", len(errs)))
	return errors.Join(errs...)
}

// Run flushes every interval until ctx is done, then flushes once more with a
// fresh context so buffered records are not dropped on shutdown.
func (b *Buffer) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultFlushInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_ = b.Flush(ctx)
		case <-ctx.Done():
			if err := b.Flush(context.WithoutCancel(ctx)); err != nil {
				b.logger.Error("Final flush incomplete", zap.Error(err))
			}
			return nil
		}
	}
}

// drain detaches every non-empty bucket from the map.
func (b *Buffer) drain() map[models.BucketKey][]models.MessageRecord {
	b.mu.Lock()
	defer b.mu.Unlock()

	taken := make(map[models.BucketKey][]models.MessageRecord)
	for key, recs := range b.buckets {
		if len(recs) == 0 {
			continue
		}
		taken[key] = recs
		delete(b.buckets, key)
	}
	return taken
}

// restore puts recs back in front of whatever was recorded during the flush.
func (b *Buffer) restore(key models.BucketKey, recs []models.MessageRecord) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.buckets[key] = append(append([]models.MessageRecord(nil), recs...), b.buckets[key]...)
}
