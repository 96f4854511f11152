package storage

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/good-yellow-bee/pulseboard/internal/metrics"
	"github.com/good-yellow-bee/pulseboard/internal/models"
)

// TelemetryBuffer buffers check results and metric samples for batch
// insertion. It flushes on either batch size threshold or time interval,
// whichever comes first, and drops oldest entries when full.
type TelemetryBuffer struct {
	store         TelemetryStorage
	batchSize     int
	flushInterval time.Duration
	maxSize       int

	mu      sync.Mutex
	checks  []*models.CheckResult
	samples []*models.MetricSample
	stopCh  chan struct{}
	doneCh  chan struct{}
	stopped atomic.Bool
	dropped atomic.Int64
	flushed atomic.Int64
}

// TelemetryBufferConfig holds TelemetryBuffer configuration.
type TelemetryBufferConfig struct {
	// BatchSize is the number of entries to trigger a flush.
	BatchSize int

	// FlushInterval is the time interval to trigger a flush.
	FlushInterval time.Duration

	// MaxSize is the maximum buffer size per kind. When reached, oldest
	// entries are dropped.
	MaxSize int
}

// NewTelemetryBuffer creates a new telemetry buffer.
func NewTelemetryBuffer(store TelemetryStorage, config *TelemetryBufferConfig) *TelemetryBuffer {
	if config == nil {
		config = &TelemetryBufferConfig{}
	}
	if config.BatchSize == 0 {
		config.BatchSize = 500
	}
	if config.FlushInterval == 0 {
		config.FlushInterval = 5 * time.Second
	}
	if config.MaxSize == 0 {
		config.MaxSize = 50000
	}

	b := &TelemetryBuffer{
		store:         store,
		batchSize:     config.BatchSize,
		flushInterval: config.FlushInterval,
		maxSize:       config.MaxSize,
		checks:        make([]*models.CheckResult, 0, config.BatchSize),
		samples:       make([]*models.MetricSample, 0, config.BatchSize),
		stopCh:        make(chan struct{}),
		doneCh:        make(chan struct{}),
	}

	go b.flushLoop()
	return b
}

// RecordCheck buffers a single check result.
func (b *TelemetryBuffer) RecordCheck(ctx context.Context, result *models.CheckResult) error {
	if b.stopped.Load() {
		return nil
	}

	b.mu.Lock()
	if len(b.checks) >= b.maxSize {
		b.dropped.Add(1)
		metrics.BufferDroppedTotal.Inc()
		b.checks = b.checks[1:]
		log.Printf("warning: telemetry buffer overflow, dropped oldest check result")
	}
	b.checks = append(b.checks, result)
	shouldFlush := len(b.checks) >= b.batchSize
	b.setPendingLocked()
	b.mu.Unlock()

	if shouldFlush {
		return b.Flush()
	}
	return nil
}

// RecordSample buffers a single metric sample.
func (b *TelemetryBuffer) RecordSample(ctx context.Context, sample *models.MetricSample) error {
	if b.stopped.Load() {
		return nil
	}

	b.mu.Lock()
	if len(b.samples) >= b.maxSize {
		b.dropped.Add(1)
		metrics.BufferDroppedTotal.Inc()
		b.samples = b.samples[1:]
		log.Printf("warning: telemetry buffer overflow, dropped oldest metric sample")
	}
	b.samples = append(b.samples, sample)
	shouldFlush := len(b.samples) >= b.batchSize
	b.setPendingLocked()
	b.mu.Unlock()

	if shouldFlush {
		return b.Flush()
	}
	return nil
}

// Flush forces a flush of buffered entries.
func (b *TelemetryBuffer) Flush() error {
	b.mu.Lock()
	if len(b.checks) == 0 && len(b.samples) == 0 {
		b.mu.Unlock()
		return nil
	}

	checks := b.checks
	samples := b.samples
	b.checks = make([]*models.CheckResult, 0, b.batchSize)
	b.samples = make([]*models.MetricSample, 0, b.batchSize)
	b.setPendingLocked()
	b.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := b.store.InsertChecks(ctx, checks); err != nil {
		b.requeueChecks(checks)
		return err
	}
	if err := b.store.InsertSamples(ctx, samples); err != nil {
		b.requeueSamples(samples)
		return err
	}

	b.flushed.Add(1)
	metrics.BufferFlushesTotal.Inc()
	return nil
}

func (b *TelemetryBuffer) requeueChecks(checks []*models.CheckResult) {
	b.mu.Lock()
	b.checks = append(checks, b.checks...)
	if len(b.checks) > b.maxSize {
		excess := len(b.checks) - b.maxSize
		b.dropped.Add(int64(excess))
		metrics.BufferDroppedTotal.Add(float64(excess))
		b.checks = b.checks[excess:]
	}
	b.setPendingLocked()
	b.mu.Unlock()
}

func (b *TelemetryBuffer) requeueSamples(samples []*models.MetricSample) {
	b.mu.Lock()
	b.samples = append(samples, b.samples...)
	if len(b.samples) > b.maxSize {
		excess := len(b.samples) - b.maxSize
		b.dropped.Add(int64(excess))
		metrics.BufferDroppedTotal.Add(float64(excess))
		b.samples = b.samples[excess:]
	}
	b.setPendingLocked()
	b.mu.Unlock()
}

// setPendingLocked updates the pending gauge. Caller holds b.mu.
func (b *TelemetryBuffer) setPendingLocked() {
	metrics.BufferPending.Set(float64(len(b.checks) + len(b.samples)))
}

// flushLoop periodically flushes the buffer.
func (b *TelemetryBuffer) flushLoop() {
	defer close(b.doneCh)
	ticker := time.NewTicker(b.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := b.Flush(); err != nil {
				log.Printf("telemetry buffer flush error: %v", err)
			}
		case <-b.stopCh:
			// Final flush on shutdown
			if err := b.Flush(); err != nil {
				log.Printf("telemetry buffer final flush error: %v", err)
			}
			return
		}
	}
}

// Close stops the buffer and flushes remaining entries.
func (b *TelemetryBuffer) Close() error {
	if b.stopped.Swap(true) {
		return nil
	}
	close(b.stopCh)
	<-b.doneCh
	return nil
}

// TelemetryBufferStats contains buffer statistics.
type TelemetryBufferStats struct {
	// PendingChecks is the number of check results waiting to be flushed.
	PendingChecks int

	// PendingSamples is the number of metric samples waiting to be flushed.
	PendingSamples int

	// Dropped is the total number of entries dropped due to backpressure.
	Dropped int64

	// Flushed is the total number of flush operations.
	Flushed int64
}

// Stats returns buffer statistics.
func (b *TelemetryBuffer) Stats() TelemetryBufferStats {
	b.mu.Lock()
	checks := len(b.checks)
	samples := len(b.samples)
	b.mu.Unlock()

	return TelemetryBufferStats{
		PendingChecks:  checks,
		PendingSamples: samples,
		Dropped:        b.dropped.Load(),
		Flushed:        b.flushed.Load(),
	}
}
