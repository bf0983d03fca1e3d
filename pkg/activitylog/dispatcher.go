package activitylog

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/felixgeelhaar/fortify/retry"
	"go.uber.org/zap"

	"github.com/jakechorley/evs-dispatch/pkg/db"
)

var (
	// ErrQueueFull is returned by Append when the dispatcher cannot accept more records
	ErrQueueFull = errors.New("activity queue full")

	// ErrClosed is returned by Append after Close
	ErrClosed = errors.New("activity dispatcher closed")
)

// Config controls buffering and retry of the dispatcher
type Config struct {
	QueueSize     int
	RetryAttempts int
	RetryDelay    time.Duration

	// WriteTimeout bounds each write to the sink, retries included
	WriteTimeout time.Duration
}

// DefaultConfig returns the standard dispatcher settings
func DefaultConfig() Config {
	return Config{
		QueueSize:     64,
		RetryAttempts: 3,
		RetryDelay:    250 * time.Millisecond,
		WriteTimeout:  30 * time.Second,
	}
}

// Dispatcher is an ActivityLog that hands records to a slower sink on a background
// worker, retrying failed writes out of band. Append never blocks on the sink.
type Dispatcher struct {
	sink        db.ActivityLog
	cfg         Config
	logger      *zap.Logger
	retryConfig retry.Config

	mu     sync.RWMutex
	closed bool
	queue  chan db.ActivityRecord
	done   chan struct{}
}

// NewDispatcher starts a dispatcher writing to sink
func NewDispatcher(sink db.ActivityLog, cfg Config, logger *zap.Logger) *Dispatcher {
	defaults := DefaultConfig()
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaults.QueueSize
	}
	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = defaults.RetryAttempts
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = defaults.RetryDelay
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = defaults.WriteTimeout
	}

	retryConfig := retry.Config{
		MaxAttempts:   cfg.RetryAttempts,
		InitialDelay:  cfg.RetryDelay,
		BackoffPolicy: retry.BackoffExponential,
	}

	d := &Dispatcher{
		sink:        sink,
		cfg:         cfg,
		logger:      logger,
		retryConfig: retryConfig,
		queue:       make(chan db.ActivityRecord, cfg.QueueSize),
		done:        make(chan struct{}),
	}
	go d.run()
	return d
}

// Append queues a record for delivery
func (d *Dispatcher) Append(ctx context.Context, record db.ActivityRecord) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrClosed
	}

	select {
	case d.queue <- record:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close stops accepting records and waits for queued records to be written,
// or until ctx is done
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for record := range d.queue {
		d.deliver(record)
	}
}

func (d *Dispatcher) deliver(record db.ActivityRecord) {
	ctx, cancel := context.WithTimeout(context.Background(), d.cfg.WriteTimeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("Activity sink panicked, record dropped",
				zap.String("record_id", record.ID),
				zap.Any("panic", r))
		}
	}()

	retryer := retry.New[struct{}](d.retryConfig)
	_, err := retryer.Do(ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, d.sink.Append(ctx, record)
	})
	if err != nil {
		d.logger.Warn("Dropping activity record after retries",
			zap.String("record_id", record.ID),
			zap.String("action", record.Action),
			zap.Error(err))
		return
	}
	d.logger.Debug("Activity record written", zap.String("record_id", record.ID))
}
