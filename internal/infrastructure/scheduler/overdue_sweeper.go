package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

var (
	// ErrSweeperNotRunning is returned when triggering a stopped sweeper
	ErrSweeperNotRunning = errors.New("overdue sweeper is not running")

	// ErrInvalidConfig is returned when sweeper configuration is invalid
	ErrInvalidConfig = errors.New("invalid sweeper configuration")
)

// OverdueMarker flips due invoices to OVERDUE. Implemented by the invoice
// application service.
type OverdueMarker interface {
	MarkOverdueBatch(ctx context.Context, asOf time.Time, batchSize int) (int, error)
}

// SweeperConfig holds configuration for the overdue sweeper
type SweeperConfig struct {
	// Interval is how often the sweep runs
	Interval time.Duration
	// BatchSize limits how many invoices a single sweep pass flips
	BatchSize int
	// SweepTimeout is the maximum time a single sweep may run
	SweepTimeout time.Duration
}

// DefaultSweeperConfig returns default sweeper configuration
func DefaultSweeperConfig() SweeperConfig {
	return SweeperConfig{
		Interval:     10 * time.Minute,
		BatchSize:    100,
		SweepTimeout: 5 * time.Minute,
	}
}

// Validate validates the configuration
func (c *SweeperConfig) Validate() error {
	if c.Interval <= 0 {
		return ErrInvalidConfig
	}
	if c.BatchSize <= 0 {
		return ErrInvalidConfig
	}
	if c.SweepTimeout <= 0 {
		return ErrInvalidConfig
	}
	return nil
}

// OverdueSweeper periodically marks past-due invoices as OVERDUE.
// The sweep drains in batches until a pass flips fewer invoices than the
// batch size, so a large backlog clears within a single interval.
type OverdueSweeper struct {
	config SweeperConfig
	marker OverdueMarker
	logger *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewOverdueSweeper creates a new overdue sweeper
func NewOverdueSweeper(config SweeperConfig, marker OverdueMarker, logger *zap.Logger) (*OverdueSweeper, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &OverdueSweeper{
		config: config,
		marker: marker,
		logger: logger,
	}, nil
}

// Start starts the sweeper loop
func (s *OverdueSweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.runLoop(ctx)

	s.logger.Info("Overdue sweeper started",
		zap.Duration("interval", s.config.Interval),
		zap.Int("batch_size", s.config.BatchSize),
	)

	return nil
}

// Stop gracefully stops the sweeper
func (s *OverdueSweeper) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Overdue sweeper stopped")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Overdue sweeper stop timed out")
		return ctx.Err()
	}
}

// runLoop runs sweeps on the configured interval
func (s *OverdueSweeper) runLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	// First sweep runs immediately so overdue invoices accumulated while
	// the service was down get flipped without waiting a full interval.
	s.sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

// sweep drains due invoices in batches until the backlog is clear
func (s *OverdueSweeper) sweep(ctx context.Context) {
	sweepCtx, cancel := context.WithTimeout(ctx, s.config.SweepTimeout)
	defer cancel()

	asOf := time.Now()
	total := 0

	for {
		marked, err := s.marker.MarkOverdueBatch(sweepCtx, asOf, s.config.BatchSize)
		total += marked
		if err != nil {
			s.logger.Error("Overdue sweep failed",
				zap.Int("marked", total),
				zap.Error(err),
			)
			return
		}
		if marked < s.config.BatchSize {
			break
		}
		select {
		case <-sweepCtx.Done():
			s.logger.Warn("Overdue sweep timed out mid-backlog",
				zap.Int("marked", total),
			)
			return
		default:
		}
	}

	if total > 0 {
		s.logger.Info("Overdue sweep completed",
			zap.Int("marked", total),
			zap.Time("as_of", asOf),
		)
	}
}

// TriggerSweep runs a sweep immediately. Used by the admin endpoint.
func (s *OverdueSweeper) TriggerSweep(ctx context.Context) error {
	s.mu.Lock()
	running := s.isRunning
	s.mu.Unlock()

	if !running {
		return ErrSweeperNotRunning
	}

	s.sweep(ctx)
	return nil
}
