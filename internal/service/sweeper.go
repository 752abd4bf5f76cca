package service

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// SweepFunc removes expired state and reports how many items it removed.
type SweepFunc func(context.Context) (int, error)

// SweepStep is one named cleanup performed on every sweep.
type SweepStep struct {
	Label string
	Fn    SweepFunc
}

// SweeperServiceOptions groups dependencies for SweeperService.
type SweeperServiceOptions struct {
	Steps    []SweepStep   // Required: at least one step
	Interval time.Duration // Required: time between sweeps
	Logger   *slog.Logger  // Optional: structured logger
}

// SweeperService periodically evicts idle session machines and expired client state.
type SweeperService struct {
	steps    []SweepStep
	interval time.Duration
	logger   *slog.Logger
}

// NewSweeperService constructs a new SweeperService.
func NewSweeperService(opts SweeperServiceOptions) (*SweeperService, error) {
	if len(opts.Steps) == 0 {
		return nil, errors.New("at least one sweep step is required")
	}
	if opts.Interval <= 0 {
		return nil, errors.New("sweep interval must be positive")
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "sweeper_service")
		logger.Debug("SweeperService initialized", "interval", opts.Interval, "steps", len(opts.Steps))
	}

	return &SweeperService{steps: opts.Steps, interval: opts.Interval, logger: logger}, nil
}

// Run sweeps at the configured interval until the context is cancelled.
// Returns nil on graceful shutdown (context.Canceled), error otherwise.
func (s *SweeperService) Run(ctx context.Context) error {
	if s.logger != nil {
		s.logger.InfoContext(ctx, "starting sweeper service", "interval", s.interval)
	}

	// Spread instances that start together.
	s.waitWithJitter(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	return s.runLoop(ctx, ticker)
}

// waitWithJitter sleeps a random delay up to 10% of the interval.
func (s *SweeperService) waitWithJitter(ctx context.Context) {
	maxJitter := int64(s.interval / 10)
	if maxJitter <= 0 {
		return
	}

	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		if s.logger != nil {
			s.logger.WarnContext(ctx, "failed to generate jitter, skipping", "error", err)
		}
		return
	}

	jitterNanos := binary.BigEndian.Uint64(buf[:]) % uint64(maxJitter)
	jitter := time.Duration(int64(jitterNanos)) // #nosec G115 - bounded by maxJitter which is int64

	select {
	case <-time.After(jitter):
	case <-ctx.Done():
	}
}

func (s *SweeperService) runLoop(ctx context.Context, ticker *time.Ticker) error {
	for {
		select {
		case <-ctx.Done():
			if s.logger != nil {
				s.logger.InfoContext(ctx, "sweeper service stopping", "reason", ctx.Err())
			}
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()

		case <-ticker.C:
			if err := s.Sweep(ctx); err != nil {
				s.logSweepError(err)
			}
		}
	}
}

// Sweep runs every step once. A failing step does not stop the others.
func (s *SweeperService) Sweep(ctx context.Context) error {
	var errs []error
	total := 0
	for _, step := range s.steps {
		n, err := step.Fn(ctx)
		total += n
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", step.Label, err))
			continue
		}
		if n > 0 && s.logger != nil {
			s.logger.InfoContext(ctx, "sweep removed state", "step", step.Label, "count", n)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("sweep failed: %w", errors.Join(errs...))
	}
	if s.logger != nil {
		s.logger.DebugContext(ctx, "sweep complete", "removed", total)
	}
	return nil
}

func (s *SweeperService) logSweepError(err error) {
	if err == nil || s.logger == nil {
		return
	}
	if isContextCancellation(err) {
		s.logger.Debug("sweep cancelled by context", "error", err)
		return
	}
	s.logger.Error("sweep failed", "error", err)
}

func isContextCancellation(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
