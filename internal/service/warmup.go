// Package service provides the warmup relay logic, delegating the actual
// probe to a Backend.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/atinyakov/memedesk/internal/backend"
)

// Default retry budget of a relay call.
const (
	DefaultAttempts = 3
	DefaultTimeout  = 18 * time.Second
	DefaultBackoff  = 1500 * time.Millisecond
)

// ErrTimeout marks a probe that hit its per-attempt deadline.
var ErrTimeout = errors.New("timeout")

// Backend defines the single-probe operation required by the warmup service.
type Backend interface {
	// Probe performs one warmup request bounded by ctx.
	Probe(ctx context.Context) (*backend.Response, error)
}

// ExhaustedError is returned when every attempt failed.
// Its message is the last observed failure, suitable for the relay payload.
type ExhaustedError struct {
	// Attempts is the number of probes performed.
	Attempts int
	// Err is the last observed failure.
	Err error
}

func (e *ExhaustedError) Error() string { return e.Err.Error() }

func (e *ExhaustedError) Unwrap() error { return e.Err }

// statusError is a 5xx answer; its text is the backend status line.
type statusError struct {
	status string
}

func (e *statusError) Error() string { return e.status }

// WarmupService wakes a sleeping backend with bounded, spaced retries.
type WarmupService struct {
	backend  Backend
	attempts int
	timeout  time.Duration
	backoff  time.Duration
	log      *zap.Logger
}

// Option configures a WarmupService.
type Option func(*WarmupService)

// WithAttempts sets the retry budget (minimum 1).
func WithAttempts(n int) Option {
	return func(s *WarmupService) {
		if n > 0 {
			s.attempts = n
		}
	}
}

// WithTimeout sets the per-attempt deadline.
func WithTimeout(d time.Duration) Option {
	return func(s *WarmupService) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithBackoff sets the pause between failed attempts.
func WithBackoff(d time.Duration) Option {
	return func(s *WarmupService) {
		s.backoff = d
	}
}

// WithLogger sets the logger used to report failed attempts.
func WithLogger(l *zap.Logger) Option {
	return func(s *WarmupService) {
		if l != nil {
			s.log = l
		}
	}
}

// NewWarmupService constructs a WarmupService around the provided backend.
func NewWarmupService(b Backend, opts ...Option) *WarmupService {
	s := &WarmupService{
		backend:  b,
		attempts: DefaultAttempts,
		timeout:  DefaultTimeout,
		backoff:  DefaultBackoff,
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Warmup probes the backend until it answers with a status below 500.
//
// 2xx, 3xx and 4xx answers are returned as-is: a 4xx means the backend is up
// and refusing, so retrying would not help. 5xx answers, per-attempt timeouts
// and network failures are retried after the configured pause until the
// budget is spent, in which case an *ExhaustedError carries the last failure.
// backend.ErrNoOrigin and cancellation of ctx are returned without retrying.
func (s *WarmupService) Warmup(ctx context.Context) (*backend.Response, error) {
	var (
		resp    *backend.Response
		attempt int
	)

	op := func() error {
		attempt++
		actx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()

		r, err := s.backend.Probe(actx)
		if err != nil {
			switch {
			case errors.Is(err, backend.ErrNoOrigin):
				return backoff.Permanent(err)
			case ctx.Err() != nil:
				return backoff.Permanent(ctx.Err())
			case errors.Is(actx.Err(), context.DeadlineExceeded):
				return ErrTimeout
			}
			return err
		}
		if r.StatusCode >= 500 {
			return &statusError{status: r.Status}
		}
		resp = r
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(s.backoff), uint64(s.attempts-1)),
		ctx,
	)
	notify := func(err error, wait time.Duration) {
		s.log.Warn("warmup attempt failed",
			zap.Int("attempt", attempt),
			zap.Int("budget", s.attempts),
			zap.Duration("retry_in", wait),
			zap.Error(err),
		)
	}

	if err := backoff.RetryNotify(op, policy, notify); err != nil {
		if errors.Is(err, backend.ErrNoOrigin) || ctx.Err() != nil {
			return nil, err
		}
		s.log.Error("warmup budget exhausted", zap.Int("attempts", attempt), zap.Error(err))
		return nil, &ExhaustedError{Attempts: attempt, Err: err}
	}

	s.log.Info("backend warm", zap.Int("attempts", attempt), zap.Int("status", resp.StatusCode))
	return resp, nil
}
