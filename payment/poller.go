package payment

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	apperrors "github.com/jrsteele09/vetflow-console/internal/errors"
	"github.com/jrsteele09/vetflow-console/internal/metrics"
)

const (
	DefaultInterval    = 2 * time.Second
	DefaultMaxAttempts = 10
)

// Poller resolves a hosted-checkout return into a terminal outcome by
// polling the backend at a fixed cadence with a fixed attempt budget.
//
// The first request is sent immediately and later ones every interval, so a
// payment reported on the third request resolves after two intervals. A
// failed request uses up an attempt and polling continues; when the budget
// runs out the outcome is "error" if the final attempt failed and "timeout"
// otherwise. An authorization rejection ends the check at once with "error".
type Poller struct {
	checker     StatusChecker
	interval    time.Duration
	maxAttempts int
	onPaid      func(ctx context.Context, r Result) error
	progress    func(Result)
	metrics     *metrics.Collectors
}

type PollerOption func(*Poller)

func WithInterval(d time.Duration) PollerOption {
	return func(p *Poller) {
		p.interval = d
	}
}

func WithMaxAttempts(n int) PollerOption {
	return func(p *Poller) {
		p.maxAttempts = n
	}
}

// WithOnPaid runs fn once when a check reaches OutcomePaid, typically to
// refresh subscription and limit state. Its error is logged only.
func WithOnPaid(fn func(ctx context.Context, r Result) error) PollerOption {
	return func(p *Poller) {
		p.onPaid = fn
	}
}

// WithProgress reports the result after every attempt and at the end.
func WithProgress(fn func(Result)) PollerOption {
	return func(p *Poller) {
		p.progress = fn
	}
}

func WithMetrics(m *metrics.Collectors) PollerOption {
	return func(p *Poller) {
		p.metrics = m
	}
}

func NewPoller(checker StatusChecker, options ...PollerOption) (*Poller, error) {
	if checker == nil {
		return nil, errors.New("[NewPoller] checker is required")
	}
	p := &Poller{
		checker:     checker,
		interval:    DefaultInterval,
		maxAttempts: DefaultMaxAttempts,
	}
	for _, opt := range options {
		opt(p)
	}
	if p.interval <= 0 {
		return nil, errors.New("[NewPoller] interval must be positive")
	}
	if p.maxAttempts <= 0 {
		return nil, errors.New("[NewPoller] max attempts must be positive")
	}
	return p, nil
}

// Run polls until a terminal outcome and returns it. Cancelling ctx stops
// polling with OutcomeCancelled.
func (p *Poller) Run(ctx context.Context, sessionID string) Result {
	return p.run(ctx, sessionID, nil)
}

// Start polls in the background. The returned Check must be cancelled when
// the caller stops caring about the outcome.
func (p *Poller) Start(ctx context.Context, sessionID string) *Check {
	ctx, cancel := context.WithCancel(ctx)
	c := &Check{
		cancel: cancel,
		done:   make(chan struct{}),
		result: Result{SessionID: sessionID, Outcome: OutcomeChecking},
	}
	go func() {
		defer close(c.done)
		defer cancel()
		final := p.run(ctx, sessionID, c.set)
		c.set(final)
	}()
	return c
}

func (p *Poller) run(ctx context.Context, sessionID string, observe func(Result)) Result {
	res := Result{SessionID: sessionID, Outcome: OutcomeChecking}
	report := func() {
		if observe != nil {
			observe(res)
		}
		if p.progress != nil {
			p.progress(res)
		}
	}
	finish := func(o Outcome) Result {
		res.Outcome = o
		p.metrics.PaymentOutcome(string(o))
		log.Info().Str("session_id", sessionID).Str("outcome", string(o)).Int("attempts", res.Attempts).Msg("payment check finished")
		report()
		return res
	}

	if sessionID == "" {
		res.Err = apperrors.ErrMissingPaymentID
		return finish(OutcomeError)
	}

	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		if attempt > 1 && !p.wait(ctx) {
			return finish(OutcomeCancelled)
		}
		if ctx.Err() != nil {
			return finish(OutcomeCancelled)
		}

		status, err := p.checker.PaymentStatus(ctx, sessionID)
		res.Attempts = attempt
		if err != nil {
			if ctx.Err() != nil {
				return finish(OutcomeCancelled)
			}
			res.Err = &CheckError{Attempt: attempt, Err: err}
			log.Warn().Err(err).Str("session_id", sessionID).Int("attempt", attempt).Msg("payment status check failed")
			if errors.Is(err, apperrors.ErrUnauthenticated) {
				return finish(OutcomeError)
			}
			report()
			continue
		}

		res.Err = nil
		res.Status = status
		switch {
		case status.IsPaid():
			final := finish(OutcomePaid)
			if p.onPaid != nil {
				if err := p.onPaid(ctx, final); err != nil {
					log.Warn().Err(err).Str("session_id", sessionID).Msg("refresh after payment failed")
				}
			}
			return final
		case status.IsExpired():
			return finish(OutcomeExpired)
		}
		report()
	}

	if res.Err != nil {
		return finish(OutcomeError)
	}
	return finish(OutcomeTimeout)
}

// wait sleeps one interval and reports false if ctx ended first.
func (p *Poller) wait(ctx context.Context) bool {
	t := time.NewTimer(p.interval)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// Check is a handle on a background poll.
type Check struct {
	cancel context.CancelFunc
	done   chan struct{}

	mu     sync.RWMutex
	result Result
}

// Cancel stops further polling. It is safe to call more than once and after
// the check finished.
func (c *Check) Cancel() {
	c.cancel()
}

// Done is closed once the check reached a terminal outcome.
func (c *Check) Done() <-chan struct{} {
	return c.done
}

// Result returns the latest known state; Outcome is OutcomeChecking while
// polling continues.
func (c *Check) Result() Result {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.result
}

// Wait blocks until the check finishes or ctx ends, whichever is first.
func (c *Check) Wait(ctx context.Context) (Result, error) {
	select {
	case <-c.done:
		return c.Result(), nil
	case <-ctx.Done():
		return c.Result(), ctx.Err()
	}
}

func (c *Check) set(r Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.result = r
}
