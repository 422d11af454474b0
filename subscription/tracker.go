package subscription

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Backend is the part of the API the tracker reads from.
type Backend interface {
	Plans(ctx context.Context) (*Catalog, error)
	CurrentSubscription(ctx context.Context) (*Current, error)
	Limits(ctx context.Context) (*Limits, error)
}

// Snapshot is the last complete view of the account's billing state.
type Snapshot struct {
	Catalog     *Catalog
	Current     *Current
	Limits      *Limits
	RefreshedAt time.Time
}

// Tracker caches subscription state and refreshes it on demand, e.g. after
// a payment is confirmed.
type Tracker struct {
	backend Backend
	nowTime func() time.Time

	mu   sync.RWMutex
	snap Snapshot
}

type TrackerOption func(*Tracker)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) TrackerOption {
	return func(t *Tracker) {
		t.nowTime = nowFunc
	}
}

func NewTracker(backend Backend, options ...TrackerOption) (*Tracker, error) {
	if backend == nil {
		return nil, errors.New("[NewTracker] backend is required")
	}
	t := &Tracker{backend: backend, nowTime: time.Now}
	for _, opt := range options {
		opt(t)
	}
	return t, nil
}

// Refresh fetches plans, the current subscription and limits concurrently.
// The cached snapshot is replaced only when all three succeed.
func (t *Tracker) Refresh(ctx context.Context) (Snapshot, error) {
	var next Snapshot
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		next.Catalog, err = t.backend.Plans(gctx)
		return errors.Wrap(err, "plans")
	})
	g.Go(func() (err error) {
		next.Current, err = t.backend.CurrentSubscription(gctx)
		return errors.Wrap(err, "current subscription")
	})
	g.Go(func() (err error) {
		next.Limits, err = t.backend.Limits(gctx)
		return errors.Wrap(err, "limits")
	})
	if err := g.Wait(); err != nil {
		log.Warn().Err(err).Msg("subscription refresh failed")
		return t.Snapshot(), errors.Wrap(err, "[Tracker.Refresh]")
	}

	next.RefreshedAt = t.nowTime()
	t.mu.Lock()
	t.snap = next
	t.mu.Unlock()
	return next, nil
}

// Snapshot returns the last successful refresh; the zero Snapshot if none.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.snap
}
