package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/vetflow-console/api"
	apperrors "github.com/jrsteele09/vetflow-console/internal/errors"
	"github.com/jrsteele09/vetflow-console/internal/metrics"
	"github.com/jrsteele09/vetflow-console/sessions"
	"github.com/jrsteele09/vetflow-console/token"
	"github.com/jrsteele09/vetflow-console/users"
)

// Backend is the part of the REST API the session manager talks to.
type Backend interface {
	Register(ctx context.Context, r users.Registration) (*api.TokenResponse, error)
	Login(ctx context.Context, creds users.Credentials) (*api.TokenResponse, error)
	GoogleAuth(ctx context.Context, sessionID string) (*api.TokenResponse, error)
	Me(ctx context.Context) (*users.User, error)
	MeWithToken(ctx context.Context, raw string) (*users.User, error)
	RevokeToken(ctx context.Context, raw string) error
	OnUnauthorized(h api.UnauthorizedHandler)
}

var _ Backend = (*api.Client)(nil)

// InvalidationHandler receives the reason a session was dropped by the
// backend. The reason matches apperrors.ErrSessionExpired.
type InvalidationHandler func(reason error)

type subscriber[T any] struct {
	id uint64
	fn T
}

// SessionManager owns the authentication token and the cached user profile.
// Construct one per process and share it.
type SessionManager struct {
	repo    sessions.Repo
	backend Backend
	metrics *metrics.Collectors
	nowTime func() time.Time

	lock          sync.RWMutex
	state         State
	token         string
	epoch         uint64 // bumped whenever the session is replaced or cleared
	nextID        uint64
	listeners     []subscriber[func(State)]
	invalidations []subscriber[InvalidationHandler]
	pending       []State // transitions not yet delivered, in the order they happened
	delivering    bool

	bootOnce sync.Once
	bootDone chan struct{}

	oauthLock  sync.Mutex
	oauthCalls map[string]*oauthCall
}

type SessionManagerOption func(*SessionManager)

// WithNowTime sets the clock used for token expiry checks (primarily for testing)
func WithNowTime(nowFunc func() time.Time) SessionManagerOption {
	return func(m *SessionManager) {
		m.nowTime = nowFunc
	}
}

func WithMetrics(c *metrics.Collectors) SessionManagerOption {
	return func(m *SessionManager) {
		m.metrics = c
	}
}

// NewSessionManager creates a manager in the unauthenticated state and
// registers it for the backend's authorization rejections.
func NewSessionManager(repo sessions.Repo, backend Backend, options ...SessionManagerOption) (*SessionManager, error) {
	if repo == nil {
		return nil, errors.New("[NewSessionManager] session repo is required")
	}
	if backend == nil {
		return nil, errors.New("[NewSessionManager] backend is required")
	}

	m := &SessionManager{
		repo:       repo,
		backend:    backend,
		nowTime:    time.Now,
		state:      State{Status: StatusUnauthenticated},
		bootDone:   make(chan struct{}),
		oauthCalls: make(map[string]*oauthCall),
	}
	for _, opt := range options {
		opt(m)
	}

	backend.OnUnauthorized(func(ctx context.Context, err *api.StatusError) {
		m.invalidate(err)
	})
	return m, nil
}

// State returns the current snapshot.
func (m *SessionManager) State() State {
	m.lock.RLock()
	defer m.lock.RUnlock()
	return m.state.clone()
}

// Token returns the bearer token held in memory, empty when unauthenticated.
func (m *SessionManager) Token() string {
	m.lock.RLock()
	defer m.lock.RUnlock()
	return m.token
}

// Bootstrap hydrates the session from storage and verifies it with the
// backend. Verification happens once per manager; every caller waits for that
// single run and gets its outcome. Cancelling ctx only stops the wait.
func (m *SessionManager) Bootstrap(ctx context.Context) (State, error) {
	m.bootOnce.Do(func() {
		go m.bootstrap(context.WithoutCancel(ctx))
	})

	select {
	case <-m.bootDone:
		return m.State(), nil
	case <-ctx.Done():
		return m.State(), ctx.Err()
	}
}

func (m *SessionManager) bootstrap(ctx context.Context) {
	defer close(m.bootDone)

	m.lock.RLock()
	epoch := m.epoch
	settled := epoch != 0 || m.state.Status == StatusAuthenticated
	m.lock.RUnlock()
	if settled {
		// a login, logout or rejection already decided the session
		return
	}

	persisted, err := sessions.Load(m.repo)
	if err != nil {
		log.Warn().Err(err).Msg("stored session unreadable, starting signed out")
		m.clearIfCurrent(epoch)
		return
	}
	if persisted.Token == "" {
		m.clearIfCurrent(epoch)
		return
	}
	if info := token.Inspect(persisted.Token); info.Expired(m.nowTime()) {
		log.Info().Time("expired_at", info.ExpiresAt).Msg("stored token has expired")
		m.clearIfCurrent(epoch)
		return
	}

	if !m.commitIfCurrent(epoch, persisted.Token, State{Status: StatusVerifying, User: persisted.User}) {
		return
	}

	user, err := m.backend.Me(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("stored session could not be verified")
		m.clearIfCurrent(epoch)
		return
	}

	m.lock.Lock()
	if m.epoch != epoch {
		m.lock.Unlock()
		log.Debug().Msg("discarding stale verification result")
		return
	}
	if err := sessions.SaveUser(m.repo, user); err != nil {
		log.Warn().Err(err).Msg("failed to cache verified profile")
	}
	m.setStateLocked(State{Status: StatusAuthenticated, User: user})
	m.lock.Unlock()

	m.deliver()
}

// RequireAuthenticated waits for verification to finish and returns the
// signed in user, or ErrUnauthenticated.
func (m *SessionManager) RequireAuthenticated(ctx context.Context) (*users.User, error) {
	st, err := m.Bootstrap(ctx)
	if err != nil {
		return nil, err
	}
	if !st.IsAuthenticated() {
		return nil, apperrors.ErrUnauthenticated
	}
	return st.User, nil
}

// Login signs in with email and password.
func (m *SessionManager) Login(ctx context.Context, email, password string) (*users.User, error) {
	creds := users.Credentials{Email: email, Password: password}
	if err := creds.Validate(); err != nil {
		return nil, &AuthError{Op: "login", Kind: apperrors.ErrInvalidCredentials, Detail: err.Error()}
	}

	resp, err := m.backend.Login(ctx, creds)
	if err != nil {
		return nil, authFailure("login", err)
	}
	return m.establish(ctx, "login", resp)
}

// Register creates a clinic account and signs it in.
func (m *SessionManager) Register(ctx context.Context, r users.Registration) (*users.User, error) {
	if err := r.Validate(); err != nil {
		return nil, &AuthError{Op: "register", Kind: apperrors.ErrInvalidCredentials, Detail: err.Error()}
	}

	resp, err := m.backend.Register(ctx, r)
	if err != nil {
		return nil, authFailure("register", err)
	}
	return m.establish(ctx, "register", resp)
}

// establish completes a token response into a session. Nothing is stored
// unless both the token and a profile are available.
func (m *SessionManager) establish(ctx context.Context, op string, resp *api.TokenResponse) (*users.User, error) {
	if resp == nil || resp.AccessToken == "" {
		return nil, &AuthError{Op: op, Kind: apperrors.ErrMalformedAuthResponse}
	}

	user := resp.User
	if user.IsZero() {
		var err error
		user, err = m.backend.MeWithToken(ctx, resp.AccessToken)
		if err != nil {
			return nil, authFailure(op, err)
		}
	}

	m.lock.Lock()
	if err := sessions.Save(m.repo, resp.AccessToken, user); err != nil {
		m.lock.Unlock()
		return nil, errors.Wrapf(err, "[SessionManager] %s: persist session", op)
	}
	m.epoch++
	m.token = resp.AccessToken
	m.setStateLocked(State{Status: StatusAuthenticated, User: user})
	signedIn := m.state.clone().User
	m.lock.Unlock()

	log.Info().Str("op", op).Str("user_id", user.ID).Msg("signed in")
	m.deliver()
	return signedIn, nil
}

// Logout asks the backend to end the session and then clears it locally,
// whatever the backend answered. Only a local storage failure is returned.
func (m *SessionManager) Logout(ctx context.Context) error {
	raw := m.Token()
	if raw == "" {
		stored, _, err := m.repo.Get(sessions.KeyToken)
		if err == nil {
			raw = stored
		}
	}
	if raw != "" {
		if err := m.backend.RevokeToken(ctx, raw); err != nil {
			log.Debug().Err(err).Msg("backend logout failed, clearing locally")
		}
	}

	m.lock.Lock()
	m.epoch++
	err := sessions.Clear(m.repo)
	m.token = ""
	m.setStateLocked(State{Status: StatusUnauthenticated})
	m.lock.Unlock()

	m.deliver()
	if err != nil {
		return errors.Wrap(err, "[SessionManager.Logout] clear storage")
	}
	return nil
}

// Subscribe registers fn for every state transition. The returned function
// removes it.
func (m *SessionManager) Subscribe(fn func(State)) (unsubscribe func()) {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.nextID++
	id := m.nextID
	m.listeners = append(m.listeners, subscriber[func(State)]{id: id, fn: fn})
	return func() {
		m.lock.Lock()
		defer m.lock.Unlock()
		m.listeners = remove(m.listeners, id)
	}
}

// OnInvalidated registers fn for sessions dropped because the backend
// rejected the token. fn runs once per rejection.
func (m *SessionManager) OnInvalidated(fn InvalidationHandler) (unsubscribe func()) {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.nextID++
	id := m.nextID
	m.invalidations = append(m.invalidations, subscriber[InvalidationHandler]{id: id, fn: fn})
	return func() {
		m.lock.Lock()
		defer m.lock.Unlock()
		m.invalidations = remove(m.invalidations, id)
	}
}

func (m *SessionManager) invalidate(cause *api.StatusError) {
	m.lock.Lock()
	m.epoch++
	err := sessions.Clear(m.repo)
	m.token = ""
	m.setStateLocked(State{Status: StatusUnauthenticated})
	handlers := make([]InvalidationHandler, 0, len(m.invalidations))
	for _, s := range m.invalidations {
		handlers = append(handlers, s.fn)
	}
	m.lock.Unlock()

	m.metrics.Invalidated()
	log.Warn().Err(cause).Msg("session rejected by backend")
	if err != nil {
		log.Error().Err(err).Msg("failed to clear rejected session")
	}

	m.deliver()
	reason := fmt.Errorf("%w: %w", apperrors.ErrSessionExpired, cause)
	for _, h := range handlers {
		h(reason)
	}
}

// commitIfCurrent installs token and st unless the session changed since epoch.
func (m *SessionManager) commitIfCurrent(epoch uint64, raw string, st State) bool {
	m.lock.Lock()
	if m.epoch != epoch {
		m.lock.Unlock()
		return false
	}
	m.token = raw
	m.setStateLocked(st)
	m.lock.Unlock()

	m.deliver()
	return true
}

// clearIfCurrent drops the stored session unless it changed since epoch.
func (m *SessionManager) clearIfCurrent(epoch uint64) {
	m.lock.Lock()
	if m.epoch != epoch {
		m.lock.Unlock()
		return
	}
	m.epoch++
	if err := sessions.Clear(m.repo); err != nil {
		log.Error().Err(err).Msg("failed to clear stored session")
	}
	m.token = ""
	m.setStateLocked(State{Status: StatusUnauthenticated})
	m.lock.Unlock()

	m.deliver()
}

// setStateLocked replaces the state and queues the transition for
// subscribers. Staying unauthenticated is not a transition. Callers hold lock.
func (m *SessionManager) setStateLocked(st State) {
	unchanged := m.state.Status == StatusUnauthenticated && st.Status == StatusUnauthenticated
	m.state = st
	if !unchanged {
		m.pending = append(m.pending, st.clone())
	}
}

// deliver hands queued transitions to subscribers in the order they were
// made. Only one goroutine delivers at a time; transitions queued meanwhile,
// including from inside a subscriber, are picked up by that goroutine.
func (m *SessionManager) deliver() {
	m.lock.Lock()
	if m.delivering {
		m.lock.Unlock()
		return
	}
	m.delivering = true
	for len(m.pending) > 0 {
		st := m.pending[0]
		m.pending = m.pending[1:]
		listeners := make([]func(State), 0, len(m.listeners))
		for _, s := range m.listeners {
			listeners = append(listeners, s.fn)
		}
		m.lock.Unlock()

		m.metrics.SessionTransition(string(st.Status))
		log.Debug().Str("status", string(st.Status)).Msg("session state changed")
		for _, fn := range listeners {
			fn(st.clone())
		}

		m.lock.Lock()
	}
	m.delivering = false
	m.lock.Unlock()
}

func remove[T any](subs []subscriber[T], id uint64) []subscriber[T] {
	for i, s := range subs {
		if s.id == id {
			return append(subs[:i:i], subs[i+1:]...)
		}
	}
	return subs
}
