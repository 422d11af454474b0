package auth

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	apperrors "github.com/jrsteele09/vetflow-console/internal/errors"
	"github.com/jrsteele09/vetflow-console/users"
)

// RedirectTarget is where the view layer goes once the OAuth callback is handled.
type RedirectTarget string

const (
	RedirectDashboard RedirectTarget = "/dashboard"
	RedirectLogin     RedirectTarget = "/login"
)

const oauthSessionParam = "session_id"

type oauthCall struct {
	done chan struct{}
	user *users.User
	err  error
}

// SessionIDFromFragment extracts the identity provider's session id from a
// redirect such as https://app/auth/callback#session_id=abc.
func SessionIDFromFragment(rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", errors.Wrap(apperrors.ErrMissingOAuthSessionID, err.Error())
	}
	values, err := url.ParseQuery(u.Fragment)
	if err != nil {
		return "", errors.Wrap(apperrors.ErrMissingOAuthSessionID, err.Error())
	}
	id := strings.TrimSpace(values.Get(oauthSessionParam))
	if id == "" {
		return "", apperrors.ErrMissingOAuthSessionID
	}
	return id, nil
}

// CompleteOAuthCallback exchanges sessionID for a backend session. The
// exchange runs at most once per id: repeated calls wait for the first and
// share its user, or fail with ErrOAuthCallbackProcessed if it failed.
func (m *SessionManager) CompleteOAuthCallback(ctx context.Context, sessionID string) (*users.User, error) {
	if sessionID == "" {
		return nil, apperrors.ErrMissingOAuthSessionID
	}

	m.oauthLock.Lock()
	if prior, ok := m.oauthCalls[sessionID]; ok {
		m.oauthLock.Unlock()
		select {
		case <-prior.done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		if prior.err != nil {
			return nil, fmt.Errorf("%w: %w", apperrors.ErrOAuthCallbackProcessed, prior.err)
		}
		return prior.user, nil
	}
	c := &oauthCall{done: make(chan struct{})}
	m.oauthCalls[sessionID] = c
	m.oauthLock.Unlock()

	defer close(c.done)
	resp, err := m.backend.GoogleAuth(ctx, sessionID)
	if err != nil {
		c.err = authFailure("oauth", err)
		return nil, c.err
	}
	c.user, c.err = m.establish(ctx, "oauth", resp)
	return c.user, c.err
}

// HandleOAuthRedirect completes the callback found in rawURL and says where to
// go next. Failures are logged and send the user back to the login page.
func HandleOAuthRedirect(ctx context.Context, m *SessionManager, rawURL string) RedirectTarget {
	sessionID, err := SessionIDFromFragment(rawURL)
	if err != nil {
		log.Warn().Err(err).Msg("oauth redirect without session id")
		return RedirectLogin
	}
	if _, err := m.CompleteOAuthCallback(ctx, sessionID); err != nil {
		log.Warn().Err(err).Msg("oauth callback failed")
		return RedirectLogin
	}
	return RedirectDashboard
}
