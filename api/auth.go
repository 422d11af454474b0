package api

import (
	"context"
	"net/http"

	"github.com/pkg/errors"

	apperrors "github.com/jrsteele09/vetflow-console/internal/errors"
	"github.com/jrsteele09/vetflow-console/users"
)

// Auth endpoint paths, relative to the /api base.
const (
	PathRegister = "auth/register"
	PathLogin    = "auth/login"
	PathGoogle   = "auth/google"
	PathMe       = "auth/me"
	PathLogout   = "auth/logout"
)

func (c *Client) Register(ctx context.Context, r users.Registration) (*TokenResponse, error) {
	var out TokenResponse
	err := c.do(ctx, call{method: http.MethodPost, route: PathRegister, path: PathRegister, body: r, out: &out})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Login(ctx context.Context, creds users.Credentials) (*TokenResponse, error) {
	var out TokenResponse
	err := c.do(ctx, call{method: http.MethodPost, route: PathLogin, path: PathLogin, body: creds, out: &out})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// GoogleAuth exchanges the identity provider's session id for a backend token.
func (c *Client) GoogleAuth(ctx context.Context, sessionID string) (*TokenResponse, error) {
	var out TokenResponse
	body := map[string]string{"session_id": sessionID}
	err := c.do(ctx, call{method: http.MethodPost, route: PathGoogle, path: PathGoogle, body: body, out: &out})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Me returns the profile of the token's owner.
func (c *Client) Me(ctx context.Context) (*users.User, error) {
	var out users.User
	err := c.do(ctx, call{method: http.MethodGet, route: PathMe, path: PathMe, authed: true, out: &out})
	if err != nil {
		return nil, err
	}
	if out.IsZero() {
		return nil, errors.Wrap(apperrors.ErrUnexpectedBody, "[api.Me] empty profile")
	}
	return &out, nil
}

// Logout ends the session server side; the response body is ignored.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, call{method: http.MethodPost, route: PathLogout, path: PathLogout, authed: true})
}

// MeWithToken fetches the profile for raw, a token that has not been stored yet.
func (c *Client) MeWithToken(ctx context.Context, raw string) (*users.User, error) {
	return c.WithToken(raw).Me(ctx)
}

// RevokeToken logs raw out server side. A rejection does not reach the
// unauthorized handler.
func (c *Client) RevokeToken(ctx context.Context, raw string) error {
	return c.WithToken(raw).Logout(ctx)
}
