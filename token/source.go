package token

import (
	"github.com/pkg/errors"
	"golang.org/x/oauth2"

	apperrors "github.com/jrsteele09/vetflow-console/internal/errors"
	"github.com/jrsteele09/vetflow-console/sessions"
)

const bearerType = "Bearer"

var _ oauth2.TokenSource = (*RepoSource)(nil)

// RepoSource serves the persisted session token to an oauth2.Transport.
// It reads storage on every call so a cleared session stops being sent
// immediately.
type RepoSource struct {
	repo sessions.Repo
}

func NewRepoSource(repo sessions.Repo) *RepoSource {
	return &RepoSource{repo: repo}
}

// Token implements oauth2.TokenSource. It fails with ErrUnauthenticated when
// no token is stored.
func (s *RepoSource) Token() (*oauth2.Token, error) {
	raw, ok, err := s.repo.Get(sessions.KeyToken)
	if err != nil {
		return nil, errors.Wrap(err, "[RepoSource.Token] read token")
	}
	if !ok || raw == "" {
		return nil, apperrors.ErrUnauthenticated
	}
	return New(raw), nil
}

// New wraps a raw bearer string, carrying the JWT expiry when there is one.
func New(raw string) *oauth2.Token {
	return &oauth2.Token{
		AccessToken: raw,
		TokenType:   bearerType,
		Expiry:      Inspect(raw).ExpiresAt,
	}
}

// Static returns a source that always yields raw, used before a token has
// been persisted.
func Static(raw string) oauth2.TokenSource {
	return oauth2.StaticTokenSource(New(raw))
}
