package api

import (
	"encoding/json"

	"github.com/jrsteele09/vetflow-console/internal/utils"
	"github.com/jrsteele09/vetflow-console/users"
)

// TokenResponse is returned by register, login and the Google exchange.
// Deployed backends have used a few shapes over time, so decoding accepts
// "access_token" or "token", and "user" or "data.user".
type TokenResponse struct {
	// AccessToken is sent as "Authorization: Bearer <access_token>" afterwards.
	AccessToken string

	// TokenType is "bearer" when present.
	TokenType string

	// User is nil when the backend did not include a profile; callers then
	// fetch it from /auth/me.
	User *users.User
}

func (t *TokenResponse) UnmarshalJSON(data []byte) error {
	var aux struct {
		AccessToken string      `json:"access_token"`
		Token       string      `json:"token"`
		TokenType   string      `json:"token_type"`
		User        *users.User `json:"user"`
		Data        *struct {
			User *users.User `json:"user"`
		} `json:"data"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	t.AccessToken = utils.FirstNonBlank(aux.AccessToken, aux.Token)
	t.TokenType = aux.TokenType
	t.User = aux.User
	if t.User.IsZero() && aux.Data != nil {
		t.User = aux.Data.User
	}
	if t.User.IsZero() {
		t.User = nil
	}
	return nil
}
