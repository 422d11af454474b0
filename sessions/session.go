package sessions

import (
	"encoding/json"

	"github.com/jrsteele09/vetflow-console/users"
	"github.com/pkg/errors"
)

// Persisted is the token/user pair as read back from a Repo. Either field may
// be empty if storage only holds part of the pair.
type Persisted struct {
	Token string
	User  *users.User
}

// Load reads the session pair. A stored user that cannot be decoded is
// reported as absent rather than as an error so a stale cache never blocks
// startup.
func Load(repo Repo) (Persisted, error) {
	token, _, err := repo.Get(KeyToken)
	if err != nil {
		return Persisted{}, errors.Wrap(err, "[sessions.Load] read token")
	}
	raw, ok, err := repo.Get(KeyUser)
	if err != nil {
		return Persisted{}, errors.Wrap(err, "[sessions.Load] read user")
	}

	p := Persisted{Token: token}
	if ok && raw != "" {
		var u users.User
		if err := json.Unmarshal([]byte(raw), &u); err == nil && !u.IsZero() {
			p.User = &u
		}
	}
	return p, nil
}

// Save writes token and user together.
func Save(repo Repo, token string, user *users.User) error {
	if token == "" {
		return errors.New("[sessions.Save] token is required")
	}
	if user.IsZero() {
		return errors.New("[sessions.Save] user is required")
	}
	encoded, err := json.Marshal(user)
	if err != nil {
		return errors.Wrap(err, "[sessions.Save] encode user")
	}
	return repo.Upsert(map[string]string{
		KeyToken: token,
		KeyUser:  string(encoded),
	})
}

// SaveUser replaces only the cached profile, leaving the token as is.
func SaveUser(repo Repo, user *users.User) error {
	if user.IsZero() {
		return errors.New("[sessions.SaveUser] user is required")
	}
	encoded, err := json.Marshal(user)
	if err != nil {
		return errors.Wrap(err, "[sessions.SaveUser] encode user")
	}
	return repo.Upsert(map[string]string{KeyUser: string(encoded)})
}

// Clear removes both halves of the session pair.
func Clear(repo Repo) error {
	return repo.Delete(KeyToken, KeyUser)
}
