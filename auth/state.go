package auth

import "github.com/jrsteele09/vetflow-console/users"

type Status string

const (
	StatusUnauthenticated Status = "unauthenticated"
	StatusVerifying       Status = "verifying"
	StatusAuthenticated   Status = "authenticated"
)

// State is a snapshot of the session. While Verifying, User is the cached
// copy from storage and may be nil.
type State struct {
	Status Status
	User   *users.User
}

func (s State) IsAuthenticated() bool {
	return s.Status == StatusAuthenticated && s.User != nil
}

func (s State) clone() State {
	if s.User != nil {
		u := *s.User
		s.User = &u
	}
	return s
}
