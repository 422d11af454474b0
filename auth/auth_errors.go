package auth

import (
	"net/http"

	"github.com/pkg/errors"

	"github.com/jrsteele09/vetflow-console/api"
	apperrors "github.com/jrsteele09/vetflow-console/internal/errors"
)

// AuthError is returned when the backend refuses to hand out a session, either
// by rejecting the credentials or by answering without a token.
// It matches apperrors.ErrInvalidCredentials or apperrors.ErrMalformedAuthResponse.
type AuthError struct {
	Op     string // login, register or oauth
	Kind   error
	Detail string // backend message, when there was one
	Err    error
}

func (e *AuthError) Error() string {
	msg := e.Op + ": " + e.Kind.Error()
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *AuthError) Is(target error) bool {
	return target == e.Kind
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// IsAuthError reports whether err is a credential or token-shape failure.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// authFailure translates a failed token request into the error returned to callers.
func authFailure(op string, err error) error {
	switch api.StatusCode(err) {
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound, http.StatusUnprocessableEntity:
		return &AuthError{Op: op, Kind: apperrors.ErrInvalidCredentials, Detail: api.Detail(err), Err: err}
	}
	if errors.Is(err, apperrors.ErrUnexpectedBody) {
		return &AuthError{Op: op, Kind: apperrors.ErrMalformedAuthResponse, Err: err}
	}
	return errors.Wrapf(err, "[SessionManager] %s", op)
}
