package payment

import (
	"context"
	"fmt"
	"strings"

	apperrors "github.com/jrsteele09/vetflow-console/internal/errors"
)

// Outcome is the state of a payment confirmation check.
type Outcome string

const (
	OutcomeChecking  Outcome = "checking"
	OutcomePaid      Outcome = "paid"
	OutcomeExpired   Outcome = "expired"
	OutcomeTimeout   Outcome = "timeout"
	OutcomeError     Outcome = "error"
	OutcomeCancelled Outcome = "cancelled"
)

// Terminal reports whether no further polling happens in this state.
func (o Outcome) Terminal() bool {
	return o != OutcomeChecking && o != ""
}

// Status is the backend's view of a checkout session.
type Status struct {
	PaymentStatus    string `json:"payment_status"`
	Status           string `json:"status"`
	AmountTotal      int64  `json:"amount_total,omitempty"` // minor units
	Currency         string `json:"currency,omitempty"`
	AlreadyProcessed bool   `json:"already_processed,omitempty"`
}

// IsPaid is true once the payment went through. A session the backend
// already processed only reports "status".
func (s *Status) IsPaid() bool {
	return s != nil && (strings.EqualFold(s.PaymentStatus, "paid") || strings.EqualFold(s.Status, "paid"))
}

func (s *Status) IsExpired() bool {
	return s != nil && (strings.EqualFold(s.Status, "expired") || strings.EqualFold(s.PaymentStatus, "expired"))
}

// StatusChecker fetches the current status of a checkout session.
type StatusChecker interface {
	PaymentStatus(ctx context.Context, sessionID string) (*Status, error)
}

// CheckError is a single failed status request.
type CheckError struct {
	Attempt int
	Err     error
}

func (e *CheckError) Error() string {
	return fmt.Sprintf("payment status attempt %d: %v", e.Attempt, e.Err)
}

func (e *CheckError) Unwrap() error {
	return e.Err
}

func (e *CheckError) Is(target error) bool {
	return target == apperrors.ErrPaymentCheck
}

// Result describes a check at a point in time.
type Result struct {
	SessionID string
	Outcome   Outcome
	Attempts  int
	Status    *Status // last successful answer
	Err       error   // last failed attempt, nil if the latest attempt succeeded
}
