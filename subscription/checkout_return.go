package subscription

import (
	"net/url"
	"strings"

	"github.com/pkg/errors"

	apperrors "github.com/jrsteele09/vetflow-console/internal/errors"
)

// Values of the "payment" query parameter on the checkout return URL.
const (
	ReturnSuccess   = "success"
	ReturnCancelled = "cancelled"

	PurchaseResponsePack = "response_pack"
)

// CheckoutReturn is what hosted checkout appends when sending the user back,
// e.g. /settings?payment=success&session_id=cs_...&type=response_pack
type CheckoutReturn struct {
	Payment   string
	SessionID string
	Type      string
}

func (r CheckoutReturn) Succeeded() bool {
	return r.Payment == ReturnSuccess && r.SessionID != ""
}

func (r CheckoutReturn) Cancelled() bool {
	return r.Payment == ReturnCancelled
}

func (r CheckoutReturn) IsResponsePack() bool {
	return r.Type == PurchaseResponsePack
}

// ParseCheckoutReturn reads the checkout result from a return URL. A URL
// without a "payment" parameter is not a checkout return.
func ParseCheckoutReturn(rawURL string) (CheckoutReturn, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return CheckoutReturn{}, errors.Wrap(err, "[ParseCheckoutReturn] invalid url")
	}
	q := u.Query()
	r := CheckoutReturn{
		Payment:   strings.ToLower(q.Get("payment")),
		SessionID: q.Get("session_id"),
		Type:      q.Get("type"),
	}
	switch {
	case r.Payment == "":
		return CheckoutReturn{}, apperrors.ErrNoCheckoutRedirect
	case r.Payment == ReturnSuccess && r.SessionID == "":
		return r, apperrors.ErrMissingPaymentID
	}
	return r, nil
}
