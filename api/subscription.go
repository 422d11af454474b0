package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/pkg/errors"

	apperrors "github.com/jrsteele09/vetflow-console/internal/errors"
	"github.com/jrsteele09/vetflow-console/payment"
	"github.com/jrsteele09/vetflow-console/subscription"
)

const (
	PathPlans          = "subscription/plans"
	PathCurrent        = "subscription/current"
	PathLimits         = "subscription/limits"
	PathCheckout       = "subscription/checkout"
	PathPackCheckout   = "subscription/response-pack/checkout"
	PathStartTrial     = "subscription/start-trial"
	PathPaymentStatus  = "subscription/payment/status"
	routePaymentStatus = PathPaymentStatus + "/{session_id}"
)

var (
	_ subscription.Backend  = (*Client)(nil)
	_ payment.StatusChecker = (*Client)(nil)
)

// Plans lists the subscription tiers and response packages. No login needed.
func (c *Client) Plans(ctx context.Context) (*subscription.Catalog, error) {
	var out subscription.Catalog
	if err := c.do(ctx, call{method: http.MethodGet, route: PathPlans, path: PathPlans, out: &out}); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CurrentSubscription(ctx context.Context) (*subscription.Current, error) {
	var out subscription.Current
	if err := c.do(ctx, call{method: http.MethodGet, route: PathCurrent, path: PathCurrent, authed: true, out: &out}); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Limits(ctx context.Context) (*subscription.Limits, error) {
	var out subscription.Limits
	if err := c.do(ctx, call{method: http.MethodGet, route: PathLimits, path: PathLimits, authed: true, out: &out}); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateCheckout starts hosted checkout for a plan. originURL is where the
// provider sends the user back to.
func (c *Client) CreateCheckout(ctx context.Context, planID, originURL string) (*subscription.CheckoutSession, error) {
	body := map[string]string{"plan_id": planID, "origin_url": originURL}
	return c.checkout(ctx, PathCheckout, body)
}

// CreateResponsePackCheckout starts hosted checkout for a reply bundle.
func (c *Client) CreateResponsePackCheckout(ctx context.Context, packID, originURL string) (*subscription.CheckoutSession, error) {
	body := map[string]string{"pack_id": packID, "origin_url": originURL}
	return c.checkout(ctx, PathPackCheckout, body)
}

func (c *Client) checkout(ctx context.Context, path string, body map[string]string) (*subscription.CheckoutSession, error) {
	var out subscription.CheckoutSession
	if err := c.do(ctx, call{method: http.MethodPost, route: path, path: path, authed: true, body: body, out: &out}); err != nil {
		return nil, err
	}
	if out.URL == "" {
		return nil, errors.Wrapf(apperrors.ErrUnexpectedBody, "[api] %s: no checkout url", path)
	}
	return &out, nil
}

func (c *Client) StartTrial(ctx context.Context) error {
	return c.do(ctx, call{method: http.MethodPost, route: PathStartTrial, path: PathStartTrial, authed: true})
}

// PaymentStatus asks the backend for the state of a checkout session.
func (c *Client) PaymentStatus(ctx context.Context, sessionID string) (*payment.Status, error) {
	if sessionID == "" {
		return nil, apperrors.ErrMissingPaymentID
	}
	var out payment.Status
	path := PathPaymentStatus + "/" + url.PathEscape(sessionID)
	if err := c.do(ctx, call{method: http.MethodGet, route: routePaymentStatus, path: path, authed: true, out: &out}); err != nil {
		return nil, err
	}
	return &out, nil
}
