package subscription_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	apperrors "github.com/jrsteele09/vetflow-console/internal/errors"
	"github.com/jrsteele09/vetflow-console/subscription"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const catalogJSON = `{
  "plans": {
    "unlimited": {"name": "Unlimited", "price": 29.90, "customer_limit": -1, "unregistered_response_limit": 50, "features": ["a"]},
    "starter": {"name": "Starter", "price": 9.90, "customer_limit": 10, "unregistered_response_limit": 9},
    "professional": {"name": "Professional", "price": 17.90, "customer_limit": 40, "unregistered_response_limit": 14}
  },
  "response_packages": {
    "pack_25": {"name": "25", "responses": 25, "price": 6.25, "price_per_response": 0.25},
    "pack_10": {"name": "10", "responses": 10, "price": 2.50, "price_per_response": 0.25}
  }
}`

func TestCatalog_DecodeAndSort(t *testing.T) {
	var c subscription.Catalog
	require.NoError(t, json.Unmarshal([]byte(catalogJSON), &c))

	plans := c.SortedPlans()
	require.Len(t, plans, 3)
	require.Equal(t, []string{"starter", "professional", "unlimited"}, []string{plans[0].ID, plans[1].ID, plans[2].ID})
	require.True(t, plans[0].Price.Equal(decimal.RequireFromString("9.9")))
	require.True(t, plans[2].UnlimitedCustomers())
	require.False(t, plans[0].UnlimitedCustomers())

	packs := c.SortedPackages()
	require.Equal(t, "pack_10", packs[0].ID)
	require.True(t, packs[0].Price.Equal(decimal.RequireFromString("2.5")))

	// prices survive arithmetic without float drift
	total := packs[0].PricePerResponse.Mul(decimal.NewFromInt(int64(packs[0].Responses)))
	require.True(t, total.Equal(packs[0].Price))
}

func TestLimits_Decode(t *testing.T) {
	body := `{
	  "has_subscription": true, "plan": "starter", "plan_name": "Starter",
	  "customer_limit": {"can_add": true, "current": 3, "limit": 10, "plan": "starter", "message": "3/10"},
	  "whatsapp_responses": {"monthly_limit": 9, "used": 4, "extra_balance": 10, "remaining": 15},
	  "period_end": "2025-07-01T10:00:00.123456+00:00"
	}`
	var l subscription.Limits
	require.NoError(t, json.Unmarshal([]byte(body), &l))
	require.Equal(t, 15, l.RemainingResponses())
	require.Equal(t, 3, l.CustomerLimit.Current)
	require.NotNil(t, l.PeriodEnd)
	require.Equal(t, 2025, l.PeriodEnd.Year())

	var none subscription.Limits
	require.NoError(t, json.Unmarshal([]byte(`{"has_subscription": false, "customer_limit": {"can_add": false}, "whatsapp_limit": {"can_respond": false}}`), &none))
	require.Zero(t, none.RemainingResponses())
	require.NotNil(t, none.WhatsAppLimit)
}

func TestParseCheckoutReturn(t *testing.T) {
	r, err := subscription.ParseCheckoutReturn("https://app.example/settings?payment=success&session_id=cs_test_1&type=response_pack")
	require.NoError(t, err)
	require.True(t, r.Succeeded())
	require.True(t, r.IsResponsePack())
	require.Equal(t, "cs_test_1", r.SessionID)

	r, err = subscription.ParseCheckoutReturn("https://app.example/settings?payment=cancelled")
	require.NoError(t, err)
	require.True(t, r.Cancelled())
	require.False(t, r.Succeeded())

	_, err = subscription.ParseCheckoutReturn("https://app.example/settings")
	require.ErrorIs(t, err, apperrors.ErrNoCheckoutRedirect)

	_, err = subscription.ParseCheckoutReturn("https://app.example/settings?payment=success")
	require.ErrorIs(t, err, apperrors.ErrMissingPaymentID)
}

type fakeBackend struct {
	catalog  *subscription.Catalog
	current  *subscription.Current
	limits   *subscription.Limits
	limitErr error
}

func (f *fakeBackend) Plans(context.Context) (*subscription.Catalog, error) {
	return f.catalog, nil
}

func (f *fakeBackend) CurrentSubscription(context.Context) (*subscription.Current, error) {
	return f.current, nil
}

func (f *fakeBackend) Limits(context.Context) (*subscription.Limits, error) {
	return f.limits, f.limitErr
}

func TestTracker_Refresh(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	backend := &fakeBackend{
		catalog: &subscription.Catalog{},
		current: &subscription.Current{HasSubscription: true},
		limits:  &subscription.Limits{HasSubscription: true, WhatsAppResponses: &subscription.WhatsAppResponses{Remaining: 7}},
	}
	tracker, err := subscription.NewTracker(backend, subscription.WithNowTime(func() time.Time { return now }))
	require.NoError(t, err)
	require.Nil(t, tracker.Snapshot().Limits)

	snap, err := tracker.Refresh(context.Background())
	require.NoError(t, err)
	require.Equal(t, now, snap.RefreshedAt)
	require.Equal(t, 7, tracker.Snapshot().Limits.RemainingResponses())

	// a failed refresh keeps the previous snapshot
	backend.limitErr = errors.New("503")
	backend.current = &subscription.Current{HasSubscription: false}
	snap, err = tracker.Refresh(context.Background())
	require.Error(t, err)
	require.True(t, snap.Current.HasSubscription)
	require.True(t, tracker.Snapshot().Current.HasSubscription)
}

func TestNewTracker_RequiresBackend(t *testing.T) {
	_, err := subscription.NewTracker(nil)
	require.Error(t, err)
}
