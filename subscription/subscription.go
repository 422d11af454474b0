package subscription

import (
	"cmp"
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

// Unlimited is the sentinel the backend uses for "no customer limit".
const Unlimited = -1

// Plan is a subscription tier.
type Plan struct {
	ID                        string          `json:"-"`
	Name                      string          `json:"name"`
	Price                     decimal.Decimal `json:"price"` // USD per month
	CustomerLimit             int             `json:"customer_limit"`
	UnregisteredResponseLimit int             `json:"unregistered_response_limit"` // monthly WhatsApp replies to unknown numbers
	Features                  []string        `json:"features,omitempty"`
}

func (p Plan) UnlimitedCustomers() bool {
	return p.CustomerLimit == Unlimited
}

// ResponsePackage is a one-off bundle of extra WhatsApp replies.
type ResponsePackage struct {
	ID               string          `json:"-"`
	Name             string          `json:"name"`
	Responses        int             `json:"responses"`
	Price            decimal.Decimal `json:"price"`
	PricePerResponse decimal.Decimal `json:"price_per_response"`
}

// Catalog is the answer of GET /subscription/plans.
type Catalog struct {
	Plans            map[string]Plan            `json:"plans"`
	ResponsePackages map[string]ResponsePackage `json:"response_packages"`
}

// SortedPlans returns the plans cheapest first with their IDs filled in.
func (c *Catalog) SortedPlans() []Plan {
	if c == nil {
		return nil
	}
	plans := make([]Plan, 0, len(c.Plans))
	for id, p := range c.Plans {
		p.ID = id
		plans = append(plans, p)
	}
	slices.SortFunc(plans, func(a, b Plan) int {
		if n := a.Price.Cmp(b.Price); n != 0 {
			return n
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return plans
}

// SortedPackages returns the response packages smallest first.
func (c *Catalog) SortedPackages() []ResponsePackage {
	if c == nil {
		return nil
	}
	packs := make([]ResponsePackage, 0, len(c.ResponsePackages))
	for id, p := range c.ResponsePackages {
		p.ID = id
		packs = append(packs, p)
	}
	slices.SortFunc(packs, func(a, b ResponsePackage) int {
		if n := cmp.Compare(a.Responses, b.Responses); n != 0 {
			return n
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return packs
}

// Subscription is the stored subscription record.
type Subscription struct {
	ID                        string     `json:"subscription_id"`
	UserID                    string     `json:"user_id"`
	Plan                      string     `json:"plan"`
	Status                    string     `json:"status"` // active, trial, cancelled, expired
	CurrentPeriodStart        *time.Time `json:"current_period_start,omitempty"`
	CurrentPeriodEnd          *time.Time `json:"current_period_end,omitempty"`
	CustomerCount             int        `json:"customer_count"`
	UnregisteredResponsesUsed int        `json:"unregistered_responses_used"`
	ExtraResponsesBalance     int        `json:"extra_responses_balance"`
}

func (s *Subscription) IsTrial() bool {
	return s != nil && s.Status == "trial"
}

// CustomerUsage reports how many customers exist against the plan limit.
type CustomerUsage struct {
	CanAdd  bool   `json:"can_add"`
	Current int    `json:"current"`
	Limit   int    `json:"limit"`
	Plan    string `json:"plan,omitempty"`
	Message string `json:"message,omitempty"`
}

// Current is the answer of GET /subscription/current.
type Current struct {
	HasSubscription bool           `json:"has_subscription"`
	Subscription    *Subscription  `json:"subscription"`
	PlanDetails     *Plan          `json:"plan_details,omitempty"`
	CustomerUsage   *CustomerUsage `json:"customer_usage,omitempty"`
}

// WhatsAppResponses is the reply allowance for unregistered numbers.
type WhatsAppResponses struct {
	MonthlyLimit int `json:"monthly_limit"`
	Used         int `json:"used"`
	ExtraBalance int `json:"extra_balance"`
	Remaining    int `json:"remaining"`
}

// WhatsAppLimit is reported instead of WhatsAppResponses when there is no subscription.
type WhatsAppLimit struct {
	CanRespond bool   `json:"can_respond"`
	Message    string `json:"message,omitempty"`
}

// Limits is the answer of GET /subscription/limits.
type Limits struct {
	HasSubscription   bool               `json:"has_subscription"`
	Plan              string             `json:"plan,omitempty"`
	PlanName          string             `json:"plan_name,omitempty"`
	CustomerLimit     CustomerUsage      `json:"customer_limit"`
	WhatsAppResponses *WhatsAppResponses `json:"whatsapp_responses,omitempty"`
	WhatsAppLimit     *WhatsAppLimit     `json:"whatsapp_limit,omitempty"`
	PeriodEnd         *time.Time         `json:"period_end,omitempty"`
}

// RemainingResponses returns the replies still available to unregistered
// numbers, zero without a subscription.
func (l *Limits) RemainingResponses() int {
	if l == nil || l.WhatsAppResponses == nil {
		return 0
	}
	return l.WhatsAppResponses.Remaining
}

// CheckoutSession is a hosted checkout the user is sent to.
type CheckoutSession struct {
	URL       string `json:"url"`
	SessionID string `json:"session_id"`
}
