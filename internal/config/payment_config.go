package config

import (
	"fmt"
	"time"
)

type PaymentConfig interface {
	GetPaymentPollInterval() time.Duration
	GetPaymentPollAttempts() int
}

type Payment struct {
	PollInterval time.Duration `env:"PAYMENT_POLL_INTERVAL" env-default:"2s"`
	PollAttempts int           `env:"PAYMENT_POLL_ATTEMPTS" env-default:"10"`
}

var _ PaymentConfig = Payment{}

func (p Payment) GetPaymentPollInterval() time.Duration {
	return p.PollInterval
}

func (p Payment) GetPaymentPollAttempts() int {
	return p.PollAttempts
}

func (p Payment) validate() error {
	if p.PollInterval <= 0 {
		return fmt.Errorf("invalid PAYMENT_POLL_INTERVAL: %s", p.PollInterval)
	}
	if p.PollAttempts <= 0 {
		return fmt.Errorf("invalid PAYMENT_POLL_ATTEMPTS: %d", p.PollAttempts)
	}
	return nil
}
