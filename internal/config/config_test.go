package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/vetflow-console/internal/config"
)

func TestNew_Defaults(t *testing.T) {
	t.Setenv("VETFLOW_BACKEND_URL", "")

	c, err := config.New()
	require.NoError(t, err)
	require.Equal(t, config.DefaultBackendURL, c.GetBackendURL())
	require.Equal(t, config.DefaultBackendURL+"/api", c.GetAPIBaseURL())
	require.Equal(t, 2*time.Second, c.GetPaymentPollInterval())
	require.Equal(t, 10, c.GetPaymentPollAttempts())
}

func TestBackendURL_Placeholders(t *testing.T) {
	for _, raw := range []string{"undefined", "null", "NULL", "  "} {
		t.Run(raw, func(t *testing.T) {
			t.Setenv("VETFLOW_BACKEND_URL", raw)
			c, err := config.New()
			require.NoError(t, err)
			require.Equal(t, config.DefaultBackendURL, c.GetBackendURL())
		})
	}
}

func TestBackendURL_TrailingSlash(t *testing.T) {
	t.Setenv("VETFLOW_BACKEND_URL", "http://localhost:8001/")
	t.Setenv("ORIGIN_URL", "http://localhost:3000/")

	c, err := config.New()
	require.NoError(t, err)
	require.Equal(t, "http://localhost:8001", c.GetBackendURL())
	require.Equal(t, "http://localhost:8001/api", c.GetAPIBaseURL())
	require.Equal(t, "http://localhost:3000", c.GetOriginURL())
}

func TestNew_PaymentSettings(t *testing.T) {
	t.Setenv("PAYMENT_POLL_INTERVAL", "500ms")
	t.Setenv("PAYMENT_POLL_ATTEMPTS", "3")
	t.Setenv("HTTP_TIMEOUT", "5s")

	c, err := config.New()
	require.NoError(t, err)
	require.Equal(t, 500*time.Millisecond, c.GetPaymentPollInterval())
	require.Equal(t, 3, c.GetPaymentPollAttempts())
	require.Equal(t, 5*time.Second, c.GetRequestTimeout())
}

func TestNew_InvalidPaymentSettings(t *testing.T) {
	t.Setenv("PAYMENT_POLL_ATTEMPTS", "0")

	_, err := config.New()
	require.Error(t, err)
}
