package main

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/vetflow-console/internal/config"
)

const userJSON = `{"user_id":"user-1","email":"ana@clinic.test","name":"Ana","clinic_name":"Happy Paws"}`

func setupBackend(t *testing.T) string {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/login", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"access_token":"tok-1","user":`+userJSON+`}`)
	})
	mux.HandleFunc("GET /api/auth/me", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = io.WriteString(w, userJSON)
	})
	mux.HandleFunc("POST /api/auth/logout", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"message":"ok"}`)
	})
	mux.HandleFunc("GET /api/subscription/plans", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"plans":{
			"professional":{"name":"Professional","price":59.9,"customer_limit":500,"unregistered_response_limit":200},
			"enterprise":{"name":"Enterprise","price":99.9,"customer_limit":-1,"unregistered_response_limit":1000}
		},"response_packages":{"pack_100":{"name":"100 replies","responses":100,"price":9.9,"price_per_response":0.099}}}`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv.URL
}

func setupConfig(t *testing.T, backendURL string) (config.Config, string) {
	t.Helper()
	folder := t.TempDir()
	t.Setenv("VETFLOW_BACKEND_URL", backendURL)
	t.Setenv("FOLDER", folder)
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("VETFLOW_STORE_SECRET", "")
	c, err := config.New()
	require.NoError(t, err)
	return c, folder
}

func execute(t *testing.T, c config.Config, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCommand(c)
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(""))
	root.SetArgs(append([]string{"--quiet"}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestPlansCommand(t *testing.T) {
	c, _ := setupConfig(t, setupBackend(t))

	out, err := execute(t, c, "plans")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	require.Contains(t, lines[0], "professional")
	require.Contains(t, lines[0], "$59.90/month")
	require.Contains(t, lines[1], "unlimited customers")
	require.Contains(t, lines[2], "pack_100")
}

func TestLoginWhoAmILogout(t *testing.T) {
	c, folder := setupConfig(t, setupBackend(t))

	out, err := execute(t, c, "login", "--email", "ana@clinic.test", "--password", "secret")
	require.NoError(t, err)
	require.Contains(t, out, "Signed in as Ana")
	require.FileExists(t, filepath.Join(folder, "session.json"))

	out, err = execute(t, c, "whoami")
	require.NoError(t, err)
	require.Contains(t, out, "Happy Paws")

	out, err = execute(t, c, "logout")
	require.NoError(t, err)
	require.Contains(t, out, "Signed out")

	_, err = execute(t, c, "whoami")
	require.Error(t, err)
}

func TestMetricsFile(t *testing.T) {
	c, folder := setupConfig(t, setupBackend(t))
	path := filepath.Join(folder, "vetflow.prom")

	_, err := execute(t, c, "--metrics-file="+path, "plans")
	require.NoError(t, err)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(raw), `vetflow_api_requests_total{code="200",method="GET",route="subscription/plans"} 1`)
}

func TestPaymentStatusCancelledReturn(t *testing.T) {
	c, _ := setupConfig(t, setupBackend(t))

	out, err := execute(t, c, "payment-status", "http://localhost:3000/subscription?payment=cancelled")
	require.NoError(t, err)
	require.Contains(t, out, "Payment was cancelled")
}
