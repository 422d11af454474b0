package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/oauth2"

	apperrors "github.com/jrsteele09/vetflow-console/internal/errors"
	"github.com/jrsteele09/vetflow-console/internal/metrics"
	"github.com/jrsteele09/vetflow-console/token"
)

const (
	HeaderRequestID = "X-Request-ID"
	tracerName      = "github.com/jrsteele09/vetflow-console/api"
	defaultTimeout  = 15 * time.Second
	maxErrorBody    = 64 << 10
)

// UnauthorizedHandler is invoked once for every authenticated request the
// backend rejects with 401.
type UnauthorizedHandler func(ctx context.Context, err *StatusError)

// Client talks to the VetFlow REST backend. Authenticated calls carry the
// bearer token from the configured oauth2.TokenSource.
type Client struct {
	baseURL *url.URL
	base    http.RoundTripper
	tokens  oauth2.TokenSource
	timeout time.Duration
	metrics *metrics.Collectors
	tracer  trace.Tracer

	handlerLock    sync.RWMutex
	onUnauthorized UnauthorizedHandler
}

// Option configures a Client.
type Option func(*Client)

// WithTransport sets the round tripper used underneath bearer injection.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) {
		c.base = rt
	}
}

// WithTimeout bounds every request, including reading the response.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func WithMetrics(m *metrics.Collectors) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Client) {
		c.tracer = tp.Tracer(tracerName)
	}
}

// New creates a client rooted at baseURL (including the /api prefix).
func New(baseURL string, tokens oauth2.TokenSource, options ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("[api.New] baseURL is required")
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, errors.Wrap(err, "[api.New] invalid baseURL")
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, errors.Errorf("[api.New] baseURL %q must be absolute", baseURL)
	}
	if tokens == nil {
		return nil, errors.New("[api.New] token source is required")
	}

	c := &Client{
		baseURL: u,
		base:    http.DefaultTransport,
		tokens:  tokens,
		timeout: defaultTimeout,
		tracer:  otel.Tracer(tracerName),
	}
	for _, opt := range options {
		opt(c)
	}
	return c, nil
}

// OnUnauthorized registers the handler called from the single place where
// authorization rejections are detected. Passing nil removes it.
func (c *Client) OnUnauthorized(h UnauthorizedHandler) {
	c.handlerLock.Lock()
	defer c.handlerLock.Unlock()
	c.onUnauthorized = h
}

// WithToken returns a copy that authenticates with raw instead of the
// configured source. Rejections on the copy do not reach the
// unauthorized handler since they concern a token that is not the session's.
func (c *Client) WithToken(raw string) *Client {
	return &Client{
		baseURL: c.baseURL,
		base:    c.base,
		tokens:  token.Static(raw),
		timeout: c.timeout,
		metrics: c.metrics,
		tracer:  c.tracer,
	}
}

type call struct {
	method string
	route  string // low-cardinality name used for metrics and spans
	path   string
	authed bool
	body   any
	out    any
}

func (c *Client) do(ctx context.Context, cl call) error {
	ctx, span := c.tracer.Start(ctx, "api "+cl.route, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	requestID := uuid.NewString()
	span.SetAttributes(
		attribute.String("http.request.method", cl.method),
		attribute.String("vetflow.route", cl.route),
		attribute.String("vetflow.request_id", requestID),
	)

	req, err := c.newRequest(ctx, cl, requestID)
	if err != nil {
		span.RecordError(err)
		return err
	}

	start := time.Now()
	resp, err := c.httpClient(cl.authed).Do(req)
	elapsed := time.Since(start)
	if err != nil {
		c.metrics.ObserveRequest(cl.method, cl.route, "error", elapsed.Seconds())
		span.SetStatus(codes.Error, err.Error())
		return c.transportError(ctx, cl, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	c.metrics.ObserveRequest(cl.method, cl.route, strconv.Itoa(resp.StatusCode), elapsed.Seconds())
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
	log.Debug().
		Str("request_id", requestID).
		Str("method", cl.method).
		Str("route", cl.route).
		Int("status", resp.StatusCode).
		Dur("duration", elapsed).
		Msg("backend request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		statusErr := newStatusError(cl.method, cl.route, resp)
		span.SetStatus(codes.Error, statusErr.Error())
		if resp.StatusCode == http.StatusUnauthorized && cl.authed {
			c.unauthorized(ctx, statusErr)
		}
		return statusErr
	}

	if cl.out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(cl.out); err != nil {
		span.RecordError(err)
		return errors.Wrapf(apperrors.ErrUnexpectedBody, "[api] %s %s: %v", cl.method, cl.route, err)
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, cl call, requestID string) (*http.Request, error) {
	var body io.Reader
	if cl.body != nil {
		encoded, err := json.Marshal(cl.body)
		if err != nil {
			return nil, errors.Wrapf(err, "[api] encode %s body", cl.route)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, cl.method, c.baseURL.JoinPath(cl.path).String(), body)
	if err != nil {
		return nil, errors.Wrapf(err, "[api] build %s request", cl.route)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(HeaderRequestID, requestID)
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))
	return req, nil
}

func (c *Client) httpClient(authed bool) *http.Client {
	if !authed {
		return &http.Client{Transport: c.base, Timeout: c.timeout}
	}
	return &http.Client{
		Transport: &oauth2.Transport{Source: c.tokens, Base: c.base},
		Timeout:   c.timeout,
	}
}

// transportError turns a failed round trip into one of the client's error kinds.
func (c *Client) transportError(ctx context.Context, cl call, err error) error {
	switch {
	case errors.Is(err, apperrors.ErrUnauthenticated):
		// no stored token, nothing was sent
		return apperrors.ErrUnauthenticated
	case ctx.Err() != nil:
		return errors.Wrapf(ctx.Err(), "[api] %s %s", cl.method, cl.route)
	default:
		log.Debug().Err(err).Str("route", cl.route).Msg("backend unreachable")
		return errors.Wrapf(apperrors.ErrNetwork, "[api] %s %s: %v", cl.method, cl.route, err)
	}
}

func (c *Client) unauthorized(ctx context.Context, err *StatusError) {
	c.handlerLock.RLock()
	h := c.onUnauthorized
	c.handlerLock.RUnlock()
	if h != nil {
		h(ctx, err)
	}
}
