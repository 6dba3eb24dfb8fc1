// Package gateway turns raw storefront API responses into typed outcomes.
// Every call is attempted exactly once.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/httpclient"
	"github.com/utafrali/storefront/pkg/logger"
	"github.com/utafrali/storefront/pkg/tracing"
)

const (
	headerAuthorization = "Authorization"
	headerCorrelationID = "X-Correlation-ID"

	// maxBodyBytes caps how much of a response body is buffered.
	maxBodyBytes = 4 << 20
)

// Error types the API reports alongside a 401.
const (
	ErrorTypeInvalidPassword = "invalidPassword"
	ErrorTypeInvalidUser     = "invalidUser"
)

// TokenSource yields the bearer token to attach, or "" for none.
type TokenSource interface {
	Token() string
}

// TokenFunc adapts a function to TokenSource.
type TokenFunc func() string

func (f TokenFunc) Token() string { return f() }

// Response is a successful (2xx) API answer.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// Gateway sends authenticated requests to the storefront API.
type Gateway struct {
	baseURL string
	doer    httpclient.Doer
	tokens  TokenSource
	logger  *slog.Logger
	tracer  trace.Tracer
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithLogger sets the gateway logger.
func WithLogger(l *slog.Logger) Option {
	return func(g *Gateway) { g.logger = l }
}

// WithTracer sets the tracer used for client spans.
func WithTracer(t trace.Tracer) Option {
	return func(g *Gateway) { g.tracer = t }
}

// New creates a Gateway for baseURL. tokens may be nil for anonymous use.
func New(baseURL string, doer httpclient.Doer, tokens TokenSource, opts ...Option) *Gateway {
	if tokens == nil {
		tokens = TokenFunc(func() string { return "" })
	}
	g := &Gateway{
		baseURL: strings.TrimRight(baseURL, "/"),
		doer:    doer,
		tokens:  tokens,
		logger:  slog.Default(),
		tracer:  tracing.Tracer("gateway"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// BaseURL returns the API root requests are sent to.
func (g *Gateway) BaseURL() string {
	return g.baseURL
}

// Request sends one request and classifies the outcome. A nil error means
// the server answered 2xx. Transport and status failures are
// *apperrors.AppError values; an unencodable body is a plain error.
func (g *Gateway) Request(ctx context.Context, method, path string, body any) (*Response, error) {
	route := routeOf(path)
	start := time.Now()

	ctx, span := g.tracer.Start(ctx, method+" "+route,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("url.path", route),
		),
	)
	defer span.End()

	resp, err := g.do(ctx, method, path, body)

	outcome := "ok"
	if err != nil {
		outcome = string(apperrors.KindOf(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
	}
	if status := statusOf(resp, err); status != 0 {
		span.SetAttributes(attribute.Int("http.response.status_code", status))
	}
	requestsTotal.WithLabelValues(method, route, outcome).Inc()
	requestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())

	l := logger.WithContext(ctx, g.logger)
	if err != nil {
		l.WarnContext(ctx, "api request failed",
			slog.String("method", method),
			slog.String("path", route),
			slog.String("outcome", outcome),
			slog.Int("status", apperrors.HTTPStatus(err)),
			slog.Duration("duration", time.Since(start)),
		)
		return nil, err
	}
	l.DebugContext(ctx, "api request completed",
		slog.String("method", method),
		slog.String("path", route),
		slog.Int("status", resp.Status),
		slog.Duration("duration", time.Since(start)),
	)
	return resp, nil
}

func (g *Gateway) do(ctx context.Context, method, path string, body any) (*Response, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := g.tokens.Token(); token != "" {
		req.Header.Set(headerAuthorization, token)
	}
	correlationID := logger.CorrelationIDFromContext(ctx)
	if correlationID == "" {
		correlationID = uuid.New().String()
	}
	req.Header.Set(headerCorrelationID, correlationID)
	tracing.InjectHeaders(ctx, req.Header)

	httpResp, err := g.doer.Do(ctx, req)
	if err != nil {
		return nil, apperrors.Network(err)
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(httpResp.Body, maxBodyBytes))
	if err != nil {
		return nil, apperrors.Network(fmt.Errorf("read response body: %w", err))
	}

	if err := Classify(httpResp.StatusCode, data); err != nil {
		return nil, err
	}
	return &Response{Status: httpResp.StatusCode, Header: httpResp.Header, Body: data}, nil
}

// errorBody is the error envelope the API answers non-2xx requests with.
type errorBody struct {
	ErrorType string `json:"errorType"`
	Message   string `json:"message"`
}

// Classify maps a status code and body to the client error taxonomy.
// It returns nil for 2xx.
func Classify(status int, body []byte) error {
	if status >= 200 && status < 300 {
		return nil
	}

	var eb errorBody
	_ = json.Unmarshal(body, &eb)
	msg := eb.Message
	if msg == "" {
		msg = http.StatusText(status)
	}

	switch {
	case status == http.StatusUnauthorized && eb.ErrorType == ErrorTypeInvalidPassword:
		return apperrors.InvalidCredentials(msg)
	case status == http.StatusUnauthorized && eb.ErrorType == ErrorTypeInvalidUser:
		return apperrors.UserNotFound(msg)
	case status == http.StatusInternalServerError:
		return apperrors.ServerError(msg)
	default:
		return apperrors.UnexpectedStatus(status, msg)
	}
}

// Decode parses a successful response body into T. A body that does not
// parse is reported as a malformed response.
func Decode[T any](resp *Response) (T, error) {
	var out T
	if resp == nil {
		return out, apperrors.MalformedResponse(0, fmt.Errorf("empty response"))
	}
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return out, apperrors.MalformedResponse(resp.Status, fmt.Errorf("decode body: %w", err))
	}
	return out, nil
}

// routeOf strips the query string so metrics and spans keep a bounded label set.
func routeOf(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		return path[:i]
	}
	return path
}

func statusOf(resp *Response, err error) int {
	if resp != nil {
		return resp.Status
	}
	return apperrors.HTTPStatus(err)
}
