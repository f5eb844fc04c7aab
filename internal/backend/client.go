package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	apierrors "slabdesk/pkg/errors"
	"slabdesk/pkg/middleware"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// ErrUnavailable is returned while the circuit breaker is open.
var ErrUnavailable = errors.New("inventory API unavailable")

// DownstreamMetrics records downstream call outcomes
type DownstreamMetrics interface {
	RecordRequest(service, operation, status string, duration time.Duration)
}

// BreakerObserver is told about circuit breaker state changes
type BreakerObserver interface {
	SetCircuitBreakerState(name string, state gobreaker.State)
}

type tokenKey struct{}

// WithToken attaches the caller's bearer token to ctx; it is forwarded on
// every call made with that context.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

func tokenFrom(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey{}).(string)
	return token
}

// ServiceClient performs JSON calls against one downstream service
type ServiceClient struct {
	httpClient *http.Client
	baseURL    string
	service    string
	breaker    *gobreaker.CircuitBreaker
	logger     *zap.Logger
	metrics    DownstreamMetrics
}

// ClientOption customises a ServiceClient
type ClientOption func(*ServiceClient)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(s *ServiceClient) { s.httpClient = c }
}

// WithMetrics records every call on m.
func WithMetrics(m DownstreamMetrics) ClientOption {
	return func(s *ServiceClient) { s.metrics = m }
}

// NewServiceClient creates a client whose calls go through a circuit
// breaker named after the service.
func NewServiceClient(baseURL, service string, timeout time.Duration, logger *zap.Logger, observer BreakerObserver, opts ...ClientOption) *ServiceClient {
	c := &ServiceClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		service:    service,
		logger:     logger,
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        service,
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.ConsecutiveFailures >= 5 {
				return true
			}
			return counts.Requests >= 10 && float64(counts.TotalFailures)/float64(counts.Requests) >= 0.5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
			if observer != nil {
				observer.SetCircuitBreakerState(name, to)
			}
		},
	})
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the breaker state
func (c *ServiceClient) State() gobreaker.State {
	return c.breaker.State()
}

func (c *ServiceClient) get(ctx context.Context, operation, path string, query url.Values, result interface{}) error {
	if len(query) > 0 {
		path += "?" + query.Encode()
	}
	return c.doRequest(ctx, operation, http.MethodGet, path, nil, result)
}

// doRequest runs one call through the breaker. Responses with a 4xx status
// are caller errors and do not count against the breaker. operation names
// the call in metrics and logs.
func (c *ServiceClient) doRequest(ctx context.Context, operation, method, path string, body interface{}, result interface{}) error {
	start := time.Now()

	var clientErr error
	_, err := c.breaker.Execute(func() (interface{}, error) {
		err := c.roundTrip(ctx, method, path, body, result)
		var apiErr *apierrors.APIError
		if errors.As(err, &apiErr) && apiErr.Status < http.StatusInternalServerError {
			clientErr = err
			return nil, nil
		}
		return nil, err
	})

	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		c.recordError(operation, start, err)
		return fmt.Errorf("%w: %s", ErrUnavailable, c.service)
	case err != nil:
		c.recordError(operation, start, err)
		return err
	case clientErr != nil:
		c.record(operation, "client_error", start)
		return clientErr
	}

	c.record(operation, "success", start)
	return nil
}

func (c *ServiceClient) roundTrip(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := tokenFrom(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if requestID := middleware.RequestIDFromContext(ctx); requestID != "" {
		req.Header.Set(middleware.RequestIDHeader, requestID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeAPIError(resp)
	}

	if result != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// decodeAPIError reads a {code, message} body; anything else is kept as
// the message with a code derived from the status.
func decodeAPIError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	apiErr := &apierrors.APIError{Status: resp.StatusCode}
	if err := json.Unmarshal(raw, apiErr); err != nil || apiErr.Code == "" {
		apiErr.Code = codeForStatus(resp.StatusCode)
		if apiErr.Message == "" {
			apiErr.Message = string(raw)
		}
	}
	return apiErr
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return apierrors.CodeBadRequest
	case http.StatusUnauthorized:
		return apierrors.CodeUnauthorized
	case http.StatusForbidden:
		return apierrors.CodeForbidden
	case http.StatusNotFound:
		return apierrors.CodeNotFound
	case http.StatusConflict:
		return apierrors.CodeConflict
	case http.StatusUnprocessableEntity:
		return apierrors.CodeValidationError
	default:
		return apierrors.CodeInternal
	}
}

func (c *ServiceClient) record(operation, status string, start time.Time) {
	if c.metrics != nil {
		c.metrics.RecordRequest(c.service, operation, status, time.Since(start))
	}
}

func (c *ServiceClient) recordError(operation string, start time.Time, err error) {
	c.record(operation, "error", start)
	c.logger.Error("Downstream service call failed",
		zap.String("service", c.service),
		zap.String("operation", operation),
		zap.Error(err),
	)
}

// IsNotFound reports whether err is a 404 from the inventory API.
func IsNotFound(err error) bool {
	apiErr, ok := apierrors.AsAPIError(err)
	return ok && (apiErr.Status == http.StatusNotFound || apiErr.Code == apierrors.CodeNotFound)
}
