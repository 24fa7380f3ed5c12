package models

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/ZanzyTHEbar/orbis-trust/internal/errors"
	"github.com/ZanzyTHEbar/orbis-trust/internal/resilience"
)

// InferenceClientConfig configures the connection to a transformer inference server
type InferenceClientConfig struct {
	Endpoint          string
	Timeout           time.Duration
	RequestsPerSecond float64
	MaxConnections    int
}

// InferenceClient calls a sequence-classification server over HTTP
type InferenceClient struct {
	endpoint string
	pool     *resilience.ConnectionPool
	limiter  *rate.Limiter
}

type predictRequest struct {
	Inputs     string            `json:"inputs"`
	Parameters predictParameters `json:"parameters"`
}

type predictParameters struct {
	Truncation bool `json:"truncation"`
	MaxLength  int  `json:"max_length"`
}

type predictResponse struct {
	Logits [][]float64 `json:"logits"`
}

// ServerHealth is the inference server's health report
type ServerHealth struct {
	Status string `json:"status"`
	Device string `json:"device"`
}

// NewInferenceClient creates a client. A RequestsPerSecond of zero disables pacing.
func NewInferenceClient(cfg InferenceClientConfig) *InferenceClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxConnections <= 0 {
		cfg.MaxConnections = 16
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RequestsPerSecond > 0 {
		burst := int(cfg.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	cb := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		FailureThreshold: 5,
		RecoveryTimeout:  30 * time.Second,
		SuccessThreshold: 2,
	})

	return &InferenceClient{
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
		pool:     resilience.NewConnectionPool(cfg.MaxConnections/2+1, cfg.MaxConnections, 90*time.Second, cfg.Timeout, cb),
		limiter:  limiter,
	}
}

// Logits returns the two class logits for text
func (c *InferenceClient) Logits(ctx context.Context, text string, maxLength int) ([]float64, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, errors.NewTimeoutError("inference rate limit wait aborted", err)
	}

	body, err := json.Marshal(predictRequest{
		Inputs:     text,
		Parameters: predictParameters{Truncation: true, MaxLength: maxLength},
	})
	if err != nil {
		return nil, errors.NewInternalError("failed to encode inference request", err)
	}

	headers := map[string]string{
		"Content-Type": "application/json",
		"Accept":       "application/json",
	}
	resp, err := c.pool.DoRequest(ctx, http.MethodPost, c.endpoint+"/predict", headers, body)
	if err != nil {
		return nil, errors.NewNetworkError("inference request failed", err)
	}
	defer errors.SafeClose(resp.Body, "inference response body")

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, errors.NewNetworkError(fmt.Sprintf("inference server returned %d", resp.StatusCode), fmt.Errorf("%s", strings.TrimSpace(string(msg))))
	}

	var out predictResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, errors.NewInternalError("failed to decode inference response", err)
	}
	if len(out.Logits) != 1 {
		return nil, errors.NewInternalError("unexpected inference response", fmt.Errorf("expected one row of logits, got %d", len(out.Logits)))
	}

	return out.Logits[0], nil
}

// Probe checks the server's health and reports the device it runs on
func (c *InferenceClient) Probe(ctx context.Context) (ServerHealth, error) {
	resp, err := c.pool.DoRequest(ctx, http.MethodGet, c.endpoint+"/health", map[string]string{"Accept": "application/json"}, nil)
	if err != nil {
		return ServerHealth{}, errors.NewNetworkError("inference server unreachable", err)
	}
	defer errors.SafeClose(resp.Body, "inference health body")

	if resp.StatusCode != http.StatusOK {
		return ServerHealth{}, errors.NewNetworkError(fmt.Sprintf("inference server health returned %d", resp.StatusCode), nil)
	}

	var health ServerHealth
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return ServerHealth{}, errors.NewInternalError("failed to decode inference health", err)
	}
	if health.Status != "ok" && health.Status != "healthy" {
		return health, errors.NewNetworkError(fmt.Sprintf("inference server reports status %q", health.Status), nil)
	}

	return health, nil
}

// HealthCheck adapts Probe for periodic health checks
func (c *InferenceClient) HealthCheck(ctx context.Context) error {
	_, err := c.Probe(ctx)
	return err
}

// Pool exposes the client's connection pool and breaker for health reporting
func (c *InferenceClient) Pool() *resilience.ConnectionPool {
	return c.pool
}

// Close releases idle connections
func (c *InferenceClient) Close() error {
	return c.pool.Close()
}
