package resilience

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// ConnectionPool bounds concurrent requests to an inference endpoint and
// routes them through a circuit breaker. Callers beyond maxActive wait for a
// slot instead of failing.
type ConnectionPool struct {
	maxIdle     int
	maxActive   int
	idleTimeout time.Duration
	timeout     time.Duration

	circuitBreaker *CircuitBreaker

	slots           chan struct{}
	waiting         int64
	idleConnections []*pooledConnection
	mutex           sync.Mutex

	transport *http.Transport
}

type pooledConnection struct {
	client   *http.Client
	lastUsed time.Time
}

// NewConnectionPool creates a pool whose clients share one transport.
// timeout bounds each request; the caller's context may bound it further.
func NewConnectionPool(maxIdle, maxActive int, idleTimeout, timeout time.Duration, cb *CircuitBreaker) *ConnectionPool {
	if maxActive < 1 {
		maxActive = 1
	}
	if maxIdle < 0 {
		maxIdle = 0
	}

	transport := &http.Transport{
		MaxIdleConns:          maxIdle,
		MaxConnsPerHost:       maxActive,
		MaxIdleConnsPerHost:   maxIdle,
		IdleConnTimeout:       idleTimeout,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: timeout,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &ConnectionPool{
		maxIdle:         maxIdle,
		maxActive:       maxActive,
		idleTimeout:     idleTimeout,
		timeout:         timeout,
		circuitBreaker:  cb,
		slots:           make(chan struct{}, maxActive),
		transport:       transport,
		idleConnections: make([]*pooledConnection, 0, maxIdle),
	}
}

// acquire waits for a free slot, then hands out an idle client or a new one
func (cp *ConnectionPool) acquire(ctx context.Context) (*http.Client, error) {
	atomic.AddInt64(&cp.waiting, 1)
	select {
	case cp.slots <- struct{}{}:
		atomic.AddInt64(&cp.waiting, -1)
	case <-ctx.Done():
		atomic.AddInt64(&cp.waiting, -1)
		return nil, fmt.Errorf("waiting for inference connection: %w", ctx.Err())
	}

	cp.mutex.Lock()
	defer cp.mutex.Unlock()

	cp.dropExpired()

	if n := len(cp.idleConnections); n > 0 {
		conn := cp.idleConnections[n-1]
		cp.idleConnections = cp.idleConnections[:n-1]
		return conn.client, nil
	}

	return &http.Client{Transport: cp.transport, Timeout: cp.timeout}, nil
}

// release returns a client; it is kept only while there is idle capacity
func (cp *ConnectionPool) release(client *http.Client) {
	cp.mutex.Lock()
	if len(cp.idleConnections) < cp.maxIdle {
		cp.idleConnections = append(cp.idleConnections, &pooledConnection{client: client, lastUsed: time.Now()})
	}
	cp.mutex.Unlock()

	<-cp.slots
}

func (cp *ConnectionPool) dropExpired() {
	now := time.Now()
	valid := cp.idleConnections[:0]
	for _, conn := range cp.idleConnections {
		if now.Sub(conn.lastUsed) <= cp.idleTimeout {
			valid = append(valid, conn)
		}
	}
	cp.idleConnections = valid
}

// DoRequest executes an HTTP request with circuit breaker protection. Any
// 5xx response counts as a breaker failure and is returned as an error.
// Waiting for a slot happens outside the breaker: a busy pool says nothing
// about the backend's health.
func (cp *ConnectionPool) DoRequest(ctx context.Context, method, url string, headers map[string]string, body []byte) (*http.Response, error) {
	client, err := cp.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer cp.release(client)

	var resp *http.Response
	err = cp.circuitBreaker.CallContext(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
		if err != nil {
			return err
		}
		for key, value := range headers {
			req.Header.Set(key, value)
		}

		start := time.Now()
		r, err := client.Do(req)
		duration := time.Since(start)
		if err != nil {
			slog.Warn("Inference request failed", "url", url, "error", err, "duration_ms", duration.Milliseconds())
			return err
		}

		if r.StatusCode >= http.StatusInternalServerError {
			r.Body.Close()
			return fmt.Errorf("inference server returned status %d", r.StatusCode)
		}

		slog.Debug("Inference request completed", "url", url, "status", r.StatusCode, "duration_ms", duration.Milliseconds())
		resp = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	return resp, nil
}

// Breaker exposes the pool's circuit breaker for health reporting
func (cp *ConnectionPool) Breaker() *CircuitBreaker {
	return cp.circuitBreaker
}

// GetStats returns connection pool statistics
func (cp *ConnectionPool) GetStats() map[string]interface{} {
	cp.mutex.Lock()
	idle := len(cp.idleConnections)
	cp.mutex.Unlock()

	return map[string]interface{}{
		"active_connections": len(cp.slots),
		"waiting":            atomic.LoadInt64(&cp.waiting),
		"idle_connections":   idle,
		"max_idle":           cp.maxIdle,
		"max_active":         cp.maxActive,
		"idle_timeout_ms":    cp.idleTimeout.Milliseconds(),
	}
}

// Close drops idle connections
func (cp *ConnectionPool) Close() error {
	cp.mutex.Lock()
	defer cp.mutex.Unlock()

	cp.transport.CloseIdleConnections()
	cp.idleConnections = nil

	slog.Info("Connection pool closed")
	return nil
}
