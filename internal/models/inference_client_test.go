package models

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZanzyTHEbar/orbis-trust/internal/resilience"
)

func newInferenceServer(t *testing.T, handler http.HandlerFunc) *InferenceClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewInferenceClient(InferenceClientConfig{Endpoint: server.URL + "/", Timeout: 2 * time.Second})
	t.Cleanup(func() { client.Close() })
	return client
}

func TestInferenceClient_Logits(t *testing.T) {
	client := newInferenceServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/predict", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)

		var req predictRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Scientists confirm the moon is cheese", req.Inputs)
		assert.True(t, req.Parameters.Truncation)
		assert.Equal(t, 512, req.Parameters.MaxLength)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"logits": [[-1.2, 2.3]]}`))
	})

	logits, err := client.Logits(context.Background(), "Scientists confirm the moon is cheese", 512)
	require.NoError(t, err)
	assert.Equal(t, []float64{-1.2, 2.3}, logits)
}

func TestInferenceClient_LogitsErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		payload string
	}{
		{"client error status", http.StatusUnprocessableEntity, `{"error":"bad input"}`},
		{"server error status", http.StatusInternalServerError, `{}`},
		{"malformed body", http.StatusOK, `not json`},
		{"batch of rows", http.StatusOK, `{"logits": [[0,1],[1,0]]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newInferenceServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.payload))
			})

			_, err := client.Logits(context.Background(), "text", 512)
			assert.Error(t, err)
		})
	}
}

func TestInferenceClient_CancelledContext(t *testing.T) {
	client := newInferenceServer(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := client.Logits(ctx, "text", 512)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestInferenceClient_BurstWaitsForConnections(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte(`{"logits": [[0.1, 0.9]]}`))
	}))
	defer server.Close()

	client := NewInferenceClient(InferenceClientConfig{Endpoint: server.URL, Timeout: 5 * time.Second, MaxConnections: 2})
	defer client.Close()

	var wg sync.WaitGroup
	errs := make([]error, 10)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = client.Logits(context.Background(), "text", 512)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		assert.NoError(t, err, "call %d", i)
	}
	assert.Equal(t, resilience.StateClosed, client.Pool().Breaker().State())
	assert.Zero(t, client.Pool().Breaker().Failures())
}

func TestInferenceClient_CallerCancellationKeepsBreakerClosed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(200 * time.Millisecond):
		case <-r.Context().Done():
		}
		w.Write([]byte(`{"logits": [[0.1, 0.9]]}`))
	}))
	defer server.Close()

	client := NewInferenceClient(InferenceClientConfig{Endpoint: server.URL, Timeout: 5 * time.Second})
	defer client.Close()

	for i := 0; i < 5; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		_, err := client.Logits(ctx, "text", 512)
		cancel()
		require.Error(t, err)
	}

	assert.Equal(t, resilience.StateClosed, client.Pool().Breaker().State())
	assert.Zero(t, client.Pool().Breaker().Failures())

	logits, err := client.Logits(context.Background(), "text", 512)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.1, 0.9}, logits)
}

func TestInferenceClient_Probe(t *testing.T) {
	client := newInferenceServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		w.Write([]byte(`{"status":"ok","device":"cuda"}`))
	})

	health, err := client.Probe(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "cuda", health.Device)
	assert.NoError(t, client.HealthCheck(context.Background()))
}

func TestInferenceClient_ProbeUnhealthy(t *testing.T) {
	client := newInferenceServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"loading","device":"cpu"}`))
	})

	health, err := client.Probe(context.Background())
	require.Error(t, err)
	assert.Equal(t, "loading", health.Status)
}

func TestInferenceClient_Unreachable(t *testing.T) {
	client := NewInferenceClient(InferenceClientConfig{Endpoint: "http://127.0.0.1:1", Timeout: time.Second})
	defer client.Close()

	_, err := client.Probe(context.Background())
	assert.Error(t, err)
}

func TestInferenceClient_RateLimitRespectsContext(t *testing.T) {
	client := NewInferenceClient(InferenceClientConfig{Endpoint: "http://127.0.0.1:1", RequestsPerSecond: 0.01})
	defer client.Close()

	// burst of one is consumed by the first reservation
	require.True(t, client.limiter.Allow())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := client.Logits(ctx, "text", 512)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit")
}
