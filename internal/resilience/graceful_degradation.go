package resilience

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/montanaflynn/stats"

	"github.com/ZanzyTHEbar/orbis-trust/internal/errors"
	"github.com/ZanzyTHEbar/orbis-trust/internal/types"
)

// DegradationLevel represents how badly a model is failing
type DegradationLevel int

const (
	LevelNormal DegradationLevel = iota
	LevelDegraded
	LevelCritical
	LevelEmergency
)

func (l DegradationLevel) String() string {
	switch l {
	case LevelDegraded:
		return "degraded"
	case LevelCritical:
		return "critical"
	case LevelEmergency:
		return "emergency"
	default:
		return "normal"
	}
}

// MarshalText renders the level by name in JSON health output
func (l DegradationLevel) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// DegradationConfig holds configuration for model health tracking
type DegradationConfig struct {
	HealthCheckInterval time.Duration `json:"health_check_interval"`
	DegradedThreshold   float64       `json:"degraded_threshold"`    // Error rate threshold (0.0-1.0)
	CriticalThreshold   float64       `json:"critical_threshold"`    // Error rate threshold (0.0-1.0)
	EmergencyThreshold  float64       `json:"emergency_threshold"`   // Error rate threshold (0.0-1.0)
	HealthCheckTimeout  time.Duration `json:"health_check_timeout"`  // Timeout for health checks
	MaxDegradedDuration time.Duration `json:"max_degraded_duration"` // Max time in degraded state before emergency
	ErrorWindow         int           `json:"error_window"`          // Recent predictions the error rate is computed over
}

// DefaultDegradationConfig returns sensible defaults
func DefaultDegradationConfig() DegradationConfig {
	return DegradationConfig{
		HealthCheckInterval: 30 * time.Second,
		DegradedThreshold:   0.1,
		CriticalThreshold:   0.25,
		EmergencyThreshold:  0.5,
		HealthCheckTimeout:  5 * time.Second,
		MaxDegradedDuration: 10 * time.Minute,
		ErrorWindow:         100,
	}
}

// ModelHealth is the health snapshot of one ensemble member. ErrorRate
// covers the most recent predictions only; the counts are lifetime totals.
type ModelHealth struct {
	Model              string           `json:"model"`
	Kind               string           `json:"kind"`
	Level              DegradationLevel `json:"level"`
	ErrorRate          float64          `json:"error_rate"`
	TotalRequests      int64            `json:"total_requests"`
	ErrorCount         int64            `json:"error_count"`
	LastError          string           `json:"last_error,omitempty"`
	LastErrorTime      *time.Time       `json:"last_error_time,omitempty"`
	DegradedSince      *time.Time       `json:"degraded_since,omitempty"`
	StatusMessage      string           `json:"status_message"`
	LastLatencyMs      int64            `json:"last_latency_ms"`
	HealthCheckFailing bool             `json:"health_check_failing,omitempty"`
	CircuitBreaker     map[string]any   `json:"circuit_breaker,omitempty"`
	ConnectionPool     map[string]any   `json:"connection_pool,omitempty"`
}

// HealthCheckFunc probes a model's backend
type HealthCheckFunc func(ctx context.Context) error

// DegradationManager tracks per-model error rates. It only observes: a
// degraded model is still asked for a prediction on every analysis.
type DegradationManager struct {
	config       DegradationConfig
	models       map[string]*ModelHealth
	healthChecks map[string]HealthCheckFunc
	pools        map[string]*ConnectionPool
	outcomes     map[string][]float64
	mutex        sync.RWMutex
}

// NewDegradationManager creates a new degradation manager
func NewDegradationManager(config DegradationConfig) *DegradationManager {
	if config.ErrorWindow <= 0 {
		config.ErrorWindow = DefaultDegradationConfig().ErrorWindow
	}
	return &DegradationManager{
		config:       config,
		models:       make(map[string]*ModelHealth),
		healthChecks: make(map[string]HealthCheckFunc),
		pools:        make(map[string]*ConnectionPool),
		outcomes:     make(map[string][]float64),
	}
}

// RegisterModel registers a model with an optional health check and the
// connection pool (and so circuit breaker) of its remote backend
func (dm *DegradationManager) RegisterModel(name string, kind types.ModelKind, healthCheck HealthCheckFunc, pool *ConnectionPool) {
	dm.mutex.Lock()
	defer dm.mutex.Unlock()

	dm.models[name] = &ModelHealth{
		Model:         name,
		Kind:          kind.String(),
		Level:         LevelNormal,
		StatusMessage: "Model is healthy",
	}

	if healthCheck != nil {
		dm.healthChecks[name] = healthCheck
	}
	if pool != nil {
		dm.pools[name] = pool
	}

	slog.Info("Registered model for health tracking", "model", name, "kind", kind.String())
}

// Observe records the outcome of one prediction
func (dm *DegradationManager) Observe(model string, _ types.ModelKind, duration time.Duration, err error) {
	dm.mutex.Lock()
	defer dm.mutex.Unlock()

	health, exists := dm.models[model]
	if !exists {
		return
	}

	health.TotalRequests++
	health.LastLatencyMs = duration.Milliseconds()
	outcome := 0.0
	if err != nil {
		now := time.Now()
		health.ErrorCount++
		health.LastError = err.Error()
		health.LastErrorTime = &now
		outcome = 1
	}

	window := append(dm.outcomes[model], outcome)
	if len(window) > dm.config.ErrorWindow {
		window = window[len(window)-dm.config.ErrorWindow:]
	}
	dm.outcomes[model] = window
	health.ErrorRate, _ = stats.Mean(window)

	dm.updateDegradationLevel(health)
}

func (dm *DegradationManager) updateDegradationLevel(health *ModelHealth) {
	oldLevel := health.Level
	now := time.Now()

	var newLevel DegradationLevel
	var statusMessage string

	switch {
	case health.ErrorRate >= dm.config.EmergencyThreshold:
		newLevel = LevelEmergency
		statusMessage = "Model is failing most predictions"
	case health.ErrorRate >= dm.config.CriticalThreshold:
		newLevel = LevelCritical
		statusMessage = "Model has an elevated error rate"
	case health.ErrorRate >= dm.config.DegradedThreshold:
		newLevel = LevelDegraded
		statusMessage = "Model is degraded"
	default:
		newLevel = LevelNormal
		statusMessage = "Model is healthy"
	}

	if health.HealthCheckFailing && newLevel < LevelCritical {
		newLevel = LevelCritical
		statusMessage = "Model backend is failing health checks"
	}

	if newLevel == LevelDegraded && health.DegradedSince != nil {
		if now.Sub(*health.DegradedSince) > dm.config.MaxDegradedDuration {
			newLevel = LevelEmergency
			statusMessage = "Model has been degraded too long"
		}
	}

	switch {
	case newLevel == LevelDegraded && oldLevel != LevelDegraded:
		health.DegradedSince = &now
	case newLevel != LevelDegraded && newLevel < LevelCritical:
		health.DegradedSince = nil
	}

	health.Level = newLevel
	health.StatusMessage = statusMessage

	if oldLevel != newLevel {
		slog.Warn("Model degradation level changed",
			"model", health.Model,
			"old_level", oldLevel.String(),
			"new_level", newLevel.String(),
			"error_rate", health.ErrorRate,
			"total_requests", health.TotalRequests,
			"error_count", health.ErrorCount)
	}
}

// GetModelHealth returns a copy of one model's health
func (dm *DegradationManager) GetModelHealth(name string) (ModelHealth, bool) {
	dm.mutex.RLock()
	defer dm.mutex.RUnlock()

	health, exists := dm.models[name]
	if !exists {
		return ModelHealth{}, false
	}
	return dm.snapshot(name, health), true
}

// GetAllModelHealth returns every registered model's health, sorted by name
func (dm *DegradationManager) GetAllModelHealth() []ModelHealth {
	dm.mutex.RLock()
	defer dm.mutex.RUnlock()

	result := make([]ModelHealth, 0, len(dm.models))
	for name, health := range dm.models {
		result = append(result, dm.snapshot(name, health))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Model < result[j].Model })
	return result
}

func (dm *DegradationManager) snapshot(name string, health *ModelHealth) ModelHealth {
	out := *health
	if pool, ok := dm.pools[name]; ok {
		out.CircuitBreaker = pool.Breaker().Stats()
		out.ConnectionPool = pool.GetStats()
	}
	return out
}

// StartHealthChecks probes registered backends until ctx is done
func (dm *DegradationManager) StartHealthChecks(ctx context.Context) {
	ticker := time.NewTicker(dm.config.HealthCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			dm.performHealthChecks(ctx)
		}
	}
}

func (dm *DegradationManager) performHealthChecks(ctx context.Context) {
	dm.mutex.RLock()
	checks := make(map[string]HealthCheckFunc, len(dm.healthChecks))
	for name, check := range dm.healthChecks {
		checks[name] = check
	}
	dm.mutex.RUnlock()

	var wg sync.WaitGroup
	for name, check := range checks {
		wg.Add(1)
		go func(name string, check HealthCheckFunc) {
			defer wg.Done()

			checkCtx, cancel := context.WithTimeout(ctx, dm.config.HealthCheckTimeout)
			defer cancel()

			err := check(checkCtx)
			if err != nil {
				slog.Warn("Model health check failed", "model", name,
					"error", errors.WrapError(err, "health check failed for model %s", name))
			}
			dm.recordHealthCheck(name, err)
		}(name, check)
	}
	wg.Wait()
}

// recordHealthCheck holds a failing backend at critical or above until a
// later check passes, at which point its recent history is forgiven
func (dm *DegradationManager) recordHealthCheck(name string, err error) {
	dm.mutex.Lock()
	health, exists := dm.models[name]
	if !exists {
		dm.mutex.Unlock()
		return
	}

	if err == nil {
		recovered := health.HealthCheckFailing
		dm.mutex.Unlock()
		if recovered {
			dm.ResetModel(name)
		}
		return
	}

	now := time.Now()
	health.HealthCheckFailing = true
	health.LastError = err.Error()
	health.LastErrorTime = &now
	dm.updateDegradationLevel(health)
	dm.mutex.Unlock()
}

// ResetModel clears a model's recent error window and closes its circuit
// breaker. Lifetime request and error counts are kept.
func (dm *DegradationManager) ResetModel(name string) {
	dm.mutex.Lock()
	defer dm.mutex.Unlock()

	health, exists := dm.models[name]
	if !exists {
		return
	}

	delete(dm.outcomes, name)
	health.ErrorRate = 0
	health.HealthCheckFailing = false
	if pool, ok := dm.pools[name]; ok {
		pool.Breaker().Reset()
	}
	dm.updateDegradationLevel(health)
	slog.Info("Model health reset", "model", name)
}

// GracefulShutdown logs the final status of every model
func (dm *DegradationManager) GracefulShutdown() {
	dm.mutex.RLock()
	defer dm.mutex.RUnlock()

	slog.Info("Degradation manager shutting down", "models", len(dm.models))

	for name, health := range dm.models {
		slog.Info("Final model status",
			"model", name,
			"level", health.Level.String(),
			"error_rate", health.ErrorRate,
			"total_requests", health.TotalRequests,
			"error_count", health.ErrorCount)
	}
}
