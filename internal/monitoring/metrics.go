package monitoring

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/montanaflynn/stats"

	"github.com/ZanzyTHEbar/orbis-trust/internal/types"
)

const maxSamples = 1000

// ModelStats counts one model's predictions
type ModelStats struct {
	Kind        string  `json:"kind"`
	Predictions int64   `json:"predictions"`
	Failures    int64   `json:"failures"`
	P50Ms       float64 `json:"p50_latency_ms"`
	P95Ms       float64 `json:"p95_latency_ms"`
}

type modelCounters struct {
	kind        types.ModelKind
	predictions int64
	failures    int64
	latencies   []float64
}

// Metrics holds application metrics
type Metrics struct {
	RequestCount int64
	ErrorCount   int64
	CacheHits    int64
	CacheMisses  int64
	Analyses     int64
	FakeVerdicts int64
	AutoPublish  int64
	StartTime    time.Time

	// last maxSamples response times in milliseconds
	responseTimes      []float64
	responseTimesMutex sync.RWMutex

	requestCountByStatus map[int]int64
	statusMutex          sync.RWMutex

	models      map[string]*modelCounters
	modelsMutex sync.RWMutex
}

// NewMetrics creates a new metrics instance
func NewMetrics() *Metrics {
	return &Metrics{
		StartTime:            time.Now(),
		responseTimes:        make([]float64, 0, maxSamples),
		requestCountByStatus: make(map[int]int64),
		models:               make(map[string]*modelCounters),
	}
}

// IncrementRequest increments the request count
func (m *Metrics) IncrementRequest() {
	atomic.AddInt64(&m.RequestCount, 1)
}

// IncrementError increments the error count
func (m *Metrics) IncrementError() {
	atomic.AddInt64(&m.ErrorCount, 1)
}

// IncrementCacheHit increments cache hit count
func (m *Metrics) IncrementCacheHit() {
	atomic.AddInt64(&m.CacheHits, 1)
}

// IncrementCacheMiss increments cache miss count
func (m *Metrics) IncrementCacheMiss() {
	atomic.AddInt64(&m.CacheMisses, 1)
}

// RecordResponseTime records a response time for percentiles
func (m *Metrics) RecordResponseTime(duration time.Duration) {
	m.responseTimesMutex.Lock()
	m.responseTimes = appendSample(m.responseTimes, millis(duration))
	m.responseTimesMutex.Unlock()
}

// RecordRequestByStatus records request count by HTTP status code
func (m *Metrics) RecordRequestByStatus(statusCode int) {
	m.statusMutex.Lock()
	defer m.statusMutex.Unlock()
	m.requestCountByStatus[statusCode]++
}

// RecordAnalysis counts a finished analysis and its verdict
func (m *Metrics) RecordAnalysis(result types.AnalysisResult) {
	atomic.AddInt64(&m.Analyses, 1)
	if result.Consensus == types.LabelFake {
		atomic.AddInt64(&m.FakeVerdicts, 1)
	}
	if result.AutoPublish {
		atomic.AddInt64(&m.AutoPublish, 1)
	}
}

// Observe records one model invocation
func (m *Metrics) Observe(model string, kind types.ModelKind, duration time.Duration, err error) {
	m.modelsMutex.Lock()
	defer m.modelsMutex.Unlock()

	counters, ok := m.models[model]
	if !ok {
		counters = &modelCounters{kind: kind}
		m.models[model] = counters
	}
	counters.predictions++
	if err != nil {
		counters.failures++
	}
	counters.latencies = appendSample(counters.latencies, millis(duration))
}

// GetPercentileResponseTime returns the given response time percentile in milliseconds
func (m *Metrics) GetPercentileResponseTime(percentile float64) float64 {
	m.responseTimesMutex.RLock()
	defer m.responseTimesMutex.RUnlock()
	return percentileOf(m.responseTimes, percentile)
}

// GetStatusCodeDistribution returns request count by status code
func (m *Metrics) GetStatusCodeDistribution() map[int]int64 {
	m.statusMutex.RLock()
	defer m.statusMutex.RUnlock()

	distribution := make(map[int]int64, len(m.requestCountByStatus))
	for code, count := range m.requestCountByStatus {
		distribution[code] = count
	}
	return distribution
}

// GetModelStats returns per-model counters
func (m *Metrics) GetModelStats() map[string]ModelStats {
	m.modelsMutex.RLock()
	defer m.modelsMutex.RUnlock()

	out := make(map[string]ModelStats, len(m.models))
	for name, c := range m.models {
		out[name] = ModelStats{
			Kind:        c.kind.String(),
			Predictions: c.predictions,
			Failures:    c.failures,
			P50Ms:       percentileOf(c.latencies, 50),
			P95Ms:       percentileOf(c.latencies, 95),
		}
	}
	return out
}

// ModelNames returns the models seen so far, sorted
func (m *Metrics) ModelNames() []string {
	m.modelsMutex.RLock()
	defer m.modelsMutex.RUnlock()

	names := make([]string, 0, len(m.models))
	for name := range m.models {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetStats returns current metrics statistics
func (m *Metrics) GetStats() map[string]interface{} {
	requests := atomic.LoadInt64(&m.RequestCount)
	errors := atomic.LoadInt64(&m.ErrorCount)
	cacheHits := atomic.LoadInt64(&m.CacheHits)
	cacheMisses := atomic.LoadInt64(&m.CacheMisses)

	errorRate := float64(0)
	if requests > 0 {
		errorRate = float64(errors) / float64(requests) * 100
	}

	cacheHitRate := float64(0)
	if total := cacheHits + cacheMisses; total > 0 {
		cacheHitRate = float64(cacheHits) / float64(total) * 100
	}

	m.responseTimesMutex.RLock()
	avg := 0.0
	if mean, err := stats.Mean(m.responseTimes); err == nil {
		avg = mean
	}
	m.responseTimesMutex.RUnlock()

	return map[string]interface{}{
		"uptime_seconds":           time.Since(m.StartTime).Seconds(),
		"start_time":               m.StartTime.Format(time.RFC3339),
		"total_requests":           requests,
		"error_count":              errors,
		"error_rate_percent":       errorRate,
		"cache_hits":               cacheHits,
		"cache_misses":             cacheMisses,
		"cache_hit_rate_percent":   cacheHitRate,
		"analyses":                 atomic.LoadInt64(&m.Analyses),
		"fake_verdicts":            atomic.LoadInt64(&m.FakeVerdicts),
		"auto_published":           atomic.LoadInt64(&m.AutoPublish),
		"avg_response_time_ms":     avg,
		"p50_response_time_ms":     m.GetPercentileResponseTime(50),
		"p95_response_time_ms":     m.GetPercentileResponseTime(95),
		"p99_response_time_ms":     m.GetPercentileResponseTime(99),
		"status_code_distribution": m.GetStatusCodeDistribution(),
		"models":                   m.GetModelStats(),
	}
}

// Reset resets all metrics
func (m *Metrics) Reset() {
	atomic.StoreInt64(&m.RequestCount, 0)
	atomic.StoreInt64(&m.ErrorCount, 0)
	atomic.StoreInt64(&m.CacheHits, 0)
	atomic.StoreInt64(&m.CacheMisses, 0)
	atomic.StoreInt64(&m.Analyses, 0)
	atomic.StoreInt64(&m.FakeVerdicts, 0)
	atomic.StoreInt64(&m.AutoPublish, 0)

	m.responseTimesMutex.Lock()
	m.responseTimes = m.responseTimes[:0]
	m.responseTimesMutex.Unlock()

	m.statusMutex.Lock()
	m.requestCountByStatus = make(map[int]int64)
	m.statusMutex.Unlock()

	m.modelsMutex.Lock()
	m.models = make(map[string]*modelCounters)
	m.modelsMutex.Unlock()

	m.StartTime = time.Now()
}

func percentileOf(samples []float64, percentile float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	p, err := stats.Percentile(samples, percentile)
	if err != nil {
		return 0
	}
	return p
}

func appendSample(samples []float64, v float64) []float64 {
	samples = append(samples, v)
	if len(samples) > maxSamples {
		samples = samples[1:]
	}
	return samples
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
