package monitoring

import (
	"context"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strconv"
	"time"

	"github.com/ZanzyTHEbar/orbis-trust/internal/types"
)

// Logger provides structured logging with domain helpers
type Logger struct {
	*slog.Logger
}

// NewLogger creates a JSON logger writing to stdout
func NewLogger(level slog.Level) *Logger {
	return NewLoggerTo(os.Stdout, level)
}

// NewLoggerTo creates a JSON logger writing to w
func NewLoggerTo(w io.Writer, level slog.Level) *Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey && len(groups) == 0 {
				return slog.Attr{
					Key:   "timestamp",
					Value: slog.StringValue(a.Value.Time().Format(time.RFC3339)),
				}
			}
			return a
		},
	})

	return &Logger{
		Logger: slog.New(handler),
	}
}

// RequestLogger logs HTTP request details
func (l *Logger) RequestLogger(requestID, method, path, ip string, statusCode int, duration time.Duration) {
	l.Info("HTTP Request",
		"request_id", requestID,
		"method", method,
		"path", path,
		"ip", ip,
		"status_code", statusCode,
		"duration_ms", duration.Milliseconds(),
	)
}

// AnalysisLogger logs a finished ensemble analysis. Article text is never logged.
func (l *Logger) AnalysisLogger(contentLength int, result types.AnalysisResult, duration time.Duration) {
	l.Info("Analysis Completed",
		"content_length", contentLength,
		"trust_score", result.TrustScore,
		"consensus", string(result.Consensus),
		"total_models", result.TotalModels,
		"auto_publish", result.AutoPublish,
		"duration_ms", duration.Milliseconds(),
	)
}

// BatchLogger logs a finished batch
func (l *Logger) BatchLogger(batch types.BatchResult, duration time.Duration) {
	failed := 0
	for _, entry := range batch.Results {
		if entry.IsError() {
			failed++
		}
	}

	l.Info("Batch Completed",
		"total", batch.Total,
		"processed", batch.Processed,
		"failed", failed,
		"duration_ms", duration.Milliseconds(),
	)
}

// PredictionLogger logs one model invocation; failures are warnings since the ensemble carries on without them
func (l *Logger) PredictionLogger(model string, kind types.ModelKind, duration time.Duration, err error) {
	if err != nil {
		l.Warn("Model prediction failed",
			"model", model,
			"kind", kind.String(),
			"duration_ms", duration.Milliseconds(),
			"error", err.Error(),
		)
		return
	}

	l.Debug("Model prediction",
		"model", model,
		"kind", kind.String(),
		"duration_ms", duration.Milliseconds(),
	)
}

// APIErrorLogger logs API errors with context
func (l *Logger) APIErrorLogger(err error, method, path, ip string, statusCode int) {
	_, file, line, ok := runtime.Caller(2)
	caller := "unknown"
	if ok {
		caller = file + ":" + strconv.Itoa(line)
	}

	l.Error("API Error",
		"error", err.Error(),
		"method", method,
		"path", path,
		"ip", ip,
		"status_code", statusCode,
		"caller", caller,
	)
}

// CacheLogger logs cache operations
func (l *Logger) CacheLogger(operation, key string, hit bool) {
	if len(key) > 8 {
		key = key[:8] + "..."
	}
	l.Debug("Cache Operation",
		"operation", operation,
		"key_hash", key,
		"hit", hit,
	)
}

// SystemLogger logs system-level events
func (l *Logger) SystemLogger(event, details string) {
	l.Info("System Event",
		"event", event,
		"details", details,
		"uptime", time.Since(startTime).String(),
	)
}

// PerformanceLogger logs performance metrics
func (l *Logger) PerformanceLogger(metric string, value float64, unit string) {
	l.Log(context.Background(), slog.LevelWarn, "Performance Metric",
		"metric", metric,
		"value", value,
		"unit", unit,
	)
}

var startTime = time.Now()

// Observe logs each model invocation as the ensemble reports it
func (l *Logger) Observe(model string, kind types.ModelKind, duration time.Duration, err error) {
	l.PredictionLogger(model, kind, duration, err)
}
