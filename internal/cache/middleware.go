package cache

import (
	"bytes"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ZanzyTHEbar/orbis-trust/internal/monitoring"
)

// CacheHeader reports whether a response came from the cache
const CacheHeader = "X-Cache"

const cacheableKey = "cache.cacheable"

// MarkCacheable tells the middleware whether the response being written may
// be stored. Unmarked responses are never cached.
func MarkCacheable(ctx *gin.Context, ok bool) {
	ctx.Set(cacheableKey, ok)
}

// Middleware caches POST /analyze responses keyed by request body. Only 200
// responses the handler marked cacheable are stored, so a verdict from a
// partially failed ensemble is recomputed on the next request.
func Middleware(store Store, metrics *monitoring.Metrics, logger *monitoring.Logger) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if ctx.Request.Method != http.MethodPost || ctx.Request.URL.Path != "/analyze" {
			ctx.Next()
			return
		}

		body, err := io.ReadAll(ctx.Request.Body)
		if err != nil {
			ctx.Next()
			return
		}
		ctx.Request.Body = io.NopCloser(bytes.NewReader(body))

		key := KeyFor(body)

		cached, found, err := store.Get(ctx.Request.Context(), key)
		if err != nil {
			logger.Warn("Cache read failed", "error", err)
		}
		if found {
			logger.CacheLogger("get", key, true)
			metrics.IncrementCacheHit()
			ctx.Header(CacheHeader, "HIT")
			ctx.Data(http.StatusOK, "application/json; charset=utf-8", cached)
			ctx.Abort()
			return
		}

		logger.CacheLogger("get", key, false)
		metrics.IncrementCacheMiss()
		ctx.Header(CacheHeader, "MISS")

		wrapper := &responseWriter{ResponseWriter: ctx.Writer, body: &bytes.Buffer{}}
		ctx.Writer = wrapper
		ctx.Next()

		if wrapper.Status() == http.StatusOK && ctx.GetBool(cacheableKey) {
			if err := store.Set(ctx.Request.Context(), key, wrapper.body.Bytes()); err != nil {
				logger.Warn("Cache write failed", "error", err)
				return
			}
			logger.CacheLogger("set", key, false)
		}
	}
}

// responseWriter wraps gin.ResponseWriter to capture response body
type responseWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *responseWriter) Write(data []byte) (int, error) {
	w.body.Write(data)
	return w.ResponseWriter.Write(data)
}

func (w *responseWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}
