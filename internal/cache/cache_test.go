package cache

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZanzyTHEbar/orbis-trust/internal/monitoring"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestMemoryStore_GetSet(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	defer store.Close()
	ctx := context.Background()

	_, found, err := store.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, store.Set(ctx, "k", []byte("v")))
	data, found, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte("v"), data)
	assert.Equal(t, 1, store.Size())
}

func TestMemoryStore_Expiry(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	defer store.Close()
	ctx := context.Background()

	now := time.Now()
	store.now = func() time.Time { return now }
	require.NoError(t, store.Set(ctx, "k", []byte("v")))

	store.now = func() time.Time { return now.Add(2 * time.Minute) }
	assert.Equal(t, 1, store.Stats()["expired_items"])

	_, found, _ := store.Get(ctx, "k")
	assert.False(t, found)
	assert.Equal(t, 0, store.Size())

	require.NoError(t, store.Set(ctx, "other", []byte("v")))
	store.now = func() time.Time { return now.Add(10 * time.Minute) }
	store.evictExpired()
	assert.Equal(t, 0, store.Size())
}

func TestMemoryStore_CloseIsIdempotent(t *testing.T) {
	store := NewMemoryStore(time.Millisecond)
	assert.NoError(t, store.Close())
	assert.NoError(t, store.Close())
}

func TestKeyFor(t *testing.T) {
	a := KeyFor([]byte(`{"content":"a"}`))
	assert.Len(t, a, 64)
	assert.Equal(t, a, KeyFor([]byte(`{"content":"a"}`)))
	assert.NotEqual(t, a, KeyFor([]byte(`{"content":"b"}`)))
}

func TestNew_FallsBackToMemory(t *testing.T) {
	store := New(time.Minute, "", "", 0)
	defer store.Close()
	_, ok := store.(*MemoryStore)
	assert.True(t, ok)

	unreachable := New(time.Minute, "127.0.0.1:1", "", 0)
	defer unreachable.Close()
	_, ok = unreachable.(*MemoryStore)
	assert.True(t, ok)
}

func TestNewRedisStore_RequiresAddr(t *testing.T) {
	_, err := NewRedisStore("", "", 0, time.Minute)
	assert.Error(t, err)
}

func TestMiddleware(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	defer store.Close()
	metrics := monitoring.NewMetrics()
	logger := monitoring.NewLoggerTo(io.Discard, slog.LevelInfo)

	calls := 0
	r := gin.New()
	r.Use(Middleware(store, metrics, logger))
	r.POST("/analyze", func(c *gin.Context) {
		calls++
		body, _ := io.ReadAll(c.Request.Body)
		if strings.Contains(string(body), "bad") {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Article content cannot be empty"})
			return
		}
		MarkCacheable(c, !strings.Contains(string(body), "partial"))
		c.JSON(http.StatusOK, gin.H{"trustScore": 88})
	})
	r.POST("/batch-analyze", func(c *gin.Context) {
		calls++
		c.JSON(http.StatusOK, gin.H{"total": 0})
	})

	send := func(path, body string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, path, strings.NewReader(body)))
		return w
	}

	first := send("/analyze", `{"content":"same"}`)
	assert.Equal(t, "MISS", first.Header().Get(CacheHeader))
	second := send("/analyze", `{"content":"same"}`)
	assert.Equal(t, "HIT", second.Header().Get(CacheHeader))
	assert.JSONEq(t, first.Body.String(), second.Body.String())
	assert.Equal(t, 1, calls)

	send("/analyze", `{"content":"bad"}`)
	send("/analyze", `{"content":"bad"}`)
	assert.Equal(t, 3, calls, "errors are not cached")

	send("/analyze", `{"content":"partial"}`)
	again := send("/analyze", `{"content":"partial"}`)
	assert.Equal(t, "MISS", again.Header().Get(CacheHeader))
	assert.Equal(t, 5, calls, "unmarked responses are not cached")

	send("/batch-analyze", `{}`)
	send("/batch-analyze", `{}`)
	assert.Equal(t, 7, calls, "only /analyze is cached")

	assert.Equal(t, int64(1), metrics.CacheHits)
	assert.Equal(t, int64(5), metrics.CacheMisses)
}
