// @title           Orbis Trust API
// @version         1.0
// @description     Ensemble fake news detection and trust scoring for news articles.
// @BasePath        /
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/ZanzyTHEbar/orbis-trust/docs"
	"github.com/ZanzyTHEbar/orbis-trust/internal/bootstrap"
	"github.com/ZanzyTHEbar/orbis-trust/internal/cache"
	"github.com/ZanzyTHEbar/orbis-trust/internal/config"
	"github.com/ZanzyTHEbar/orbis-trust/internal/errors"
	"github.com/ZanzyTHEbar/orbis-trust/internal/monitoring"
	"github.com/ZanzyTHEbar/orbis-trust/internal/security"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Structured logging setup
	logger := monitoring.NewLogger(cfg.LogLevel)
	slog.SetDefault(logger.Logger)
	gin.SetMode(cfg.GinMode)

	rt, err := bootstrap.Build(context.Background(), cfg, logger)
	if err != nil {
		slog.Error("Failed to load model ensemble", "error", err)
		os.Exit(1)
	}

	var store cache.Store
	if cfg.CacheTTL > 0 {
		store = cache.New(cfg.CacheTTL, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	}

	// Background model health probes
	healthCtx, stopHealthChecks := context.WithCancel(context.Background())
	go rt.Health.StartHealthChecks(healthCtx)

	r := newRouter(rt, store)

	// Start server with graceful shutdown
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		slog.Info("Starting server",
			"port", cfg.Port,
			"models_loaded", rt.Analyzer.ModelsLoaded(),
			"bert_available", rt.TransformerAvailable,
			"device", rt.Device)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	stopHealthChecks()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}

	if store != nil {
		errors.SafeClose(store, "response cache")
	}
	errors.SafeClose(rt, "model runtime")

	slog.Info("Server exited")
}

// newRouter wires middleware and routes around a built runtime. store may be nil.
func newRouter(rt *bootstrap.Runtime, store cache.Store) *gin.Engine {
	r := gin.New()

	// Add monitoring middleware first (to capture all requests)
	r.Use(monitoring.RequestIDMiddleware())
	r.Use(monitoring.MonitoringMiddleware(rt.Metrics, rt.Logger))

	// Add error handling middleware
	r.Use(errors.ErrorHandler())
	r.Use(errors.RecoveryHandler())

	r.Use(cors.New(corsConfig(rt.Config.AllowedOrigins)))

	securityMiddleware := security.NewSecurityMiddleware(security.SecurityConfig{
		MaxBodyBytes:   rt.Config.MaxBodyBytes,
		RequestTimeout: rt.Config.RequestTimeout,
		EnableHSTS:     rt.Config.EnableHSTS,
	})
	r.Use(securityMiddleware.SecurityHeaders)
	r.Use(securityMiddleware.ValidateContentType)
	r.Use(securityMiddleware.LimitBody)
	r.Use(securityMiddleware.RequestTimeout)

	if store != nil {
		r.Use(cache.Middleware(store, rt.Metrics, rt.Logger))
	}

	h := &handlers{rt: rt, store: store}

	r.GET("/health", h.health)
	r.GET("/health/models", h.modelHealth)
	r.GET("/metrics", h.metrics)
	r.POST("/analyze", h.analyze)
	r.POST("/batch-analyze", h.batchAnalyze)

	// Swagger documentation routes
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	cfg.AllowMethods = []string{http.MethodGet, http.MethodPost, http.MethodOptions}
	cfg.AllowHeaders = []string{"Origin", "Content-Type", "Accept", monitoring.RequestIDHeader}
	cfg.ExposeHeaders = []string{monitoring.RequestIDHeader, cache.CacheHeader}

	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
		return cfg
	}
	for _, origin := range origins {
		if origin == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	cfg.AllowOrigins = origins
	return cfg
}
