package main

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ZanzyTHEbar/orbis-trust/internal/bootstrap"
	"github.com/ZanzyTHEbar/orbis-trust/internal/cache"
	"github.com/ZanzyTHEbar/orbis-trust/internal/errors"
	"github.com/ZanzyTHEbar/orbis-trust/internal/resilience"
	"github.com/ZanzyTHEbar/orbis-trust/internal/types"
)

const (
	errMsgMissingContent  = "Missing 'content' field in request body"
	errMsgMissingArticles = "Missing 'articles' field in request body"
	errMsgAnalysisFailed  = "Internal server error during analysis"
)

type handlers struct {
	rt    *bootstrap.Runtime
	store cache.Store
}

// HealthResponse is the liveness payload
type HealthResponse struct {
	Status        string `json:"status" example:"healthy"`
	ModelsLoaded  int    `json:"models_loaded" example:"5"`
	BertAvailable bool   `json:"bert_available"`
	Device        string `json:"device" example:"cpu"`
}

// health godoc
// @Summary      Service health
// @Description  Reports the number of active models, transformer availability and inference device
// @Tags         health
// @Produce      json
// @Success      200  {object}  HealthResponse
// @Router       /health [get]
func (h *handlers) health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:        "healthy",
		ModelsLoaded:  h.rt.Analyzer.ModelsLoaded(),
		BertAvailable: h.rt.TransformerAvailable,
		Device:        h.rt.Device,
	})
}

// modelHealth godoc
// @Summary      Per-model health
// @Description  Error rates, degradation level and circuit breaker state for every ensemble member
// @Tags         health
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /health/models [get]
func (h *handlers) modelHealth(c *gin.Context) {
	models := h.rt.Health.GetAllModelHealth()

	status := "healthy"
	for _, m := range models {
		if m.Level >= resilience.LevelCritical {
			status = "degraded"
			break
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    status,
		"models":    models,
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// metrics godoc
// @Summary      Service metrics
// @Tags         monitoring
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /metrics [get]
func (h *handlers) metrics(c *gin.Context) {
	stats := h.rt.Metrics.GetStats()
	if h.store != nil {
		stats["cache"] = h.store.Stats()
	}
	c.JSON(http.StatusOK, stats)
}

// analyze godoc
// @Summary      Analyze one article
// @Description  Runs every ensemble model on the article and returns the consensus verdict and trust score
// @Tags         analysis
// @Accept       json
// @Produce      json
// @Param        request  body      types.AnalyzeRequest  true  "Article"
// @Success      200      {object}  types.AnalysisResult
// @Failure      400      {object}  map[string]string
// @Failure      500      {object}  map[string]string
// @Router       /analyze [post]
func (h *handlers) analyze(c *gin.Context) {
	var req types.AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil || !req.HasContent() {
		abortWithValidation(c, errMsgMissingContent, err)
		return
	}

	content, err := req.Text()
	if err != nil {
		abortWithValidation(c, types.ErrMsgContentNotAString, err)
		return
	}
	start := time.Now()

	result, err := h.rt.Analyzer.Analyze(c.Request.Context(), content)
	if err != nil {
		appErr := errors.ToAppError(err)
		if !errors.IsValidation(err) {
			appErr = errors.NewInternalError(errMsgAnalysisFailed, err)
		}
		errors.LogError(c, appErr)
		c.JSON(appErr.HTTPStatus, appErr.Response())
		return
	}

	h.rt.Logger.AnalysisLogger(len(content), result, time.Since(start))
	cache.MarkCacheable(c, result.TotalModels == h.rt.Analyzer.ModelsLoaded())
	c.JSON(http.StatusOK, result)
}

// batchAnalyze godoc
// @Summary      Analyze a batch of articles
// @Description  Each article yields exactly one entry, in input order; failures are reported per entry
// @Tags         analysis
// @Accept       json
// @Produce      json
// @Param        request  body      types.BatchRequest  true  "Articles"
// @Success      200      {object}  types.BatchResult
// @Failure      400      {object}  map[string]string
// @Failure      500      {object}  map[string]string
// @Router       /batch-analyze [post]
func (h *handlers) batchAnalyze(c *gin.Context) {
	var req types.BatchRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Articles == nil {
		abortWithValidation(c, errMsgMissingArticles, err)
		return
	}

	start := time.Now()
	batch := h.rt.Analyzer.AnalyzeBatch(c.Request.Context(), *req.Articles)

	h.rt.Logger.BatchLogger(batch, time.Since(start))
	c.JSON(http.StatusOK, batch)
}

// abortWithValidation renders a 400; a bind error, when present, is logged as detail only
func abortWithValidation(c *gin.Context, message string, cause error) {
	appErr := errors.NewValidationError(message)
	if cause != nil {
		appErr = errors.NewValidationError(message, cause)
	}
	errors.LogError(c, appErr)
	c.JSON(appErr.HTTPStatus, appErr.Response())
}
