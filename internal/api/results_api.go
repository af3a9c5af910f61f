// Package api serves stored audit artifacts over HTTP.
package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pipeops/ruleaudit/internal/storage"
)

// ResultsAPI exposes the artifacts a finished audit produced. The score
// endpoint prefers the redis cache and falls back to storage, preferring the
// post-suggestion score when one exists.
type ResultsAPI struct {
	store *storage.Manager
	cache *ScoreCache
}

// RegisterResultRoutes mounts the results API and the prometheus endpoint.
// cache may be nil; every score request then reads storage.
func RegisterResultRoutes(router *gin.Engine, store *storage.Manager, cache *ScoreCache) *ResultsAPI {
	api := &ResultsAPI{store: store, cache: cache}
	router.GET("/v1/rules/:ruleID/metrics", api.GetMetrics)
	router.GET("/v1/rules/:ruleID/statistics", api.GetStatistics)
	router.GET("/v1/rules/:ruleID/suggestions", api.GetSuggestions)
	router.GET("/v1/rules/:ruleID/score", api.GetScore)
	router.GET("/v1/artifacts", api.ListArtifacts)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	return api
}

func errorBody(code, message string) gin.H {
	return gin.H{"error": gin.H{"code": code, "message": message}}
}

func ruleIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("ruleID"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, errorBody("INVALID_PARAMETER", "invalid ruleID"))
		return 0, false
	}
	return id, true
}

func (api *ResultsAPI) respond(c *gin.Context, artifact any, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		c.JSON(http.StatusNotFound, errorBody("NOT_FOUND", "artifact not found"))
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorBody("INTERNAL_ERROR", err.Error()))
		return
	}
	c.JSON(http.StatusOK, artifact)
}

// GetMetrics serves a scoring run; ?phase=after selects the post-suggestion
// run, anything else the original one.
func (api *ResultsAPI) GetMetrics(c *gin.Context) {
	id, ok := ruleIDParam(c)
	if !ok {
		return
	}
	after := c.Query("phase") == "after"
	metrics, err := api.store.GetMetrics(c.Request.Context(), id, after)
	api.respond(c, metrics, err)
}

func (api *ResultsAPI) GetStatistics(c *gin.Context) {
	id, ok := ruleIDParam(c)
	if !ok {
		return
	}
	res, err := api.store.GetStatistics(c.Request.Context(), id)
	api.respond(c, res, err)
}

func (api *ResultsAPI) GetSuggestions(c *gin.Context) {
	id, ok := ruleIDParam(c)
	if !ok {
		return
	}
	s, err := api.store.GetSuggestions(c.Request.Context(), id)
	api.respond(c, s, err)
}

func (api *ResultsAPI) GetScore(c *gin.Context) {
	id, ok := ruleIDParam(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	if api.cache != nil {
		if score, ok := api.cache.Get(ctx, id); ok {
			c.JSON(http.StatusOK, score)
			return
		}
	}

	phase := "after"
	metrics, err := api.store.GetMetrics(ctx, id, true)
	if errors.Is(err, storage.ErrNotFound) {
		phase = "before"
		metrics, err = api.store.GetMetrics(ctx, id, false)
	}
	if errors.Is(err, storage.ErrNotFound) {
		c.JSON(http.StatusNotFound, errorBody("NOT_FOUND", "rule has no stored score"))
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorBody("INTERNAL_ERROR", err.Error()))
		return
	}

	score := CachedScore{
		RuleID:     id,
		RunID:      metrics.RunID,
		FinalScore: metrics.FinalScore,
		Phase:      phase,
		ScoredAt:   time.Now().UTC(),
	}
	if api.cache != nil {
		api.cache.Set(ctx, score)
	}
	c.JSON(http.StatusOK, score)
}

// ListArtifacts lists stored keys, optionally filtered by rule_id and type.
func (api *ResultsAPI) ListArtifacts(c *gin.Context) {
	var ruleID int64
	if raw := c.Query("rule_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			c.JSON(http.StatusBadRequest, errorBody("INVALID_PARAMETER", "invalid rule_id"))
			return
		}
		ruleID = id
	}
	keys, err := api.store.List(c.Request.Context(), ruleID, c.Query("type"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorBody("INTERNAL_ERROR", err.Error()))
		return
	}
	c.JSON(http.StatusOK, gin.H{"artifacts": keys})
}
