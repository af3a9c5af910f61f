package registry

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/fox-gonic/fox"
	"github.com/rs/zerolog/log"

	"github.com/pipeops/ruleaudit/internal/rule"
)

const yamlContentType = "application/x-yaml"

// Api serves the rule corpus in the rules-file YAML wire shape.
type Api struct {
	store Store
}

func NewApi(router *fox.Engine, store Store) *Api {
	api := &Api{store: store}
	router.GET("/v1/rules", api.ListRules)
	router.GET("/v1/rules/:ruleID", api.GetRule)
	router.PUT("/v1/rules", api.UpsertRules)
	router.GET("/healthz", api.Health)
	return api
}

func (api *Api) Health(c *fox.Context) {
	c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (api *Api) ListRules(c *fox.Context) {
	rules, err := api.store.ListRules(c.Request.Context())
	if err != nil {
		sendError(c, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	writeRules(c, rules)
}

func (api *Api) GetRule(c *fox.Context) {
	id, err := strconv.ParseInt(c.Param("ruleID"), 10, 64)
	if err != nil || id <= 0 {
		sendError(c, http.StatusBadRequest, "INVALID_PARAMETER", "invalid ruleID")
		return
	}
	r, err := api.store.GetRule(c.Request.Context(), id)
	if errors.Is(err, ErrRuleNotFound) {
		sendError(c, http.StatusNotFound, "NOT_FOUND", "rule not found")
		return
	}
	if err != nil {
		sendError(c, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	writeRules(c, []*rule.Rule{r})
}

// UpsertRules accepts a YAML rules document and merges it into the store.
func (api *Api) UpsertRules(c *fox.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		sendError(c, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}
	rules, err := rule.ParseRules(body)
	if err != nil {
		sendError(c, http.StatusBadRequest, "INVALID_RULES", err.Error())
		return
	}
	if err := api.store.UpsertRules(c.Request.Context(), rules); err != nil {
		sendError(c, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	log.Info().Int("rules", len(rules)).Msg("rules upserted")
	c.JSON(http.StatusOK, map[string]int{"updated": len(rules)})
}

func writeRules(c *fox.Context, rules []*rule.Rule) {
	doc, err := rule.EncodeRules(rules)
	if err != nil {
		sendError(c, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	c.Writer.Header().Set("Content-Type", yamlContentType)
	c.Writer.WriteHeader(http.StatusOK)
	if _, err := c.Writer.Write(doc); err != nil {
		log.Error().Err(err).Msg("write rules response")
	}
}

func sendError(c *fox.Context, status int, code, message string) {
	c.JSON(status, map[string]any{"error": map[string]string{"code": code, "message": message}})
}
