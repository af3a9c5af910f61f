package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// CachedScore is the latest-score record served without touching storage.
type CachedScore struct {
	RuleID     int64     `json:"rule_id"`
	RunID      string    `json:"run_id"`
	FinalScore float64   `json:"final_score"`
	Phase      string    `json:"phase"` // before or after
	ScoredAt   time.Time `json:"scored_at"`
}

// ScoreCache keeps the latest reliability score per rule in redis.
type ScoreCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewScoreCache(client *redis.Client, ttl time.Duration) *ScoreCache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &ScoreCache{client: client, ttl: ttl}
}

func scoreKey(ruleID int64) string {
	return fmt.Sprintf("ruleaudit:score:%d", ruleID)
}

func (c *ScoreCache) Get(ctx context.Context, ruleID int64) (*CachedScore, bool) {
	raw, err := c.client.Get(ctx, scoreKey(ruleID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		log.Error().Err(err).Int64("rule_id", ruleID).Msg("score cache read")
		return nil, false
	}
	var score CachedScore
	if err := json.Unmarshal(raw, &score); err != nil {
		log.Error().Err(err).Int64("rule_id", ruleID).Msg("score cache decode")
		return nil, false
	}
	return &score, true
}

func (c *ScoreCache) Set(ctx context.Context, score CachedScore) {
	raw, err := json.Marshal(score)
	if err != nil {
		log.Error().Err(err).Int64("rule_id", score.RuleID).Msg("score cache encode")
		return
	}
	if err := c.client.Set(ctx, scoreKey(score.RuleID), raw, c.ttl).Err(); err != nil {
		log.Error().Err(err).Int64("rule_id", score.RuleID).Msg("score cache write")
	}
}
