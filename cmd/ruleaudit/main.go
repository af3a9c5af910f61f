package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/pipeops/ruleaudit/internal/api"
	"github.com/pipeops/ruleaudit/internal/config"
	"github.com/pipeops/ruleaudit/internal/event"
	"github.com/pipeops/ruleaudit/internal/registry"
	"github.com/pipeops/ruleaudit/internal/rule"
	"github.com/pipeops/ruleaudit/internal/storage"
	"github.com/pipeops/ruleaudit/internal/workflow"
)

func main() {
	var (
		cfgFile     = flag.String("f", "", "Path to configuration file")
		serve       = flag.Bool("serve", false, "Serve stored audit results instead of auditing")
		parallel    = flag.Bool("parallel", false, "Audit all rules across a worker pool with a summary file")
		ruleID      = flag.Int64("rule-id", 0, "Single rule ID to audit")
		ruleIDs     = flag.String("rule-ids", "", "Comma-separated rule IDs to audit")
		startDate   = flag.String("start-date", "", "Start date (YYYYMMDD), default 300 days ago")
		endDate     = flag.String("end-date", "", "End date (YYYYMMDD), default today")
		stepName    = flag.String("step", "scorev2", "Pipeline depth: collector, scorev1, builder, statistic, suggestion, scorev2")
		timezone    = flag.String("tz", "", "Pin analysis to one IANA timezone")
		registryURL = flag.String("registry", "", "Rule registry base URL; overrides the rules file")
		holidayFile = flag.String("holidays", "", "Tab-separated holiday calendar file")
		withRedis   = flag.Bool("with-redis", false, "Enable redis event cache, collect throttle and score cache")
	)
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	cfg, err := config.LoadFile(*cfgFile)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	setLogLevel(cfg.Logging.Level)

	ctx := context.Background()

	var rdb *redis.Client
	if *withRedis {
		rdb = redis.NewClient(&redis.Options{
			Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB,
		})
	}

	store, err := buildStorage(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize storage")
	}

	if *serve {
		runServer(cfg, store, rdb)
		return
	}

	holidays, err := loadHolidays(*holidayFile)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load holiday calendar")
	}

	rules, err := fetchRules(ctx, cfg, *registryURL, *ruleID, *ruleIDs)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to fetch rules")
	}
	if len(rules) == 0 {
		log.Fatal().Msg("no rules to audit")
	}
	log.Info().Int("rules", len(rules)).Msg("rules fetched")

	collector, err := buildCollector(cfg, rdb)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize collector")
	}

	pipeline := &workflow.Pipeline{
		Collector: collector,
		Holidays:  holidays,
		Storage:   store,
		Step:      parseDuration(cfg.Audit.Step, 30*time.Minute),
		Timezone:  *timezone,
	}

	start, end, err := parseDateRange(*startDate, *endDate)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid date range")
	}

	if *parallel {
		runner := &workflow.Runner{
			Pipeline:    pipeline,
			Workers:     cfg.Audit.Workers,
			SummaryPath: cfg.Audit.SummaryFile,
		}
		n, err := runner.Run(ctx, rules, start, end)
		if err != nil {
			log.Fatal().Err(err).Msg("parallel audit failed")
		}
		log.Info().Int("rules", n).Str("summary", cfg.Audit.SummaryFile).Msg("parallel audit finished")
		return
	}

	target, err := workflow.ParseStep(*stepName)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid step")
	}
	for _, r := range rules {
		res, err := pipeline.Run(ctx, r, start, end, target)
		if err != nil {
			log.Error().Err(err).Int64("rule_id", r.ID).Msg("rule audit failed")
			continue
		}
		ev := log.Info().Int64("rule_id", r.ID).Int("events", len(res.Events)).
			Dur("elapsed", res.Elapsed)
		if res.Before != nil {
			ev = ev.Float64("score_before", res.Before.FinalScore)
		}
		if res.After != nil {
			ev = ev.Float64("score_after", res.After.FinalScore)
		}
		if delta, ok := res.Improvement(); ok {
			ev = ev.Float64("improvement", delta)
		}
		ev.Msg("rule audited")
	}
}

func runServer(cfg *config.Config, store *storage.Manager, rdb *redis.Client) {
	var cache *api.ScoreCache
	if rdb != nil {
		cache = api.NewScoreCache(rdb, parseDuration(cfg.Audit.ScoreTTL, 24*time.Hour))
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	api.RegisterResultRoutes(router, store, cache)

	log.Info().Msgf("Starting audit results server on %s", cfg.Server.BindAddr)
	if err := router.Run(cfg.Server.BindAddr); err != nil {
		log.Fatal().Err(err).Msg("start audit results server failed")
	}
}

func buildStorage(ctx context.Context, cfg *config.Config) (*storage.Manager, error) {
	if cfg.Audit.Backend == "postgres" {
		pool, err := pgxpool.New(ctx, cfg.Database.DSN())
		if err != nil {
			return nil, fmt.Errorf("open artifact database: %w", err)
		}
		backend := storage.NewPgBackend(pool)
		if err := backend.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		return storage.NewManager(backend), nil
	}
	backend, err := storage.NewFileBackend(cfg.Audit.StoragePath)
	if err != nil {
		return nil, err
	}
	return storage.NewManager(backend), nil
}

func buildCollector(cfg *config.Config, rdb *redis.Client) (*event.Collector, error) {
	if cfg.Collector.EventDump == "" {
		return nil, fmt.Errorf("no event source configured, set COLLECTOR_EVENT_DUMP")
	}
	source, err := event.LoadNDJSON(cfg.Collector.EventDump)
	if err != nil {
		return nil, err
	}

	opts := []event.CollectorOption{event.WithWorkers(cfg.Collector.Workers)}
	if rdb != nil {
		retry := parseDuration(cfg.Collector.ThrottleRetry, 10*time.Second)
		opts = append(opts,
			event.WithThrottle(event.NewRedisThrottle(rdb, "", int64(cfg.Collector.SearchLimit), retry)),
			event.WithCache(event.NewRedisCache(rdb, parseDuration(cfg.Collector.CacheTTL, 6*time.Hour))),
		)
	}
	return event.NewCollector(source, opts...), nil
}

func fetchRules(ctx context.Context, cfg *config.Config, registryURL string, ruleID int64, ruleIDs string) ([]*rule.Rule, error) {
	wanted, err := parseRuleIDs(ruleID, ruleIDs)
	if err != nil {
		return nil, err
	}

	if registryURL != "" {
		client := registry.NewClient(registryURL, 10*time.Second)
		if len(wanted) > 0 {
			rules := make([]*rule.Rule, 0, len(wanted))
			for _, id := range wanted {
				r, err := client.GetRule(ctx, id)
				if err != nil {
					return nil, err
				}
				rules = append(rules, r)
			}
			return rules, nil
		}
		return activeOnly(client.ListRules(ctx))
	}

	if cfg.Registry.RulesFile == "" {
		return nil, fmt.Errorf("no rule source configured, set REGISTRY_RULES_FILE or -registry")
	}
	rules, err := rule.LoadRulesFile(cfg.Registry.RulesFile)
	if err != nil {
		return nil, err
	}
	if len(wanted) == 0 {
		return activeOnly(rules, nil)
	}
	byID := make(map[int64]*rule.Rule, len(rules))
	for _, r := range rules {
		byID[r.ID] = r
	}
	out := make([]*rule.Rule, 0, len(wanted))
	for _, id := range wanted {
		r, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("rule %d not found in rules file", id)
		}
		out = append(out, r)
	}
	return out, nil
}

func activeOnly(rules []*rule.Rule, err error) ([]*rule.Rule, error) {
	if err != nil {
		return nil, err
	}
	out := rules[:0]
	for _, r := range rules {
		if r.Status {
			out = append(out, r)
		}
	}
	return out, nil
}

func parseRuleIDs(single int64, csv string) ([]int64, error) {
	var ids []int64
	if single > 0 {
		ids = append(ids, single)
	}
	for _, part := range strings.Split(csv, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid rule id %q", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func parseDateRange(startStr, endStr string) (time.Time, time.Time, error) {
	end := time.Now().UTC().Truncate(24 * time.Hour)
	start := end.AddDate(0, 0, -300)
	var err error
	if startStr != "" {
		start, err = time.Parse("20060102", startStr)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid start date %q", startStr)
		}
	}
	if endStr != "" {
		end, err = time.Parse("20060102", endStr)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid end date %q", endStr)
		}
	}
	if !start.Before(end) {
		return time.Time{}, time.Time{}, fmt.Errorf("start date must precede end date")
	}
	return start, end, nil
}

func loadHolidays(path string) (*rule.HolidayTable, error) {
	if path == "" {
		return rule.NewHolidayTable(), nil
	}
	return rule.LoadHolidayFile(path)
}

func parseDuration(s string, d time.Duration) time.Duration {
	if s == "" {
		return d
	}
	if v, err := time.ParseDuration(s); err == nil {
		return v
	}
	return d
}

func setLogLevel(level string) {
	switch strings.ToLower(level) {
	case "trace":
		zerolog.SetGlobalLevel(zerolog.TraceLevel)
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn", "warning":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
}
