package config

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/rs/zerolog/log"
)

type Config struct {
	Server    ServerConfig    `json:"server"`
	Database  DatabaseConfig  `json:"database"`
	Logging   LoggingConfig   `json:"logging"`
	Redis     RedisConfig     `json:"redis"`
	Audit     AuditConfig     `json:"audit"`
	Collector CollectorConfig `json:"collector"`
	Registry  RegistryConfig  `json:"registry"`
}

type ServerConfig struct {
	BindAddr string `json:"bindAddr"`
}

type DatabaseConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"dbname"`
	SSLMode  string `json:"sslmode"`
}

// DSN renders the config as a key/value postgres connection string.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

type LoggingConfig struct {
	Level string `json:"level"`
}

type RedisConfig struct {
	Addr     string `json:"addr"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

type AuditConfig struct {
	// StoragePath is the artifact directory for the file backend; Backend
	// selects "file" or "postgres".
	StoragePath string `json:"storagePath"`
	Backend     string `json:"backend"`

	Step        string `json:"step"` // simulation step, e.g. "30m"
	Workers     int    `json:"workers"`
	SummaryFile string `json:"summaryFile"`
	ScoreTTL    string `json:"scoreTTL"` // redis score cache TTL
}

type CollectorConfig struct {
	Workers       int    `json:"workers"`
	SearchLimit   int    `json:"searchLimit"`
	ThrottleRetry string `json:"throttleRetry"` // e.g. "10s"
	CacheTTL      string `json:"cacheTTL"`
	EventDump     string `json:"eventDump"` // NDJSON file backing local runs
}

// RegistryConfig points at the rule registry the auditor pulls rules from.
type RegistryConfig struct {
	BindAddr  string `json:"bindAddr"` // ruleserver listen address
	RulesFile string `json:"rulesFile"`
	UseDB     bool   `json:"useDB"`
}

func Load() (*Config, error) {
	configFile := flag.String("f", "", "Path to configuration file")
	flag.Parse()
	return LoadFile(*configFile)
}

// LoadFile builds the config from environment defaults, then overlays the
// optional JSON file.
func LoadFile(configFile string) (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			BindAddr: getEnv("SERVER_BIND_ADDR", "0.0.0.0:8080"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "admin"),
			Password: getEnv("DB_PASSWORD", "password"),
			DBName:   getEnv("DB_NAME", "ruleaudit"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "debug"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Audit: AuditConfig{
			StoragePath: getEnv("AUDIT_STORAGE_PATH", "./audit-results"),
			Backend:     getEnv("AUDIT_STORAGE_BACKEND", "file"),
			Step:        getEnv("AUDIT_STEP", "30m"),
			Workers:     getEnvInt("AUDIT_WORKERS", 4),
			SummaryFile: getEnv("AUDIT_SUMMARY_FILE", "audit-summary.txt"),
			ScoreTTL:    getEnv("AUDIT_SCORE_TTL", "24h"),
		},
		Collector: CollectorConfig{
			Workers:       getEnvInt("COLLECTOR_WORKERS", 8),
			SearchLimit:   getEnvInt("COLLECTOR_SEARCH_LIMIT", 800),
			ThrottleRetry: getEnv("COLLECTOR_THROTTLE_RETRY", "10s"),
			CacheTTL:      getEnv("COLLECTOR_CACHE_TTL", "6h"),
			EventDump:     getEnv("COLLECTOR_EVENT_DUMP", ""),
		},
		Registry: RegistryConfig{
			BindAddr:  getEnv("REGISTRY_BIND_ADDR", "0.0.0.0:8090"),
			RulesFile: getEnv("REGISTRY_RULES_FILE", ""),
			UseDB:     getEnv("REGISTRY_USE_DB", "") == "true",
		},
	}

	if configFile != "" {
		if err := loadFromFile(cfg, configFile); err != nil {
			log.Err(err)
			return nil, err
		}
	}

	// fill reasonable defaults when fields omitted in file
	if cfg.Server.BindAddr == "" {
		cfg.Server.BindAddr = "0.0.0.0:8080"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "debug"
	}
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = "localhost:6379"
	}
	if cfg.Audit.StoragePath == "" {
		cfg.Audit.StoragePath = "./audit-results"
	}
	if cfg.Audit.Backend == "" {
		cfg.Audit.Backend = "file"
	}
	if cfg.Audit.Step == "" {
		cfg.Audit.Step = "30m"
	}
	if cfg.Audit.Workers == 0 {
		cfg.Audit.Workers = 4
	}
	if cfg.Audit.SummaryFile == "" {
		cfg.Audit.SummaryFile = "audit-summary.txt"
	}
	if cfg.Collector.Workers == 0 {
		cfg.Collector.Workers = 8
	}
	if cfg.Collector.SearchLimit == 0 {
		cfg.Collector.SearchLimit = 800
	}
	if cfg.Collector.ThrottleRetry == "" {
		cfg.Collector.ThrottleRetry = "10s"
	}
	if cfg.Registry.BindAddr == "" {
		cfg.Registry.BindAddr = "0.0.0.0:8090"
	}

	return cfg, nil
}

func loadFromFile(cfg *Config, filePath string) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", filePath, err)
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", filePath, err)
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
