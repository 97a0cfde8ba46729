package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Scheduler SchedulerConfig
	Refresh   RefreshConfig
	Health    HealthConfig
}

type AppConfig struct {
	AppName     string
	Environment string
	HTTPPort    string
}

type DatabaseConfig struct {
	DBHost     string
	DBPort     string
	DBName     string
	DBUser     string
	DBPassword string
	DBSSLMode  string

	ConnectTimeout      time.Duration
	PoolMaxConns        int32
	PoolMinConns        int32
	PoolMaxConnLifetime time.Duration
	PoolMaxConnIdleTime time.Duration
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string

	DashboardTTL time.Duration
}

// SchedulerConfig carries the polling loop knobs. MaxConcurrent and
// CheckInterval may be changed at runtime through the scheduler's
// UpdateConfiguration; the rest is fixed at startup.
type SchedulerConfig struct {
	MaxConcurrent int
	CheckInterval time.Duration
	StopTimeout   time.Duration
	FetchTimeout  time.Duration

	// FailureThreshold is the consecutive-failure count at which the
	// owning feed source is deactivated.
	FailureThreshold   int
	ReliabilityPenalty float64
	ReliabilityReward  float64
}

// RefreshConfig holds the adaptive refresh multipliers and the per-tier
// interval envelopes, in minutes. The multipliers are tuning values; the
// tier envelopes are hard bounds.
type RefreshConfig struct {
	GoodHealthFactor float64
	PoorHealthFactor float64
	FreshFactor      float64
	StaleFactor      float64

	Tiers map[string]TierEnvelope
}

type TierEnvelope struct {
	BaseMinutes float64
	MaxMinutes  float64
}

type HealthConfig struct {
	WeightVolume      float64
	WeightQuality     float64
	WeightCredibility float64
	WeightTechnical   float64
	WeightRelevance   float64

	MinArticlesPerDay float64
	MaxArticlesPerDay float64
	MinUptimePercent  float64
}

var errMissingRequiredEnv = errors.New("missing required environment variables")

func Load() (Config, error) {
	cfg := Config{}

	var missing []string
	req := func(key string) string {
		v := strings.TrimSpace(os.Getenv(key))
		if v == "" {
			missing = append(missing, key)
		}
		return v
	}
	opt := func(key string) string {
		return strings.TrimSpace(os.Getenv(key))
	}

	cfg.App = AppConfig{
		AppName:     req("APP_NAME"),
		Environment: req("APP_ENV"),
		HTTPPort:    req("HTTP_PORT"),
	}

	cfg.Database = DatabaseConfig{
		DBHost:     opt("DB_HOST"),
		DBPort:     opt("DB_PORT"),
		DBName:     opt("DB_NAME"),
		DBUser:     opt("DB_USER"),
		DBPassword: opt("DB_PASSWORD"),
		DBSSLMode:  opt("DB_SSL_MODE"),

		ConnectTimeout:      envDuration("DB_CONNECT_TIMEOUT_MS", 5*time.Second),
		PoolMaxConns:        int32(envInt("DB_POOL_MAX_CONNS", 8)),
		PoolMinConns:        int32(envInt("DB_POOL_MIN_CONNS", 0)),
		PoolMaxConnLifetime: envDuration("DB_POOL_MAX_CONN_LIFETIME_MS", 30*time.Minute),
		PoolMaxConnIdleTime: envDuration("DB_POOL_MAX_CONN_IDLE_MS", 5*time.Minute),
	}

	cfg.Redis = RedisConfig{
		Host:         opt("REDIS_HOST"),
		Port:         opt("REDIS_PORT"),
		Password:     opt("REDIS_PASSWORD"),
		DashboardTTL: envDuration("DASHBOARD_CACHE_TTL_MS", 5*time.Minute),
	}

	cfg.Scheduler = SchedulerConfig{
		MaxConcurrent:      envInt("SCHEDULER_MAX_CONCURRENT", 3),
		CheckInterval:      envDuration("SCHEDULER_CHECK_INTERVAL_MS", 30*time.Second),
		StopTimeout:        envDuration("SCHEDULER_STOP_TIMEOUT_MS", 30*time.Second),
		FetchTimeout:       envDuration("FETCH_TIMEOUT_MS", 15*time.Second),
		FailureThreshold:   envInt("FAILURE_DEACTIVATE_THRESHOLD", 5),
		ReliabilityPenalty: envFloat("RELIABILITY_PENALTY", 0.10),
		ReliabilityReward:  envFloat("RELIABILITY_REWARD", 0.05),
	}

	cfg.Refresh = RefreshConfig{
		GoodHealthFactor: envFloat("REFRESH_GOOD_HEALTH_FACTOR", 0.8),
		PoorHealthFactor: envFloat("REFRESH_POOR_HEALTH_FACTOR", 1.5),
		FreshFactor:      envFloat("REFRESH_FRESH_FACTOR", 0.9),
		StaleFactor:      envFloat("REFRESH_STALE_FACTOR", 1.3),
		Tiers: map[string]TierEnvelope{
			"realtime": {BaseMinutes: envFloat("TIER_REALTIME_BASE_MIN", 5), MaxMinutes: envFloat("TIER_REALTIME_MAX_MIN", 15)},
			"frequent": {BaseMinutes: envFloat("TIER_FREQUENT_BASE_MIN", 15), MaxMinutes: envFloat("TIER_FREQUENT_MAX_MIN", 60)},
			"standard": {BaseMinutes: envFloat("TIER_STANDARD_BASE_MIN", 60), MaxMinutes: envFloat("TIER_STANDARD_MAX_MIN", 360)},
			"slow":     {BaseMinutes: envFloat("TIER_SLOW_BASE_MIN", 360), MaxMinutes: envFloat("TIER_SLOW_MAX_MIN", 1440)},
		},
	}

	cfg.Health = HealthConfig{
		WeightVolume:      envFloat("HEALTH_WEIGHT_VOLUME", 0.20),
		WeightQuality:     envFloat("HEALTH_WEIGHT_QUALITY", 0.25),
		WeightCredibility: envFloat("HEALTH_WEIGHT_CREDIBILITY", 0.20),
		WeightTechnical:   envFloat("HEALTH_WEIGHT_TECHNICAL", 0.25),
		WeightRelevance:   envFloat("HEALTH_WEIGHT_RELEVANCE", 0.10),
		MinArticlesPerDay: envFloat("HEALTH_MIN_ARTICLES_PER_DAY", 1),
		MaxArticlesPerDay: envFloat("HEALTH_MAX_ARTICLES_PER_DAY", 200),
		MinUptimePercent:  envFloat("HEALTH_MIN_UPTIME_PCT", 90),
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("%w: %s", errMissingRequiredEnv, strings.Join(missing, ", "))
	}

	return cfg, nil
}

func envInt(key string, def int) int {
	s := strings.TrimSpace(os.Getenv(key))
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return def
	}
	return v
}

func envFloat(key string, def float64) float64 {
	s := strings.TrimSpace(os.Getenv(key))
	if s == "" {
		return def
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return def
	}
	return v
}

// envDuration reads a millisecond count from the environment.
func envDuration(key string, def time.Duration) time.Duration {
	ms := envInt(key, -1)
	if ms < 0 {
		return def
	}
	return time.Duration(ms) * time.Millisecond
}
