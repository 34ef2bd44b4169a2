package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database   DatabaseConfig
	Redis      RedisConfig
	JWT        JWTConfig
	CORS       CORSConfig
	Log        LogConfig
	Assessment AssessmentConfig
	Reaper     ReaperConfig
	Events     EventsConfig
	RateLimit  RateLimitConfig
	Tracing    TracingConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// JWTConfig holds the shared secret used by the identity provider to sign reviewer tokens.
type JWTConfig struct {
	Secret string
	Issuer string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level      string
	Format     string
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// AssessmentConfig tunes the mentor test itself.
type AssessmentConfig struct {
	QuestionCount    int
	DifficultyMix    map[string]int
	TimeLimit        time.Duration
	TokenTTL         time.Duration
	PassThreshold    float64
	CooldownSchedule []time.Duration
	MaxAttempts      int
	AutoIssueToken   bool
	QuestionCacheTTL time.Duration
	TestURL          string
}

// ReaperConfig controls the background expiry sweep.
type ReaperConfig struct {
	Enabled         bool
	Interval        time.Duration
	BatchSize       int
	TokenPurgeGrace time.Duration
}

// EventsConfig configures the notification outbox.
type EventsConfig struct {
	ListKey    string
	Workers    int
	MaxRetries int
}

// RateLimitConfig throttles public token endpoints per client IP.
type RateLimitConfig struct {
	Enabled bool
	RPS     float64
	Burst   int
}

// TracingConfig toggles OpenTelemetry export to Jaeger.
type TracingConfig struct {
	Enabled     bool
	ServiceName string
	Endpoint    string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret: v.GetString("JWT_SECRET"),
		Issuer: v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:      v.GetString("LOG_LEVEL"),
		Format:     v.GetString("LOG_FORMAT"),
		File:       v.GetString("LOG_FILE"),
		MaxSizeMB:  v.GetInt("LOG_FILE_MAX_SIZE_MB"),
		MaxBackups: v.GetInt("LOG_FILE_MAX_BACKUPS"),
		MaxAgeDays: v.GetInt("LOG_FILE_MAX_AGE_DAYS"),
	}

	mix, err := ParseDifficultyMix(v.GetString("ASSESSMENT_DIFFICULTY_MIX"))
	if err != nil {
		return nil, err
	}
	schedule, err := ParseDurationList(v.GetString("ASSESSMENT_COOLDOWN_SCHEDULE"))
	if err != nil {
		return nil, err
	}
	cfg.Assessment = AssessmentConfig{
		QuestionCount:    v.GetInt("ASSESSMENT_QUESTION_COUNT"),
		DifficultyMix:    mix,
		TimeLimit:        parseDuration(v.GetString("ASSESSMENT_TIME_LIMIT"), 30*time.Minute),
		TokenTTL:         parseDuration(v.GetString("ASSESSMENT_TOKEN_TTL"), 24*time.Hour),
		PassThreshold:    v.GetFloat64("ASSESSMENT_PASS_THRESHOLD"),
		CooldownSchedule: schedule,
		MaxAttempts:      v.GetInt("ASSESSMENT_MAX_ATTEMPTS"),
		AutoIssueToken:   v.GetBool("ASSESSMENT_AUTO_ISSUE_TOKEN"),
		QuestionCacheTTL: parseDuration(v.GetString("QUESTION_CACHE_TTL"), 10*time.Minute),
		TestURL:          v.GetString("ASSESSMENT_TEST_URL"),
	}

	cfg.Reaper = ReaperConfig{
		Enabled:         v.GetBool("REAPER_ENABLED"),
		Interval:        parseDuration(v.GetString("REAPER_INTERVAL"), time.Minute),
		BatchSize:       v.GetInt("REAPER_BATCH_SIZE"),
		TokenPurgeGrace: parseDuration(v.GetString("TOKEN_PURGE_GRACE"), 72*time.Hour),
	}

	cfg.Events = EventsConfig{
		ListKey:    v.GetString("EVENTS_LIST_KEY"),
		Workers:    v.GetInt("EVENTS_WORKERS"),
		MaxRetries: v.GetInt("EVENTS_MAX_RETRIES"),
	}

	cfg.RateLimit = RateLimitConfig{
		Enabled: v.GetBool("RATE_LIMIT_ENABLED"),
		RPS:     v.GetFloat64("RATE_LIMIT_RPS"),
		Burst:   v.GetInt("RATE_LIMIT_BURST"),
	}

	cfg.Tracing = TracingConfig{
		Enabled:     v.GetBool("TRACING_ENABLED"),
		ServiceName: v.GetString("TRACING_SERVICE_NAME"),
		Endpoint:    v.GetString("TRACING_JAEGER_ENDPOINT"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "mentor_assessment")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_ISSUER", "")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("LOG_FILE", "")
	v.SetDefault("LOG_FILE_MAX_SIZE_MB", 100)
	v.SetDefault("LOG_FILE_MAX_BACKUPS", 5)
	v.SetDefault("LOG_FILE_MAX_AGE_DAYS", 30)

	v.SetDefault("ASSESSMENT_QUESTION_COUNT", 20)
	v.SetDefault("ASSESSMENT_DIFFICULTY_MIX", "EASY:40,MEDIUM:40,HARD:20")
	v.SetDefault("ASSESSMENT_TIME_LIMIT", "30m")
	v.SetDefault("ASSESSMENT_TOKEN_TTL", "24h")
	v.SetDefault("ASSESSMENT_PASS_THRESHOLD", 70.0)
	v.SetDefault("ASSESSMENT_COOLDOWN_SCHEDULE", "168h,720h")
	v.SetDefault("ASSESSMENT_MAX_ATTEMPTS", 3)
	v.SetDefault("ASSESSMENT_AUTO_ISSUE_TOKEN", true)
	v.SetDefault("ASSESSMENT_TEST_URL", "http://localhost:5173/mentor-test")
	v.SetDefault("QUESTION_CACHE_TTL", "10m")

	v.SetDefault("REAPER_ENABLED", true)
	v.SetDefault("REAPER_INTERVAL", "1m")
	v.SetDefault("REAPER_BATCH_SIZE", 100)
	v.SetDefault("TOKEN_PURGE_GRACE", "72h")

	v.SetDefault("EVENTS_LIST_KEY", "mentor-assessment:events")
	v.SetDefault("EVENTS_WORKERS", 2)
	v.SetDefault("EVENTS_MAX_RETRIES", 3)

	v.SetDefault("RATE_LIMIT_ENABLED", true)
	v.SetDefault("RATE_LIMIT_RPS", 2.0)
	v.SetDefault("RATE_LIMIT_BURST", 10)

	v.SetDefault("TRACING_ENABLED", false)
	v.SetDefault("TRACING_SERVICE_NAME", "mentor-assessment-api")
	v.SetDefault("TRACING_JAEGER_ENDPOINT", "http://localhost:14268/api/traces")
}

// ParseDifficultyMix parses "EASY:40,MEDIUM:40,HARD:20" into percentage weights.
func ParseDifficultyMix(raw string) (map[string]int, error) {
	mix := make(map[string]int)
	for _, part := range splitAndTrim(raw) {
		pieces := strings.SplitN(part, ":", 2)
		if len(pieces) != 2 {
			return nil, fmt.Errorf("invalid difficulty mix entry %q", part)
		}
		pct, err := strconv.Atoi(strings.TrimSpace(pieces[1]))
		if err != nil || pct < 0 {
			return nil, fmt.Errorf("invalid difficulty percentage %q", part)
		}
		mix[strings.ToUpper(strings.TrimSpace(pieces[0]))] = pct
	}
	if len(mix) == 0 {
		return nil, fmt.Errorf("difficulty mix is empty")
	}
	return mix, nil
}

// ParseDurationList parses a comma separated list of durations.
func ParseDurationList(raw string) ([]time.Duration, error) {
	parts := splitAndTrim(raw)
	result := make([]time.Duration, 0, len(parts))
	for _, part := range parts {
		d, err := time.ParseDuration(part)
		if err != nil {
			return nil, fmt.Errorf("invalid duration %q: %w", part, err)
		}
		result = append(result, d)
	}
	return result, nil
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
