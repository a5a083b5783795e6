package config

import (
	"errors"
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

	Portal   PortalConfig
	Schedule ScheduleConfig
	Redis    RedisConfig
	JWT      JWTConfig
	CORS     CORSConfig
	Log      LogConfig
	Export   ExportConfig
	Docs     DocsConfig
}

// PortalConfig points at the upstream learning-portal API that owns
// session rows and batch metadata.
type PortalConfig struct {
	BaseURL      string
	APIKey       string
	FetchTimeout time.Duration
}

// ScheduleConfig tunes the reconciliation engine and its refresh cycle.
type ScheduleConfig struct {
	SessionPollInterval time.Duration
	MetaPollInterval    time.Duration
	PageSize            int
	Timezone            string
	WatcherIdleTTL      time.Duration
	CacheTTL            time.Duration
	CacheEnabled        bool
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// ExportConfig gates schedule download endpoints.
type ExportConfig struct {
	Enabled bool
}

// DocsConfig gates the swagger UI.
type DocsConfig struct {
	Enabled bool
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
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Portal = PortalConfig{
		BaseURL:      strings.TrimRight(v.GetString("PORTAL_BASE_URL"), "/"),
		APIKey:       v.GetString("PORTAL_API_KEY"),
		FetchTimeout: parseDuration(v.GetString("PORTAL_FETCH_TIMEOUT"), 10*time.Second),
	}

	pageSize := v.GetInt("SCHEDULE_PAGE_SIZE")
	if pageSize <= 0 {
		pageSize = 5
	}
	cfg.Schedule = ScheduleConfig{
		SessionPollInterval: parseDuration(v.GetString("SCHEDULE_SESSION_POLL_INTERVAL"), 45*time.Second),
		MetaPollInterval:    parseDuration(v.GetString("SCHEDULE_META_POLL_INTERVAL"), 5*time.Minute),
		PageSize:            pageSize,
		Timezone:            v.GetString("SCHEDULE_TIMEZONE"),
		WatcherIdleTTL:      parseDuration(v.GetString("SCHEDULE_WATCHER_IDLE_TTL"), 10*time.Minute),
		CacheTTL:            parseDuration(v.GetString("SCHEDULE_CACHE_TTL"), 30*time.Second),
		CacheEnabled:        v.GetBool("ENABLE_SCHEDULE_CACHE"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{Secret: v.GetString("JWT_SECRET")}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Export = ExportConfig{Enabled: v.GetBool("ENABLE_SCHEDULE_EXPORT")}
	cfg.Docs = DocsConfig{Enabled: v.GetBool("ENABLE_DOCS")}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("PORTAL_BASE_URL", "http://localhost:3000/api")
	v.SetDefault("PORTAL_API_KEY", "")
	v.SetDefault("PORTAL_FETCH_TIMEOUT", "10s")

	v.SetDefault("SCHEDULE_SESSION_POLL_INTERVAL", "45s")
	v.SetDefault("SCHEDULE_META_POLL_INTERVAL", "5m")
	v.SetDefault("SCHEDULE_PAGE_SIZE", 5)
	v.SetDefault("SCHEDULE_TIMEZONE", "UTC")
	v.SetDefault("SCHEDULE_WATCHER_IDLE_TTL", "10m")
	v.SetDefault("SCHEDULE_CACHE_TTL", "30s")
	v.SetDefault("ENABLE_SCHEDULE_CACHE", false)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("ENABLE_SCHEDULE_EXPORT", true)
	v.SetDefault("ENABLE_DOCS", true)
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
