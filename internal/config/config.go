package config

import (
	"os"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

type Config struct {
	HTTP      HTTPConfig
	Convert   ConvertConfig
	RateLimit RateLimitConfig
	Tracing   TracingConfig
}

type HTTPConfig struct {
	Addr               string
	Title              string
	MaxUploadBytes     int64
	InlineArchiveBytes int64
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	IdleTimeout        time.Duration
}

type ConvertConfig struct {
	// Timeout bounds one interpreter run. Zero means no limit.
	Timeout      time.Duration
	PreviewWidth int
}

type RateLimitConfig struct {
	Enabled       bool
	TrustProxy    bool
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	Capacity      int
	Window        time.Duration
}

func (r RateLimitConfig) RedisOptions() *redis.Options {
	return &redis.Options{
		Addr:     r.RedisAddr,
		Password: r.RedisPassword,
		DB:       r.RedisDB,
	}
}

type TracingConfig struct {
	ServiceName  string
	Exporter     string
	OTLPEndpoint string
	OTLPInsecure bool
	SampleRatio  float64
}

func Load() Config {
	return Config{
		HTTP: HTTPConfig{
			Addr:               env("EPSFLOW_ADDR", ":8080"),
			Title:              env("EPSFLOW_TITLE", "EPS to JPG Converter"),
			MaxUploadBytes:     envInt64("EPSFLOW_MAX_UPLOAD_BYTES", 64<<20),
			InlineArchiveBytes: envInt64("EPSFLOW_INLINE_ARCHIVE_BYTES", 16<<20),
			ReadTimeout:        envDuration("EPSFLOW_READ_TIMEOUT", time.Minute),
			WriteTimeout:       envDuration("EPSFLOW_WRITE_TIMEOUT", 10*time.Minute),
			IdleTimeout:        envDuration("EPSFLOW_IDLE_TIMEOUT", 60*time.Second),
		},
		Convert: ConvertConfig{
			Timeout:      envDuration("EPSFLOW_CONVERT_TIMEOUT", 0),
			PreviewWidth: envInt("EPSFLOW_PREVIEW_WIDTH", 480),
		},
		RateLimit: RateLimitConfig{
			Enabled:       envBool("EPSFLOW_RATE_LIMIT_ENABLED", false),
			TrustProxy:    envBool("EPSFLOW_TRUST_PROXY", false),
			RedisAddr:     env("REDIS_ADDR", "localhost:6379"),
			RedisPassword: env("REDIS_PASSWORD", ""),
			RedisDB:       envInt("REDIS_DB", 0),
			Capacity:      envInt("EPSFLOW_RATE_LIMIT_CAPACITY", 30),
			Window:        envDuration("EPSFLOW_RATE_LIMIT_WINDOW", time.Minute),
		},
		Tracing: TracingConfig{
			ServiceName:  env("OTEL_SERVICE_NAME", "epsflow"),
			Exporter:     env("OTEL_TRACES_EXPORTER", "none"),
			OTLPEndpoint: env("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			OTLPInsecure: envBool("OTEL_EXPORTER_OTLP_INSECURE", false),
			SampleRatio:  envFloat("OTEL_TRACES_SAMPLER_ARG", 1),
		},
	}
}

func env(key, fallback string) string {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback
	}
	return value
}

func envInt(key string, fallback int) int {
	value := env(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func envInt64(key string, fallback int64) int64 {
	value := env(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func envBool(key string, fallback bool) bool {
	value := env(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func envFloat(key string, fallback float64) float64 {
	value := env(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func envDuration(key string, fallback time.Duration) time.Duration {
	value := env(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed < 0 {
		return fallback
	}
	return parsed
}
