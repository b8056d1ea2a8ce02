package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Fetch     FetchConfig
	Limits    LimitsConfig
	RateLimit RateLimitConfig
	Tracing   TracingConfig
}

type ServerConfig struct {
	Addr     string
	LogLevel string
}

type FetchConfig struct {
	Timeout  time.Duration
	MaxBytes int64
}

type LimitsConfig struct {
	// MaxUploadBytes caps the multipart request body.
	MaxUploadBytes int64

	// MaxSourcePixels caps the decoded pixel count of a source image,
	// enforced before any transform stage allocates buffers.
	MaxSourcePixels int64
}

type RateLimitConfig struct {
	// RedisAddr enables the Redis token bucket; empty disables rate
	// limiting entirely.
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	Capacity      int
	Window        time.Duration
	UserIDHeader  string
}

type TracingConfig struct {
	ServiceName  string
	Exporter     string
	OTLPEndpoint string
	OTLPInsecure bool
}

// Load reads configuration from PIXELBEND_* environment variables, falling
// back to the defaults below.
func Load() Config {
	v := viper.New()
	v.SetEnvPrefix("pixelbend")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.log_level", "info")
	v.SetDefault("fetch.timeout", 10*time.Second)
	v.SetDefault("fetch.max_bytes", int64(10<<20))
	v.SetDefault("limits.max_upload_bytes", int64(10<<20))
	v.SetDefault("limits.max_source_pixels", int64(40_000_000))
	v.SetDefault("ratelimit.redis_addr", "")
	v.SetDefault("ratelimit.redis_password", "")
	v.SetDefault("ratelimit.redis_db", 0)
	v.SetDefault("ratelimit.capacity", 60)
	v.SetDefault("ratelimit.window", time.Minute)
	v.SetDefault("ratelimit.user_id_header", "X-User-ID")
	v.SetDefault("tracing.service_name", "pixelbend")
	v.SetDefault("tracing.exporter", "none")
	v.SetDefault("tracing.otlp_endpoint", "")
	v.SetDefault("tracing.otlp_insecure", false)

	return Config{
		Server: ServerConfig{
			Addr:     v.GetString("server.addr"),
			LogLevel: v.GetString("server.log_level"),
		},
		Fetch: FetchConfig{
			Timeout:  v.GetDuration("fetch.timeout"),
			MaxBytes: v.GetInt64("fetch.max_bytes"),
		},
		Limits: LimitsConfig{
			MaxUploadBytes:  v.GetInt64("limits.max_upload_bytes"),
			MaxSourcePixels: v.GetInt64("limits.max_source_pixels"),
		},
		RateLimit: RateLimitConfig{
			RedisAddr:     v.GetString("ratelimit.redis_addr"),
			RedisPassword: v.GetString("ratelimit.redis_password"),
			RedisDB:       v.GetInt("ratelimit.redis_db"),
			Capacity:      v.GetInt("ratelimit.capacity"),
			Window:        v.GetDuration("ratelimit.window"),
			UserIDHeader:  v.GetString("ratelimit.user_id_header"),
		},
		Tracing: TracingConfig{
			ServiceName:  v.GetString("tracing.service_name"),
			Exporter:     v.GetString("tracing.exporter"),
			OTLPEndpoint: v.GetString("tracing.otlp_endpoint"),
			OTLPInsecure: v.GetBool("tracing.otlp_insecure"),
		},
	}
}
