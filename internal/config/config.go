package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// readSecret reads a Docker secret from a file path specified by an env var
// with _FILE suffix. If FOO is already set directly, the file is skipped.
// If FOO_FILE is set, reads the file content and sets FOO.
func readSecret(envKey string) {
	if os.Getenv(envKey) != "" {
		return
	}
	fileKey := envKey + "_FILE"
	filePath := os.Getenv(fileKey)
	if filePath == "" {
		return
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return
	}
	val := strings.TrimSpace(string(data))
	os.Setenv(envKey, val)
}

type Config struct {
	Server     ServerConfig
	Upload     UploadConfig
	Classifier ClassifierConfig
	Redis      RedisConfig
	RateLimit  RateLimitConfig
	Sweep      SweepConfig
}

type ServerConfig struct {
	Host     string
	Port     string `validate:"required,numeric"`
	Env      string
	LogLevel string
}

// Addr returns the listen address in host:port form.
func (s ServerConfig) Addr() string {
	return s.Host + ":" + s.Port
}

type UploadConfig struct {
	Dir               string   `validate:"required"`
	MaxSize           int64    `validate:"gt=0"`
	AllowedExtensions []string `validate:"min=1,dive,required,alphanum"`
}

type ClassifierConfig struct {
	Provider   string `validate:"oneof=mock remote"`
	DelayMs    int    `validate:"gte=0"`
	ServiceURL string `validate:"required_if=Provider remote,omitempty,url"`
	APIKey     string
	Timeout    int `validate:"gt=0"` // seconds
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Enabled reports whether a Redis address was configured.
func (r RedisConfig) Enabled() bool {
	return r.Addr != ""
}

type RateLimitConfig struct {
	AnalyzePerMin int `validate:"gte=0"`
}

type SweepConfig struct {
	Interval string        `validate:"required"`
	MaxAge   time.Duration `validate:"gt=0"`
}

// Load reads configuration from defaults, an optional config file, the
// environment and, when given, command-line flags (highest precedence).
func Load(flags *pflag.FlagSet) (*Config, error) {
	// Read Docker Swarm secrets from _FILE env vars before Viper binds
	readSecret("REDIS_PASSWORD")
	readSecret("CLASSIFIER_API_KEY")

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// Environment variables
	v.AutomaticEnv()

	// Bind environment variables with underscores to nested config keys
	_ = v.BindEnv("server.host", "SERVER_HOST")
	_ = v.BindEnv("server.port", "SERVER_PORT")
	_ = v.BindEnv("server.env", "SERVER_ENV")
	_ = v.BindEnv("server.log_level", "LOG_LEVEL")
	_ = v.BindEnv("upload.dir", "UPLOAD_DIR")
	_ = v.BindEnv("upload.max_size", "UPLOAD_MAX_SIZE")
	_ = v.BindEnv("upload.allowed_extensions", "UPLOAD_ALLOWED_EXTENSIONS")
	_ = v.BindEnv("classifier.provider", "CLASSIFIER_PROVIDER")
	_ = v.BindEnv("classifier.delay_ms", "CLASSIFIER_DELAY_MS")
	_ = v.BindEnv("classifier.service_url", "CLASSIFIER_SERVICE_URL")
	_ = v.BindEnv("classifier.api_key", "CLASSIFIER_API_KEY")
	_ = v.BindEnv("classifier.timeout", "CLASSIFIER_TIMEOUT")
	_ = v.BindEnv("redis.addr", "REDIS_ADDR")
	_ = v.BindEnv("redis.password", "REDIS_PASSWORD")
	_ = v.BindEnv("redis.db", "REDIS_DB")
	_ = v.BindEnv("ratelimit.analyze_per_min", "RATELIMIT_ANALYZE_PER_MIN")
	_ = v.BindEnv("sweep.interval", "SWEEP_INTERVAL")
	_ = v.BindEnv("sweep.max_age", "SWEEP_MAX_AGE")

	// Defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "5000")
	v.SetDefault("server.env", "development")
	v.SetDefault("server.log_level", "info")
	v.SetDefault("upload.dir", "temp_uploads")
	v.SetDefault("upload.max_size", 50*1024*1024)
	v.SetDefault("upload.allowed_extensions", "wav,flac")
	v.SetDefault("classifier.provider", "mock")
	v.SetDefault("classifier.delay_ms", 1000)
	v.SetDefault("classifier.timeout", 30)
	v.SetDefault("redis.db", 0)
	v.SetDefault("ratelimit.analyze_per_min", 30)
	v.SetDefault("sweep.interval", "@every 5m")
	v.SetDefault("sweep.max_age", "10m")

	configFile := ""
	if flags != nil {
		if f := flags.Lookup("config"); f != nil {
			configFile = f.Value.String()
		}
		for key, name := range map[string]string{
			"server.host": "host",
			"server.port": "port",
		} {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind flag %q: %w", name, err)
				}
			}
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	} else {
		// Try to read config file (optional)
		_ = v.ReadInConfig()
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:     v.GetString("server.host"),
			Port:     v.GetString("server.port"),
			Env:      v.GetString("server.env"),
			LogLevel: v.GetString("server.log_level"),
		},
		Upload: UploadConfig{
			Dir:               v.GetString("upload.dir"),
			MaxSize:           v.GetInt64("upload.max_size"),
			AllowedExtensions: splitList(v.Get("upload.allowed_extensions")),
		},
		Classifier: ClassifierConfig{
			Provider:   strings.ToLower(v.GetString("classifier.provider")),
			DelayMs:    v.GetInt("classifier.delay_ms"),
			ServiceURL: v.GetString("classifier.service_url"),
			APIKey:     v.GetString("classifier.api_key"),
			Timeout:    v.GetInt("classifier.timeout"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		RateLimit: RateLimitConfig{
			AnalyzePerMin: v.GetInt("ratelimit.analyze_per_min"),
		},
		Sweep: SweepConfig{
			Interval: v.GetString("sweep.interval"),
			MaxAge:   v.GetDuration("sweep.max_age"),
		},
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// splitList accepts either a YAML list or a comma separated string and
// returns lower-cased, trimmed, non-empty entries.
func splitList(raw interface{}) []string {
	var items []string
	switch val := raw.(type) {
	case string:
		items = strings.Split(val, ",")
	case []string:
		items = val
	case []interface{}:
		for _, item := range val {
			items = append(items, fmt.Sprint(item))
		}
	}

	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.ToLower(strings.TrimSpace(item))
		item = strings.TrimPrefix(item, ".")
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}
