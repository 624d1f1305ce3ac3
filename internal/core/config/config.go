package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvTest        = "test"

	DriverFile  = "file"
	DriverRedis = "redis"
)

type InvalidationCfg struct {
	Enabled bool
	Topic   string `validate:"required_if=Enabled true"`
	Brokers string `validate:"required_if=Enabled true"`
	GroupID string `validate:"required_if=Enabled true"`
}

type SourceCfg struct {
	Driver    string `validate:"oneof=file redis"`
	Catalog   string `validate:"required_if=Driver file"`
	Watch     bool
	CacheSize int `validate:"min=1"`
}

type MetricsCfg struct {
	Enabled bool
	Addr    string
	Path    string `validate:"startswith=/"`
}

type Config struct {
	Addr           string `validate:"required"`
	LogLevel       string `validate:"oneof=debug info warn warning error"`
	LogConsole     bool
	LogSampleN     int    `validate:"min=0"`
	AppEnv         string `validate:"oneof=development production test"`
	Warnings       string
	Source         SourceCfg
	RedisAddr      string        `validate:"required,hostname_port"`
	RedisOpTimeout time.Duration `validate:"gt=0"`
	Invalidation   InvalidationCfg
	Metrics        MetricsCfg
}

// Production reports whether GeoJSON lint warnings are suppressed.
func (c Config) Production() bool {
	return c.AppEnv == EnvProduction || strings.EqualFold(c.Warnings, "suppress")
}

// Trace reports whether failed requests are logged in full.
func (c Config) Trace() bool {
	return c.AppEnv == EnvTest
}

func FromEnv() Config {
	return Config{
		Addr:           getenv("ADDR", ":8090"),
		LogLevel:       strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogConsole:     getbool("LOG_CONSOLE", false),
		LogSampleN:     getint("LOG_SAMPLE_N", 0),
		AppEnv:         strings.ToLower(getenv("APP_ENV", EnvDevelopment)),
		Warnings:       getenv("FS_WARNINGS", ""),
		RedisAddr:      getenv("REDIS_ADDR", "localhost:6379"),
		RedisOpTimeout: getduration("REDIS_OP_TIMEOUT", 250*time.Millisecond),
		Source: SourceCfg{
			Driver:    strings.ToLower(getenv("SOURCE_DRIVER", DriverFile)),
			Catalog:   getenv("SOURCE_CATALOG", "sources.yaml"),
			Watch:     getbool("SOURCE_WATCH", true),
			CacheSize: getint("SOURCE_CACHE_SIZE", 64),
		},
		Invalidation: InvalidationCfg{
			Enabled: getbool("INVALIDATION_ENABLED", false),
			Topic:   getenv("KAFKA_TOPIC", "source-invalidation"),
			Brokers: getenv("KAFKA_BROKERS", "localhost:9092"),
			GroupID: getenv("KAFKA_GROUP_ID", "featureserver"),
		},
		Metrics: MetricsCfg{
			Enabled: getbool("METRICS_ENABLED", true),
			Addr:    getenv("METRICS_ADDR", ""),
			Path:    getenv("METRICS_PATH", "/metrics"),
		},
	}
}

// LoadDotEnv loads KEY=VALUE files into the environment without overriding
// variables that are already set. Missing files are skipped.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

var validate = validator.New()

func Validate(c Config) error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// BrokerList splits the comma separated KAFKA_BROKERS list.
func (c InvalidationCfg) BrokerList() []string {
	var out []string
	for b := range strings.SplitSeq(c.Brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "t", "true", "y", "yes":
			return true
		case "0", "f", "false", "n", "no":
			return false
		}
	}
	return def
}

func getduration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
