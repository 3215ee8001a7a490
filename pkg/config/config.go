package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Tier directory backends.
const (
	TierBackendStatic   = "static"
	TierBackendRedis    = "redis"
	TierBackendPostgres = "postgres"
	TierBackendHTTP     = "http"
)

type Config struct {
	Environment string `yaml:"environment" default:"development"`
	Server      struct {
		Port            int           `yaml:"port" default:"8000"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"15s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"15s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level" default:"info"`
		Format string `yaml:"format" default:"console"`
		Output string `yaml:"output" default:"stdout"`
	} `yaml:"log"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	Pipeline struct {
		EmitProbability float64       `yaml:"emit_probability" default:"0.35"`
		SampleStep      int           `yaml:"sample_step" default:"2"`
		CannyLow        float64       `yaml:"canny_low" default:"50"`
		CannyHigh       float64       `yaml:"canny_high" default:"150"`
		TierTimeout     time.Duration `yaml:"tier_timeout" default:"250ms"`
		MaxFrameBytes   int           `yaml:"max_frame_bytes" default:"8388608"`
		MaxFramePixels  int           `yaml:"max_frame_pixels" default:"16777216"`
	} `yaml:"pipeline"`
	WebSocket struct {
		ReadLimit      int64         `yaml:"read_limit" default:"16777216"`
		WriteTimeout   time.Duration `yaml:"write_timeout" default:"10s"`
		PongWait       time.Duration `yaml:"pong_wait" default:"60s"`
		PingInterval   time.Duration `yaml:"ping_interval" default:"30s"`
		AllowedOrigins []string      `yaml:"allowed_origins"`
	} `yaml:"websocket"`
	Tiers struct {
		Backend   string            `yaml:"backend" default:"static"`
		KeyPrefix string            `yaml:"key_prefix" default:"tier:"`
		Static    map[string]string `yaml:"static"`
	} `yaml:"tiers"`
	Redis struct {
		Addr         string        `yaml:"addr" default:"localhost:6379"`
		Password     string        `yaml:"password"`
		DB           int           `yaml:"db"`
		PoolSize     int           `yaml:"pool_size" default:"10"`
		DialTimeout  time.Duration `yaml:"dial_timeout" default:"2s"`
		ReadTimeout  time.Duration `yaml:"read_timeout" default:"500ms"`
		WriteTimeout time.Duration `yaml:"write_timeout" default:"500ms"`
	} `yaml:"redis"`
	Postgres struct {
		DSN             string        `yaml:"dsn"`
		Table           string        `yaml:"table" default:"profiles"`
		MaxOpenConns    int           `yaml:"max_open_conns" default:"10"`
		MaxIdleConns    int           `yaml:"max_idle_conns" default:"5"`
		ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" default:"30m"`
	} `yaml:"postgres"`
	Subscriptions struct {
		BaseURL string        `yaml:"base_url"`
		APIKey  string        `yaml:"api_key"`
		Timeout time.Duration `yaml:"timeout" default:"2s"`
	} `yaml:"subscriptions"`
	Events struct {
		Enabled       bool          `yaml:"enabled"`
		BufferSize    int           `yaml:"buffer_size" default:"1024"`
		BatchSize     int           `yaml:"batch_size" default:"100"`
		FlushInterval time.Duration `yaml:"flush_interval" default:"1s"`
	} `yaml:"events"`
	Kafka struct {
		Brokers      []string `yaml:"brokers"`
		FrameTopic   string   `yaml:"frame_topic" default:"chartsense.frames"`
		TierTopic    string   `yaml:"tier_topic" default:"chartsense.tiers"`
		RequiredAcks int      `yaml:"required_acks" default:"1"`
		Compression  string   `yaml:"compression" default:"snappy"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"3"`
			Linger       time.Duration `yaml:"linger" default:"50ms"`
			BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
			BatchSize    int           `yaml:"batch_size" default:"100"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
			ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID    string        `yaml:"group_id" default:"chartsense"`
			Workers    int           `yaml:"workers" default:"4"`
			BufferSize int           `yaml:"buffer_size" default:"256"`
			RetryMax   int           `yaml:"retry_max" default:"3"`
			BackoffMin time.Duration `yaml:"backoff_min" default:"100ms"`
			BackoffMax time.Duration `yaml:"backoff_max" default:"5s"`
			DLQTopic   string        `yaml:"dlq_topic"`
			MinBytes   int           `yaml:"min_bytes" default:"1"`
			MaxBytes   int           `yaml:"max_bytes" default:"10485760"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Enabled          bool          `yaml:"enabled"`
		Host             string        `yaml:"host" default:"localhost"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"chartsense"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"30s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"60s"`
	} `yaml:"clickhouse"`
	Telemetry struct {
		Enabled     bool    `yaml:"enabled"`
		Endpoint    string  `yaml:"endpoint" default:"localhost:4317"`
		Insecure    bool    `yaml:"insecure" default:"true"`
		ServiceName string  `yaml:"service_name" default:"chartsense"`
		SampleRatio float64 `yaml:"sample_ratio" default:"1"`
	} `yaml:"telemetry"`
	RateLimit struct {
		Enabled bool    `yaml:"enabled" default:"true"`
		Rate    float64 `yaml:"rate" default:"5"`
		Burst   int     `yaml:"burst" default:"10"`
	} `yaml:"ratelimit"`
}

// MockTiers seeds the static tier directory when none is configured.
var MockTiers = map[string]string{
	"user_free":   "free",
	"user_pro":    "pro",
	"user_master": "master",
}

// Default returns a configuration populated with defaults only.
func Default() (*Config, error) {
	c, err := withDefaults()
	if err != nil {
		return nil, err
	}
	c.seed()
	return c, nil
}

func withDefaults() (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("set defaults: %w", err)
	}
	return &c, nil
}

// Load reads and parses a YAML configuration file on top of the defaults.
// An empty path yields the defaults.
func Load(path string) (*Config, error) {
	c, err := withDefaults()
	if err != nil {
		return nil, err
	}

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, c); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}
	c.seed()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// LoadWithEnv loads .env (if present) and the YAML file, then applies
// CHARTSENSE_* environment overrides.
func LoadWithEnv(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if err := c.applyEnv(); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) seed() {
	if len(c.Tiers.Static) == 0 {
		c.Tiers.Static = make(map[string]string, len(MockTiers))
		for k, v := range MockTiers {
			c.Tiers.Static[k] = v
		}
	}
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("CHARTSENSE_ENV"); v != "" {
		c.Environment = v
	}
	if v := os.Getenv("CHARTSENSE_PORT"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("CHARTSENSE_PORT: %w", err)
		}
		c.Server.Port = p
	}
	if v := os.Getenv("CHARTSENSE_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("CHARTSENSE_EMIT_PROBABILITY"); v != "" {
		p, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("CHARTSENSE_EMIT_PROBABILITY: %w", err)
		}
		c.Pipeline.EmitProbability = p
	}
	if v := os.Getenv("CHARTSENSE_TIER_BACKEND"); v != "" {
		c.Tiers.Backend = v
	}
	if v := os.Getenv("CHARTSENSE_REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("CHARTSENSE_REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
	if v := os.Getenv("CHARTSENSE_POSTGRES_DSN"); v != "" {
		c.Postgres.DSN = v
	}
	if v := os.Getenv("CHARTSENSE_SUBSCRIPTIONS_URL"); v != "" {
		c.Subscriptions.BaseURL = v
	}
	if v := os.Getenv("CHARTSENSE_SUBSCRIPTIONS_API_KEY"); v != "" {
		c.Subscriptions.APIKey = v
	}
	if v := os.Getenv("CHARTSENSE_KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("CHARTSENSE_CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
	}
	if v := os.Getenv("CHARTSENSE_CLICKHOUSE_PASSWORD"); v != "" {
		c.ClickHouse.Password = v
	}
	if v := os.Getenv("CHARTSENSE_OTLP_ENDPOINT"); v != "" {
		c.Telemetry.Endpoint = v
		c.Telemetry.Enabled = true
	}
	return nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if p := c.Pipeline.EmitProbability; p <= 0 || p > 1 {
		return fmt.Errorf("pipeline.emit_probability must be in (0, 1], got %v", p)
	}
	if c.Pipeline.SampleStep <= 0 {
		return fmt.Errorf("pipeline.sample_step must be positive")
	}
	if c.Pipeline.CannyLow <= 0 || c.Pipeline.CannyHigh < c.Pipeline.CannyLow {
		return fmt.Errorf("pipeline canny thresholds invalid: low=%v high=%v", c.Pipeline.CannyLow, c.Pipeline.CannyHigh)
	}
	if c.Pipeline.TierTimeout <= 0 {
		return fmt.Errorf("pipeline.tier_timeout must be positive")
	}
	if c.Pipeline.MaxFramePixels <= 0 {
		return fmt.Errorf("pipeline.max_frame_pixels must be positive")
	}

	switch c.Tiers.Backend {
	case TierBackendStatic:
	case TierBackendRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("redis.addr is required for tier backend %q", c.Tiers.Backend)
		}
	case TierBackendPostgres:
		if c.Postgres.DSN == "" {
			return fmt.Errorf("postgres.dsn is required for tier backend %q", c.Tiers.Backend)
		}
	case TierBackendHTTP:
		if c.Subscriptions.BaseURL == "" {
			return fmt.Errorf("subscriptions.base_url is required for tier backend %q", c.Tiers.Backend)
		}
	default:
		return fmt.Errorf("tiers.backend must be one of static, redis, postgres, http, got '%s'", c.Tiers.Backend)
	}

	if c.Events.Enabled && len(c.Kafka.Brokers) == 0 && !c.ClickHouse.Enabled {
		return fmt.Errorf("events.enabled requires kafka.brokers or clickhouse.enabled")
	}
	return nil
}

// IsDevelopment reports whether the service runs in a development environment.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development" || c.Environment == "dev" || c.Environment == "local"
}
