package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		Output string `yaml:"output"`
	} `yaml:"log"`
	Market struct {
		Symbols          []string      `yaml:"symbols"`
		Intervals        []string      `yaml:"intervals"`
		RetentionHorizon time.Duration `yaml:"retention_horizon"`
		Tolerance        time.Duration `yaml:"tolerance"`
		MaxBars          int           `yaml:"max_bars"`
	} `yaml:"market"`
	Analytics struct {
		DefaultWindowSize  int           `yaml:"default_window_size"`
		ADFSignificance    float64       `yaml:"adf_significance"`
		ADFMinObservations int           `yaml:"adf_min_observations"`
		MaxPoints          int           `yaml:"max_points"`
	} `yaml:"analytics"`
	Feed struct {
		Source         string        `yaml:"source"` // binance or kafka
		WebSocketURL   string        `yaml:"websocket_url"`
		ReconnectDelay time.Duration `yaml:"reconnect_delay"`
		PingInterval   time.Duration `yaml:"ping_interval"`
		MaxRPS         int           `yaml:"max_rps"`
		BufferSize     int           `yaml:"buffer_size"`
	} `yaml:"feed"`
	Kafka struct {
		Brokers      []string `yaml:"brokers"`
		Topic        string   `yaml:"topic"`
		Publish      bool     `yaml:"publish"` // tee accepted ticks to the topic
		RequiredAcks int      `yaml:"required_acks"`
		Compression  string   `yaml:"compression"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts"`
			Linger       time.Duration `yaml:"linger"`
			BatchBytes   int           `yaml:"batch_bytes"`
			BatchSize    int           `yaml:"batch_size"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID    string        `yaml:"group_id"`
			Workers    int           `yaml:"workers"`
			BufferSize int           `yaml:"buffer_size"`
			RetryMax   int           `yaml:"retry_max"`
			BackoffMin time.Duration `yaml:"backoff_min"`
			BackoffMax time.Duration `yaml:"backoff_max"`
			DLQTopic   string        `yaml:"dlq_topic"`
			MinBytes   int           `yaml:"min_bytes"`
			MaxBytes   int           `yaml:"max_bytes"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	Cache struct {
		Enabled bool          `yaml:"enabled"`
		Backend string        `yaml:"backend"` // memory, redis, layered
		TTL     time.Duration `yaml:"ttl"`
		MaxSize int           `yaml:"max_size"`
		Redis   struct {
			Host     string `yaml:"host"`
			Port     int    `yaml:"port"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
		} `yaml:"redis"`
	} `yaml:"cache"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("SYMBOLS"); v != "" {
		c.Market.Symbols = strings.Split(v, ",")
	}
	if v := os.Getenv("FEED_SOURCE"); v != "" {
		c.Feed.Source = v
	}
	if v := os.Getenv("FEED_WEBSOCKET_URL"); v != "" {
		c.Feed.WebSocketURL = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_TOPIC"); v != "" {
		c.Kafka.Topic = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Cache.Redis.Password = v
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if len(c.Market.Symbols) == 0 {
		return fmt.Errorf("market.symbols cannot be empty")
	}
	if len(c.Market.Intervals) == 0 {
		return fmt.Errorf("market.intervals cannot be empty")
	}
	for _, iv := range c.Market.Intervals {
		d, err := time.ParseDuration(iv)
		if err != nil || d <= 0 {
			return fmt.Errorf("market.intervals entry %q is not a valid duration", iv)
		}
	}
	switch c.Feed.Source {
	case "binance", "kafka":
	case "":
		return fmt.Errorf("feed.source is required")
	default:
		return fmt.Errorf("feed.source must be 'binance' or 'kafka', got '%s'", c.Feed.Source)
	}
	if c.Feed.Source == "binance" && c.Feed.WebSocketURL == "" {
		return fmt.Errorf("feed.websocket_url is required for the binance source")
	}
	if c.Feed.Source == "kafka" || c.Kafka.Publish {
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("kafka.brokers cannot be empty when kafka is in use")
		}
		if c.Kafka.Topic == "" {
			return fmt.Errorf("kafka.topic is required when kafka is in use")
		}
	}
	// consuming and re-publishing the same topic would loop the firehose
	if c.Feed.Source == "kafka" && c.Kafka.Publish {
		return fmt.Errorf("kafka.publish cannot be enabled when feed.source is kafka")
	}
	if c.Analytics.ADFSignificance <= 0 || c.Analytics.ADFSignificance >= 1 {
		return fmt.Errorf("analytics.adf_significance must be in (0, 1)")
	}
	if c.Cache.Enabled {
		switch c.Cache.Backend {
		case "memory", "redis", "layered":
		default:
			return fmt.Errorf("cache.backend must be 'memory', 'redis' or 'layered', got '%s'", c.Cache.Backend)
		}
	}
	return nil
}

// Intervals parses the configured interval labels into durations.
// Validate has already checked them.
func (c *Config) Intervals() []time.Duration {
	out := make([]time.Duration, 0, len(c.Market.Intervals))
	for _, iv := range c.Market.Intervals {
		d, err := time.ParseDuration(iv)
		if err != nil {
			continue
		}
		out = append(out, d)
	}
	return out
}
