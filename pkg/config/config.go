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
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	Scan struct {
		Assets       []string      `yaml:"assets"`
		Interval     time.Duration `yaml:"interval"`
		Workers      int           `yaml:"workers"`
		BotTimeout   time.Duration `yaml:"bot_timeout"`
		Quorum       int           `yaml:"quorum"`
		Alpha        float64       `yaml:"disagreement_alpha"`
		TrimFraction float64       `yaml:"trim_fraction"`
		MinProposals int           `yaml:"min_proposals"`
		Calibration  struct {
			A float64 `yaml:"a"`
			B float64 `yaml:"b"`
		} `yaml:"calibration"`
	} `yaml:"scan"`
	Tracker struct {
		Window           int  `yaml:"window"`
		ReinstateWindow  int  `yaml:"reinstate_window"`
		ExpiredAsFailure bool `yaml:"expired_as_failure"`
	} `yaml:"tracker"`
	Optimizer struct {
		Interval     time.Duration `yaml:"interval"`
		LearningRate float64       `yaml:"learning_rate"`
		Decay        float64       `yaml:"decay"`
		MinWeight    float64       `yaml:"min_weight"`
		MaxWeight    float64       `yaml:"max_weight"`
	} `yaml:"optimizer"`
	Outcomes struct {
		Expiry        time.Duration `yaml:"expiry"`
		CheckInterval time.Duration `yaml:"check_interval"`
	} `yaml:"outcomes"`
	RateLimit struct {
		Rate  float64 `yaml:"rate"`
		Burst int     `yaml:"burst"`
	} `yaml:"rate_limit"`
	Kafka struct {
		Brokers      []string `yaml:"brokers"`
		Topic        string   `yaml:"topic"` // published recommendations
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
			Topic      string        `yaml:"topic"` // inbound outcome events
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
	ClickHouse struct {
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port"`
		Database         string        `yaml:"database"`
		User             string        `yaml:"user"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout"`
		ReadTimeout      time.Duration `yaml:"read_timeout"`
		WriteTimeout     time.Duration `yaml:"write_timeout"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time"`
	} `yaml:"clickhouse"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	PriceFeed struct {
		APIKey         string        `yaml:"api_key"`
		WebSocketURL   string        `yaml:"websocket_url"`
		ReconnectDelay time.Duration `yaml:"reconnect_delay"`
		PingInterval   time.Duration `yaml:"ping_interval"`
	} `yaml:"price_feed"`
	Bots struct {
		MomentumFast    int           `yaml:"momentum_fast"`
		MomentumSlow    int           `yaml:"momentum_slow"`
		ModelServiceURL string        `yaml:"model_service_url"`
		ModelTimeout    time.Duration `yaml:"model_timeout"`
	} `yaml:"bots"`
	Regime struct {
		ServiceURL string        `yaml:"service_url"`
		Timeout    time.Duration `yaml:"timeout"`
		CacheTTL   time.Duration `yaml:"cache_ttl"`
		RetryMax   int           `yaml:"retry_max"`
	} `yaml:"regime"`
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

	// Override with environment variables
	if v := os.Getenv("PRICE_FEED_API_KEY"); v != "" {
		c.PriceFeed.APIKey = v
	}
	if v := os.Getenv("SCAN_ASSETS"); v != "" {
		c.Scan.Assets = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_TOPIC"); v != "" {
		c.Kafka.Topic = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("REGIME_SERVICE_URL"); v != "" {
		c.Regime.ServiceURL = v
	}
	if v := os.Getenv("MODEL_SERVICE_URL"); v != "" {
		c.Bots.ModelServiceURL = v
	}

	return c, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if len(c.Scan.Assets) == 0 {
		return fmt.Errorf("scan.assets cannot be empty")
	}
	if c.Scan.Interval <= 0 {
		return fmt.Errorf("scan.interval must be positive")
	}
	if c.Scan.Quorum < 1 {
		return fmt.Errorf("scan.quorum must be at least 1")
	}
	if c.Scan.Calibration.B < 0 {
		return fmt.Errorf("scan.calibration.b must not be negative")
	}
	if c.Optimizer.MinWeight < 0 || (c.Optimizer.MaxWeight != 0 && c.Optimizer.MaxWeight <= c.Optimizer.MinWeight) {
		return fmt.Errorf("optimizer weight bounds invalid")
	}
	return nil
}
