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
	Ingest struct {
		PollInterval  time.Duration `yaml:"poll_interval"`
		DedupHorizon  time.Duration `yaml:"dedup_horizon"`
		QueueSize     int           `yaml:"queue_size"`
		FetchTimeout  time.Duration `yaml:"fetch_timeout"`
		BackoffBase   time.Duration `yaml:"backoff_base"`
		BackoffCap    time.Duration `yaml:"backoff_cap"`
		DegradedAfter int           `yaml:"degraded_after"`
		Feeds         []struct {
			Name string `yaml:"name"`
			URL  string `yaml:"url"`
		} `yaml:"feeds"`
		Simulated struct {
			Enabled      bool `yaml:"enabled"`
			ItemsPerPoll int  `yaml:"items_per_poll"`
		} `yaml:"simulated"`
	} `yaml:"ingest"`
	Scoring struct {
		Mode        string        `yaml:"mode"` // "http" or "lexicon"
		ServiceURL  string        `yaml:"service_url"`
		CallTimeout time.Duration `yaml:"call_timeout"`
		BatchSize   int           `yaml:"batch_size"`
		MaxWait     time.Duration `yaml:"max_wait"`
	} `yaml:"scoring"`
	Aggregate struct {
		Window        time.Duration `yaml:"window"`
		Alpha         float64       `yaml:"alpha"`
		ThresholdBuy  float64       `yaml:"threshold_buy"`
		ThresholdSell float64       `yaml:"threshold_sell"`
		Normalizer    float64       `yaml:"normalizer"`
		Precision     int           `yaml:"precision"`
		Shards        int           `yaml:"shards"`
	} `yaml:"aggregate"`
	Broadcast struct {
		QueueSize     int           `yaml:"queue_size"`
		SendTimeout   time.Duration `yaml:"send_timeout"`
		PingRateLimit float64       `yaml:"ping_rate_limit"`
	} `yaml:"broadcast"`
	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Kafka struct {
		Enabled      bool     `yaml:"enabled"`
		Brokers      []string `yaml:"brokers"`
		UpdatesTopic string   `yaml:"updates_topic"`
		LogsTopic    string   `yaml:"logs_topic"`
		NewsTopic    string   `yaml:"news_topic"` // optional inbound news feed
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
	ClickHouse struct {
		Enabled          bool          `yaml:"enabled"`
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

	c.applyDefaults()

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

	if v := os.Getenv("SCORING_URL"); v != "" {
		c.Scoring.ServiceURL = v
	}
	if v := os.Getenv("SCORING_MODE"); v != "" {
		c.Scoring.Mode = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		host, port, ok := strings.Cut(v, ":")
		if ok {
			c.Redis.Host = host
			fmt.Sscanf(port, "%d", &c.Redis.Port)
		} else {
			c.Redis.Host = v
		}
	}

	return c, nil
}

func (c *Config) applyDefaults() {
	if c.Ingest.PollInterval <= 0 {
		c.Ingest.PollInterval = 2 * time.Second
	}
	if c.Aggregate.Window <= 0 {
		c.Aggregate.Window = 15 * time.Minute
	}
	if c.Ingest.DedupHorizon <= 0 {
		c.Ingest.DedupHorizon = c.Aggregate.Window
	}
	if c.Ingest.QueueSize <= 0 {
		c.Ingest.QueueSize = 4096
	}
	if c.Ingest.FetchTimeout <= 0 {
		c.Ingest.FetchTimeout = 10 * time.Second
	}
	if c.Ingest.BackoffBase <= 0 {
		c.Ingest.BackoffBase = 500 * time.Millisecond
	}
	if c.Ingest.BackoffCap <= 0 {
		c.Ingest.BackoffCap = time.Minute
	}
	if c.Ingest.DegradedAfter <= 0 {
		c.Ingest.DegradedAfter = 5
	}
	if c.Scoring.BatchSize <= 0 {
		c.Scoring.BatchSize = 32
	}
	if c.Scoring.MaxWait <= 0 {
		c.Scoring.MaxWait = 40 * time.Millisecond
	}
	if c.Scoring.CallTimeout <= 0 {
		c.Scoring.CallTimeout = 2 * time.Second
	}
	if c.Aggregate.Alpha <= 0 {
		c.Aggregate.Alpha = 0.2
	}
	if c.Aggregate.ThresholdBuy <= 0 {
		c.Aggregate.ThresholdBuy = 0.3
	}
	if c.Aggregate.ThresholdSell == 0 {
		c.Aggregate.ThresholdSell = -c.Aggregate.ThresholdBuy
	}
	if c.Aggregate.Normalizer <= 0 {
		c.Aggregate.Normalizer = 1.0
	}
	if c.Aggregate.Precision <= 0 {
		c.Aggregate.Precision = 2
	}
	if c.Aggregate.Shards <= 0 {
		c.Aggregate.Shards = 16
	}
	if c.Broadcast.QueueSize <= 0 {
		c.Broadcast.QueueSize = 256
	}
	if c.Broadcast.SendTimeout <= 0 {
		c.Broadcast.SendTimeout = 5 * time.Second
	}
	if c.Broadcast.PingRateLimit <= 0 {
		c.Broadcast.PingRateLimit = 2
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Scoring.Mode != "http" && c.Scoring.Mode != "lexicon" {
		return fmt.Errorf("scoring.mode must be 'http' or 'lexicon', got '%s'", c.Scoring.Mode)
	}
	if c.Scoring.Mode == "http" && c.Scoring.ServiceURL == "" {
		return fmt.Errorf("scoring.service_url is required in http mode")
	}
	if len(c.Ingest.Feeds) == 0 && !c.Ingest.Simulated.Enabled && c.Kafka.NewsTopic == "" {
		return fmt.Errorf("at least one ingest source is required")
	}
	if c.Aggregate.ThresholdSell >= c.Aggregate.ThresholdBuy {
		return fmt.Errorf("aggregate.threshold_sell must be below threshold_buy")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.ClickHouse.Enabled && c.ClickHouse.Host == "" {
		return fmt.Errorf("clickhouse.host is required when clickhouse is enabled")
	}
	return nil
}
