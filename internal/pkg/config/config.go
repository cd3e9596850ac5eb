package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration lets YAML carry human-readable values like "10s" or "100ms".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

type CrawlerConfig struct {
	MaxPages       int      `yaml:"max_pages"`
	Timeout        Duration `yaml:"timeout"`
	UserAgent      string   `yaml:"user_agent"`
	MaxBodyBytes   int64    `yaml:"max_body_bytes"`
	MaxRedirects   int      `yaml:"max_redirects"`
	ConcurrentJobs int      `yaml:"concurrent_jobs"`
}

type CheckerConfig struct {
	MaxLinks int      `yaml:"max_links"`
	Workers  int      `yaml:"workers"`
	Timeout  Duration `yaml:"timeout"`
	Delay    Duration `yaml:"delay"`
}

// Empty Brokers means jobs are dispatched over an in-process channel.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
	GroupID string   `yaml:"group_id"`
}

// Empty Addr disables the Redis status mirror.
type RedisConfig struct {
	Addr   string   `yaml:"addr"`
	Prefix string   `yaml:"prefix"`
	TTL    Duration `yaml:"ttl"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

type Config struct {
	Crawler CrawlerConfig `yaml:"crawler"`
	Checker CheckerConfig `yaml:"checker"`
	Kafka   KafkaConfig   `yaml:"kafka"`
	Redis   RedisConfig   `yaml:"redis"`
	Log     LogConfig     `yaml:"log"`
}

func Default() *Config {
	return &Config{
		Crawler: CrawlerConfig{
			MaxPages:       25,
			Timeout:        Duration(10 * time.Second),
			UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36",
			MaxBodyBytes:   2 * 1024 * 1024,
			MaxRedirects:   5,
			ConcurrentJobs: 2,
		},
		Checker: CheckerConfig{
			MaxLinks: 50,
			Workers:  5,
			Timeout:  Duration(5 * time.Second),
			Delay:    Duration(100 * time.Millisecond),
		},
		Kafka: KafkaConfig{
			Topic:   "crawl-jobs",
			GroupID: "smart-crawler",
		},
		Redis: RedisConfig{
			Prefix: "crawl:status:",
			TTL:    Duration(24 * time.Hour),
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load reads a YAML file over the defaults. An empty path returns the
// defaults untouched.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Crawler.MaxPages < 1 {
		return fmt.Errorf("crawler.max_pages must be >= 1, got %d", c.Crawler.MaxPages)
	}
	if c.Crawler.Timeout <= 0 {
		return fmt.Errorf("crawler.timeout must be positive, got %s", c.Crawler.Timeout.Std())
	}
	if c.Crawler.ConcurrentJobs < 1 {
		return fmt.Errorf("crawler.concurrent_jobs must be >= 1, got %d", c.Crawler.ConcurrentJobs)
	}
	if c.Checker.MaxLinks < 1 {
		return fmt.Errorf("checker.max_links must be >= 1, got %d", c.Checker.MaxLinks)
	}
	if c.Checker.Workers < 1 {
		return fmt.Errorf("checker.workers must be >= 1, got %d", c.Checker.Workers)
	}
	if len(c.Kafka.Brokers) > 0 && c.Kafka.Topic == "" {
		return fmt.Errorf("kafka.topic is required when brokers are set")
	}
	return nil
}
