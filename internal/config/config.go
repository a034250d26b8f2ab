package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	Slack     SlackConfig     `yaml:"slack"`
	Publisher PublisherConfig `yaml:"publisher"`
	Scrape    ScrapeConfig    `yaml:"scrape"`
	Org       OrgConfig       `yaml:"org"`
	LogLevel  string          `yaml:"log_level"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

type SlackConfig struct {
	Channel  string        `yaml:"channel"`
	APIToken string        `yaml:"api_token"`
	PageSize int           `yaml:"page_size"`
	Timeout  time.Duration `yaml:"timeout"`
	Retry    RetryConfig   `yaml:"retry"`
}

type RetryConfig struct {
	MaxAttempts    int           `yaml:"max_attempts"`
	InitialBackoff time.Duration `yaml:"initial_backoff"`
	MaxBackoff     time.Duration `yaml:"max_backoff"`
}

// PublisherConfig configures the optional activity-event publisher. An
// empty URL disables publishing.
type PublisherConfig struct {
	URL        string `yaml:"url"`
	Exchange   string `yaml:"exchange"`
	RoutingKey string `yaml:"routing_key"`
	QueueName  string `yaml:"queue_name"`
}

type ScrapeConfig struct {
	Interval     time.Duration `yaml:"interval"`
	LookbackDays int           `yaml:"lookback_days"`
}

// OrgConfig carries the organization metadata the host hands to plugins.
type OrgConfig struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	URL         string `yaml:"url"`
	LogoURL     string `yaml:"logo_url"`
}

func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.setDefaults()

	return &cfg, nil
}

func (c *Config) setDefaults() {
	if c.Slack.PageSize == 0 {
		c.Slack.PageSize = 100
	}
	if c.Slack.Timeout == 0 {
		c.Slack.Timeout = 30 * time.Second
	}
	if c.Slack.Retry.MaxAttempts == 0 {
		c.Slack.Retry.MaxAttempts = 3
	}
	if c.Slack.Retry.InitialBackoff == 0 {
		c.Slack.Retry.InitialBackoff = 1 * time.Second
	}
	if c.Slack.Retry.MaxBackoff == 0 {
		c.Slack.Retry.MaxBackoff = 30 * time.Second
	}
	if c.Publisher.URL != "" {
		if c.Publisher.Exchange == "" {
			c.Publisher.Exchange = "leaderboard"
		}
		if c.Publisher.RoutingKey == "" {
			c.Publisher.RoutingKey = "activities"
		}
		if c.Publisher.QueueName == "" {
			c.Publisher.QueueName = "leaderboard_activities"
		}
	}
	if c.Scrape.Interval == 0 {
		c.Scrape.Interval = 1 * time.Hour
	}
	if c.Scrape.LookbackDays == 0 {
		c.Scrape.LookbackDays = 1
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}
