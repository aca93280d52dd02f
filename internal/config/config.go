package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the server configuration: defaults, overlaid by an optional
// YAML file, overlaid by environment variables. Everything has a working
// default so a bare binary comes up against local MySQL and Redis.
type Config struct {
	HTTPAddr string `yaml:"http_addr"`
	MySQLDSN string `yaml:"mysql_dsn"`

	// RedisAddr empty disables the cache layer entirely; MySQL stays
	// authoritative either way.
	RedisAddr string `yaml:"redis_addr"`

	// KafkaBrokers empty disables the transaction feed.
	KafkaBrokers []string `yaml:"kafka_brokers"`
	KafkaTopic   string   `yaml:"kafka_topic"`

	JWTSecret string `yaml:"jwt_secret"`

	FeedWorkers      int `yaml:"feed_workers"`
	FeedQueueSize    int `yaml:"feed_queue_size"`
	SessionQueueSize int `yaml:"session_queue_size"`
}

func Default() *Config {
	return &Config{
		HTTPAddr:         ":8080",
		MySQLDSN:         "root:root@tcp(localhost:3306)/stocksync?parseTime=true",
		RedisAddr:        "localhost:6379",
		KafkaTopic:       "stock.transactions",
		JWTSecret:        "dev-secret-change-me",
		FeedWorkers:      4,
		FeedQueueSize:    10000,
		SessionQueueSize: 64,
	}
}

// Load builds the config from defaults, the YAML file at path (skipped
// when path is empty or the file does not exist), and the environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config file: %w", err)
			}
		}
	}

	cfg.applyEnv()

	if cfg.FeedWorkers <= 0 {
		return nil, fmt.Errorf("feed_workers must be positive, got %d", cfg.FeedWorkers)
	}
	if cfg.SessionQueueSize <= 0 {
		return nil, fmt.Errorf("session_queue_size must be positive, got %d", cfg.SessionQueueSize)
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	setString(&c.HTTPAddr, "STOCKSYNC_HTTP_ADDR")
	setString(&c.MySQLDSN, "STOCKSYNC_MYSQL_DSN")
	setString(&c.RedisAddr, "STOCKSYNC_REDIS_ADDR")
	setString(&c.KafkaTopic, "STOCKSYNC_KAFKA_TOPIC")
	setString(&c.JWTSecret, "STOCKSYNC_JWT_SECRET")
	setInt(&c.FeedWorkers, "STOCKSYNC_FEED_WORKERS")
	setInt(&c.FeedQueueSize, "STOCKSYNC_FEED_QUEUE_SIZE")
	setInt(&c.SessionQueueSize, "STOCKSYNC_SESSION_QUEUE_SIZE")

	if v, ok := os.LookupEnv("STOCKSYNC_KAFKA_BROKERS"); ok {
		c.KafkaBrokers = splitBrokers(v)
	}
}

func splitBrokers(v string) []string {
	var out []string
	for _, b := range strings.Split(v, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}
