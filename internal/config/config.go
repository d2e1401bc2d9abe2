// Package config provides configuration loading, defaults, and validation
// for the appeal engine.
package config

import (
	"fmt"
	"time"

	"github.com/caseworks/appeal-engine/internal/infrastructure/database/postgres"
	"github.com/caseworks/appeal-engine/internal/infrastructure/database/redis"
	"github.com/caseworks/appeal-engine/internal/infrastructure/messaging/kafka"
	"github.com/caseworks/appeal-engine/internal/infrastructure/monitoring/logging"
)

// Config is the complete engine configuration.
type Config struct {
	Service  ServiceConfig           `mapstructure:"service"`
	Logging  logging.LogConfig       `mapstructure:"logging"`
	Database postgres.PostgresConfig `mapstructure:"database"`
	Redis    redis.RedisConfig       `mapstructure:"redis"`
	Kafka    KafkaConfig             `mapstructure:"kafka"`
	Calendar CalendarConfig          `mapstructure:"calendar"`
}

// ServiceConfig carries process-level settings.
type ServiceConfig struct {
	Name        string `mapstructure:"name"`
	MetricsAddr string `mapstructure:"metrics_addr"`
}

// KafkaConfig groups producer and consumer settings.
type KafkaConfig struct {
	Producer kafka.ProducerConfig `mapstructure:"producer"`
	Consumer kafka.ConsumerConfig `mapstructure:"consumer"`
}

// CalendarConfig controls the business calendar and its holiday refresh.
type CalendarConfig struct {
	// Jurisdiction selects the holiday division from the feed.
	Jurisdiction string `mapstructure:"jurisdiction"`

	// FeedURL is the bank-holidays JSON feed.  Empty disables HTTP refresh.
	FeedURL string `mapstructure:"feed_url"`

	// FilePath points at a local holiday file in the feed layout, watched for
	// changes.  Takes precedence over FeedURL when set.
	FilePath string `mapstructure:"file_path"`

	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
}

// Validate checks the configuration for inconsistencies that would only
// surface later as runtime failures.
func (c *Config) Validate() error {
	if c.Database.Host == "" {
		return fmt.Errorf("database.host is required")
	}
	if c.Database.Database == "" {
		return fmt.Errorf("database.database is required")
	}
	if c.Calendar.Jurisdiction == "" {
		return fmt.Errorf("calendar.jurisdiction is required")
	}
	if c.Calendar.FeedURL == "" && c.Calendar.FilePath == "" {
		return fmt.Errorf("one of calendar.feed_url or calendar.file_path is required")
	}
	if len(c.Kafka.Producer.Brokers) == 0 {
		return fmt.Errorf("kafka.producer.brokers is required")
	}
	return nil
}
