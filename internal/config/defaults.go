package config

import "time"

// ApplyDefaults fills unset fields with sensible defaults.  Called after
// unmarshalling, before validation.
func ApplyDefaults(c *Config) {
	if c.Service.Name == "" {
		c.Service.Name = "appeal-engine"
	}
	if c.Service.MetricsAddr == "" {
		c.Service.MetricsAddr = ":9090"
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}

	if c.Database.Port == 0 {
		c.Database.Port = 5432
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.Database.MigrationsDir == "" {
		c.Database.MigrationsDir = "migrations"
	}

	if c.Redis.Addr == "" {
		c.Redis.Addr = "localhost:6379"
	}

	if c.Kafka.Consumer.GroupID == "" {
		c.Kafka.Consumer.GroupID = "appeal-engine-transitions"
	}
	if len(c.Kafka.Consumer.Brokers) == 0 {
		c.Kafka.Consumer.Brokers = c.Kafka.Producer.Brokers
	}

	if c.Calendar.Jurisdiction == "" {
		c.Calendar.Jurisdiction = "england-and-wales"
	}
	if c.Calendar.FeedURL == "" && c.Calendar.FilePath == "" {
		c.Calendar.FeedURL = "https://www.gov.uk/bank-holidays.json"
	}
	if c.Calendar.RefreshInterval == 0 {
		c.Calendar.RefreshInterval = 24 * time.Hour
	}
}
