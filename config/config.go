package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	HTTP       HTTPConfig       `yaml:"http"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Kafka      KafkaConfig      `yaml:"kafka"`
	Schedule   ScheduleConfig   `yaml:"schedule"`
	Dispatcher DispatcherConfig `yaml:"dispatcher"`
}

type AppConfig struct {
	Env string `yaml:"env"`
}

type HTTPConfig struct {
	Address string `yaml:"address"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s", d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type KafkaConfig struct {
	Brokers         []string `yaml:"brokers"`
	ChangesTopic    string   `yaml:"changes_topic"`
	DeadLetterTopic string   `yaml:"dead_letter_topic"`
	GroupID         string   `yaml:"group_id"`
}

type ScheduleConfig struct {
	// Reference timezone for occupancy date grouping, e.g. "America/Chicago".
	// Calendar highlighting keys on local dates, not UTC dates.
	Timezone      string `yaml:"timezone"`
	SlotsCacheTTL int    `yaml:"slots_cache_ttl_seconds"`
}

type DispatcherConfig struct {
	MaxRetries int `yaml:"max_retries"`
	DedupSize  int `yaml:"dedup_size"`
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if cfg.Schedule.Timezone == "" {
		cfg.Schedule.Timezone = "UTC"
	}
	if cfg.Dispatcher.MaxRetries <= 0 {
		cfg.Dispatcher.MaxRetries = 3
	}
	if cfg.Dispatcher.DedupSize <= 0 {
		cfg.Dispatcher.DedupSize = 1024
	}

	return &cfg, nil
}
