package config

import (
	"log"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"taskreminder/pkg/config"
)

type ReminderConfig struct {
	TickSeconds    int `yaml:"tick_seconds"`
	RefreshSeconds int `yaml:"refresh_seconds"`
	DedupTTLHours  int `yaml:"dedup_ttl_hours"`
}

type Config struct {
	DB       config.DBConfig     `yaml:"db"`
	MQ       config.MQConfig     `yaml:"mq"`
	Redis    config.RedisConfig  `yaml:"redis"`
	JWT      config.JWTConfig    `yaml:"jwt"`
	Server   config.ServerConfig `yaml:"server"`
	Reminder ReminderConfig      `yaml:"reminder"`
}

func Load() *Config {
	env := config.GetConfigEnv()
	configDir := config.GetEnv("CONFIG_DIR", "config")

	cfgMap, err := config.LoadConfig(env, configDir)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	var cfg Config
	cfgData, err := yaml.Marshal(cfgMap)
	if err != nil {
		log.Fatalf("failed to marshal config: %v", err)
	}
	if err := yaml.Unmarshal(cfgData, &cfg); err != nil {
		log.Fatalf("failed to unmarshal config: %v", err)
	}

	// environment variables win over file configuration
	config.OverrideDBFromEnv(&cfg.DB)
	config.OverrideMQFromEnv(&cfg.MQ)
	config.OverrideRedisFromEnv(&cfg.Redis)
	config.OverrideJWTFromEnv(&cfg.JWT)
	config.OverrideServerFromEnv(&cfg.Server)
	if v := os.Getenv("REMINDER_TICK_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Reminder.TickSeconds = n
		}
	}

	if cfg.Reminder.TickSeconds <= 0 {
		cfg.Reminder.TickSeconds = 10
	}
	if cfg.Reminder.RefreshSeconds <= 0 {
		cfg.Reminder.RefreshSeconds = 30
	}
	if cfg.Reminder.DedupTTLHours <= 0 {
		cfg.Reminder.DedupTTLHours = 24
	}

	return &cfg
}
