package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"coprocfleet/adapters/myredis"
	"coprocfleet/domain"

	"gopkg.in/yaml.v3"
)

// Env variable names.
const (
	envConfigPath  = "SIM_CONFIG_PATH"
	envSystemName  = "SIM_SYSTEM_NAME"
	envCommandPort = "SIM_COMMAND_PORT"
	envPubSubPort  = "SIM_PUBSUB_PORT"
	envRedisAddr   = "REDIS_ADDR"
	envLogTopic    = "SIM_LOG_TOPIC"
)

// Config is the simulator configuration assembled by LoadConfig.
type Config struct {
	SystemName  string
	Hostname    string
	CommandPort int
	PubSubPort  int
	// Redis.Addr is empty when log publishing is disabled.
	Redis    myredis.RedisConfig
	LogTopic string
	// AcceptedProcesses is empty when any process kind is accepted.
	AcceptedProcesses []string
	Heartbeat         time.Duration
}

// yamlConfig is the optional file at SIM_CONFIG_PATH.
type yamlConfig struct {
	Hostname          string   `yaml:"hostname"`
	AcceptedProcesses []string `yaml:"accepted_processes"`
	HeartbeatMs       int      `yaml:"heartbeat_ms"`
}

func loadYAMLConfig(path string) (*yamlConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var out yamlConfig
	if err := yaml.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// LoadConfig reads SIM_SYSTEM_NAME (required), SIM_COMMAND_PORT and SIM_PUBSUB_PORT (default
// 5000 and 8080), REDIS_ADDR (optional redis:// URL), SIM_LOG_TOPIC and the optional YAML file
// at SIM_CONFIG_PATH.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		SystemName:  strings.TrimSpace(os.Getenv(envSystemName)),
		CommandPort: domain.DefaultCommandPort,
		PubSubPort:  domain.DefaultPubSubPort,
		Redis:       myredis.RedisConfig{Addr: strings.TrimSpace(os.Getenv(envRedisAddr))},
		LogTopic:    domain.DefaultLogTopic,
	}
	if cfg.SystemName == "" {
		return nil, fmt.Errorf("%s is required", envSystemName)
	}

	var err error
	if cfg.CommandPort, err = portFromEnv(envCommandPort, cfg.CommandPort); err != nil {
		return nil, err
	}
	if cfg.PubSubPort, err = portFromEnv(envPubSubPort, cfg.PubSubPort); err != nil {
		return nil, err
	}
	if topic := strings.TrimSpace(os.Getenv(envLogTopic)); topic != "" {
		cfg.LogTopic = topic
	}

	if configPath := strings.TrimSpace(os.Getenv(envConfigPath)); configPath != "" {
		if !filepath.IsAbs(configPath) {
			abs, absErr := filepath.Abs(configPath)
			if absErr != nil {
				return nil, absErr
			}
			configPath = abs
		}
		raw, err := loadYAMLConfig(configPath)
		if err != nil {
			return nil, fmt.Errorf("load config %s: %w", configPath, err)
		}
		if raw.HeartbeatMs < 0 {
			return nil, fmt.Errorf("heartbeat_ms must not be negative, got %d", raw.HeartbeatMs)
		}
		for _, p := range raw.AcceptedProcesses {
			if p = strings.TrimSpace(p); p != "" {
				cfg.AcceptedProcesses = append(cfg.AcceptedProcesses, p)
			}
		}
		cfg.Hostname = strings.TrimSpace(raw.Hostname)
		cfg.Heartbeat = time.Duration(raw.HeartbeatMs) * time.Millisecond
	}

	if cfg.Hostname == "" {
		if cfg.Hostname, err = os.Hostname(); err != nil {
			return nil, fmt.Errorf("resolve hostname: %w", err)
		}
	}
	return cfg, nil
}

func portFromEnv(name string, def int) (int, error) {
	s := strings.TrimSpace(os.Getenv(name))
	if s == "" {
		return def, nil
	}
	port, err := strconv.Atoi(s)
	if err != nil || port <= 0 || port > 65535 {
		return 0, fmt.Errorf("%s must be 1-65535, got %q", name, s)
	}
	return port, nil
}
