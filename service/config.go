package service

import (
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"coprocfleet/domain"

	"gopkg.in/yaml.v3"
)

// yamlFleetConfig is the root of a fleet YAML file. Durations are in milliseconds; zero or
// absent values keep the defaults from domain.DefaultFleetConfig.
type yamlFleetConfig struct {
	DiscoveryTimeoutMs int                `yaml:"discovery_timeout_ms"`
	CommandPort        int                `yaml:"command_port"`
	PubSubPort         int                `yaml:"pubsub_port"`
	CallTimeoutMs      int                `yaml:"call_timeout_ms"`
	LogTopic           string             `yaml:"log_topic"`
	Processes          []yamlProcess      `yaml:"processes"`
	Constraints        []yamlConstraint   `yaml:"constraints"`
	BaseWeights        map[string]float64 `yaml:"base_weights"`
}

type yamlProcess struct {
	Name   string  `yaml:"name"`
	Weight float64 `yaml:"weight"`
}

type yamlConstraint struct {
	Process string   `yaml:"process"`
	Hosts   []string `yaml:"hosts"`
}

// LoadFleetConfig reads and validates the fleet YAML file at path.
//
// Returns a bad_parameter FleetError when the file cannot be read or parsed, a port is outside
// 1-65535, a timeout is negative, a process is unnamed, duplicated or has a negative weight, or
// a constraint names an undeclared process or no hosts.
func LoadFleetConfig(path string) (domain.FleetConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.FleetConfig{}, NewBadParameterError(fmt.Sprintf("read fleet config %s", path), err)
	}
	return ParseFleetConfig(data)
}

// ParseFleetConfig validates a fleet YAML document. See LoadFleetConfig.
func ParseFleetConfig(data []byte) (domain.FleetConfig, error) {
	var raw yamlFleetConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return domain.FleetConfig{}, NewBadParameterError("parse fleet config", err)
	}

	cfg := domain.DefaultFleetConfig()
	if raw.DiscoveryTimeoutMs < 0 {
		return domain.FleetConfig{}, NewBadParameterError("discovery_timeout_ms must not be negative", nil)
	}
	if raw.DiscoveryTimeoutMs > 0 {
		cfg.DiscoveryTimeout = time.Duration(raw.DiscoveryTimeoutMs) * time.Millisecond
	}
	if raw.CallTimeoutMs < 0 {
		return domain.FleetConfig{}, NewBadParameterError("call_timeout_ms must not be negative", nil)
	}
	if raw.CallTimeoutMs > 0 {
		cfg.CallTimeout = time.Duration(raw.CallTimeoutMs) * time.Millisecond
	}
	for _, p := range []struct {
		name string
		in   int
		out  *int
	}{
		{"command_port", raw.CommandPort, &cfg.CommandPort},
		{"pubsub_port", raw.PubSubPort, &cfg.PubSubPort},
	} {
		if p.in < 0 || p.in > 65535 {
			return domain.FleetConfig{}, NewBadParameterError(fmt.Sprintf("%s must be 1-65535, got %d", p.name, p.in), nil)
		}
		if p.in > 0 {
			*p.out = p.in
		}
	}
	if topic := strings.TrimSpace(raw.LogTopic); topic != "" {
		cfg.LogTopic = topic
	}

	declared := make(map[string]struct{}, len(raw.Processes))
	for i, p := range raw.Processes {
		name := strings.TrimSpace(p.Name)
		if name == "" {
			return domain.FleetConfig{}, NewBadParameterError(fmt.Sprintf("processes[%d]: name is required", i), nil)
		}
		if _, dup := declared[name]; dup {
			return domain.FleetConfig{}, NewBadParameterError(fmt.Sprintf("process %q declared twice", name), nil)
		}
		if !finiteNonNegative(p.Weight) {
			return domain.FleetConfig{}, NewBadParameterError(fmt.Sprintf("process %q: weight must be a finite non-negative number", name), nil)
		}
		declared[name] = struct{}{}
		cfg.Processes = append(cfg.Processes, domain.NamedProcess{Name: name, Cost: p.Weight})
	}

	for i, c := range raw.Constraints {
		process := strings.TrimSpace(c.Process)
		if _, ok := declared[process]; !ok {
			return domain.FleetConfig{}, NewBadParameterError(fmt.Sprintf("constraints[%d]: unknown process %q", i, c.Process), nil)
		}
		hosts := make([]string, 0, len(c.Hosts))
		for _, h := range c.Hosts {
			if h = strings.TrimSpace(h); h != "" {
				hosts = append(hosts, h)
			}
		}
		if len(hosts) == 0 {
			return domain.FleetConfig{}, NewBadParameterError(fmt.Sprintf("constraints[%d]: process %q needs at least one host", i, process), nil)
		}
		cfg.Constraints = append(cfg.Constraints, domain.ConstraintConfig{Process: process, Hosts: hosts})
	}

	for name, w := range raw.BaseWeights {
		if !finiteNonNegative(w) {
			return domain.FleetConfig{}, NewBadParameterError(fmt.Sprintf("base_weights[%s] must be a finite non-negative number", name), nil)
		}
		cfg.BaseWeights[name] = w
	}
	return cfg, nil
}

// finiteNonNegative is false for NaN and +Inf.
func finiteNonNegative(w float64) bool {
	return w >= 0 && !math.IsInf(w, 1)
}

// BuildNamedWork turns the declared processes and constraints of cfg into placement input.
// Constraints for the same process are applied in file order, so the last one wins.
func BuildNamedWork(cfg domain.FleetConfig) ([]domain.NamedProcess, *ConstraintTable[domain.NamedProcess]) {
	byName := make(map[string]domain.NamedProcess, len(cfg.Processes))
	for _, p := range cfg.Processes {
		byName[p.Name] = p
	}
	table := NewConstraintTable[domain.NamedProcess]()
	for _, c := range cfg.Constraints {
		if p, ok := byName[c.Process]; ok {
			table.Upsert(p, c.Hosts...)
		}
	}
	return append([]domain.NamedProcess(nil), cfg.Processes...), table
}
