package domain

import "time"

// FleetConfig is the validated form of a fleet YAML file (see service.LoadFleetConfig).
type FleetConfig struct {
	DiscoveryTimeout time.Duration
	CommandPort      int
	PubSubPort       int
	CallTimeout      time.Duration
	LogTopic         string
	Processes        []NamedProcess
	Constraints      []ConstraintConfig
	// BaseWeights is keyed by advertised system name.
	BaseWeights map[string]float64
}

// ConstraintConfig pins Process to the nodes whose system name is listed in Hosts.
type ConstraintConfig struct {
	Process string
	Hosts   []string
}

// DefaultFleetConfig returns a config populated with the process-wide defaults.
func DefaultFleetConfig() FleetConfig {
	return FleetConfig{
		DiscoveryTimeout: DefaultDiscoveryTimeout,
		CommandPort:      DefaultCommandPort,
		PubSubPort:       DefaultPubSubPort,
		CallTimeout:      DefaultCallTimeout,
		LogTopic:         DefaultLogTopic,
		BaseWeights:      map[string]float64{},
	}
}
