package domain

import "time"

// Process-wide defaults used when a node or fleet is built without explicit values.
const (
	DefaultCommandPort = 5000
	DefaultPubSubPort  = 8080

	DefaultCallTimeout      = 5 * time.Second
	DefaultConnectTimeout   = 2 * time.Second
	DefaultDiscoveryTimeout = 3 * time.Second

	// ServiceType is the DNS-SD service advertised by coprocessors.
	ServiceType   = "_watchdog._udp"
	ServiceDomain = "local."

	DefaultLogTopic = "pi-technical-log"
)

// TXT record keys advertised alongside ServiceType.
const (
	TXTHostname      = "hostname"
	TXTHostnameLocal = "hostname_local"
	TXTSystemName    = "system_name"
	TXTWatchdogPort  = "watchdog_port"
	TXTAutobahnPort  = "autobahn_port"
)

// RequestIDHeader carries the per-call correlation id on command-channel requests.
const RequestIDHeader = "X-Request-Id"
