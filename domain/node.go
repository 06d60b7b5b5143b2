package domain

import (
	"fmt"
	"strings"
)

// NodeDescriptor is one coprocessor resolved during a discovery pass.
// SystemName and HostnameLocal are empty when the node did not advertise them;
// AutobahnPort (pub/sub bus) and WatchdogPort (command channel) are nil when not overridden.
type NodeDescriptor struct {
	SystemName    string
	Hostname      string
	HostnameLocal string
	AutobahnPort  *int
	WatchdogPort  *int
}

// PubSubPortOr returns the advertised pub/sub port or def.
func (d NodeDescriptor) PubSubPortOr(def int) int {
	if d.AutobahnPort != nil {
		return *d.AutobahnPort
	}
	return def
}

// CommandPortOr returns the advertised command port or def.
func (d NodeDescriptor) CommandPortOr(def int) int {
	if d.WatchdogPort != nil {
		return *d.WatchdogPort
	}
	return def
}

func (d NodeDescriptor) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "NodeDescriptor{name=%q hostname=%s hostname_local=%s", d.SystemName, d.Hostname, d.HostnameLocal)
	if d.AutobahnPort != nil {
		fmt.Fprintf(&b, " autobahn_port=%d", *d.AutobahnPort)
	}
	if d.WatchdogPort != nil {
		fmt.Fprintf(&b, " watchdog_port=%d", *d.WatchdogPort)
	}
	b.WriteString("}")
	return b.String()
}
