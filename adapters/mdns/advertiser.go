package mdns

import (
	"sort"
	"strconv"

	"coprocfleet/domain"

	"github.com/grandcat/zeroconf"
)

// Advertisement is what a coprocessor publishes about itself.
type Advertisement struct {
	SystemName    string
	Hostname      string
	HostnameLocal string
	CommandPort   int
	PubSubPort    int
}

// TXT renders the advertisement as sorted DNS-SD TXT strings.
func (a Advertisement) TXT() []string {
	props := map[string]string{
		domain.TXTHostname:      a.Hostname,
		domain.TXTHostnameLocal: a.HostnameLocal,
		domain.TXTSystemName:    a.SystemName,
		domain.TXTWatchdogPort:  strconv.Itoa(a.CommandPort),
		domain.TXTAutobahnPort:  strconv.Itoa(a.PubSubPort),
	}
	txt := make([]string, 0, len(props))
	for k, v := range props {
		if v == "" || v == "0" {
			continue
		}
		txt = append(txt, k+"="+v)
	}
	sort.Strings(txt)
	return txt
}

// Advertise registers a on all interfaces. Call Shutdown on the returned server to withdraw it.
func Advertise(a Advertisement) (*zeroconf.Server, error) {
	instance := a.SystemName
	if instance == "" {
		instance = a.Hostname
	}
	return zeroconf.Register(instance, domain.ServiceType, domain.ServiceDomain, a.CommandPort, a.TXT(), nil)
}
