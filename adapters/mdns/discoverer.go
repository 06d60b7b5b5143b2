// Package mdns discovers and advertises coprocessors over multicast DNS-SD.
package mdns

import (
	"context"
	"net"
	"strconv"
	"strings"
	"time"

	"coprocfleet/domain"
	"coprocfleet/helpers"
	"coprocfleet/interfaces"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/grandcat/zeroconf"
)

// BrowseFunc starts a DNS-SD browse for service in domain and streams resolved entries into
// entries until ctx is done, at which point the implementation closes entries.
// zeroconf.Resolver.Browse has this contract.
type BrowseFunc func(ctx context.Context, service, domain string, entries chan<- *zeroconf.ServiceEntry) error

// Discoverer implements interfaces.Discoverer on top of a DNS-SD browse.
type Discoverer struct {
	browse  BrowseFunc
	service string
	domain  string
	logger  log.Logger
}

var _ interfaces.Discoverer = (*Discoverer)(nil)

// Option customizes a Discoverer.
type Option func(*Discoverer)

// WithBrowseFunc replaces the zeroconf resolver, mainly for tests.
func WithBrowseFunc(fn BrowseFunc) Option {
	return func(d *Discoverer) { d.browse = fn }
}

// WithService overrides the advertised service type and domain.
func WithService(service, domain string) Option {
	return func(d *Discoverer) {
		d.service = service
		d.domain = domain
	}
}

// NewDiscoverer returns a Discoverer browsing domain.ServiceType in domain.ServiceDomain.
// Panics on nil logger.
func NewDiscoverer(logger log.Logger, opts ...Option) *Discoverer {
	d := &Discoverer{
		browse:  zeroconfBrowse,
		service: domain.ServiceType,
		domain:  domain.ServiceDomain,
		logger:  log.With(helpers.NilPanic(logger, "adapters.mdns.discoverer.go: logger is required"), "component", "mdns_discoverer"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func zeroconfBrowse(ctx context.Context, service, domain string, entries chan<- *zeroconf.ServiceEntry) error {
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return err
	}
	return resolver.Browse(ctx, service, domain, entries)
}

// Discover browses for the full timeout window and returns one descriptor per resolved host, in
// resolution order. It never returns before timeout has elapsed unless the browse fails to start.
// Entries still buffered when the window closes are included.
func (d *Discoverer) Discover(timeout time.Duration) ([]domain.NodeDescriptor, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry, 16)
	found := make([]domain.NodeDescriptor, 0)
	done := make(chan struct{})
	go func() {
		defer close(done)
		seen := make(map[string]struct{})
		collect := func(entry *zeroconf.ServiceEntry) {
			desc, ok := d.descriptorFromEntry(entry)
			if !ok {
				return
			}
			if _, dup := seen[desc.Hostname]; dup {
				return
			}
			seen[desc.Hostname] = struct{}{}
			found = append(found, desc)
			level.Debug(d.logger).Log("msg", "node resolved", "node", desc.String())
		}
		for {
			select {
			case entry, ok := <-entries:
				if !ok {
					return
				}
				collect(entry)
			case <-ctx.Done():
				// The browser may never close entries, so drain what is buffered and stop.
				for {
					select {
					case entry, ok := <-entries:
						if !ok {
							return
						}
						collect(entry)
					default:
						return
					}
				}
			}
		}
	}()

	if err := d.browse(ctx, d.service, d.domain, entries); err != nil {
		cancel()
		<-done
		return nil, err
	}
	<-ctx.Done()
	<-done

	level.Info(d.logger).Log("msg", "discovery pass finished", "nodes", len(found), "window", timeout)
	return found, nil
}

// descriptorFromEntry extracts a NodeDescriptor from a resolved entry. The hostname falls back
// from the TXT "hostname" property to the advertised server host and then to the first
// resolved address; entries with none of them are dropped.
func (d *Discoverer) descriptorFromEntry(entry *zeroconf.ServiceEntry) (domain.NodeDescriptor, bool) {
	if entry == nil {
		return domain.NodeDescriptor{}, false
	}
	props := parseTXT(entry.Text)
	hostname := props[domain.TXTHostname]
	if hostname == "" {
		hostname = strings.TrimSuffix(entry.HostName, ".")
	}
	if hostname == "" {
		hostname = firstAddress(entry.AddrIPv4, entry.AddrIPv6)
	}
	if hostname == "" {
		level.Warn(d.logger).Log("msg", "dropping entry without hostname", "instance", entry.Instance)
		return domain.NodeDescriptor{}, false
	}
	return domain.NodeDescriptor{
		SystemName:    props[domain.TXTSystemName],
		Hostname:      hostname,
		HostnameLocal: props[domain.TXTHostnameLocal],
		AutobahnPort:  d.parsePort(props, domain.TXTAutobahnPort, hostname),
		WatchdogPort:  d.parsePort(props, domain.TXTWatchdogPort, hostname),
	}, true
}

func (d *Discoverer) parsePort(props map[string]string, key, hostname string) *int {
	raw, ok := props[key]
	if !ok || raw == "" {
		return nil
	}
	port, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || port <= 0 || port > 65535 {
		level.Warn(d.logger).Log("msg", "ignoring invalid port property", "key", key, "value", raw, "hostname", hostname)
		return nil
	}
	return &port
}

// parseTXT turns "key=value" TXT strings into a map. Keys without "=" map to "".
func parseTXT(text []string) map[string]string {
	props := make(map[string]string, len(text))
	for _, kv := range text {
		key, value, _ := strings.Cut(kv, "=")
		if key == "" {
			continue
		}
		props[key] = value
	}
	return props
}

func firstAddress(groups ...[]net.IP) string {
	for _, group := range groups {
		for _, ip := range group {
			if ip != nil {
				return ip.String()
			}
		}
	}
	return ""
}
