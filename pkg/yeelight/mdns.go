package yeelight

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/grandcat/zeroconf"
)

const (
	mdnsService = "_miio._udp"
	mdnsDomain  = "local."
)

// MDNSDiscoverer browses for Yeelight bulbs advertising the miio service.
// mDNS only yields address and model, so each host is probed for its full
// capabilities afterwards.
type MDNSDiscoverer struct {
	timeout time.Duration
	probe   func(ctx context.Context, host string) (Capabilities, error)
	browse  func(ctx context.Context, entries chan<- *zeroconf.ServiceEntry) error
	logger  *slog.Logger
}

// NewMDNSDiscoverer creates an mDNS source. probe is normally SSDPDiscoverer.Probe.
func NewMDNSDiscoverer(timeout time.Duration, probe func(ctx context.Context, host string) (Capabilities, error), logger *slog.Logger) *MDNSDiscoverer {
	if logger == nil {
		logger = slog.Default()
	}
	return &MDNSDiscoverer{
		timeout: timeout,
		probe:   probe,
		browse:  browseZeroconf,
		logger:  logger,
	}
}

func browseZeroconf(ctx context.Context, entries chan<- *zeroconf.ServiceEntry) error {
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return fmt.Errorf("failed to create mDNS resolver: %w", err)
	}
	return resolver.Browse(ctx, mdnsService, mdnsDomain, entries)
}

// Name identifies the source in logs
func (d *MDNSDiscoverer) Name() string { return "mdns" }

// Discover browses for the configured timeout and returns the capabilities of
// every Yeelight bulb that answered the follow-up probe.
func (d *MDNSDiscoverer) Discover(ctx context.Context) ([]Capabilities, error) {
	browseCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry, 10)
	if err := d.browse(browseCtx, entries); err != nil {
		return nil, err
	}

	hosts := make(map[string]string)
	var order []string
	collect := func(entry *zeroconf.ServiceEntry) {
		host, model, ok := hostFromServiceEntry(entry)
		if !ok {
			return
		}
		if _, dup := hosts[host]; !dup {
			order = append(order, host)
		}
		hosts[host] = model
	}

loop:
	for {
		select {
		case <-browseCtx.Done():
			break loop
		case entry, ok := <-entries:
			if !ok {
				break loop
			}
			collect(entry)
		}
	}

	var found []Capabilities
	for _, host := range order {
		caps, err := d.probe(ctx, host)
		if err != nil {
			d.logger.Debug("discovery: mDNS host did not answer probe", "host", host, "error", err)
			continue
		}
		if caps.Model() == "" && hosts[host] != "" {
			caps["model"] = hosts[host]
		}
		found = append(found, caps)
	}
	return found, nil
}

// hostFromServiceEntry picks the IPv4 address and model of a miio service entry,
// skipping devices that are not Yeelight lights.
func hostFromServiceEntry(entry *zeroconf.ServiceEntry) (string, string, bool) {
	if entry == nil {
		return "", "", false
	}
	model := ModelFromMDNSInstance(entry.Instance)
	if model == "" {
		return "", "", false
	}
	for _, ip := range entry.AddrIPv4 {
		if ip == nil || ip.IsLoopback() || ip.Equal(net.IPv4zero) {
			continue
		}
		return ip.String(), model, true
	}
	return "", "", false
}
