package yeelight

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"golang.org/x/net/ipv4"
)

const (
	// MulticastAddr is the group bulbs listen on for discovery requests
	MulticastAddr = "239.255.255.250:1982"
	discoveryPort = "1982"
	searchTarget  = "wifi_bulb"
)

const searchMessage = "M-SEARCH * HTTP/1.1\r\n" +
	"HOST: 239.255.255.250:1982\r\n" +
	"MAN: \"ssdp:discover\"\r\n" +
	"ST: " + searchTarget + "\r\n"

// SSDPDiscoverer finds bulbs with the Yeelight flavour of SSDP: an M-SEARCH
// sent to UDP 1982 which bulbs answer with their capabilities as headers.
type SSDPDiscoverer struct {
	addr      string
	timeout   time.Duration
	iface     *net.Interface
	logger    *slog.Logger
	probePort string
}

// SSDPOption configures an SSDPDiscoverer
type SSDPOption func(*SSDPDiscoverer)

// WithSSDPAddr overrides the address search requests are sent to
func WithSSDPAddr(addr string) SSDPOption {
	return func(d *SSDPDiscoverer) { d.addr = addr }
}

// WithSSDPTimeout sets how long a scan collects replies
func WithSSDPTimeout(timeout time.Duration) SSDPOption {
	return func(d *SSDPDiscoverer) { d.timeout = timeout }
}

// WithSSDPInterface sends the multicast request out of a specific interface
func WithSSDPInterface(iface *net.Interface) SSDPOption {
	return func(d *SSDPDiscoverer) { d.iface = iface }
}

// WithSSDPLogger sets the logger
func WithSSDPLogger(logger *slog.Logger) SSDPOption {
	return func(d *SSDPDiscoverer) { d.logger = logger }
}

// WithProbePort overrides the port unicast probes are sent to
func WithProbePort(port string) SSDPOption {
	return func(d *SSDPDiscoverer) { d.probePort = port }
}

// NewSSDPDiscoverer creates a discoverer with the default multicast group and a 2s timeout
func NewSSDPDiscoverer(opts ...SSDPOption) *SSDPDiscoverer {
	d := &SSDPDiscoverer{
		addr:      MulticastAddr,
		timeout:   2 * time.Second,
		logger:    slog.Default(),
		probePort: discoveryPort,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Name identifies the source in logs
func (d *SSDPDiscoverer) Name() string { return "ssdp" }

// Discover sends a search request and collects replies until the timeout or
// the context expires. Replies are de-duplicated by hardware ID.
func (d *SSDPDiscoverer) Discover(ctx context.Context) ([]Capabilities, error) {
	return d.search(ctx, d.addr, false)
}

// Probe asks a single bulb for its capabilities with a unicast search request.
func (d *SSDPDiscoverer) Probe(ctx context.Context, host string) (Capabilities, error) {
	found, err := d.search(ctx, net.JoinHostPort(host, d.probePort), true)
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, fmt.Errorf("%s: %w", host, ErrNoResponse)
	}
	return found[0], nil
}

func (d *SSDPDiscoverer) search(ctx context.Context, target string, first bool) ([]Capabilities, error) {
	dst, err := net.ResolveUDPAddr("udp4", target)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", target, err)
	}

	conn, err := net.ListenUDP("udp4", &net.UDPAddr{})
	if err != nil {
		return nil, fmt.Errorf("failed to open discovery socket: %w", err)
	}
	defer conn.Close()

	if d.iface != nil && dst.IP.IsMulticast() {
		if err := bindMulticastInterface(conn, d.iface); err != nil {
			d.logger.Warn("discovery: failed to select interface", "interface", d.iface.Name, "error", err)
		}
	}

	if _, err := conn.WriteToUDP([]byte(searchMessage), dst); err != nil {
		return nil, fmt.Errorf("failed to send search request: %w", err)
	}

	deadline := time.Now().Add(d.timeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(deadline) {
		deadline = dl
	}
	_ = conn.SetReadDeadline(deadline)

	seen := make(map[string]bool)
	var found []Capabilities
	buf := make([]byte, 4096)
	for {
		if ctx.Err() != nil {
			break
		}
		n, from, err := conn.ReadFromUDP(buf)
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				break
			}
			return found, fmt.Errorf("failed to read discovery reply: %w", err)
		}
		caps, err := ParseCapabilities(buf[:n])
		if err != nil {
			d.logger.Debug("discovery: ignoring reply", "from", from.String(), "error", err)
			continue
		}
		if caps["location"] == "" {
			caps["location"] = fmt.Sprintf("yeelight://%s:%d", from.IP.String(), DefaultPort)
		}
		key := caps.ID()
		if key == "" {
			key = caps.Host()
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		d.logger.Debug("discovery: bulb replied", "id", caps.ID(), "model", caps.Model(), "host", caps.Host())
		found = append(found, caps)
		if first {
			break
		}
	}
	return found, nil
}

// ParseCapabilities parses a discovery reply (or an advertisement NOTIFY) into
// its header set. Header names are lower cased.
func ParseCapabilities(data []byte) (Capabilities, error) {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	if !scanner.Scan() {
		return nil, errors.New("empty discovery reply")
	}
	status := strings.TrimSpace(scanner.Text())
	if !strings.HasPrefix(status, "HTTP/1.1 200") && !strings.HasPrefix(status, "NOTIFY") {
		return nil, fmt.Errorf("unexpected discovery status line %q", status)
	}
	caps := Capabilities{}
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		caps[strings.ToLower(strings.TrimSpace(key))] = strings.TrimSpace(value)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if caps.ID() == "" && caps["location"] == "" {
		return nil, errors.New("discovery reply carries neither id nor location")
	}
	return caps, nil
}

func bindMulticastInterface(conn *net.UDPConn, iface *net.Interface) error {
	return ipv4.NewPacketConn(conn).SetMulticastInterface(iface)
}
