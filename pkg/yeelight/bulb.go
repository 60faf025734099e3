package yeelight

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"time"
)

const defaultTimeout = 5 * time.Second

// request is a single command sent to the bulb
type request struct {
	ID     int    `json:"id"`
	Method string `json:"method"`
	Params []any  `json:"params"`
}

// response is either a reply to a request (ID set) or a notification (Method set)
type response struct {
	ID     int             `json:"id"`
	Result []any           `json:"result"`
	Error  *CommandError   `json:"error"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
}

// Bulb talks the LAN control protocol to a single Yeelight bulb. The TCP
// connection is opened lazily and reopened after an I/O error.
type Bulb struct {
	host     string
	port     int
	model    string
	effect   string
	duration int
	timeout  time.Duration
	logger   *slog.Logger
	dial     func(ctx context.Context, network, addr string) (net.Conn, error)
	prober   func(ctx context.Context, host string) (Capabilities, error)

	mu     sync.Mutex
	conn   net.Conn
	reader *bufio.Reader
	nextID int
	props  Properties
	caps   Capabilities
}

// Option configures a Bulb
type Option func(*Bulb)

// WithPort overrides the control port
func WithPort(port int) Option {
	return func(b *Bulb) { b.port = port }
}

// WithModel sets the model when it is already known, skipping a capabilities probe for specs
func WithModel(model string) Option {
	return func(b *Bulb) { b.model = model }
}

// WithEffect sets the transition used by state changing commands.
// Durations below 30ms make the bulb switch instantly.
func WithEffect(duration time.Duration) Option {
	return func(b *Bulb) {
		if duration < 30*time.Millisecond {
			b.effect, b.duration = "sudden", 0
			return
		}
		b.effect, b.duration = "smooth", int(duration.Milliseconds())
	}
}

// WithTimeout bounds each request/response exchange
func WithTimeout(d time.Duration) Option {
	return func(b *Bulb) { b.timeout = d }
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bulb) { b.logger = logger }
}

// WithDialer replaces the TCP dialer
func WithDialer(dial func(ctx context.Context, network, addr string) (net.Conn, error)) Option {
	return func(b *Bulb) { b.dial = dial }
}

// WithProber replaces the unicast discovery probe used by Capabilities
func WithProber(probe func(ctx context.Context, host string) (Capabilities, error)) Option {
	return func(b *Bulb) { b.prober = probe }
}

// NewBulb creates a client for the bulb at host. No connection is made until
// the first command.
func NewBulb(host string, opts ...Option) (*Bulb, error) {
	if host == "" {
		return nil, errors.New("bulb host is required")
	}
	b := &Bulb{
		host:     host,
		port:     DefaultPort,
		effect:   "smooth",
		duration: 300,
		timeout:  defaultTimeout,
		logger:   slog.Default(),
		props:    Properties{},
	}
	var d net.Dialer
	b.dial = d.DialContext
	b.prober = func(ctx context.Context, host string) (Capabilities, error) {
		return NewSSDPDiscoverer(WithSSDPLogger(b.logger)).Probe(ctx, host)
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// Host returns the address the bulb is reached at
func (b *Bulb) Host() string { return b.host }

// Model returns the known model, which may be empty until Capabilities succeeds
func (b *Bulb) Model() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.model
}

func (b *Bulb) addr() string {
	return net.JoinHostPort(b.host, strconv.Itoa(b.port))
}

// connect must be called with b.mu held
func (b *Bulb) connect(ctx context.Context) error {
	if b.conn != nil {
		return nil
	}
	dialCtx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()
	conn, err := b.dial(dialCtx, "tcp", b.addr())
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", b.addr(), err)
	}
	b.conn = conn
	b.reader = bufio.NewReader(conn)
	b.logger.Debug("light: connected", "addr", b.addr())
	return nil
}

// closeConn must be called with b.mu held
func (b *Bulb) closeConn() {
	if b.conn != nil {
		_ = b.conn.Close()
	}
	b.conn = nil
	b.reader = nil
}

// SendCommand sends a raw command and waits for its result.
func (b *Bulb) SendCommand(ctx context.Context, method string, params ...any) ([]any, error) {
	if params == nil {
		params = []any{}
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.connect(ctx); err != nil {
		return nil, err
	}

	b.nextID++
	req := request{ID: b.nextID, Method: method, Params: params}
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	deadline := time.Now().Add(b.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = b.conn.SetDeadline(deadline)

	b.logger.Debug("light: sending command", "addr", b.addr(), "method", method, "params", params)
	if _, err := b.conn.Write(append(payload, '\r', '\n')); err != nil {
		b.closeConn()
		return nil, fmt.Errorf("failed to send %s: %w", method, err)
	}

	for {
		line, err := b.reader.ReadBytes('\n')
		if err != nil {
			b.closeConn()
			return nil, fmt.Errorf("failed to read %s response: %w", method, err)
		}
		var resp response
		if err := json.Unmarshal(line, &resp); err != nil {
			b.logger.Debug("light: skipping malformed line", "addr", b.addr(), "line", string(line))
			continue
		}
		if resp.Method == "props" {
			b.applyNotification(resp.Params)
			continue
		}
		if resp.ID != req.ID {
			continue
		}
		if resp.Error != nil {
			return nil, resp.Error
		}
		return resp.Result, nil
	}
}

// applyNotification merges a props notification into the cached properties.
// Must be called with b.mu held.
func (b *Bulb) applyNotification(raw json.RawMessage) {
	var params map[string]any
	if err := json.Unmarshal(raw, &params); err != nil {
		return
	}
	for k, v := range params {
		b.props[k] = formatValue(v)
	}
}

// GetProperties reads the named properties (AllProperties when none are given)
// and caches them for BulbType and LastProperties.
func (b *Bulb) GetProperties(ctx context.Context, names ...string) (Properties, error) {
	if len(names) == 0 {
		names = AllProperties
	}
	params := make([]any, len(names))
	for i, n := range names {
		params[i] = n
	}
	result, err := b.SendCommand(ctx, "get_prop", params...)
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for i, n := range names {
		if i >= len(result) {
			b.props[n] = ""
			continue
		}
		b.props[n] = formatValue(result[i])
	}
	return b.props.Clone(), nil
}

// LastProperties returns the properties from the last refresh and notifications
func (b *Bulb) LastProperties() Properties {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.props.Clone()
}

// BulbType returns the capability class derived from the last properties read
func (b *Bulb) BulbType() BulbType {
	return DetectBulbType(b.LastProperties())
}

// Capabilities probes the bulb with a unicast discovery request. The result
// also fills in the model when it was not configured.
func (b *Bulb) Capabilities(ctx context.Context) (Capabilities, error) {
	b.mu.Lock()
	if b.caps != nil {
		caps := b.caps
		b.mu.Unlock()
		return caps, nil
	}
	b.mu.Unlock()

	caps, err := b.prober(ctx, b.host)
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	b.caps = caps
	if b.model == "" {
		b.model = caps.Model()
	}
	b.mu.Unlock()
	return caps, nil
}

// ModelSpecs returns the spec of the bulb's model
func (b *Bulb) ModelSpecs() ModelSpec {
	return SpecForModel(b.Model())
}

func (b *Bulb) setProps(kv ...string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := 0; i+1 < len(kv); i += 2 {
		b.props[kv[i]] = kv[i+1]
	}
}

func (b *Bulb) setPower(ctx context.Context, lt LightType, on bool, mode PowerMode) error {
	state := "off"
	if on {
		state = "on"
	}
	params := []any{state, b.effect, b.duration}
	if on && mode != PowerModeLast {
		params = append(params, int(mode))
	}
	if _, err := b.SendCommand(ctx, lt.prefix()+"set_power", params...); err != nil {
		return err
	}
	b.setProps(lt.prefix()+"power", state)
	switch mode {
	case PowerModeMoonlight:
		b.setProps("active_mode", "1")
	case PowerModeNormal:
		b.setProps("active_mode", "0")
	}
	return nil
}

// TurnOn powers on the selected light
func (b *Bulb) TurnOn(ctx context.Context, lt LightType) error {
	return b.setPower(ctx, lt, true, PowerModeLast)
}

// TurnOff powers off the selected light
func (b *Bulb) TurnOff(ctx context.Context, lt LightType) error {
	return b.setPower(ctx, lt, false, PowerModeLast)
}

// SetPowerMode turns the main light on in the given mode. PowerModeMoonlight
// switches to the nightlight, PowerModeNormal back to the main light.
func (b *Bulb) SetPowerMode(ctx context.Context, mode PowerMode) error {
	return b.setPower(ctx, LightTypeMain, true, mode)
}

// Toggle flips the power state of the selected light
func (b *Bulb) Toggle(ctx context.Context, lt LightType) error {
	if _, err := b.SendCommand(ctx, lt.prefix()+"toggle"); err != nil {
		return err
	}
	key := lt.prefix() + "power"
	b.mu.Lock()
	if b.props[key] == "on" {
		b.props[key] = "off"
	} else {
		b.props[key] = "on"
	}
	b.mu.Unlock()
	return nil
}

// SetBrightness sets brightness in percent (1-100)
func (b *Bulb) SetBrightness(ctx context.Context, lt LightType, brightness int) error {
	brightness = clamp(brightness, 1, 100)
	if _, err := b.SendCommand(ctx, lt.prefix()+"set_bright", brightness, b.effect, b.duration); err != nil {
		return err
	}
	b.setProps(lt.prefix()+"bright", strconv.Itoa(brightness))
	return nil
}

// SetColorTemp sets the color temperature in Kelvin, clamped to the model's range
func (b *Bulb) SetColorTemp(ctx context.Context, lt LightType, kelvin int) error {
	kelvin = b.ModelSpecs().ClampKelvin(kelvin)
	if _, err := b.SendCommand(ctx, lt.prefix()+"set_ct_abx", kelvin, b.effect, b.duration); err != nil {
		return err
	}
	b.setProps(lt.prefix()+"ct", strconv.Itoa(kelvin), lt.modeKey(), ColorModeColorTemp)
	return nil
}

// SetRGB sets the color of the selected light
func (b *Bulb) SetRGB(ctx context.Context, lt LightType, red, green, blue int) error {
	value := RGBToInt(red, green, blue)
	if _, err := b.SendCommand(ctx, lt.prefix()+"set_rgb", value, b.effect, b.duration); err != nil {
		return err
	}
	b.setProps(lt.prefix()+"rgb", strconv.Itoa(value), lt.modeKey(), ColorModeRGB)
	return nil
}

// SetDefault saves the current state of the bulb as its power-on default
func (b *Bulb) SetDefault(ctx context.Context, lt LightType) error {
	_, err := b.SendCommand(ctx, lt.prefix()+"set_default")
	return err
}

// Close drops the connection. The bulb can still be used; the next command reconnects.
func (b *Bulb) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closeConn()
	return nil
}
