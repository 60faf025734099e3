package yeelight

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Common errors
var (
	ErrBulbNotFound = errors.New("bulb not found")
	ErrNoResponse   = errors.New("bulb did not respond")
)

// DefaultPort is the TCP control port of every Yeelight bulb
const DefaultPort = 55443

// BulbType is the capability class of a bulb, derived from the properties it reports.
type BulbType int

const (
	BulbTypeUnknown BulbType = iota - 1
	BulbTypeWhite
	BulbTypeColor
	BulbTypeWhiteTemp
	BulbTypeWhiteTempMood
)

func (t BulbType) String() string {
	switch t {
	case BulbTypeWhite:
		return "white"
	case BulbTypeColor:
		return "color"
	case BulbTypeWhiteTemp:
		return "white_temp"
	case BulbTypeWhiteTempMood:
		return "white_temp_mood"
	default:
		return "unknown"
	}
}

// HasNightlightMode reports whether bulbs of this class can switch into moonlight mode.
func (t BulbType) HasNightlightMode() bool {
	return t == BulbTypeColor || t == BulbTypeWhiteTemp || t == BulbTypeWhiteTempMood
}

// HasAmbientLight reports whether bulbs of this class carry a second (background) light.
func (t BulbType) HasAmbientLight() bool {
	return t == BulbTypeWhiteTempMood
}

// LightType selects the main or the ambient (background) light of a bulb.
type LightType int

const (
	LightTypeMain LightType = iota
	LightTypeAmbient
)

// prefix returns the method/property prefix used by the protocol for the light type
func (lt LightType) prefix() string {
	if lt == LightTypeAmbient {
		return "bg_"
	}
	return ""
}

// modeKey is the property holding the color mode of the light
func (lt LightType) modeKey() string {
	if lt == LightTypeAmbient {
		return "bg_lmode"
	}
	return "color_mode"
}

// Color modes reported in color_mode and bg_lmode
const (
	ColorModeRGB       = "1"
	ColorModeColorTemp = "2"
	ColorModeHSV       = "3"
)

// PowerMode is the mode passed along with set_power.
type PowerMode int

const (
	PowerModeLast      PowerMode = 0
	PowerModeNormal    PowerMode = 1
	PowerModeRGB       PowerMode = 2
	PowerModeHSV       PowerMode = 3
	PowerModeColorFlow PowerMode = 4
	PowerModeMoonlight PowerMode = 5
)

// AllProperties is the property set requested when no explicit names are given.
var AllProperties = []string{
	"power", "bright", "ct", "rgb", "hue", "sat", "color_mode", "flowing",
	"bg_power", "bg_lmode", "bg_flowing", "bg_ct", "bg_bright", "bg_hue", "bg_sat", "bg_rgb",
	"nl_br", "active_mode", "name",
}

// Properties holds property values as reported by get_prop. Bulbs report
// unsupported properties as the empty string.
type Properties map[string]string

// Get returns the value of a property, or "" when missing.
func (p Properties) Get(name string) string {
	return p[name]
}

// IsEmpty reports whether a property is missing or empty.
func (p Properties) IsEmpty(name string) bool {
	return p[name] == ""
}

// Int parses a numeric property, returning 0 when it is missing or malformed.
func (p Properties) Int(name string) int {
	v, err := strconv.Atoi(p[name])
	if err != nil {
		return 0
	}
	return v
}

// IsOn reports whether the main light is powered.
func (p Properties) IsOn() bool {
	return p["power"] == "on"
}

// IsNightlight reports whether the bulb is currently in moonlight mode.
func (p Properties) IsNightlight() bool {
	return p["active_mode"] == "1"
}

// Clone returns a copy that can be handed out without sharing the map.
func (p Properties) Clone() Properties {
	out := make(Properties, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// DetectBulbType derives the capability class from a property snapshot.
func DetectBulbType(p Properties) BulbType {
	if len(p) == 0 {
		return BulbTypeUnknown
	}
	if _, ok := p["ct"]; !ok {
		return BulbTypeUnknown
	}
	if _, ok := p["rgb"]; !ok {
		return BulbTypeUnknown
	}
	if p.IsEmpty("rgb") && !p.IsEmpty("ct") {
		if !p.IsEmpty("bg_power") {
			return BulbTypeWhiteTempMood
		}
		return BulbTypeWhiteTemp
	}
	if p.IsEmpty("ct") && p.IsEmpty("rgb") && p.IsEmpty("hue") && p.IsEmpty("sat") {
		return BulbTypeWhite
	}
	return BulbTypeColor
}

// Capabilities is the header set a bulb returns in its discovery response.
// Keys are lower case (id, model, fw_ver, support, power, bright, name, location...).
type Capabilities map[string]string

// ID returns the bulb's hardware ID, e.g. 0x000000000015243f.
func (c Capabilities) ID() string { return c["id"] }

// Model returns the bulb model, e.g. color or ceiling4.
func (c Capabilities) Model() string { return c["model"] }

// Name returns the user assigned name stored on the bulb, if any.
func (c Capabilities) Name() string { return c["name"] }

// FirmwareVersion returns the reported firmware version.
func (c Capabilities) FirmwareVersion() string { return c["fw_ver"] }

// Support returns the list of supported methods.
func (c Capabilities) Support() []string {
	return strings.Fields(c["support"])
}

// Host returns the IP address from the Location header (yeelight://ip:port).
func (c Capabilities) Host() string {
	host, _ := c.hostPort()
	return host
}

// Port returns the control port from the Location header, defaulting to DefaultPort.
func (c Capabilities) Port() int {
	_, port := c.hostPort()
	return port
}

func (c Capabilities) hostPort() (string, int) {
	loc := strings.TrimPrefix(c["location"], "yeelight://")
	if loc == "" {
		return "", DefaultPort
	}
	host, portStr, found := strings.Cut(loc, ":")
	if !found {
		return host, DefaultPort
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 {
		return host, DefaultPort
	}
	return host, port
}

// Device is a bulb known by network address, with an optional hardware ID,
// its capability class and the spec of its model.
type Device struct {
	Host            string    `json:"host"`
	Port            int       `json:"port"`
	HardwareID      string    `json:"hardware_id,omitempty"`
	Model           string    `json:"model,omitempty"`
	Name            string    `json:"name,omitempty"`
	FirmwareVersion string    `json:"firmware_version,omitempty"`
	Support         []string  `json:"support,omitempty"`
	Type            BulbType  `json:"type"`
	Spec            ModelSpec `json:"spec"`
}

// DeviceFromCapabilities builds a device record from a discovery response.
func DeviceFromCapabilities(c Capabilities) Device {
	return Device{
		Host:            c.Host(),
		Port:            c.Port(),
		HardwareID:      c.ID(),
		Model:           c.Model(),
		Name:            c.Name(),
		FirmwareVersion: c.FirmwareVersion(),
		Support:         c.Support(),
		Type:            BulbTypeUnknown,
		Spec:            SpecForModel(c.Model()),
	}
}

// CommandError is an error object returned by the bulb in reply to a command.
type CommandError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("bulb error %d: %s", e.Code, e.Message)
}
