// Package integration connects Yeelight bulbs to the host core: it sets up
// config entries, creates their light and binary sensor entities and keeps
// entity states in sync with the bulbs.
package integration

// Domain of the integration, also the registry platform of its entities
const Domain = "yeelight"

// Entity domains
const (
	DomainLight        = "light"
	DomainBinarySensor = "binary_sensor"
)

// Config entry data keys
const (
	ConfHost             = "host"
	ConfID               = "id"
	ConfName             = "name"
	ConfModel            = "model"
	ConfTransition       = "transition"
	ConfModeMusic        = "use_music_mode"
	ConfSaveOnChange     = "save_on_change"
	ConfNightlightSwitch = "nightlight_switch"
)

// Flat configuration keys
const (
	ConfDevices              = "devices"
	ConfNightlightSwitchType = "nightlight_switch_type"

	NightlightSwitchTypeLight = "light"
)

// DefaultTransition is the transition used when an entry does not set one, in milliseconds
const DefaultTransition = 350

// Unique ID suffixes of the secondary entities of a bulb
const (
	nightlightSuffix = "-nightlight"
	ambilightSuffix  = "-ambilight"
)
