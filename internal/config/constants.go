package config

import "time"

// Common constants shared between daemon and client
const (
	// ConfigDirName is the name of the config directory within XDG_CONFIG_HOME
	ConfigDirName = "yeelightd"

	// DaemonConfigFilename is the base filename for daemon config
	DaemonConfigFilename = "yeelightd.yaml"

	// ClientConfigFilename is the base filename for client config
	ClientConfigFilename = "yeelightctl.yaml"

	// EntriesFilename is the base filename of the persisted config entries
	EntriesFilename = "entries.yaml"

	// RegistryFilename is the base filename of the entity registry database
	RegistryFilename = "registry.db"

	// EnvPrefix is the environment variable prefix bound by viper
	EnvPrefix = "YEELIGHTD"

	// DefaultAPIListenAddress is the default HTTP API listen address
	DefaultAPIListenAddress = "127.0.0.1:8155"

	// DefaultAPIURL is the URL yeelightctl talks to when nothing else is configured
	DefaultAPIURL = "http://127.0.0.1:8155"

	// DefaultMQTTTopicPrefix is the prefix of published entity state topics
	DefaultMQTTTopicPrefix = "yeelightd"
)

// Default timeouts and intervals
const (
	// DefaultDiscoveryInterval is the default interval between network scans
	DefaultDiscoveryInterval = 60 * time.Second

	// MinDiscoveryInterval is the minimum allowed discovery interval
	MinDiscoveryInterval = 5 * time.Second

	// DefaultDiscoveryTimeout is how long a single scan waits for bulb replies
	DefaultDiscoveryTimeout = 2 * time.Second

	// DefaultScanInterval is the default interval for polling loaded bulbs
	DefaultScanInterval = 30 * time.Second

	// DefaultRetryInterval is the default interval for retrying entries that were not ready
	DefaultRetryInterval = 30 * time.Second

	// DefaultCommandTimeout bounds a single request/response exchange with a bulb
	DefaultCommandTimeout = 5 * time.Second
)

// Bulb constraints
const (
	// MinBrightness is the minimum brightness a bulb accepts
	MinBrightness = 1

	// MaxBrightness is the maximum brightness a bulb accepts
	MaxBrightness = 100

	// MinTemperature is the lowest color temperature (in Kelvin) any model accepts
	MinTemperature = 1700

	// MaxTemperature is the highest color temperature (in Kelvin) any model accepts
	MaxTemperature = 6500

	// DefaultTransition is the default transition for commands, in milliseconds
	DefaultTransition = 350
)

// Logging constants
const (
	// LogLevelDebug represents debug log level
	LogLevelDebug = "debug"

	// LogLevelInfo represents info log level
	LogLevelInfo = "info"

	// LogLevelWarn represents warning log level
	LogLevelWarn = "warn"

	// LogLevelError represents error log level
	LogLevelError = "error"

	// LogFormatText represents text log format
	LogFormatText = "text"

	// LogFormatJSON represents JSON log format
	LogFormatJSON = "json"
)
