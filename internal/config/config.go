package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// keyDelimiter separates nested viper keys. Device blocks are keyed by IP address,
// so the default "." delimiter would split them apart.
const keyDelimiter = "::"

// Key joins config path segments with the viper key delimiter.
func Key(parts ...string) string {
	return strings.Join(parts, keyDelimiter)
}

// Config represents the daemon configuration
type Config struct {
	API       APIConfig       `mapstructure:"api"`
	Discovery DiscoveryConfig `mapstructure:"discovery"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Storage   StorageConfig   `mapstructure:"storage"`
	MQTT      MQTTConfig      `mapstructure:"mqtt"`
	Yeelight  YeelightConfig  `mapstructure:"yeelight"`

	mu sync.RWMutex
	v  *viper.Viper
}

// APIConfig represents the HTTP API configuration
type APIConfig struct {
	ListenAddress     string   `mapstructure:"listen_address"`
	RequestsPerMinute int      `mapstructure:"requests_per_minute"`
	Keys              []string `mapstructure:"keys"` // empty disables authentication
}

// DiscoveryConfig represents the network discovery configuration
type DiscoveryConfig struct {
	Enabled  bool `mapstructure:"enabled"`
	Interval int  `mapstructure:"interval"` // seconds between scans
	Timeout  int  `mapstructure:"timeout"`  // seconds a scan waits for replies
	MDNS     bool `mapstructure:"mdns"`

	// Interface names the network interface SSDP search requests leave
	// from. Empty uses the system's default multicast route.
	Interface string `mapstructure:"interface"`
}

// LoggingConfig represents the logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// StorageConfig holds the locations of persisted state
type StorageConfig struct {
	EntriesFile  string `mapstructure:"entries_file"`
	RegistryPath string `mapstructure:"registry_path"`
}

// MQTTConfig configures the optional MQTT state stream
type MQTTConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Broker      string `mapstructure:"broker"`
	ClientID    string `mapstructure:"client_id"`
	Username    string `mapstructure:"username"`
	Password    string `mapstructure:"password"`
	TopicPrefix string `mapstructure:"topic_prefix"`
	QoS         int    `mapstructure:"qos"`
}

// YeelightConfig holds integration wide settings. The devices block is
// consumed raw by the integration's import (see Section).
type YeelightConfig struct {
	ScanInterval  int `mapstructure:"scan_interval"`  // seconds between property refreshes
	RetryInterval int `mapstructure:"retry_interval"` // seconds between setup retries
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(Key("api", "listen_address"), DefaultAPIListenAddress)
	v.SetDefault(Key("api", "requests_per_minute"), 240)
	v.SetDefault(Key("discovery", "enabled"), true)
	v.SetDefault(Key("discovery", "interval"), int(DefaultDiscoveryInterval.Seconds()))
	v.SetDefault(Key("discovery", "timeout"), int(DefaultDiscoveryTimeout.Seconds()))
	v.SetDefault(Key("discovery", "mdns"), true)
	v.SetDefault(Key("discovery", "interface"), "")
	v.SetDefault(Key("logging", "level"), LogLevelInfo)
	v.SetDefault(Key("logging", "format"), LogFormatText)
	v.SetDefault(Key("storage", "entries_file"), filepath.Join(GetDataDir(), EntriesFilename))
	v.SetDefault(Key("storage", "registry_path"), filepath.Join(GetDataDir(), RegistryFilename))
	v.SetDefault(Key("mqtt", "enabled"), false)
	v.SetDefault(Key("mqtt", "client_id"), "yeelightd")
	v.SetDefault(Key("mqtt", "topic_prefix"), DefaultMQTTTopicPrefix)
	v.SetDefault(Key("mqtt", "qos"), 0)
	v.SetDefault(Key("yeelight", "scan_interval"), int(DefaultScanInterval.Seconds()))
	v.SetDefault(Key("yeelight", "retry_interval"), int(DefaultRetryInterval.Seconds()))
}

// New wraps an existing viper instance. Defaults are applied but no file is read.
func New(v *viper.Viper) *Config {
	if v == nil {
		v = viper.NewWithOptions(viper.KeyDelimiter(keyDelimiter))
	}
	setDefaults(v)
	cfg := &Config{v: v}
	if err := cfg.decode(); err != nil {
		slog.Default().Warn("failed to decode config defaults", "error", err)
	}
	return cfg
}

// Load loads configuration from a file and environment variables.
// A missing file is not an error; defaults are used instead.
func Load(configName, configFile string) (*Config, error) {
	v := viper.NewWithOptions(viper.KeyDelimiter(keyDelimiter))
	v.SetConfigType("yaml")
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
		slog.Info("Using config file from command line", "path", configFile)
	} else {
		configPath := GetConfigPath(configName)
		v.SetConfigFile(configPath)
		if _, err := os.Stat(configPath); err == nil {
			slog.Info("Using default config file", "path", configPath)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(keyDelimiter, "_"))
	v.AutomaticEnv()

	cfg := &Config{v: v}
	if err := cfg.decode(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) decode() error {
	var decoded Config
	if err := c.v.Unmarshal(&decoded); err != nil {
		return fmt.Errorf("error unmarshaling config: %w", err)
	}
	c.mu.Lock()
	c.API = decoded.API
	c.Discovery = decoded.Discovery
	c.Logging = decoded.Logging
	c.Storage = decoded.Storage
	c.MQTT = decoded.MQTT
	c.Yeelight = decoded.Yeelight
	c.mu.Unlock()
	return nil
}

// Viper exposes the underlying viper instance, e.g. for flag binding.
func (c *Config) Viper() *viper.Viper {
	return c.v
}

// BindFlags lets explicitly set command line flags override the file and
// environment. bindings maps config keys (see Key) to flag names.
func (c *Config) BindFlags(flags *pflag.FlagSet, bindings map[string]string) error {
	for key, name := range bindings {
		flag := flags.Lookup(name)
		if flag == nil {
			return fmt.Errorf("unknown flag %q for config key %s", name, key)
		}
		if err := c.v.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("binding flag %q: %w", name, err)
		}
	}
	return c.decode()
}

// ConfigFile returns the file the configuration was read from, if any.
func (c *Config) ConfigFile() string {
	return c.v.ConfigFileUsed()
}

// Section returns a raw top level block of the configuration, such as the
// "yeelight" integration block handed to the integration's import.
func (c *Config) Section(name string) map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	raw := c.v.Get(name)
	section, ok := raw.(map[string]any)
	if !ok {
		return nil
	}
	return section
}

// Get retrieves a value from the configuration
func (c *Config) Get(parts ...string) any {
	if c.v == nil {
		return nil
	}
	return c.v.Get(Key(parts...))
}

// Set sets a value in the configuration
func (c *Config) Set(value any, parts ...string) {
	if c.v == nil {
		return
	}
	c.v.Set(Key(parts...), value)
}

// Watch reloads the configuration whenever the config file changes and then
// calls onChange. It is a no-op when no file was read.
func (c *Config) Watch(logger *slog.Logger, onChange func(*Config)) {
	if c.ConfigFile() == "" {
		return
	}
	if _, err := os.Stat(c.ConfigFile()); err != nil {
		logger.Debug("config: not watching missing file", "path", c.ConfigFile())
		return
	}
	c.v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		logger.Info("config: file changed, reloading", "path", e.Name, "op", e.Op.String())
		if err := c.decode(); err != nil {
			logger.Error("config: reload failed", "error", err)
			return
		}
		if onChange != nil {
			onChange(c)
		}
	})
	c.v.WatchConfig()
	logger.Debug("config: watching file", "path", c.ConfigFile())
}
