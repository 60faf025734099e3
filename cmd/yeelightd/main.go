package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/jmylchreest/yeelightd/internal/config"
	"github.com/jmylchreest/yeelightd/internal/server"
	"github.com/jmylchreest/yeelightd/internal/utils"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

// flagBindings maps config keys to the command line flags overriding them
var flagBindings = map[string]string{
	config.Key("logging", "level"):        "log-level",
	config.Key("logging", "format"):       "log-format",
	config.Key("api", "listen_address"):   "listen",
	config.Key("discovery", "enabled"):    "discovery",
	config.Key("discovery", "interval"):   "discovery-interval",
	config.Key("discovery", "interface"):  "discovery-interface",
	config.Key("storage", "entries_file"): "entries-file",
}

func newFlagSet() *pflag.FlagSet {
	flags := pflag.NewFlagSet("yeelightd", pflag.ContinueOnError)
	flags.String("config", "", "Path to config file")
	flags.String("log-level", config.LogLevelInfo, "Log level (debug, info, warn, error)")
	flags.String("log-format", config.LogFormatText, "Log format (text, json)")
	flags.String("listen", config.DefaultAPIListenAddress, "HTTP API listen address")
	flags.Bool("discovery", true, "Scan the network for bulbs")
	flags.Int("discovery-interval", int(config.DefaultDiscoveryInterval.Seconds()), "Discovery interval in seconds")
	flags.String("discovery-interface", "", "Network interface used for SSDP discovery")
	flags.String("entries-file", "", "Path of the persisted config entries")
	flags.Bool("version", false, "Print version and exit")
	return flags
}

// loadConfig parses args and loads the configuration they point at.
func loadConfig(args []string) (*config.Config, *pflag.FlagSet, error) {
	flags := newFlagSet()
	if err := flags.Parse(args); err != nil {
		return nil, nil, err
	}
	configFile, _ := flags.GetString("config")
	cfg, err := config.Load(config.DaemonConfigFilename, configFile)
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.BindFlags(flags, flagBindings); err != nil {
		return nil, nil, err
	}
	return cfg, flags, nil
}

func main() {
	cfg, flags, err := loadConfig(os.Args[1:])
	if err != nil {
		utils.SetupErrorLogger().Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	if v, _ := flags.GetBool("version"); v {
		fmt.Printf("yeelightd %s (commit %s, built %s)\n", version, commit, buildDate)
		return
	}

	logger := utils.SetupLogger(cfg.Logging.Level, cfg.Logging.Format)
	utils.SetAsDefaultLogger(logger)
	logger.Info("Starting yeelightd",
		"version", version,
		"commit", commit,
		"buildDate", buildDate,
	)

	srv, err := server.New(logger, cfg, server.WithBuildInfo(server.BuildInfo{
		Version:   version,
		Commit:    commit,
		BuildDate: buildDate,
	}))
	if err != nil {
		logger.Error("Failed to create server", "error", err)
		os.Exit(1)
	}
	if err := srv.Start(); err != nil {
		logger.Error("Failed to start server", "error", err)
		os.Exit(1)
	}

	cfg.Watch(logger, func(c *config.Config) {
		utils.SetLevel(c.Logging.Level)
		srv.Reload(c)
	})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	logger.Info("Shutting down...")
	srv.Stop()
}
