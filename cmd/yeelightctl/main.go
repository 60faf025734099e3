package main

import (
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/pflag"

	"github.com/jmylchreest/yeelightd/cmd/yeelightctl/commands"
	"github.com/jmylchreest/yeelightd/internal/config"
	"github.com/jmylchreest/yeelightd/internal/utils"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

// preParse reads the flags needed before the command tree exists
func preParse(args []string) (configFile, logLevel, logFormat string) {
	flags := pflag.NewFlagSet("yeelightctl", pflag.ContinueOnError)
	flags.ParseErrorsAllowlist.UnknownFlags = true
	flags.Usage = func() {}
	flags.StringVar(&configFile, "config", "", "")
	flags.StringVar(&logLevel, "log-level", config.LogLevelWarn, "")
	flags.StringVar(&logFormat, "log-format", config.LogFormatText, "")
	_ = flags.Parse(args)
	return configFile, logLevel, logFormat
}

// settingsFrom reads api.url and api.key from the client config
func settingsFrom(cfg *config.Config) commands.Settings {
	s := commands.Settings{APIURL: config.DefaultAPIURL}
	if url := cfg.Viper().GetString(config.Key("api", "url")); url != "" {
		s.APIURL = url
	}
	s.APIKey = cfg.Viper().GetString(config.Key("api", "key"))
	return s
}

func main() {
	configFile, logLevel, logFormat := preParse(os.Args[1:])

	cfg, err := config.Load(config.ClientConfigFilename, configFile)
	if err != nil {
		utils.SetupErrorLogger().Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := utils.SetupLogger(logLevel, logFormat)
	utils.SetAsDefaultLogger(logger)

	rootCmd := commands.NewRootCommand(logger, settingsFrom(cfg), version, commit, buildDate)
	if err := rootCmd.Execute(); err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}
}
