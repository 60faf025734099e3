package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/yeelightd/pkg/client"
)

// Settings are the client defaults read from yeelightctl.yaml and the environment
type Settings struct {
	APIURL string
	APIKey string
}

// NewRootCommand creates the root command
func NewRootCommand(logger *slog.Logger, settings Settings, version, commit, buildDate string) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "yeelightctl",
		Short:         "Control Yeelight bulbs through yeelightd",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if _, err := getClient(cmd); err == nil {
				return nil
			}
			url := settings.APIURL
			if cmd.Flags().Changed("api-url") {
				url, _ = cmd.Flags().GetString("api-url")
			}
			key := settings.APIKey
			if cmd.Flags().Changed("api-key") {
				key, _ = cmd.Flags().GetString("api-key")
			}
			parent := cmd.Context()
			if parent == nil {
				parent = context.Background()
			}
			cmd.SetContext(context.WithValue(parent, ClientContextKey, client.NewHTTP(logger, url, key)))
			return nil
		},
	}

	// Add global flags
	cmd.PersistentFlags().String("api-url", settings.APIURL, "yeelightd API URL")
	cmd.PersistentFlags().String("api-key", "", "API key sent as bearer token")
	cmd.PersistentFlags().String("config", "", "Path to yeelightctl config file")
	cmd.PersistentFlags().String("log-level", "warn", "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("log-format", "text", "Log format (text, json)")

	cmd.AddCommand(
		newVersionCommand(version, commit, buildDate),
		NewEntryCommand(),
		NewLightCommand(),
		NewEntityCommand(),
		NewStateCommand(),
		NewDiscoverCommand(),
		NewLogLevelCommand(),
	)
	return cmd
}

// newVersionCommand creates the version command
func newVersionCommand(version, commit, buildDate string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Client:\n")
			fmt.Printf("  Version:    %s\n", version)
			fmt.Printf("  Commit:     %s\n", commit)
			fmt.Printf("  Build Date: %s\n", buildDate)

			c, err := getClient(cmd)
			if err != nil {
				return
			}
			v, err := c.Version(cmd.Context())
			if err != nil {
				fmt.Printf("\nDaemon: not reachable\n")
				return
			}
			fmt.Printf("\nDaemon:\n")
			fmt.Printf("  Version:    %s\n", v.Version)
			fmt.Printf("  Commit:     %s\n", v.Commit)
			fmt.Printf("  Build Date: %s\n", v.BuildDate)
		},
	}
}
