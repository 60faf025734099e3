package commands

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/jmylchreest/yeelightd/pkg/client"
)

// NewDiscoverCommand creates the discover command
func NewDiscoverCommand() *cobra.Command {
	var (
		scan      bool
		parseable bool
	)
	cmd := &cobra.Command{
		Use:   "discover",
		Short: "List bulbs found on the network",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := getClient(cmd)
			if err != nil {
				return err
			}
			var bulbs []client.Bulb
			if scan {
				bulbs, err = c.Scan(cmd.Context())
			} else {
				bulbs, err = c.Bulbs(cmd.Context())
			}
			if err != nil {
				return fmt.Errorf("failed to get bulbs: %w", err)
			}
			if parseable {
				for _, b := range bulbs {
					fmt.Println(BulbParseable(b))
				}
				return nil
			}
			if len(bulbs) == 0 {
				pterm.Info.Println("No bulbs discovered")
				return nil
			}
			return pterm.DefaultTable.WithHasHeader().WithData(BulbTableData(bulbs)).Render()
		},
	}
	cmd.Flags().BoolVarP(&scan, "scan", "s", false, "Run a scan before listing")
	cmd.Flags().BoolVarP(&parseable, "parseable", "p", false, "Output in parseable format (key=value)")
	return cmd
}
