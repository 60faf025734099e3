package commands

import (
	"context"
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/jmylchreest/yeelightd/pkg/client"
)

// NewEntryCommand creates the entry command
func NewEntryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "entry",
		Aliases: []string{"entries"},
		Short:   "Manage config entries",
	}
	cmd.AddCommand(
		newEntryListCommand(),
		newEntryGetCommand(),
		newEntryAddCommand(),
		newEntryRemoveCommand(),
		newEntryActionCommand("setup", "Set up a config entry", client.ClientInterface.SetupEntry),
		newEntryActionCommand("unload", "Unload a config entry", client.ClientInterface.UnloadEntry),
		newEntryActionCommand("reload", "Unload and set up a config entry again", client.ClientInterface.ReloadEntry),
		newEntryRefreshCommand(),
	)
	return cmd
}

func newEntryListCommand() *cobra.Command {
	var parseable bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List config entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := getClient(cmd)
			if err != nil {
				return err
			}
			entries, err := c.Entries(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to get entries: %w", err)
			}
			if parseable {
				for _, e := range entries {
					fmt.Println(EntryParseable(e))
				}
				return nil
			}
			if len(entries) == 0 {
				pterm.Info.Println("No config entries")
				return nil
			}
			return pterm.DefaultTable.WithHasHeader().WithData(EntryTableData(entries)).Render()
		},
	}
	cmd.Flags().BoolVarP(&parseable, "parseable", "p", false, "Output in parseable format (key=value)")
	return cmd
}

func newEntryGetCommand() *cobra.Command {
	var parseable bool
	cmd := &cobra.Command{
		Use:   "get <entry-id>",
		Short: "Show a config entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := getClient(cmd)
			if err != nil {
				return err
			}
			e, err := c.Entry(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("failed to get entry: %w", err)
			}
			if parseable {
				fmt.Println(EntryParseable(*e))
				return nil
			}
			data := pterm.TableData{
				{pterm.Bold.Sprint("ID"), pterm.Bold.Sprint(e.EntryID)},
				{"Title", e.Title},
				{"Domain", e.Domain},
				{"Unique ID", e.UniqueID},
				{"Source", e.Source},
				{"State", e.State},
			}
			if e.Reason != "" {
				data = append(data, []string{"Reason", e.Reason})
			}
			for _, k := range sortedKeys(e.Data) {
				data = append(data, []string{"data." + k, fmt.Sprint(e.Data[k])})
			}
			return pterm.DefaultTable.WithData(data).Render()
		},
	}
	cmd.Flags().BoolVarP(&parseable, "parseable", "p", false, "Output in parseable format (key=value)")
	return cmd
}

func newEntryAddCommand() *cobra.Command {
	var (
		id         string
		name       string
		model      string
		transition int
		nightlight bool
	)
	cmd := &cobra.Command{
		Use:   "add [host]",
		Short: "Add a bulb by IP address or, with --id, by discovered bulb ID",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data := map[string]any{}
			if len(args) == 1 {
				data["host"] = args[0]
			}
			if id != "" {
				data["id"] = id
			}
			if len(data) == 0 {
				return fmt.Errorf("either a host or --id is required")
			}
			if name != "" {
				data["name"] = name
			}
			if model != "" {
				data["model"] = model
			}
			if cmd.Flags().Changed("transition") {
				if transition < 0 {
					return fmt.Errorf("invalid transition: %d", transition)
				}
				data["transition"] = transition
			}
			if nightlight {
				data["nightlight_switch"] = true
			}

			c, err := getClient(cmd)
			if err != nil {
				return err
			}
			e, err := c.CreateEntry(cmd.Context(), client.NewEntry{UniqueID: id, Data: data})
			if err != nil {
				return fmt.Errorf("failed to add entry: %w", err)
			}
			pterm.Success.Printf("Added entry %s (%s), state %s\n", e.EntryID, e.Title, e.State)
			return nil
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "Bulb hardware ID, resolved through discovery")
	cmd.Flags().StringVar(&name, "name", "", "Display name")
	cmd.Flags().StringVar(&model, "model", "", "Bulb model, when it cannot be detected")
	cmd.Flags().IntVar(&transition, "transition", 350, "Transition in milliseconds")
	cmd.Flags().BoolVar(&nightlight, "nightlight-switch", false, "Expose the nightlight as a separate light")
	return cmd
}

func newEntryRemoveCommand() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:     "remove <entry-id>",
		Aliases: []string{"delete", "rm"},
		Short:   "Unload and remove a config entry",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				ok, err := pterm.DefaultInteractiveConfirm.Show(fmt.Sprintf("Remove entry %s and its entities?", args[0]))
				if err != nil {
					return err
				}
				if !ok {
					return nil
				}
			}
			c, err := getClient(cmd)
			if err != nil {
				return err
			}
			if err := c.DeleteEntry(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("failed to remove entry: %w", err)
			}
			pterm.Success.Printf("Removed entry %s\n", args[0])
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}

type entryAction func(c client.ClientInterface, ctx context.Context, id string) (*client.Entry, error)

func newEntryActionCommand(use, short string, action entryAction) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <entry-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := getClient(cmd)
			if err != nil {
				return err
			}
			e, err := action(c, cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("failed to %s entry: %w", use, err)
			}
			if e.Reason != "" {
				pterm.Warning.Printf("Entry %s is %s: %s\n", e.EntryID, e.State, e.Reason)
				return nil
			}
			pterm.Success.Printf("Entry %s is %s\n", e.EntryID, e.State)
			return nil
		},
	}
}

func newEntryRefreshCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh <entry-id>",
		Short: "Re-read the bulb properties of a loaded entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := getClient(cmd)
			if err != nil {
				return err
			}
			if err := c.RefreshEntry(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("failed to refresh entry: %w", err)
			}
			pterm.Success.Printf("Refreshed entry %s\n", args[0])
			return nil
		},
	}
}
