package commands

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// NewEntityCommand creates the entity command
func NewEntityCommand() *cobra.Command {
	var (
		entryID   string
		parseable bool
	)
	cmd := &cobra.Command{
		Use:     "entities",
		Aliases: []string{"entity"},
		Short:   "List registered entities",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := getClient(cmd)
			if err != nil {
				return err
			}
			entities, err := c.Entities(cmd.Context(), entryID)
			if err != nil {
				return fmt.Errorf("failed to get entities: %w", err)
			}
			if parseable {
				for _, e := range entities {
					fmt.Printf("entity_id=%q unique_id=%q domain=%q config_entry_id=%q name=%q\n",
						e.EntityID, e.UniqueID, e.Domain, e.ConfigEntryID, e.Name)
				}
				return nil
			}
			if len(entities) == 0 {
				pterm.Info.Println("No entities registered")
				return nil
			}
			data := pterm.TableData{{"Entity", "Unique ID", "Config Entry", "Name"}}
			for _, e := range entities {
				data = append(data, []string{e.EntityID, e.UniqueID, e.ConfigEntryID, e.Name})
			}
			return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
		},
	}
	cmd.Flags().StringVar(&entryID, "entry", "", "Only show entities of this config entry")
	cmd.Flags().BoolVarP(&parseable, "parseable", "p", false, "Output in parseable format (key=value)")
	return cmd
}

// NewStateCommand creates the states command
func NewStateCommand() *cobra.Command {
	var (
		domain    string
		parseable bool
	)
	cmd := &cobra.Command{
		Use:     "states",
		Aliases: []string{"state"},
		Short:   "List entity states",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := getClient(cmd)
			if err != nil {
				return err
			}
			states, err := c.States(cmd.Context(), domain)
			if err != nil {
				return fmt.Errorf("failed to get states: %w", err)
			}
			if parseable {
				for _, s := range states {
					fmt.Println(StateParseable(s))
				}
				return nil
			}
			if len(states) == 0 {
				pterm.Info.Println("No states")
				return nil
			}
			return pterm.DefaultTable.WithHasHeader().WithData(StatesTableData(states)).Render()
		},
	}
	cmd.Flags().StringVar(&domain, "domain", "", "Only show states of this domain (light, binary_sensor)")
	cmd.Flags().BoolVarP(&parseable, "parseable", "p", false, "Output in parseable format (key=value)")
	return cmd
}
