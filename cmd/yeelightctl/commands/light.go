package commands

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/jmylchreest/yeelightd/pkg/client"
)

// NewLightCommand creates the light command
func NewLightCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "light",
		Short: "Control light entities",
	}
	cmd.AddCommand(
		newLightListCommand(),
		newLightGetCommand(),
		newLightOnCommand(),
		newLightOffCommand(),
		newLightSetCommand(),
	)
	return cmd
}

// lightEntityID accepts "desk" as shorthand for "light.desk"
func lightEntityID(arg string) string {
	if strings.Contains(arg, ".") {
		return arg
	}
	return "light." + arg
}

// selectLight resolves the light from args or asks for one interactively
func selectLight(ctx context.Context, c client.ClientInterface, args []string) (string, error) {
	if len(args) > 0 {
		return lightEntityID(args[0]), nil
	}
	states, err := c.States(ctx, "light")
	if err != nil {
		return "", fmt.Errorf("failed to get lights: %w", err)
	}
	if len(states) == 0 {
		return "", fmt.Errorf("no lights available")
	}
	options := make([]string, len(states))
	for i, s := range states {
		options[i] = fmt.Sprintf("%s (%s)", s.EntityID, s.State)
	}
	selected, err := pterm.DefaultInteractiveSelect.WithOptions(options).Show("Select a light")
	if err != nil {
		return "", fmt.Errorf("failed to select light: %w", err)
	}
	return strings.Split(selected, " (")[0], nil
}

func newLightListCommand() *cobra.Command {
	var parseable bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List light states",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := getClient(cmd)
			if err != nil {
				return err
			}
			states, err := c.States(cmd.Context(), "light")
			if err != nil {
				return fmt.Errorf("failed to get lights: %w", err)
			}
			if parseable {
				for _, s := range states {
					fmt.Println(StateParseable(s))
				}
				return nil
			}
			if len(states) == 0 {
				pterm.Info.Println("No lights loaded")
				return nil
			}
			return pterm.DefaultTable.WithHasHeader().WithData(StatesTableData(states)).Render()
		},
	}
	cmd.Flags().BoolVarP(&parseable, "parseable", "p", false, "Output in parseable format (key=value)")
	return cmd
}

func newLightGetCommand() *cobra.Command {
	var parseable bool
	cmd := &cobra.Command{
		Use:   "get [entity-id] [attribute]",
		Short: "Show the state of a light",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := getClient(cmd)
			if err != nil {
				return err
			}
			entityID, err := selectLight(cmd.Context(), c, args)
			if err != nil {
				return err
			}
			s, err := c.State(cmd.Context(), entityID)
			if err != nil {
				return fmt.Errorf("failed to get light: %w", err)
			}

			// If a specific attribute was requested, only show that
			if len(args) > 1 {
				name := strings.ToLower(args[1])
				var value any
				if name == "state" {
					value = s.State
				} else {
					v, ok := s.Attributes[name]
					if !ok {
						return fmt.Errorf("invalid attribute: %s", name)
					}
					value = v
				}
				if parseable {
					fmt.Printf("%s=%v\n", name, value)
				} else {
					fmt.Println(value)
				}
				return nil
			}

			if parseable {
				fmt.Println(StateParseable(*s))
				return nil
			}
			return pterm.DefaultTable.WithData(StateTableData(*s)).Render()
		},
	}
	cmd.Flags().BoolVarP(&parseable, "parseable", "p", false, "Output in parseable format (key=value)")
	return cmd
}

func newLightOnCommand() *cobra.Command {
	var (
		brightness int
		kelvin     int
		rgb        string
	)
	cmd := &cobra.Command{
		Use:   "on [entity-id]",
		Short: "Turn a light on, optionally changing brightness or color",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			on := true
			lc := client.LightCommand{On: &on}
			if cmd.Flags().Changed("brightness") {
				lc.Brightness = &brightness
			}
			if cmd.Flags().Changed("kelvin") {
				lc.Kelvin = &kelvin
			}
			if rgb != "" {
				color, err := parseRGB(rgb)
				if err != nil {
					return err
				}
				lc.RGB = &color
			}
			return sendLightCommand(cmd, args, lc)
		},
	}
	cmd.Flags().IntVarP(&brightness, "brightness", "b", 100, "Brightness percent (1-100)")
	cmd.Flags().IntVarP(&kelvin, "kelvin", "k", 4000, "Color temperature in Kelvin")
	cmd.Flags().StringVar(&rgb, "rgb", "", "Color as r,g,b (0-255 each)")
	cmd.MarkFlagsMutuallyExclusive("kelvin", "rgb")
	return cmd
}

func newLightOffCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "off [entity-id]",
		Short: "Turn a light off",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			off := false
			return sendLightCommand(cmd, args, client.LightCommand{On: &off})
		},
	}
}

// newLightSetCommand creates the light set command
func newLightSetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set [entity-id] [property] [value]",
		Short: "Set a light property (on, brightness, kelvin, rgb)",
		Args:  cobra.MaximumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := getClient(cmd)
			if err != nil {
				return err
			}
			entityID, err := selectLight(cmd.Context(), c, args)
			if err != nil {
				return err
			}

			var property string
			if len(args) > 1 {
				property = strings.ToLower(args[1])
			} else {
				property, err = pterm.DefaultInteractiveSelect.
					WithOptions([]string{"on", "brightness", "kelvin", "rgb"}).
					Show("Select property to set")
				if err != nil {
					return fmt.Errorf("failed to select property: %w", err)
				}
			}

			var value string
			if len(args) > 2 {
				value = args[2]
			} else {
				value, err = pterm.DefaultInteractiveTextInput.WithMultiLine(false).Show("Enter " + property)
				if err != nil {
					return fmt.Errorf("failed to get %s value: %w", property, err)
				}
			}

			lc, err := lightCommandFor(property, value)
			if err != nil {
				return err
			}
			return sendLightCommand(cmd, []string{entityID}, lc)
		},
	}
}

// lightCommandFor builds the command setting a single property
func lightCommandFor(property, value string) (client.LightCommand, error) {
	var lc client.LightCommand
	switch property {
	case "on":
		on := value == "true" || value == "on" || value == "1"
		lc.On = &on
	case "brightness":
		v, err := strconv.Atoi(value)
		if err != nil {
			return lc, fmt.Errorf("invalid brightness value: %w", err)
		}
		lc.Brightness = &v
	case "kelvin", "temperature":
		v, err := strconv.Atoi(strings.TrimSuffix(strings.ToUpper(value), "K"))
		if err != nil {
			return lc, fmt.Errorf("invalid temperature value: %w", err)
		}
		lc.Kelvin = &v
	case "rgb":
		color, err := parseRGB(value)
		if err != nil {
			return lc, err
		}
		lc.RGB = &color
	default:
		return lc, fmt.Errorf("invalid property: %s. Must be one of: on, brightness, kelvin, rgb", property)
	}
	return lc, nil
}

// parseRGB parses "r,g,b" with each component in 0-255
func parseRGB(s string) ([3]int, error) {
	var color [3]int
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return color, fmt.Errorf("invalid rgb value %q: want r,g,b", s)
	}
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || v < 0 || v > 255 {
			return color, fmt.Errorf("invalid rgb component %q: want 0-255", p)
		}
		color[i] = v
	}
	return color, nil
}

func sendLightCommand(cmd *cobra.Command, args []string, lc client.LightCommand) error {
	c, err := getClient(cmd)
	if err != nil {
		return err
	}
	entityID, err := selectLight(cmd.Context(), c, args)
	if err != nil {
		return err
	}
	s, err := c.SetLight(cmd.Context(), entityID, lc)
	if err != nil {
		return fmt.Errorf("failed to set light state: %w", err)
	}
	pterm.Success.Printf("%s is %s\n", s.EntityID, s.State)
	return nil
}
