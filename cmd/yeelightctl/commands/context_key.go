package commands

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/yeelightd/pkg/client"
)

// ClientContextKey is used for storing the client in context for commands.
// main and tests inject the client under this key; otherwise the root command
// builds one from its flags.
var ClientContextKey = &struct{}{}

// getClient returns the API client stored in the command context
func getClient(cmd *cobra.Command) (client.ClientInterface, error) {
	if ctx := cmd.Context(); ctx != nil {
		if c, ok := ctx.Value(ClientContextKey).(client.ClientInterface); ok {
			return c, nil
		}
	}
	return nil, errors.New("no API client configured")
}
