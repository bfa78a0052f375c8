// Package commands implements the fncall command line interface.
package commands

import (
	"errors"

	"github.com/spf13/cobra"
)

// ErrCallFailed is returned when the call completed but its envelope carries an error.
// The envelope has already been printed; callers only need to set the exit code.
var ErrCallFailed = errors.New("call failed")

// NewRootCommand creates the fncall root command with all subcommands attached.
func NewRootCommand(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "fncall",
		Short: "Issue resilient HTTP calls from the command line",
		Long: `fncall sends an HTTP request through the fnbricks resilient client and prints
the resulting envelope as JSON.

Timeouts and retryable statuses are retried back to back; network failures are not.
Settings come from config.yaml, config.<env>.yaml and HTTPCLIENT_* environment
variables, and can be overridden with flags.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		NewCallCommand(),
		NewVersionCommand(version),
	)
	return rootCmd
}
