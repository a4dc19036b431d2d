package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/celerix-dev/celerix-support/pkg/sdk"
)

var (
	// Global flags
	addr    string
	verbose bool
	timeout time.Duration
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "celerix-support",
	Short: "Command-line client for the Celerix support daemon",
	Long: `celerix-support runs support-console searches against a running
celerix-supportd and prints the resulting page model as JSON.

Environment Variables:
  CELERIX_SUPPORT_ADDR   Address of the daemon (default: https://localhost:7002)
  CELERIX_DISABLE_TLS    Set to true when a bare host:port should use plain HTTP`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&addr, "addr", "", "Daemon address (or set CELERIX_SUPPORT_ADDR)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log retried requests")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "Operation timeout")

	rootCmd.AddCommand(lookupCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(programsCmd)
	rootCmd.AddCommand(cancelRetirementCmd)
	rootCmd.AddCommand(samlProvidersCmd)
	rootCmd.AddCommand(pingCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// connect builds a client and a context bounded by --timeout.
func connect(cmd *cobra.Command) (*sdk.Client, context.Context, context.CancelFunc, error) {
	logger := zap.NewNop()
	if verbose {
		l, err := zap.NewDevelopment()
		if err != nil {
			return nil, nil, nil, err
		}
		logger = l
	}
	client, err := sdk.Connect(sdk.ResolveAddr(addr), sdk.WithLogger(logger))
	if err != nil {
		return nil, nil, nil, err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	return client, ctx, func() {
		cancel()
		client.Close()
	}, nil
}

func printJSON(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}
