package commands

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// indicesCmd represents the indices command
var indicesCmd = &cobra.Command{
	Use:   "indices",
	Short: "List screenable indices",
	Long: `Lists the indices the screening service can screen.

Example:
  go run ./cmd/screener indices
  go run ./cmd/screener indices --json`,
	Args: cobra.NoArgs,
	RunE: runIndices,
}

var indicesJSON bool

func init() {
	rootCmd.AddCommand(indicesCmd)

	indicesCmd.Flags().BoolVar(&indicesJSON, "json", false, "print JSON")
}

func runIndices(cmd *cobra.Command, args []string) error {
	a, err := newApp(false)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	indices, err := a.gw.FetchIndices(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if indicesJSON {
		return json.NewEncoder(out).Encode(indices)
	}

	RenderIndices(out, indices)
	return nil
}

// signalContext cancels on Ctrl+C; a cancelled request is never retried
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
