// Package cli implements the vistora command line: the API server, a local
// serial runner and thin HTTP client commands mirroring the API.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
)

// globals holds the persistent flags shared by the client commands.
type globals struct {
	baseURL string
	timeout time.Duration
}

func (g *globals) client() *Client { return NewClient(g.baseURL, g.timeout) }

// NewRootCmd constructs the command tree.
func NewRootCmd() *cobra.Command {
	g := &globals{}
	root := &cobra.Command{
		Use:           "vistora",
		Short:         "Video restoration jobs with a per-user credit ledger",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	baseURL := os.Getenv("VISTORA_BASE_URL")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	root.PersistentFlags().StringVar(&g.baseURL, "base-url", baseURL, "API base URL (defaults VISTORA_BASE_URL or "+DefaultBaseURL+")")
	root.PersistentFlags().DurationVar(&g.timeout, "timeout", 30*time.Second, "HTTP timeout for client commands")

	root.AddCommand(
		newServeCmd(),
		newRunCmd(),
		newHealthCmd(g),
		newCapabilitiesCmd(g),
		newStatusCmd(g),
		newModelsCmd(g),
		newJobsCmd(g),
		newEventsCmd(g),
		newCreditsCmd(g),
		newProfilesCmd(g),
		newTgCmd(g),
	)

	// completion command
	completionCmd := &cobra.Command{Use: "completion", Short: "Generate the autocompletion script for the specified shell"}
	completionCmd.AddCommand(&cobra.Command{Use: "bash", Short: "Bash completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenBashCompletion(cmd.OutOrStdout()) }})
	completionCmd.AddCommand(&cobra.Command{Use: "zsh", Short: "Zsh completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenZshCompletion(cmd.OutOrStdout()) }})
	completionCmd.AddCommand(&cobra.Command{Use: "fish", Short: "Fish completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenFishCompletion(cmd.OutOrStdout(), true) }})
	root.CompletionOptions.DisableDefaultCmd = true
	root.AddCommand(completionCmd)
	return root
}

// Execute runs the CLI and returns the process exit code.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := NewRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	return 0
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
