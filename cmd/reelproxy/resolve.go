package main

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"reelproxy/pkg/config"
	"reelproxy/pkg/instagram"
	"reelproxy/pkg/reel"
	"reelproxy/pkg/ui"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <url>",
	Short: "Resolve one reel and print the result as JSON",
	Long: `Resolve a single Instagram reel or post link and print the same JSON
the HTTP proxy would return.

The exit status is 0 on success and 1 otherwise; failures are printed as
{"error": "...", "details": "..."} on stdout.`,
	Example: `  reelproxy resolve https://www.instagram.com/reel/C1a2b3c4d5e/
  reelproxy resolve "https://www.instagram.com/share/reel/BAbcDef" | jq -r .videoUrl`,
	Args: cobra.ExactArgs(1),
	Run:  runResolve,
}

func init() {
	rootCmd.AddCommand(resolveCmd)
}

// resolveError mirrors the proxy's error body
type resolveError struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func runResolve(cmd *cobra.Command, args []string) {
	a := newApp(cmd, func(cfg *config.Config) {
		if !cmd.Flags().Changed("log-level") {
			cfg.Logging.Level = "warn"
		}
	})
	defer a.Close()

	source := args[0]
	if source != "" && !instagram.IsInstagramURL(source) {
		ui.Output = os.Stderr
		ui.PrintWarning("This does not look like an Instagram link, trying anyway")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, lookupTimeout(a.Config))
	defer cancel()

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	result, err := a.Resolver.Resolve(ctx, source)
	if err != nil {
		body := resolveError{Error: err.Error()}
		var rerr *reel.Error
		if errors.As(err, &rerr) {
			body = resolveError{Error: rerr.Message(), Details: rerr.Details}
		}
		_ = enc.Encode(body)
		os.Exit(1)
	}

	if err := enc.Encode(result); err != nil {
		ui.PrintError("Failed to write result", err)
		os.Exit(1)
	}
}
