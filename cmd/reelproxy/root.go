package main

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"reelproxy/internal/app"
	"reelproxy/pkg/config"
	"reelproxy/pkg/logger"
	"reelproxy/pkg/ui"
)

var (
	// Version information, set with -ldflags at build time
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile  string
	logLevel    string
	noColor     bool
	accountName string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "reelproxy",
	Short: "Resolve Instagram reel links into direct media URLs",
	Long: `reelproxy turns an Instagram reel or post link into a direct media URL,
a thumbnail and a caption.

It can run as an HTTP proxy for a front end (reelproxy serve), answer a
single lookup (reelproxy resolve) or save reels to disk (reelproxy download).

Instagram session cookies are optional. Store them with 'reelproxy auth login'
when anonymous lookups are refused.`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.Version = version
		if noColor {
			ui.NoColor = true
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		ui.PrintError("Error", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is ./reelproxy.yaml or ~/.config/reelproxy/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error, disabled)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().StringVarP(&accountName, "account", "a", "", "use a specific stored account")

	rootCmd.SetVersionTemplate(`reelproxy {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// changedFlags collects the flags the user set explicitly, keyed by flag
// name, in the shape config.MergeCommandLineFlags expects.
func changedFlags(cmd *cobra.Command) map[string]interface{} {
	flags := make(map[string]interface{})
	cmd.Flags().Visit(func(f *pflag.Flag) {
		var (
			v   interface{}
			err error
		)
		switch f.Value.Type() {
		case "string":
			v = f.Value.String()
		case "bool":
			v, err = cmd.Flags().GetBool(f.Name)
		case "int":
			v, err = cmd.Flags().GetInt(f.Name)
		case "duration":
			v, err = cmd.Flags().GetDuration(f.Name)
		default:
			return
		}
		if err == nil {
			flags[f.Name] = v
		}
	})
	return flags
}

// loadConfig applies the precedence chain for cmd
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	return config.Load(configFile, changedFlags(cmd))
}

// newApp loads configuration and builds the application, exiting on failure
func newApp(cmd *cobra.Command, mutate func(*config.Config), opts ...app.Option) *app.App {
	cfg, err := loadConfig(cmd)
	if err != nil {
		ui.PrintError("Failed to load configuration", err)
		os.Exit(1)
	}
	if mutate != nil {
		mutate(cfg)
	}

	log, err := logger.New(&cfg.Logging)
	if err != nil {
		ui.PrintError("Failed to initialize logger", err)
		os.Exit(1)
	}

	a, err := app.New(cfg, append([]app.Option{app.WithLogger(log)}, opts...)...)
	if err != nil {
		ui.PrintError("Failed to initialize", err)
		os.Exit(1)
	}
	return a
}

// lookupTimeout bounds a CLI resolution when the resolver itself is unbounded
func lookupTimeout(cfg *config.Config) time.Duration {
	return max(cfg.Resolver.MediaTimeout, cfg.Resolver.MetadataTimeout, time.Minute)
}
