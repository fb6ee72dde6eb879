package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"reelproxy/pkg/auth"
	"reelproxy/pkg/config"
	"reelproxy/pkg/ui"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage reelproxy configuration files.

Configuration is merged from, highest priority first:
  - Command line flags
  - Environment variables (REELPROXY_*, and PORT)
  - .env in the working directory or ~/.reelproxy.env
  - Configuration file
  - Default values`,
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a configuration file with every option at its default",
	Long: `Write a configuration file with every option at its default value.

The file is created as ./reelproxy.yaml unless --config names another path.`,
	Args: cobra.NoArgs,
	Run:  runConfigInit,
}

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long: `Show the configuration after merging every source. Session cookies are
masked.`,
	Args: cobra.NoArgs,
	Run:  runConfigShow,
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration",
	Args:  cobra.NoArgs,
	Run:   runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(initCmd)
	configCmd.AddCommand(showCmd)
	configCmd.AddCommand(validateCmd)
}

const configHeader = `# reelproxy configuration
#
# Every option can also be set with an environment variable prefixed with
# REELPROXY_, for example REELPROXY_ADDR, REELPROXY_SESSION_ID or
# REELPROXY_LOG_LEVEL. Durations use Go syntax: 500ms, 20s, 2m.

`

func runConfigInit(cmd *cobra.Command, args []string) {
	configPath := configFile
	if configPath == "" {
		configPath = "reelproxy.yaml"
	}

	if _, err := os.Stat(configPath); err == nil {
		ui.PrintError("Configuration file already exists: " + configPath)
		fmt.Println("\nTo overwrite, first remove the existing file:")
		fmt.Printf("  rm %s\n", configPath)
		os.Exit(1)
	}

	data, err := yaml.Marshal(config.DefaultConfig())
	if err != nil {
		ui.PrintError("Failed to render configuration", err)
		os.Exit(1)
	}

	if dir := filepath.Dir(configPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			ui.PrintError("Failed to create configuration directory", err)
			os.Exit(1)
		}
	}
	if err := os.WriteFile(configPath, append([]byte(configHeader), data...), 0600); err != nil {
		ui.PrintError("Failed to create configuration file", err)
		os.Exit(1)
	}

	ui.PrintSuccess("Configuration file created: " + configPath)
	fmt.Println("\nNext steps:")
	fmt.Println("1. Edit the file; session cookies are better kept in 'reelproxy auth login'")
	fmt.Println("2. Run 'reelproxy config validate' to check it")
	fmt.Println("3. Start the proxy with 'reelproxy serve'")
}

func runConfigShow(cmd *cobra.Command, args []string) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		ui.PrintError("Failed to load configuration", err)
		os.Exit(1)
	}

	display := *cfg
	masked := auth.SanitizeAccount(&auth.Account{
		SessionID: display.Instagram.SessionID,
		CSRFToken: display.Instagram.CSRFToken,
	})
	if display.Instagram.SessionID != "" {
		display.Instagram.SessionID = masked.SessionID
	}
	if display.Instagram.CSRFToken != "" {
		display.Instagram.CSRFToken = masked.CSRFToken
	}

	data, err := yaml.Marshal(&display)
	if err != nil {
		ui.PrintError("Failed to format configuration", err)
		os.Exit(1)
	}

	ui.PrintHighlight("Current configuration")
	fmt.Println()
	fmt.Print(string(data))

	if configFile != "" {
		fmt.Printf("\nConfiguration file: %s\n", configFile)
	}
}

func runConfigValidate(cmd *cobra.Command, args []string) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		ui.PrintError("Configuration validation failed", err)
		os.Exit(1)
	}

	var problems, warnings []string

	if err := os.MkdirAll(cfg.Download.BaseDirectory, 0755); err != nil {
		problems = append(problems, fmt.Sprintf("cannot create output directory: %v", err))
	}
	if cfg.Logging.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Logging.File), 0755); err != nil {
			problems = append(problems, fmt.Sprintf("cannot create log directory: %v", err))
		}
	}

	if cfg.Instagram.SessionID != "" && cfg.Instagram.CSRFToken == "" {
		warnings = append(warnings, "session_id is set without csrf_token")
	}
	if cfg.Resolver.MediaTimeout == 0 {
		warnings = append(warnings, "resolver.media_timeout is 0; media lookups are bounded only by the request")
	}
	if cfg.Server.WriteTimeout > 0 && cfg.Server.WriteTimeout < cfg.Resolver.MediaTimeout {
		warnings = append(warnings, "server.write_timeout is shorter than resolver.media_timeout")
	}

	if len(problems) > 0 {
		ui.PrintError("Configuration has errors:")
		for _, p := range problems {
			fmt.Printf("  - %s\n", p)
		}
		os.Exit(1)
	}

	if len(warnings) > 0 {
		ui.PrintWarning("Configuration warnings:")
		for _, w := range warnings {
			fmt.Printf("  - %s\n", w)
		}
		fmt.Println()
	}

	ui.PrintSuccess("Configuration is valid")

	fmt.Println("\nConfiguration summary:")
	fmt.Printf("  Listen address: %s\n", cfg.Server.Address)
	fmt.Printf("  Media timeout: %s\n", cfg.Resolver.MediaTimeout)
	fmt.Printf("  Metadata timeout: %s\n", cfg.Resolver.MetadataTimeout)
	fmt.Printf("  Rate limit: %d requests/minute\n", cfg.RateLimit.RequestsPerMinute)
	fmt.Printf("  Output directory: %s\n", cfg.Download.BaseDirectory)
	fmt.Printf("  Log level: %s\n", cfg.Logging.Level)
}
