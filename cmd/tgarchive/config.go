package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
	"tgarchive/pkg/config"
	"tgarchive/pkg/ui"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage tgarchive configuration files.

Configuration can be loaded from:
  - Command line flags (highest priority)
  - Environment variables (TGARCHIVE_*)
  - Configuration file
  - Default values (lowest priority)`,
}

// initCmd represents the config init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create an example configuration file",
	Long: `Create an example configuration file with all available options.

The file will be created in the current directory as 'tgarchive.yaml'
unless a different path is specified with the --config flag.`,
	Run: runConfigInit,
}

// showCmd represents the config show command
var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long: `Show the effective configuration merged from all sources.

Sensitive values like the API token are masked.`,
	Run: runConfigShow,
}

// validateCmd represents the config validate command
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long: `Validate a configuration file for syntax errors and invalid values.`,
	Run:  runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(initCmd)
	configCmd.AddCommand(showCmd)
	configCmd.AddCommand(validateCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) {
	configPath := configFile
	if configPath == "" {
		configPath = "tgarchive.yaml"
	}

	if _, err := os.Stat(configPath); err == nil {
		ui.PrintError("Configuration file already exists", configPath)
		fmt.Println("\nTo overwrite, first remove the existing file:")
		fmt.Printf("  rm %s\n", configPath)
		os.Exit(1)
	}

	exampleConfig := `# tgarchive configuration file
#
# All options can also be set through environment variables prefixed
# with TGARCHIVE_, for example TGARCHIVE_API_TOKEN.

# Gateway connection
telegram:
  # Gateway API token (required)
  # Prefer 'tgarchive auth login' over keeping it in this file
  api_token: ""

  # Gateway base URL; leave commented to use the built-in default
  # base_url: "https://gateway.telegram.example"

# Rate limiting
rate_limit:
  # Requests per minute
  requests_per_minute: 60

  # Extra pause between history batches, e.g. 500ms
  batch_delay: 0s

# Output
output:
  # Where archives are written
  directory: "."

# Download behavior
download:
  # Output format: csv, json, html, both, all
  format: "all"

  # Messages fetched per history request (max 200)
  batch_size: 100

  # Stop after this many messages; 0 downloads everything
  max_messages: 0

  # Fetch attachments during the text phase instead of afterwards
  media_immediately: false

  # Per-attachment download timeout
  download_timeout: 2m

  # Retry attempts per attachment in the media phase
  media_retry_attempts: 3

# Logging
logging:
  # Log level: debug, info, warn, error
  level: "info"

  # Log file path; empty logs to the console only
  file: ""
`

	if err := os.WriteFile(configPath, []byte(exampleConfig), 0644); err != nil {
		ui.PrintError("Failed to create configuration file", err.Error())
		os.Exit(1)
	}

	ui.PrintSuccess("Configuration file created: " + configPath)
	fmt.Println("\nNext steps:")
	fmt.Println("1. Store your gateway token with 'tgarchive auth login'")
	fmt.Println("2. Run 'tgarchive config validate' to check the configuration")
	fmt.Println("3. Start archiving with 'tgarchive archive <channel>'")
}

func runConfigShow(cmd *cobra.Command, args []string) {
	cfg, err := config.Load(configFile, nil)
	if err != nil {
		ui.PrintError("Failed to load configuration", err.Error())
		os.Exit(1)
	}

	displayCfg := *cfg

	if tok := displayCfg.Telegram.APIToken; tok != "" {
		if len(tok) > 8 {
			displayCfg.Telegram.APIToken = tok[:4] + "..." + tok[len(tok)-4:]
		} else {
			displayCfg.Telegram.APIToken = "***"
		}
	}

	data, err := yaml.Marshal(&displayCfg)
	if err != nil {
		ui.PrintError("Failed to format configuration", err.Error())
		os.Exit(1)
	}

	ui.PrintHighlight("Current Configuration")
	fmt.Println()
	fmt.Print(string(data))

	fmt.Println("\nConfiguration sources (in order of priority):")
	fmt.Println("1. Command line flags")
	fmt.Println("2. Environment variables (TGARCHIVE_*)")
	if configFile != "" {
		fmt.Printf("3. Configuration file: %s\n", configFile)
	} else {
		fmt.Println("3. Configuration file: (not specified)")
	}
	fmt.Println("4. Default values")
}

func runConfigValidate(cmd *cobra.Command, args []string) {
	if configFile == "" {
		possiblePaths := []string{
			"tgarchive.yaml",
			"tgarchive.yml",
			".tgarchive.yaml",
			".tgarchive.yml",
			filepath.Join(os.Getenv("HOME"), ".tgarchive.yaml"),
			filepath.Join(os.Getenv("HOME"), ".config", "tgarchive", "config.yaml"),
		}

		for _, path := range possiblePaths {
			if _, err := os.Stat(path); err == nil {
				configFile = path
				break
			}
		}

		if configFile == "" {
			ui.PrintError("No configuration file found", "Specify a file with --config flag")
			os.Exit(1)
		}
	}

	ui.PrintInfo("Validating configuration", configFile)

	cfg, err := config.Load(configFile, nil)
	if err != nil {
		ui.PrintError("Configuration validation failed", err.Error())
		os.Exit(1)
	}

	warnings := []string{}
	errors := []string{}

	if cfg.Telegram.APIToken == "" && os.Getenv("TGARCHIVE_API_TOKEN") == "" {
		warnings = append(warnings, "no API token configured; 'tgarchive auth login' can store one")
	}

	if cfg.Output.Directory != "" {
		if err := os.MkdirAll(cfg.Output.Directory, 0755); err != nil {
			errors = append(errors, fmt.Sprintf("Cannot create output directory: %v", err))
		}
	}

	if cfg.Logging.File != "" {
		dir := filepath.Dir(cfg.Logging.File)
		if err := os.MkdirAll(dir, 0755); err != nil {
			errors = append(errors, fmt.Sprintf("Cannot create log directory: %v", err))
		}
	}

	if len(errors) > 0 {
		ui.PrintError("Configuration has errors:")
		for _, err := range errors {
			fmt.Printf("  - %s\n", err)
		}
		os.Exit(1)
	}

	if len(warnings) > 0 {
		ui.PrintWarning("Configuration warnings:")
		for _, warn := range warnings {
			fmt.Printf("  - %s\n", warn)
		}
		fmt.Println()
	}

	ui.PrintSuccess("Configuration is valid")

	fmt.Println("\nConfiguration summary:")
	fmt.Printf("  Output directory: %s\n", cfg.Output.Directory)
	fmt.Printf("  Format: %s\n", cfg.Download.Format)
	fmt.Printf("  Batch size: %d\n", cfg.Download.BatchSize)
	fmt.Printf("  Rate limit: %d requests/minute\n", cfg.RateLimit.RequestsPerMinute)
	fmt.Printf("  Log level: %s\n", cfg.Logging.Level)
}
