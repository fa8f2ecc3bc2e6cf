package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"tgarchive/pkg/archiver"
	"tgarchive/pkg/auth"
	"tgarchive/pkg/config"
	"tgarchive/pkg/logger"
	"tgarchive/pkg/telegram"
	"tgarchive/pkg/ui"
)

var (
	// Archive command flags
	outputDir        string
	saveFormat       string
	batchSize        int
	maxMessages      int
	mediaImmediately bool
	rateLimit        int
	tokenLabel       string
	resumeLatest     bool
	freshStart       bool
	withMedia        bool
	skipMedia        bool
)

// archiveCmd represents the archive command
var archiveCmd = &cobra.Command{
	Use:   "archive <channel>",
	Short: "Download a channel's full message history",
	Long: `Download the complete message history of a Telegram channel or group.

The channel can be given as a username, an @username, a t.me link, or a
private invite link. A gateway API token must be available either through:
  - Stored credentials (use 'tgarchive auth login' to store)
  - The TGARCHIVE_API_TOKEN environment variable
  - Configuration file

Interrupting a download with Ctrl-C is safe: run the same command again and
pick the existing job to continue where it stopped.`,
	Example: `  # Archive a public channel
  tgarchive archive durov

  # Archive to a specific directory, CSV only
  tgarchive archive durov --output ./archives --format csv

  # Limit to the first 500 messages
  tgarchive archive durov --max-messages 500

  # Continue the most recent prior download without prompting
  tgarchive archive durov --resume --media`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		runArchive(cmd, args)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(archiveCmd)

	archiveCmd.Flags().StringVarP(&outputDir, "output", "o", "", "output directory (default: current directory)")
	archiveCmd.Flags().StringVarP(&saveFormat, "format", "f", "", "output format: csv, json, html, both, all")
	archiveCmd.Flags().IntVar(&batchSize, "batch-size", 0, "messages fetched per request")
	archiveCmd.Flags().IntVar(&maxMessages, "max-messages", 0, "stop after this many messages (0 = all)")
	archiveCmd.Flags().BoolVar(&mediaImmediately, "media-immediately", false, "download attachments during the text phase")
	archiveCmd.Flags().IntVar(&rateLimit, "rate-limit", 0, "requests per minute")
	archiveCmd.Flags().StringVarP(&tokenLabel, "token", "t", "", "use a specific stored token")
	archiveCmd.Flags().BoolVar(&resumeLatest, "resume", false, "continue the most advanced prior download without prompting")
	archiveCmd.Flags().BoolVar(&freshStart, "fresh", false, "always start a new download, ignoring prior ones")
	archiveCmd.Flags().BoolVar(&withMedia, "media", false, "download pending media without prompting")
	archiveCmd.Flags().BoolVar(&skipMedia, "skip-media", false, "leave media pending without prompting")
}

func runArchive(cmd *cobra.Command, args []string) {
	target := strings.TrimSpace(args[0])

	flags := make(map[string]interface{})
	if outputDir != "" {
		flags["output"] = outputDir
	}
	if saveFormat != "" {
		flags["format"] = saveFormat
	}
	if batchSize > 0 {
		flags["batch-size"] = batchSize
	}
	if maxMessages > 0 {
		flags["max-messages"] = maxMessages
	}
	if cmd.Flags().Changed("media-immediately") {
		flags["media-immediately"] = mediaImmediately
	}
	if rateLimit > 0 {
		flags["rate-limit"] = rateLimit
	}
	if logLevel != "info" {
		flags["log-level"] = logLevel
	}

	cfg, err := config.Load(configFile, flags)
	if err != nil {
		ui.PrintError("Failed to load configuration", err.Error())
		os.Exit(1)
	}

	if err := logger.Initialize(&cfg.Logging); err != nil {
		ui.PrintError("Failed to initialize logging", err.Error())
		os.Exit(1)
	}
	logger.WithField("version", version).Info("tgarchive starting")

	token := resolveToken(cfg)
	cfg.Telegram.APIToken = token

	ui.PrintInfo("Target", target)

	log := logger.GetLogger()
	client := telegram.NewClient(cfg.Telegram.BaseURL, token, 30*time.Second, log)
	arch := archiver.New(cfg, client, pickDecisions(), log)

	// Ctrl-C cancels the context; the archiver saves its position on the
	// way out, so the job can be resumed.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sum, err := arch.Run(ctx, target)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			ui.PrintWarning("Interrupted, progress saved")
			if sum.ProgressPath != "" {
				ui.PrintInfo("Resume with", fmt.Sprintf("tgarchive archive %s", target))
			}
			os.Exit(130)
		}
		logger.WithError(err).WithField("target", target).Error("Archive failed")
		ui.PrintError("Archive failed", err.Error())
		if notifications {
			ui.NewNotifier().SendError("tgarchive", fmt.Sprintf("Archive of %s failed", target))
		}
		os.Exit(1)
	}

	printSummary(sum)
	if notifications {
		ui.NewNotifier().SendSuccess("tgarchive",
			fmt.Sprintf("Archived %d messages from %s", sum.TotalDownloaded, sum.Channel.Title))
	}
}

// resolveToken finds the gateway token, preferring config/env, then the
// credential manager.
func resolveToken(cfg *config.Config) string {
	if cfg.Telegram.APIToken != "" && tokenLabel == "" {
		return cfg.Telegram.APIToken
	}

	manager, err := auth.NewManager()
	if err != nil {
		ui.PrintError("Failed to initialize credential manager", err.Error())
		os.Exit(1)
	}

	var cred *auth.Credential
	if tokenLabel != "" {
		cred, err = manager.Retrieve(tokenLabel)
		if err != nil {
			ui.PrintError("Token not found", tokenLabel)
			ui.PrintInfo("Stored tokens", "Use 'tgarchive auth list' to see them")
			os.Exit(1)
		}
	} else {
		cred, err = manager.RetrieveDefault()
		if err != nil {
			logger.Error("No API token found")
			ui.PrintError("No gateway API token found")
			fmt.Println("\nTo store a token securely, run:")
			fmt.Println("  tgarchive auth login")
			fmt.Println("\nOr set an environment variable:")
			fmt.Println("  export TGARCHIVE_API_TOKEN=your_token")
			os.Exit(1)
		}
	}
	return cred.Token
}

// pickDecisions maps the non-interactive flags onto the archiver's decision
// hooks, falling back to terminal prompts.
func pickDecisions() archiver.Decisions {
	auto := archiver.AutoDecisions{Resume: resumeLatest, Media: withMedia}
	switch {
	case freshStart:
		return archiver.AutoDecisions{Resume: false, Media: withMedia && !skipMedia}
	case resumeLatest || withMedia || skipMedia:
		if skipMedia {
			auto.Media = false
		}
		return auto
	default:
		return ui.NewPrompter(os.Stdin, os.Stdout)
	}
}

func printSummary(sum *archiver.Summary) {
	ui.PrintSuccess("Archive complete")
	ui.PrintInfo("Channel", sum.Channel.Title)
	ui.PrintInfo("Messages", fmt.Sprintf("%d", sum.TotalDownloaded))
	if sum.MediaTotal > 0 {
		ui.PrintInfo("Media", fmt.Sprintf("%d total, %d pending", sum.MediaTotal, sum.MediaPending))
	}
	for _, p := range sum.OutputPaths {
		ui.PrintInfo("Output", p)
	}
	if sum.State != archiver.StateDone {
		ui.PrintWarning("Job state", sum.State.String())
	}
}
