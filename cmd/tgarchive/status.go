package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"tgarchive/pkg/progress"
	"tgarchive/pkg/storage"
	"tgarchive/pkg/ui"
)

var statusOutputDir string

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the state of downloads in a directory",
	Long: `List every download job found in the output directory, with how far
each one has progressed and whether media is still pending.`,
	Example: `  # Jobs in the current directory
  tgarchive status

  # Jobs in a specific archive directory
  tgarchive status --output ./archives`,
	Run: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().StringVarP(&statusOutputDir, "output", "o", ".", "directory to inspect")
}

func runStatus(cmd *cobra.Command, args []string) {
	jobs := progress.FindAll(statusOutputDir)
	if len(jobs) == 0 {
		ui.PrintWarning("No downloads found", statusOutputDir)
		return
	}

	onDisk, _ := storage.Scan(statusOutputDir)

	for _, job := range jobs {
		fmt.Println()
		ui.PrintHighlight(job.BaseName)
		ui.PrintInfo("  Messages", fmt.Sprintf("%d", job.Record.TotalDownloaded))
		ui.PrintInfo("  Last message ID", fmt.Sprintf("%d", job.Record.LastMessageID))

		switch {
		case !job.Record.TextComplete:
			ui.PrintWarning("  Text phase incomplete, resume to continue")
		case job.Record.MediaDownloaded:
			ui.PrintSuccess("  Complete")
		default:
			pending := len(job.Record.MessagesWithMedia)
			if onDisk != nil {
				inv := progress.NewInventory()
				inv.Replace(job.Record.MessagesWithMedia)
				pending = len(inv.Remaining(onDisk))
			}
			if pending == 0 {
				ui.PrintSuccess("  Text complete, media on disk")
			} else {
				ui.PrintWarning(fmt.Sprintf("  Text complete, %d media files pending", pending))
			}
		}
	}
}
