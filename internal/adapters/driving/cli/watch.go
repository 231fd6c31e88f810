package cli

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ragpipe/internal/core/domain"
	"github.com/custodia-labs/ragpipe/internal/core/services"
)

var watchInterval time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch [dir...]",
	Short: "Keep directories indexed as files change",
	Long: `Ingests the directories once, then ingests new or modified files as
they appear. A full sweep also runs periodically to pick up anything the
file events missed. Deleted files stay indexed until removed with
"ragpipe documents delete".

Press Ctrl+C to stop.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().DurationVar(&watchInterval, "interval", 0, "time between full sweeps (default: configured watch_interval)")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if ingestionService == nil {
		return notConfigured("ingestion")
	}

	interval := watchInterval
	if interval == 0 {
		interval = services.DefaultWatchInterval
		if settingsService != nil {
			if settings, err := settingsService.Get(); err == nil && settings.Ingestion.WatchInterval > 0 {
				interval = settings.Ingestion.WatchInterval
			}
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	watcher := services.NewWatcher(ingestionService,
		services.WithWatchInterval(interval),
		services.WithResultHandler(func(r domain.IngestionResult) {
			if !r.Skipped() {
				printIngestionResult(cmd, r)
			}
		}),
		services.WithSweepHandler(func(dir string, stats *domain.IngestionStats, err error) {
			if stats == nil {
				cmd.Printf("Sweep of %s failed: %v\n", dir, err)
				return
			}
			cmd.Printf("Swept %s: %d processed, %d skipped, %d errors, %d chunks\n",
				dir, stats.Processed, stats.Skipped, stats.Errors, stats.TotalChunks)
		}),
	)

	cmd.Printf("Watching %d director%s (sweep every %s). Press Ctrl+C to stop.\n",
		len(args), plural(len(args), "y", "ies"), interval)
	if err := watcher.Run(ctx, args...); err != nil {
		return err
	}
	cmd.Println("Stopped.")
	return nil
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
