package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"reelproxy/internal/downloader"
	"reelproxy/pkg/checkpoint"
	"reelproxy/pkg/config"
	"reelproxy/pkg/instagram"
	"reelproxy/pkg/ratelimit"
	"reelproxy/pkg/storage"
	"reelproxy/pkg/ui"
	"reelproxy/pkg/ui/tui"
)

var (
	outputDir    string
	concurrent   int
	rateLimit    int
	maxRetries   int
	overwrite    bool
	noMetadata   bool
	useTUI       bool
	notify       bool
	verbose      bool
	cdnRateLimit int
	resume       bool
)

var downloadCmd = &cobra.Command{
	Use:   "download <url>...",
	Short: "Resolve reels and save the media to disk",
	Long: `Resolve one or more Instagram reel links and save each media file to the
output directory, with a JSON sidecar holding the caption and thumbnail.

Files are named after the post shortcode. Reels that are already on disk are
skipped unless --overwrite is given.

Progress is kept in a checkpoint file in the output directory until every
URL has been saved. --resume re-submits the URLs of the last batch that
failed or never ran, together with any new ones given.`,
	Example: `  # Save two reels to ./downloads
  reelproxy download https://www.instagram.com/reel/C1a2b3c4d5e/ https://www.instagram.com/p/C9z8y7x6w5v/

  # Read links from a file, five at a time, with the full-screen view
  xargs reelproxy download --concurrent 5 --tui < links.txt

  # Retry whatever failed last time
  reelproxy download --resume`,
	Args: cobra.ArbitraryArgs,
	Run:  runDownload,
}

func init() {
	rootCmd.AddCommand(downloadCmd)

	downloadCmd.Flags().StringVarP(&outputDir, "output", "o", "", "output directory (default ./downloads)")
	downloadCmd.Flags().IntVar(&concurrent, "concurrent", 3, "number of concurrent downloads")
	downloadCmd.Flags().IntVar(&rateLimit, "rate-limit", 60, "Instagram requests per minute")
	downloadCmd.Flags().IntVar(&maxRetries, "max-retries", 2, "maximum attempts per Instagram request")
	downloadCmd.Flags().IntVar(&cdnRateLimit, "cdn-rate-limit", 0, "media downloads per minute (0 disables)")
	downloadCmd.Flags().BoolVar(&overwrite, "overwrite", false, "download reels that are already on disk")
	downloadCmd.Flags().BoolVar(&noMetadata, "no-metadata", false, "do not write JSON sidecars")
	downloadCmd.Flags().BoolVar(&useTUI, "tui", false, "use interactive terminal UI with real-time progress")
	downloadCmd.Flags().BoolVar(&notify, "notify", false, "send a desktop notification when the batch finishes")
	downloadCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "print one line per event and show logs")
	downloadCmd.Flags().BoolVar(&resume, "resume", false, "retry the unfinished URLs of the previous batch")
}

func runDownload(cmd *cobra.Command, args []string) {
	urls := make([]string, 0, len(args))
	for _, arg := range args {
		if arg = strings.TrimSpace(arg); arg != "" {
			urls = append(urls, arg)
		}
	}
	if len(urls) == 0 && !resume {
		ui.PrintError("No URLs given")
		os.Exit(1)
	}

	a := newApp(cmd, func(cfg *config.Config) {
		// Logs would tear the progress line or the full-screen view
		if !verbose && !cmd.Flags().Changed("log-level") {
			cfg.Logging.Level = "error"
		}
		if useTUI {
			cfg.Logging.Console = false
			if cfg.Logging.File == "" {
				cfg.Logging.Level = "disabled"
			}
		}
		if cmd.Flags().Changed("overwrite") {
			cfg.Download.OverwriteExisting = overwrite
		}
		if noMetadata {
			cfg.Download.WriteMetadata = false
		}
	})
	defer a.Close()
	cfg := a.Config

	store, err := storage.NewManager(cfg.Download.BaseDirectory)
	if err != nil {
		ui.PrintError("Failed to prepare output directory", err)
		os.Exit(1)
	}

	checkpoints := checkpoint.NewManager(store.Dir(), a.Logger)
	batch, err := openBatch(checkpoints, urls)
	if err != nil {
		ui.PrintError("Failed to prepare checkpoint", err)
		os.Exit(1)
	}
	urls = batch.Pending()
	if len(urls) == 0 {
		ui.PrintInfo("Nothing to resume", store.Dir())
		_ = checkpoints.Delete()
		return
	}

	if !useTUI {
		ui.PrintBanner()
		ui.PrintInfo("Output", store.Dir())
		ui.PrintInfo("Reels", fmt.Sprintf("%d", len(urls)))
		for _, u := range urls {
			if !instagram.IsInstagramURL(u) {
				ui.PrintWarning("Not an Instagram link, trying anyway: " + u)
			}
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		reporter downloader.Reporter
		display  *ui.ProgressDisplay
		terminal *tui.TUI
	)
	if useTUI {
		terminal = tui.NewTUI(cfg.Download.ConcurrentDownloads)
		for _, u := range urls {
			terminal.QueueDownload(downloader.ShortcodeFor(u), u)
		}
		reporter = terminal
	} else {
		display = ui.NewProgressDisplay(os.Stdout, len(urls), verbose)
		reporter = display
	}

	pool := downloader.NewWorkerPool(a.Resolver, a.Instagram, store, downloader.Options{
		Workers:       cfg.Download.ConcurrentDownloads,
		JobTimeout:    cfg.Download.DownloadTimeout,
		WriteMetadata: cfg.Download.WriteMetadata,
		Overwrite:     cfg.Download.OverwriteExisting,
		Limiter:       ratelimit.PerMinute(cdnRateLimit),
		Reporter:      reporter,
		Logger:        a.Logger,
	})

	runBatch := func(ctx context.Context) batchSummary {
		pool.Start(ctx)
		go func() {
			defer pool.Stop()
			for _, u := range urls {
				if err := pool.Submit(downloader.Job{URL: u}); err != nil {
					return
				}
			}
		}()

		var summary batchSummary
		for r := range pool.Results() {
			summary.add(r)
			if err := checkpoints.Record(batch, r.Job.URL, statusOf(r), r.Path, r.Err); err != nil {
				a.Logger.WithError(err).Warn("failed to update checkpoint")
			}
			if terminal != nil && r.Err != nil {
				terminal.Logf("ERROR", "%s: %v", r.Job.URL, r.Err)
			}
		}
		return summary
	}

	var summary batchSummary
	if terminal != nil {
		ctx, cancel := context.WithCancel(ctx)
		done := make(chan batchSummary, 1)
		go func() {
			s := runBatch(ctx)
			terminal.Done()
			done <- s
		}()

		if err := terminal.Run(); err != nil {
			a.Logger.WithError(err).Error("TUI failed")
		}
		// Quitting the view abandons whatever is still running
		cancel()
		summary = <-done
	} else {
		summary = runBatch(ctx)
		display.Complete()
		if verbose {
			for _, r := range summary.failed {
				ui.PrintError(r.Job.URL, r.Err)
			}
		}
	}

	notifier := ui.NewNotifierWithSender(nil)
	if notify {
		notifier = ui.NewNotifier()
	}
	if _, failed, pending := batch.Counts(); failed+pending > 0 {
		if !useTUI {
			ui.PrintInfo("Unfinished", fmt.Sprintf("%d, run again with --resume to retry", failed+pending))
		}
		notifier.SendError("reelproxy", fmt.Sprintf("%d of %d reels failed", failed+pending, len(urls)))
		os.Exit(1)
	}
	if err := checkpoints.Delete(); err != nil {
		a.Logger.WithError(err).Warn("failed to remove checkpoint")
	}
	notifier.SendSuccess("reelproxy", fmt.Sprintf("Saved %d reels to %s (%d already present)", summary.saved, store.Dir(), summary.skipped))
}

type batchSummary struct {
	saved   int
	skipped int
	failed  []downloader.Result
}

func (s *batchSummary) add(r downloader.Result) {
	switch {
	case r.Err != nil:
		s.failed = append(s.failed, r)
	case r.Skipped:
		s.skipped++
	default:
		s.saved++
	}
}

// openBatch starts a new checkpoint over urls, or with --resume extends the
// previous one with them
func openBatch(m *checkpoint.Manager, urls []string) (*checkpoint.Checkpoint, error) {
	if resume {
		cp, err := m.Load()
		if err != nil {
			return nil, err
		}
		if cp != nil {
			cp.Add(urls...)
			return cp, m.Save(cp)
		}
	}
	return m.Create(urls)
}

func statusOf(r downloader.Result) checkpoint.Status {
	switch {
	case r.Err != nil:
		return checkpoint.StatusFailed
	case r.Skipped:
		return checkpoint.StatusSkipped
	default:
		return checkpoint.StatusSaved
	}
}
