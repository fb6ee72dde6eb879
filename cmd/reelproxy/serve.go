package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"reelproxy/internal/app"
	"reelproxy/pkg/logger"
	"reelproxy/pkg/ui"
)

var (
	serveAddr       string
	exposeDetails   bool
	noPersist       bool
	serverRateLimit int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP resolution proxy",
	Long: `Run the HTTP proxy.

  GET /api/reel?url=<instagram url>
      200 {"videoUrl": "...", "thumbnail": "...", "caption": "..."}
      400 {"error": "Missing URL parameter"}
      404 {"error": "Could not find video URL"}
      500 {"error": "Failed to extract video URL", "details": "..."}

  GET /healthz

The listen address defaults to :5000, or :$PORT when PORT is set.
Send SIGHUP to re-read stored credentials without restarting.`,
	Example: `  # Listen on the default address
  reelproxy serve

  # Listen on localhost only and hide upstream error details
  reelproxy serve --addr 127.0.0.1:8080 --expose-error-details=false

  # Keep 'auth login' sessions in memory only
  reelproxy serve --no-persist`,
	Args: cobra.NoArgs,
	Run:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default :5000)")
	serveCmd.Flags().BoolVar(&exposeDetails, "expose-error-details", true, "include upstream error details in 500 responses")
	serveCmd.Flags().BoolVar(&noPersist, "no-persist", false, "do not read or write the keyring or credential file")
	serveCmd.Flags().IntVar(&serverRateLimit, "requests-per-minute", 0, "limit /api/reel requests per minute (0 disables)")
}

func runServe(cmd *cobra.Command, args []string) {
	var opts []app.Option
	if noPersist {
		opts = append(opts, app.WithoutPersistence())
	}
	a := newApp(cmd, nil, opts...)
	defer a.Close()

	srv := a.Server()
	ui.PrintInfo("Listening on", srv.Addr())

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigs)

	for {
		select {
		case err := <-errCh:
			if err != nil {
				a.Logger.WithError(err).Error("server failed")
				ui.PrintError("Server failed", err)
				os.Exit(1)
			}
			return
		case sig := <-sigs:
			if sig == syscall.SIGHUP {
				if err := a.Reload(); err != nil {
					a.Logger.WithError(err).Warn("credential reload failed")
				}
				continue
			}

			logger.LogComponentStop(a.Logger, "reelproxy", sig.String())
			ctx, cancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout)
			err := srv.Shutdown(ctx)
			cancel()
			if err != nil {
				a.Logger.WithError(err).Error("graceful shutdown failed")
				os.Exit(1)
			}
			<-errCh
			return
		}
	}
}
