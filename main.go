package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Zachkp/portfolio/internal/clock"
	"github.com/Zachkp/portfolio/internal/config"
	"github.com/Zachkp/portfolio/internal/content"
	"github.com/Zachkp/portfolio/internal/database"
	"github.com/Zachkp/portfolio/internal/logging"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "portfolio",
	Short: "Portfolio site with a contact form",
	Long: `Serves the portfolio site. Contact messages are validated, rate
limited per browser and written to the configured document store.

With no subcommand the site is served.`,
	SilenceUsage: true,
	RunE:         runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the site",
	RunE:  runServe,
}

var contentCmd = &cobra.Command{
	Use:   "content",
	Short: "Work with the site content file",
}

var contentCheckCmd = &cobra.Command{
	Use:   "check [file]",
	Short: "Validate a content file, or the built-in content when no file is given",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := ""
		if len(args) == 1 {
			path = args[0]
		}
		if _, err := content.Load(path); err != nil {
			return err
		}
		if path == "" {
			path = "built-in content"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: ok\n", path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(contentCmd)
	contentCmd.AddCommand(contentCheckCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(&logging.Config{
		Level:      cfg.LogLevel,
		File:       cfg.LogFile,
		MaxSize:    cfg.LogMaxSize,
		MaxBackups: cfg.LogMaxBackups,
		MaxAge:     cfg.LogMaxAge,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Close()

	gin.SetMode(cfg.GinMode)
	gin.DefaultWriter = logger.Writer()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer db.Close()

	clk := clock.Real()
	var shutdown closers

	store, closer, err := openStateStore(ctx, cfg, db)
	if err != nil {
		return err
	}
	if closer != nil {
		shutdown = append(shutdown, closer)
	}

	sink, closer, err := openSink(ctx, cfg, db, clk, logger)
	if err != nil {
		shutdown.Close(logger)
		return err
	}
	if closer != nil {
		shutdown = append(shutdown, closer)
	}
	defer shutdown.Close(logger)

	site, err := content.Load(cfg.ContentFile)
	if err != nil {
		return err
	}

	a, err := newApp(cfg, appDeps{
		DB:      db,
		Store:   store,
		Sink:    sink,
		Clock:   clk,
		Logger:  logger,
		Content: site,
	})
	if err != nil {
		return err
	}

	r, err := a.router()
	if err != nil {
		return err
	}
	a.start(ctx)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Listening on :%s (store=%s, sink=%s)", cfg.Port, cfg.StoreBackend, cfg.SinkBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), contactWriteGrace)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// In-flight contact writes get their full timeout before shutdown.
const contactWriteGrace = 20 * time.Second
