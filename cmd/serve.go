package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/lauruschat/lauruschat/internal/config"
	"github.com/lauruschat/lauruschat/internal/dependency"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the webhook and chat HTTP server",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Listen port (overrides config)")
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load(config.ConfigPath())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if servePort != 0 {
		cfg.Server.Port = servePort
	}
	if cfg.OpenAI.APIKey == "" {
		return fmt.Errorf("no OpenAI API key configured — edit %s", config.ConfigPath())
	}
	if cfg.OpenAI.AssistantID == "" {
		return fmt.Errorf("no assistant configured — run `lauruschat assistant create` first")
	}

	container, err := dependency.New(cfg)
	if err != nil {
		return err
	}

	fmt.Printf("Starting lauruschat on port %d...\n", cfg.Server.Port)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return container.Server().Run(gctx) })
	g.Go(func() error { return container.RetentionService().Start(gctx) })

	fmt.Println("Server running. Press Ctrl+C to stop.")

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		return err
	}
	fmt.Println("\nShutdown complete.")
	return nil
}
