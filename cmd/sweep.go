package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/lauruschat/lauruschat/internal/config"
	"github.com/lauruschat/lauruschat/internal/dependency"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Remove conversations older than the retention window",
	RunE:  runSweep,
}

func runSweep(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load(config.ConfigPath())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	container, err := dependency.New(cfg)
	if err != nil {
		return err
	}

	st := container.Store()
	if c, ok := st.(io.Closer); ok {
		defer c.Close()
	}

	window := time.Duration(cfg.Storage.RetentionDays) * 24 * time.Hour
	removed, err := st.SweepExpired(context.Background(), window)
	if err != nil {
		return fmt.Errorf("sweep: %w", err)
	}

	fmt.Printf("Removed %d expired conversations (older than %d days).\n", removed, cfg.Storage.RetentionDays)
	return nil
}
