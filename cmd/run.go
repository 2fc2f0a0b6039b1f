package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Codesait/clawbot-telegram/internal/config"
	"github.com/Codesait/clawbot-telegram/internal/dependency"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the clawbot bot server",
	RunE:  runServer,
}

func runServer(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load(config.ConfigPath())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	container, err := dependency.New(cfg)
	if err != nil {
		return err
	}

	fmt.Printf("%s Starting clawbot...\n", logo)

	mgr := container.ChannelManager()
	if enabled := mgr.EnabledChannels(); len(enabled) > 0 {
		fmt.Printf("✓ Channels enabled: %s\n", strings.Join(enabled, ", "))
	} else {
		fmt.Println("Warning: no channels enabled")
	}

	// Graceful shutdown context.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return container.Loop().Run(gctx) })
	g.Go(func() error { return container.CronService().Start(gctx) })
	g.Go(func() error { return mgr.StartAll(gctx) })

	fmt.Printf("%s Bot running. Press Ctrl+C to stop.\n", logo)

	if err := g.Wait(); err != nil && err != context.Canceled {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		return err
	}
	fmt.Println("\nShutdown complete.")
	return nil
}
