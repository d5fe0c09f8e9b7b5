package main

import (
	"context"
	"fmt"
	"time"

	"github.com/alecthomas/kong"

	"github.com/taskpilot/taskpilot/src/dedup"
	"github.com/taskpilot/taskpilot/src/storage"
)

// CleanupCmd sweeps expired dedup records
type CleanupCmd struct {
	Identity string        `help:"Also print request stats for this identity"`
	Window   time.Duration `help:"Stats window" default:"24h"`
}

func (c *CleanupCmd) Run(ctx *kong.Context, cli *CLI) error {
	logger := createLogger(cli)

	_, cfg, err := loadConfig(cli)
	if err != nil {
		return err
	}
	db, err := openDatabase(cli, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	deduper := dedup.New(dedup.Config{
		Store:  storage.NewDedupStore(db.DB()),
		TTL:    cfg.Dedup.TTL,
		Logger: logger,
	})

	cctx := context.Background()
	removed, err := deduper.Cleanup(cctx)
	if err != nil {
		return fmt.Errorf("cleanup failed: %w", err)
	}
	fmt.Printf("Removed %d expired dedup records.\n", removed)

	if c.Identity != "" {
		stats, err := deduper.CollectStats(cctx, c.Identity, c.Window)
		if err != nil {
			return fmt.Errorf("failed to collect stats: %w", err)
		}
		fmt.Printf("Requests for %s over %s: %d total, %d unique, %d duplicates, %d sessions\n",
			c.Identity, c.Window, stats.TotalRequests, stats.UniqueRequests,
			stats.DuplicateRequests, stats.SessionsCount)
	}
	return nil
}
