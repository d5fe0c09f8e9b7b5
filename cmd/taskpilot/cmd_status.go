package main

import (
	"context"
	"fmt"
	"os"

	"github.com/alecthomas/kong"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/taskpilot/taskpilot/src/config"
)

// StatusCmd shows database and process status
type StatusCmd struct{}

func (c *StatusCmd) Run(ctx *kong.Context, cli *CLI) error {
	_, cfg, err := loadConfig(cli)
	if err != nil {
		return err
	}

	dbPath := cfg.Data.DatabasePath
	if dbPath == "" {
		dbPath = config.GetDefaultStoragePaths().DatabasePath
	}

	fmt.Printf("Database: %s\n", dbPath)
	if info, err := os.Stat(dbPath); err == nil {
		fmt.Printf("  size: %.1f KiB\n", float64(info.Size())/1024)
	} else {
		fmt.Println("  not created yet")
	}

	db, err := openDatabase(cli, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	cctx := context.Background()
	for _, table := range []string{"sessions", "conversations", "messages", "tool_summaries", "dedup_records"} {
		var count int
		row := db.DB().QueryRowContext(cctx, "SELECT COUNT(*) FROM "+table)
		if err := row.Scan(&count); err != nil {
			return fmt.Errorf("failed to count %s: %w", table, err)
		}
		fmt.Printf("  %s: %d\n", table, count)
	}

	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return fmt.Errorf("failed to inspect process: %w", err)
	}
	fmt.Printf("Process: pid %d\n", proc.Pid)
	if mem, err := proc.MemoryInfo(); err == nil {
		fmt.Printf("  rss: %.1f MiB\n", float64(mem.RSS)/(1024*1024))
	}
	if cpu, err := proc.CPUPercent(); err == nil {
		fmt.Printf("  cpu: %.1f%%\n", cpu)
	}
	return nil
}
