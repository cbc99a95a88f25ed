package main

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/augurhq/augur/internal/cache"
	"github.com/augurhq/augur/internal/output"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Result cache management commands",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache entry counts and disk usage",
	RunE:  runCacheStats,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all cached analysis results",
	RunE:  runCacheClear,
}

func init() {
	cacheStatsCmd.Flags().StringP("format", "f", "text", "Output format: text, json, markdown")

	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	rootCmd.AddCommand(cacheCmd)
}

func openStore() (*cache.Store, string, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, "", err
	}
	store := cache.New(cfg.Cache.Dir, cfg.Cache.Enabled,
		cache.WithTTL(time.Duration(cfg.Cache.TTL)*time.Hour))
	return store, cfg.Cache.Dir, nil
}

func runCacheStats(cmd *cobra.Command, args []string) error {
	store, dir, err := openStore()
	if err != nil {
		return err
	}
	if !store.Enabled() {
		color.Yellow("Cache is disabled in configuration")
		return nil
	}

	stats, err := store.GetStats()
	if err != nil {
		return fmt.Errorf("failed to read cache: %w", err)
	}

	format, _ := cmd.Flags().GetString("format")
	formatter, err := output.NewFormatter(output.ParseFormat(format), "", true)
	if err != nil {
		return err
	}
	defer formatter.Close()

	rows := [][]string{
		{"Directory", dir},
		{"Entries", fmt.Sprintf("%d", stats.Entries)},
		{"Total size", formatBytes(stats.TotalSize)},
		{"Oldest entry", formatAge(stats.OldestAge)},
		{"Newest entry", formatAge(stats.NewestAge)},
	}
	return formatter.Output(output.NewTable("Cache", []string{"Field", "Value"}, rows, stats))
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	store, dir, err := openStore()
	if err != nil {
		return err
	}
	if err := store.Clear(); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	color.Green("Cleared cache at %s", dir)
	return nil
}

func formatBytes(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MiB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KiB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}

func formatAge(d time.Duration) string {
	if d == 0 {
		return "-"
	}
	return d.Round(time.Minute).String()
}
