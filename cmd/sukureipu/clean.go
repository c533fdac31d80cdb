package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"sukureipu/pkg/cache"
	"sukureipu/pkg/logger"
)

// cleanCmd represents the clean command
var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Delete every cached thread snapshot",
	Long: `Delete every entry from the thread cache.

Subsequent scrapes will fetch thread metadata unconditionally until the
cache is repopulated. This does not touch downloaded files.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		runClean()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cleanCmd)
}

func runClean() {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	store, err := cache.New(cfg.Cache.Directory)
	if err != nil {
		logger.WithError(err).Error("failed to open thread cache")
		os.Exit(1)
	}

	refs, err := store.ListAll()
	if err != nil {
		logger.WithError(err).Error("failed to list cache entries")
		os.Exit(1)
	}

	if err := store.Clear(); err != nil {
		logger.WithError(err).Error("failed to clear cache")
		os.Exit(1)
	}

	logger.WithField("removed", len(refs)).Info("thread cache cleared")
}
