package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"sukureipu/pkg/fourchan"
	"sukureipu/pkg/logger"
	"sukureipu/pkg/scraper"
)

// refreshCmd represents the refresh command
var refreshCmd = &cobra.Command{
	Use:   "refresh [board [thread]]",
	Short: "Re-sync previously downloaded threads from the cache",
	Long: `Re-sync cached threads and download any attachments posted since the
last run.

With no arguments every cached thread is refreshed. With a board code
only that board's cached threads are refreshed. With a board and a
thread number just that thread is refreshed. Combine with --clean to
drop archived threads from the cache as they finish.`,
	Example: `  # Refresh everything the cache knows about
  sukureipu refresh

  # Refresh all cached /g/ threads, dropping archived ones
  sukureipu refresh g --clean

  # Refresh a single cached thread
  sukureipu refresh g 12345`,
	Args: cobra.MaximumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		runRefresh(args)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(refreshCmd)
}

func runRefresh(args []string) {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	engine, err := scraper.New(cfg, nil, logger.GetLogger())
	if err != nil {
		logger.WithError(err).Error("failed to initialize engine")
		os.Exit(1)
	}

	var refs []fourchan.ThreadRef
	switch len(args) {
	case 2:
		refs = []fourchan.ThreadRef{{Board: args[0], ID: args[1]}}
	case 1:
		refs, err = engine.CachedRefs(args[0])
	default:
		refs, err = engine.CachedRefs("")
	}
	if err != nil {
		logger.WithError(err).Error("failed to list cached threads")
		os.Exit(1)
	}

	if len(refs) == 0 {
		logger.Info("no cached threads to refresh")
		return
	}

	logger.WithField("threads", len(refs)).Info("refreshing cached threads")

	if err := engine.ProcessAll(context.Background(), refs); err != nil {
		logger.WithError(err).Error("refresh finished with failures")
		os.Exit(1)
	}
}
