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

// scrapeCmd represents the scrape command
var scrapeCmd = &cobra.Command{
	Use:   "scrape <url>...",
	Short: "Download all attachments from the given thread URLs",
	Long: `Download every attachment from one or more imageboard threads.

Each URL must point at a thread, e.g.
https://boards.4chan.org/g/thread/12345. URLs that do not parse as
thread URLs are skipped with a warning. Threads are processed one after
another; a failing thread never stops the rest of the batch.`,
	Example: `  # Download a thread's attachments into ./g/12345/
  sukureipu scrape https://boards.4chan.org/g/thread/12345

  # Custom destination and naming
  sukureipu scrape -p ~/archive -s '%(board)/%(title)/%(file)' <url>

  # Fast re-scrape of an active thread: newest posts first, stop at the
  # first already-downloaded file, skip the fetch if nothing changed
  sukureipu scrape -r --on-match stop --modified-since stop <url>`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		runScrape(args)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(scrapeCmd)
}

func runScrape(urls []string) {
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
	for _, url := range urls {
		ref, ok := fourchan.ParseThreadURL(url)
		if !ok {
			logger.WithField("url", url).Warn("not a thread URL, skipping")
			continue
		}
		refs = append(refs, ref)
	}

	if len(refs) == 0 {
		logger.Error("no usable thread URLs given")
		os.Exit(1)
	}

	if err := engine.ProcessAll(context.Background(), refs); err != nil {
		logger.WithError(err).Error("scrape finished with failures")
		os.Exit(1)
	}
}

// Make scrape the default command when no subcommand is specified
func init() {
	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		if len(args) > 0 && !isKnownCommand(args[0]) {
			// Bare URLs without the "scrape" subcommand
			return scrapeCmd.RunE(scrapeCmd, args)
		}
		return cmd.Help()
	}
	rootCmd.Args = cobra.ArbitraryArgs
}

func isKnownCommand(arg string) bool {
	for _, cmd := range rootCmd.Commands() {
		if cmd.Name() == arg || cmd.HasAlias(arg) {
			return true
		}
	}
	return false
}
