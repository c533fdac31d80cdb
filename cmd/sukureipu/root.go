package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"sukureipu/pkg/config"
	"sukureipu/pkg/logger"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile    string
	logLevel      string
	cleanArchived bool
	reverse       bool
	basePath      string
	structure     string
	cacheDir      string
	modifiedSince string
	onMatch       string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "sukureipu",
	Short: "Downloads all media attachments from imageboard threads",
	Long: `Sukureipu is a command-line tool for downloading every attachment from
4chan-style imageboard threads.

It caches thread JSON per thread and uses If-Modified-Since conditional
requests so unchanged threads cost a single cheap round trip. Downloads
run strictly one at a time, paced to at most one request per second.

Structure template placeholders:
  %(board)   the board code (g, wsr, a)
  %(thread)  the OP post number
  %(title)   the thread title (subject, or start of the OP comment)
  %(id)      the attachment's upload timestamp
  %(post)    the post number
  %(file)    the original upload filename
  %(ext)     the file extension

Literal text passes through unchanged. Extensions are appended
automatically at the end.`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is $HOME/.sukureipu.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVarP(&cleanArchived, "clean", "c", false, "remove archived threads from the cache after downloading")
	rootCmd.PersistentFlags().BoolVarP(&reverse, "reverse", "r", false, "begin the scrape with the latest post")
	rootCmd.PersistentFlags().StringVarP(&basePath, "path", "p", "", "directory to download to (default: current directory)")
	rootCmd.PersistentFlags().StringVarP(&structure, "structure", "s", "", "naming template for downloads (default: %(board)/%(thread)/%(id))")
	rootCmd.PersistentFlags().StringVar(&cacheDir, "cache", "", "thread cache directory (default: ~/.cache/sukureipu)")
	rootCmd.PersistentFlags().StringVar(&modifiedSince, "modified-since", "", "conditional fetch behavior: ignore, reuse or stop (default: reuse)")
	rootCmd.PersistentFlags().StringVar(&onMatch, "on-match", "", "behavior on finding an existing file: append, replace, skip or stop (default: skip)")

	// Version template
	rootCmd.SetVersionTemplate(`sukureipu {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	// Disable default completion command
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// loadConfig merges flag values over the layered configuration and
// initializes logging.
func loadConfig() (*config.Config, error) {
	flags := make(map[string]interface{})
	if basePath != "" {
		flags["path"] = basePath
	}
	if structure != "" {
		flags["structure"] = structure
	}
	if cacheDir != "" {
		flags["cache"] = cacheDir
	}
	if modifiedSince != "" {
		flags["modified-since"] = modifiedSince
	}
	if onMatch != "" {
		flags["on-match"] = onMatch
	}
	if cleanArchived {
		flags["clean"] = true
	}
	if reverse {
		flags["reverse"] = true
	}
	if logLevel != "" {
		flags["log-level"] = logLevel
	}

	cfg, err := config.Load(configFile, flags)
	if err != nil {
		return nil, err
	}

	if err := logger.Initialize(&cfg.Logging); err != nil {
		return nil, err
	}

	return cfg, nil
}
