package downloader

import (
	"context"
	"fmt"
	"io"
	"time"

	"golang.org/x/time/rate"

	"sukureipu/pkg/errors"
	"sukureipu/pkg/logger"
)

// Item is one planned download: the remote attachment name and the
// destination path it resolved to. Built fresh per sync, never persisted.
type Item struct {
	RemoteName string
	Path       string
}

// FileFetcher streams one attachment from the remote file host
type FileFetcher interface {
	DownloadFile(board, remoteName string) (io.ReadCloser, error)
}

// FileStore writes a downloaded body to its destination path
type FileStore interface {
	Save(r io.Reader, path string) error
}

// Report tallies a run's per-file outcomes
type Report struct {
	Succeeded int
	Failed    int
}

// Downloader executes a download plan strictly in sequence, spacing
// request starts by at least one pace interval. Sequential single-file
// transfer is a politeness constraint toward the remote origin, not an
// implementation shortcut.
type Downloader struct {
	client  FileFetcher
	store   FileStore
	limiter *rate.Limiter
	logger  logger.Logger
}

// New creates a paced downloader. interval is the minimum wall-clock
// spacing between consecutive request starts.
func New(client FileFetcher, store FileStore, interval time.Duration, log logger.Logger) *Downloader {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Downloader{
		client:  client,
		store:   store,
		limiter: rate.NewLimiter(rate.Every(interval), 1),
		logger:  log,
	}
}

// Run downloads every item in order. A failed transfer is counted and
// the run continues; an unwritable destination aborts the run, since it
// implies a structural problem rather than a flaky remote.
func (d *Downloader) Run(ctx context.Context, board string, items []Item) (Report, error) {
	var report Report
	total := len(items)

	for i, item := range items {
		if err := d.limiter.Wait(ctx); err != nil {
			return report, err
		}

		d.logger.InfoWithFields(fmt.Sprintf("[%d/%d] Fetching", i+1, total), map[string]interface{}{
			"board": board,
			"file":  item.RemoteName,
		})

		if err := d.fetchOne(board, item); err != nil {
			logger.LogDownload(board, item.RemoteName, item.Path, false, err)
			if errors.IsFileWrite(err) {
				return report, err
			}
			report.Failed++
			continue
		}

		logger.LogDownload(board, item.RemoteName, item.Path, true, nil)
		report.Succeeded++
	}

	return report, nil
}

func (d *Downloader) fetchOne(board string, item Item) error {
	body, err := d.client.DownloadFile(board, item.RemoteName)
	if err != nil {
		return err
	}
	defer body.Close()

	return d.store.Save(body, item.Path)
}
