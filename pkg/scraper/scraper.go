package scraper

import (
	"context"
	"fmt"
	"strings"

	"sukureipu/internal/downloader"
	"sukureipu/pkg/cache"
	"sukureipu/pkg/collision"
	"sukureipu/pkg/config"
	"sukureipu/pkg/errors"
	"sukureipu/pkg/fourchan"
	"sukureipu/pkg/logger"
	"sukureipu/pkg/naming"
	"sukureipu/pkg/storage"
)

// ConditionalMode controls how the engine uses the cached
// If-Modified-Since validator.
type ConditionalMode int

const (
	// ModeReuse sends the validator and reuses the cached thread on a 304.
	ModeReuse ConditionalMode = iota
	// ModeIgnore never sends the validator; every fetch is unconditional.
	ModeIgnore
	// ModeStop sends the validator but aborts the sync on a 304.
	ModeStop
)

// ParseConditionalMode converts a mode string to a ConditionalMode.
// Unknown strings are a hard error.
func ParseConditionalMode(s string) (ConditionalMode, error) {
	switch strings.ToLower(s) {
	case "reuse":
		return ModeReuse, nil
	case "ignore":
		return ModeIgnore, nil
	case "stop":
		return ModeStop, nil
	default:
		return 0, fmt.Errorf("unknown modified-since mode %q", s)
	}
}

// SyncState is the terminal state of a thread sync
type SyncState int

const (
	// StateUpdated means a fresh 200 snapshot replaced the cache entry
	StateUpdated SyncState = iota
	// StateReused means a 304 answer let the cached snapshot stand in
	StateReused
	// StateAborted means the sync produced no usable snapshot
	StateAborted
)

func (s SyncState) String() string {
	switch s {
	case StateUpdated:
		return "updated"
	case StateReused:
		return "reused"
	case StateAborted:
		return "aborted"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// SyncResult carries the terminal state and, for Updated/Reused, the
// thread snapshot the rest of the pipeline works from.
type SyncResult struct {
	State  SyncState
	Thread *fourchan.Thread
}

// Engine orchestrates thread syncs: conditional fetch against the
// cache, file-list extraction through the naming template and collision
// policy, and the paced download run.
type Engine struct {
	client     Client
	cache      *cache.Store
	store      *storage.Manager
	downloader *downloader.Downloader
	cfg        *config.Config
	mode       ConditionalMode
	policy     collision.Policy
	logger     logger.Logger
}

// New creates an Engine from configuration. A nil client gets the
// default API client built from cfg; tests inject their own.
func New(cfg *config.Config, client Client, log logger.Logger) (*Engine, error) {
	if log == nil {
		log = logger.GetLogger()
	}

	mode, err := ParseConditionalMode(cfg.Scrape.ModifiedSince)
	if err != nil {
		return nil, err
	}

	policy, err := collision.ParsePolicy(cfg.Scrape.OnMatch)
	if err != nil {
		return nil, err
	}

	cacheStore, err := cache.New(cfg.Cache.Directory)
	if err != nil {
		return nil, fmt.Errorf("failed to open thread cache: %w", err)
	}

	if client == nil {
		client = fourchan.NewClient(cfg.Chan.MetadataHost, cfg.Chan.FileHost,
			cfg.Chan.UserAgent, cfg.Chan.RequestTimeout, log)
	}

	store := storage.NewManager(cfg.Output.BasePath)

	return &Engine{
		client:     client,
		cache:      cacheStore,
		store:      store,
		downloader: downloader.New(client, store, cfg.Scrape.PaceInterval, log),
		cfg:        cfg,
		mode:       mode,
		policy:     policy,
		logger:     log,
	}, nil
}

// Cache exposes the thread cache for batch operations
func (e *Engine) Cache() *cache.Store {
	return e.cache
}

// Sync fetches a thread's metadata, consulting and updating the cache.
// The returned error is typed (see pkg/errors) whenever State is
// StateAborted; a stale_cache error means "not modified, but policy
// forbids reuse", which callers may treat as nothing-to-do.
func (e *Engine) Sync(ref fourchan.ThreadRef) (*SyncResult, error) {
	entry, err := e.cache.Get(ref)
	if err != nil {
		// cache_corrupt propagates; the entry must be removed or
		// repaired before this thread can sync again
		return &SyncResult{State: StateAborted}, err
	}

	validator := ""
	if entry != nil && e.mode != ModeIgnore {
		validator = entry.LastModified
	}

	page, err := e.client.FetchThread(ref, validator)
	if err != nil {
		return &SyncResult{State: StateAborted}, err
	}

	if page.NotModified() {
		if e.mode == ModeReuse && entry != nil {
			thread, err := entry.DecodeThread()
			if err != nil {
				return &SyncResult{State: StateAborted}, err
			}
			e.logger.DebugWithFields("thread not modified, reusing cached snapshot", map[string]interface{}{
				"thread": ref.Key(),
			})
			return &SyncResult{State: StateReused, Thread: thread}, nil
		}
		return &SyncResult{State: StateAborted}, errors.New(errors.ErrorTypeStaleCache,
			fmt.Sprintf("thread %s not modified but cached snapshot unusable under policy", ref))
	}

	if err := e.cache.Put(ref, &cache.Entry{
		LastModified: page.LastModified,
		Thread:       page.Raw,
	}); err != nil {
		return &SyncResult{State: StateAborted}, err
	}

	e.logger.DebugWithFields("thread snapshot updated", map[string]interface{}{
		"thread":        ref.Key(),
		"last_modified": page.LastModified,
		"posts":         len(page.Thread.Posts),
	})

	return &SyncResult{State: StateUpdated, Thread: page.Thread}, nil
}

// ExtractFiles walks the thread's posts and builds the download plan.
// Iteration direction changes emission order; combined with the Stop
// collision policy it also changes which files make the plan, since
// Stop discards everything after the first pre-existing path.
func (e *Engine) ExtractFiles(ref fourchan.ThreadRef, thread *fourchan.Thread) []downloader.Item {
	title := thread.Title(ref.ID, e.cfg.Output.TitleLength)
	tmpl := naming.Render(e.cfg.Output.Structure, naming.StructureValues(ref, title))

	var items []downloader.Item

	posts := thread.Posts
	start, end, step := 0, len(posts), 1
	if e.cfg.Scrape.Reverse {
		start, end, step = len(posts)-1, -1, -1
	}

	for i := start; i != end; i += step {
		post := &posts[i]
		if !post.HasFile() {
			continue
		}

		rel := naming.RenderFilePath(tmpl, naming.PostValues(post), post.Ext)
		path := e.store.Resolve(rel)

		if !e.store.Exists(path) {
			items = append(items, downloader.Item{RemoteName: post.RemoteName(), Path: path})
			continue
		}

		res := collision.Resolve(path, e.store.Exists, e.policy)
		switch res.Action {
		case collision.ActionAccept:
			items = append(items, downloader.Item{RemoteName: post.RemoteName(), Path: res.Path})
		case collision.ActionSkip:
			continue
		case collision.ActionStop:
			e.logger.DebugWithFields("existing file halted extraction", map[string]interface{}{
				"thread": ref.Key(),
				"path":   path,
			})
			return items
		}
	}

	return items
}

// Process runs the full pipeline for one thread: sync, extract,
// download, and archival cleanup when configured.
func (e *Engine) Process(ctx context.Context, ref fourchan.ThreadRef) error {
	result, err := e.Sync(ref)
	if err != nil {
		logger.LogThreadSync(ref.Board, ref.ID, result.State.String())
		if errors.IsStaleCache(err) {
			e.logger.WithField("thread", ref.Key()).Info("thread unchanged, nothing to do")
		}
		return err
	}
	logger.LogThreadSync(ref.Board, ref.ID, result.State.String())

	items := e.ExtractFiles(ref, result.Thread)
	if len(items) == 0 {
		e.logger.WithField("thread", ref.Key()).Info("Nothing to download")
	} else {
		report, err := e.downloader.Run(ctx, ref.Board, items)
		e.logger.InfoWithFields("download run finished", map[string]interface{}{
			"thread":    ref.Key(),
			"succeeded": report.Succeeded,
			"failed":    report.Failed,
		})
		if err != nil {
			return err
		}
	}

	if e.cfg.Scrape.Clean && result.Thread.IsArchived() {
		if err := e.cache.Remove(ref); err != nil {
			e.logger.WithError(err).WithField("thread", ref.Key()).Warn("failed to remove archived thread from cache")
		} else {
			e.logger.WithField("thread", ref.Key()).Info("archived thread removed from cache")
		}
	}

	return nil
}

// ProcessAll processes a batch of threads, isolating per-thread
// failures: one thread's abort never stops the others. File write
// failures and context cancellation remain fatal to the whole run.
func (e *Engine) ProcessAll(ctx context.Context, refs []fourchan.ThreadRef) error {
	var failed int
	for _, ref := range refs {
		if err := e.Process(ctx, ref); err != nil {
			if errors.IsFileWrite(err) || ctx.Err() != nil {
				return err
			}
			// A stale-cache abort means "nothing changed"; it is already
			// reported and must not fail the batch.
			if errors.IsStaleCache(err) {
				continue
			}
			e.logger.WithError(err).WithField("thread", ref.Key()).Error("thread sync aborted")
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d threads aborted", failed, len(refs))
	}
	return nil
}

// CachedRefs lists the cached threads to refresh, optionally filtered
// by board.
func (e *Engine) CachedRefs(board string) ([]fourchan.ThreadRef, error) {
	refs, err := e.cache.ListAll()
	if err != nil {
		return nil, err
	}
	if board == "" {
		return refs, nil
	}
	var filtered []fourchan.ThreadRef
	for _, ref := range refs {
		if ref.Board == board {
			filtered = append(filtered, ref)
		}
	}
	return filtered, nil
}
