package scraper

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sukureipu/pkg/config"
	"sukureipu/pkg/errors"
	"sukureipu/pkg/fourchan"
)

const testLastModified = "Wed, 21 Oct 2015 07:28:00 GMT"

// mockBoardServer mimics the metadata and file hosts for one thread
type mockBoardServer struct {
	server *httptest.Server

	mu            sync.Mutex
	threadJSON    string
	lastModified  string
	metadataCalls int
	sawValidator  bool
	fileCalls     int
}

func newMockBoardServer(t *testing.T, threadJSON string) *mockBoardServer {
	t.Helper()
	m := &mockBoardServer{
		threadJSON:   threadJSON,
		lastModified: testLastModified,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/g/thread/", func(w http.ResponseWriter, r *http.Request) {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.metadataCalls++

		if ims := r.Header.Get("If-Modified-Since"); ims != "" {
			m.sawValidator = true
			if ims == m.lastModified {
				w.WriteHeader(http.StatusNotModified)
				return
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Last-Modified", m.lastModified)
		fmt.Fprint(w, m.threadJSON)
	})
	mux.HandleFunc("/g/", func(w http.ResponseWriter, r *http.Request) {
		m.mu.Lock()
		m.fileCalls++
		m.mu.Unlock()
		w.Write([]byte("file body for " + r.URL.Path))
	})

	m.server = httptest.NewServer(mux)
	t.Cleanup(m.server.Close)
	return m
}

func testConfig(t *testing.T, serverURL string) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Chan.MetadataHost = serverURL
	cfg.Chan.FileHost = serverURL
	cfg.Cache.Directory = t.TempDir()
	cfg.Output.BasePath = t.TempDir()
	cfg.Scrape.PaceInterval = time.Millisecond
	require.NoError(t, cfg.Validate())
	return cfg
}

func newTestEngine(t *testing.T, cfg *config.Config) *Engine {
	t.Helper()
	engine, err := New(cfg, nil, nil)
	require.NoError(t, err)
	return engine
}

const threadWithFiles = `{"posts":[
	{"no":100,"sub":"test thread","com":"op text","tim":111,"ext":".jpg","filename":"op"},
	{"no":101,"com":"text only"},
	{"no":102,"tim":222,"ext":".png","filename":"second"},
	{"no":103,"tim":333,"ext":".gif","filename":"third"}
]}`

func ref() fourchan.ThreadRef {
	return fourchan.ThreadRef{Board: "g", ID: "100"}
}

func TestSyncUpdatedWritesCache(t *testing.T) {
	server := newMockBoardServer(t, threadWithFiles)
	cfg := testConfig(t, server.server.URL)
	engine := newTestEngine(t, cfg)

	result, err := engine.Sync(ref())
	require.NoError(t, err)
	assert.Equal(t, StateUpdated, result.State)
	require.NotNil(t, result.Thread)
	assert.Len(t, result.Thread.Posts, 4)

	entry, err := engine.Cache().Get(ref())
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, testLastModified, entry.LastModified)
}

func TestSyncReusedIsIdempotent(t *testing.T) {
	server := newMockBoardServer(t, threadWithFiles)
	cfg := testConfig(t, server.server.URL)
	engine := newTestEngine(t, cfg)

	first, err := engine.Sync(ref())
	require.NoError(t, err)
	assert.Equal(t, StateUpdated, first.State)

	// No remote change: both follow-up syncs reuse the cached snapshot
	for i := 0; i < 2; i++ {
		result, err := engine.Sync(ref())
		require.NoError(t, err)
		assert.Equal(t, StateReused, result.State)
		assert.Equal(t, first.Thread, result.Thread)
	}

	assert.True(t, server.sawValidator, "expected the conditional header to be sent")
}

func TestSyncStopModeAbortsOnNotModified(t *testing.T) {
	server := newMockBoardServer(t, threadWithFiles)
	cfg := testConfig(t, server.server.URL)
	cfg.Scrape.ModifiedSince = "stop"
	engine := newTestEngine(t, cfg)

	_, err := engine.Sync(ref())
	require.NoError(t, err)

	result, err := engine.Sync(ref())
	require.Error(t, err)
	assert.Equal(t, StateAborted, result.State)
	assert.True(t, errors.IsStaleCache(err), "expected a stale_cache signal, got %v", err)
}

func TestSyncIgnoreModeSkipsValidator(t *testing.T) {
	server := newMockBoardServer(t, threadWithFiles)
	cfg := testConfig(t, server.server.URL)
	cfg.Scrape.ModifiedSince = "ignore"
	engine := newTestEngine(t, cfg)

	for i := 0; i < 2; i++ {
		result, err := engine.Sync(ref())
		require.NoError(t, err)
		assert.Equal(t, StateUpdated, result.State)
	}

	assert.False(t, server.sawValidator, "ignore mode must omit the conditional header")
	assert.Equal(t, 2, server.metadataCalls, "every sync should hit the metadata host")
}

func TestSyncCorruptCachePropagates(t *testing.T) {
	server := newMockBoardServer(t, threadWithFiles)
	cfg := testConfig(t, server.server.URL)
	engine := newTestEngine(t, cfg)

	path := filepath.Join(cfg.Cache.Directory, "g:100.json")
	require.NoError(t, os.WriteFile(path, []byte("{broken"), 0644))

	result, err := engine.Sync(ref())
	require.Error(t, err)
	assert.Equal(t, StateAborted, result.State)
	assert.True(t, errors.IsCacheCorrupt(err))
}

func TestSyncTransportFailureAborts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	cfg := testConfig(t, server.URL)
	engine := newTestEngine(t, cfg)

	result, err := engine.Sync(ref())
	require.Error(t, err)
	assert.Equal(t, StateAborted, result.State)
	assert.Equal(t, errors.ErrorTypeTransport, errors.TypeOf(err))
}

func TestExtractFilesSkipPolicy(t *testing.T) {
	// Thread with 3 posts; only posts 2 and 3 carry files, and post 2's
	// destination already exists. Skip policy yields exactly one item.
	threadJSON := `{"posts":[
		{"no":100,"sub":"t"},
		{"no":101,"tim":222,"ext":".png","filename":"second"},
		{"no":102,"tim":333,"ext":".gif","filename":"third"}
	]}`
	server := newMockBoardServer(t, threadJSON)
	cfg := testConfig(t, server.server.URL)
	engine := newTestEngine(t, cfg)

	existing := filepath.Join(cfg.Output.BasePath, "g", "100", "222.png")
	require.NoError(t, os.MkdirAll(filepath.Dir(existing), 0755))
	require.NoError(t, os.WriteFile(existing, []byte("old"), 0644))

	result, err := engine.Sync(ref())
	require.NoError(t, err)

	items := engine.ExtractFiles(ref(), result.Thread)
	require.Len(t, items, 1)
	assert.Equal(t, "333.gif", items[0].RemoteName)
}

func TestExtractFilesStopReverse(t *testing.T) {
	// Files 111, 222 already on disk; 333 and 444 are new. Reverse order
	// plus Stop yields exactly the newest contiguous run of unseen files.
	threadJSON := `{"posts":[
		{"no":100,"sub":"t","tim":111,"ext":".jpg","filename":"a"},
		{"no":101,"tim":222,"ext":".jpg","filename":"b"},
		{"no":102,"tim":333,"ext":".jpg","filename":"c"},
		{"no":103,"tim":444,"ext":".jpg","filename":"d"}
	]}`
	server := newMockBoardServer(t, threadJSON)
	cfg := testConfig(t, server.server.URL)
	cfg.Scrape.Reverse = true
	cfg.Scrape.OnMatch = "stop"
	engine := newTestEngine(t, cfg)

	dir := filepath.Join(cfg.Output.BasePath, "g", "100")
	require.NoError(t, os.MkdirAll(dir, 0755))
	for _, name := range []string{"111.jpg", "222.jpg"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644))
	}

	result, err := engine.Sync(ref())
	require.NoError(t, err)

	items := engine.ExtractFiles(ref(), result.Thread)
	require.Len(t, items, 2)
	assert.Equal(t, "444.jpg", items[0].RemoteName)
	assert.Equal(t, "333.jpg", items[1].RemoteName)
}

func TestExtractFilesAppendPolicy(t *testing.T) {
	threadJSON := `{"posts":[
		{"no":100,"sub":"t","tim":111,"ext":".jpg","filename":"a"}
	]}`
	server := newMockBoardServer(t, threadJSON)
	cfg := testConfig(t, server.server.URL)
	cfg.Scrape.OnMatch = "append"
	engine := newTestEngine(t, cfg)

	dir := filepath.Join(cfg.Output.BasePath, "g", "100")
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "111.jpg"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "111(1).jpg"), []byte("x"), 0644))

	result, err := engine.Sync(ref())
	require.NoError(t, err)

	items := engine.ExtractFiles(ref(), result.Thread)
	require.Len(t, items, 1)
	assert.Equal(t, filepath.Join(dir, "111(2).jpg"), items[0].Path)
}

func TestExtractFilesReplacePolicy(t *testing.T) {
	threadJSON := `{"posts":[
		{"no":100,"sub":"t","tim":111,"ext":".jpg","filename":"a"}
	]}`
	server := newMockBoardServer(t, threadJSON)
	cfg := testConfig(t, server.server.URL)
	cfg.Scrape.OnMatch = "replace"
	engine := newTestEngine(t, cfg)

	dir := filepath.Join(cfg.Output.BasePath, "g", "100")
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "111.jpg"), []byte("x"), 0644))

	result, err := engine.Sync(ref())
	require.NoError(t, err)

	items := engine.ExtractFiles(ref(), result.Thread)
	require.Len(t, items, 1)
	assert.Equal(t, filepath.Join(dir, "111.jpg"), items[0].Path)
}

func TestProcessDownloadsFiles(t *testing.T) {
	server := newMockBoardServer(t, threadWithFiles)
	cfg := testConfig(t, server.server.URL)
	engine := newTestEngine(t, cfg)

	require.NoError(t, engine.Process(context.Background(), ref()))

	for _, name := range []string{"111.jpg", "222.png", "333.gif"} {
		path := filepath.Join(cfg.Output.BasePath, "g", "100", name)
		data, err := os.ReadFile(path)
		require.NoError(t, err, "expected %s to be downloaded", name)
		assert.Contains(t, string(data), "file body")
	}
	assert.Equal(t, 3, server.fileCalls)
}

func TestProcessCleanRemovesArchivedThread(t *testing.T) {
	archived := `{"posts":[
		{"no":100,"sub":"done","closed":1,"tim":111,"ext":".jpg","filename":"a"}
	]}`
	server := newMockBoardServer(t, archived)
	cfg := testConfig(t, server.server.URL)
	cfg.Scrape.Clean = true
	engine := newTestEngine(t, cfg)

	require.NoError(t, engine.Process(context.Background(), ref()))

	entry, err := engine.Cache().Get(ref())
	require.NoError(t, err)
	assert.Nil(t, entry, "archived thread's cache entry should be removed")
}

func TestProcessAllIsolatesFailures(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/g/thread/1.json", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("/g/thread/2.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Last-Modified", testLastModified)
		fmt.Fprint(w, `{"posts":[{"no":2,"sub":"ok","tim":555,"ext":".jpg","filename":"e"}]}`)
	})
	mux.HandleFunc("/g/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("body"))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	cfg := testConfig(t, server.URL)
	engine := newTestEngine(t, cfg)

	refs := []fourchan.ThreadRef{
		{Board: "g", ID: "1"},
		{Board: "g", ID: "2"},
	}

	err := engine.ProcessAll(context.Background(), refs)
	require.Error(t, err, "one aborted thread should surface in the batch result")

	// The second thread was still processed to completion
	path := filepath.Join(cfg.Output.BasePath, "g", "2", "555.jpg")
	_, statErr := os.Stat(path)
	assert.NoError(t, statErr, "second thread's file should have been downloaded")
}

func TestNewRejectsInvalidModes(t *testing.T) {
	cfg := testConfig(t, "http://localhost")
	cfg.Scrape.ModifiedSince = "sometimes"
	_, err := New(cfg, nil, nil)
	assert.Error(t, err)

	cfg = testConfig(t, "http://localhost")
	cfg.Scrape.OnMatch = "overwrite"
	_, err = New(cfg, nil, nil)
	assert.Error(t, err)
}
