package cache

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"sukureipu/pkg/errors"
	"sukureipu/pkg/fourchan"
)

func TestStoreRoundTrip(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	ref := fourchan.ThreadRef{Board: "g", ID: "12345"}

	// Absent entry reads back as nil without error
	entry, err := store.Get(ref)
	if err != nil {
		t.Fatalf("unexpected error for absent entry: %v", err)
	}
	if entry != nil {
		t.Fatal("expected nil for absent entry")
	}

	raw := []byte(`{"posts":[{"no":12345,"sub":"test thread"}]}`)
	if err := store.Put(ref, &Entry{LastModified: "Wed, 21 Oct 2015 07:28:00 GMT", Thread: raw}); err != nil {
		t.Fatalf("failed to put entry: %v", err)
	}

	got, err := store.Get(ref)
	if err != nil {
		t.Fatalf("failed to get entry: %v", err)
	}
	if got.LastModified != "Wed, 21 Oct 2015 07:28:00 GMT" {
		t.Errorf("validator not preserved: %q", got.LastModified)
	}
	if !bytes.Equal(got.Thread, raw) {
		t.Errorf("thread JSON not byte-identical: %s", got.Thread)
	}

	thread, err := got.DecodeThread()
	if err != nil {
		t.Fatalf("failed to decode thread: %v", err)
	}
	if len(thread.Posts) != 1 || thread.Posts[0].Sub != "test thread" {
		t.Errorf("unexpected decoded thread: %+v", thread)
	}
}

func TestStorePutOverwrites(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	ref := fourchan.ThreadRef{Board: "g", ID: "1"}
	if err := store.Put(ref, &Entry{LastModified: "old", Thread: []byte(`{"posts":[]}`)}); err != nil {
		t.Fatal(err)
	}
	if err := store.Put(ref, &Entry{LastModified: "new", Thread: []byte(`{"posts":[]}`)}); err != nil {
		t.Fatal(err)
	}

	got, err := store.Get(ref)
	if err != nil {
		t.Fatal(err)
	}
	if got.LastModified != "new" {
		t.Errorf("expected overwrite, got validator %q", got.LastModified)
	}
}

func TestStoreCorruptEntry(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	ref := fourchan.ThreadRef{Board: "g", ID: "666"}
	if err := os.WriteFile(filepath.Join(dir, "g:666.json"), []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err = store.Get(ref)
	if err == nil {
		t.Fatal("expected an error for a corrupt entry")
	}
	if !errors.IsCacheCorrupt(err) {
		t.Errorf("expected a cache_corrupt error, got %v", err)
	}
}

func TestStoreRemove(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	ref := fourchan.ThreadRef{Board: "a", ID: "42"}

	// Removing an absent entry is a no-op
	if err := store.Remove(ref); err != nil {
		t.Errorf("remove of absent entry should be a no-op, got %v", err)
	}

	if err := store.Put(ref, &Entry{Thread: []byte(`{"posts":[]}`)}); err != nil {
		t.Fatal(err)
	}
	if err := store.Remove(ref); err != nil {
		t.Fatal(err)
	}

	entry, err := store.Get(ref)
	if err != nil || entry != nil {
		t.Errorf("expected entry gone, got %v, %v", entry, err)
	}
}

func TestStoreListAllAndClear(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir)
	if err != nil {
		t.Fatal(err)
	}

	refs := []fourchan.ThreadRef{
		{Board: "g", ID: "1"},
		{Board: "g", ID: "2"},
		{Board: "wsr", ID: "3"},
	}
	for _, ref := range refs {
		if err := store.Put(ref, &Entry{Thread: []byte(`{"posts":[]}`)}); err != nil {
			t.Fatal(err)
		}
	}

	// Stray non-cache files are ignored
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	listed, err := store.ListAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(listed) != 3 {
		t.Fatalf("expected 3 refs, got %d: %v", len(listed), listed)
	}

	seen := make(map[string]bool)
	for _, ref := range listed {
		seen[ref.Key()] = true
	}
	for _, ref := range refs {
		if !seen[ref.Key()] {
			t.Errorf("missing ref %s in listing", ref)
		}
	}

	if err := store.Clear(); err != nil {
		t.Fatal(err)
	}
	listed, err = store.ListAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(listed) != 0 {
		t.Errorf("expected empty cache after clear, got %v", listed)
	}
}
