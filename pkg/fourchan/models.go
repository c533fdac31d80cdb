package fourchan

import (
	"fmt"
	"regexp"
	"strings"
)

// ThreadRef identifies a unique thread by board code and OP post number.
// Immutable once constructed.
type ThreadRef struct {
	Board string
	ID    string
}

// Key returns the cache key for the thread, in board:id form.
func (r ThreadRef) Key() string {
	return fmt.Sprintf("%s:%s", r.Board, r.ID)
}

func (r ThreadRef) String() string {
	return r.Key()
}

// ParseKey parses a board:id cache key back into a ThreadRef.
// The id may itself contain colons; only the first one splits.
func ParseKey(key string) (ThreadRef, error) {
	board, id, ok := strings.Cut(key, ":")
	if !ok || board == "" || id == "" {
		return ThreadRef{}, fmt.Errorf("malformed thread key %q", key)
	}
	return ThreadRef{Board: board, ID: id}, nil
}

var threadURLPattern = regexp.MustCompile(`boards\.4chan(?:nel)?\.org/(.+)/thread/(\d+)`)

// ParseThreadURL extracts a ThreadRef from a thread URL.
// Returns false if the URL does not point at a thread.
func ParseThreadURL(url string) (ThreadRef, bool) {
	m := threadURLPattern.FindStringSubmatch(url)
	if m == nil {
		return ThreadRef{}, false
	}
	return ThreadRef{Board: m[1], ID: m[2]}, true
}

// Post represents a single post in a thread, as returned by the JSON API.
// Attachment fields (Tim, Ext, Filename) are only set on posts carrying a file.
type Post struct {
	No       int64  `json:"no"`
	Sub      string `json:"sub,omitempty"`
	Com      string `json:"com,omitempty"`
	Tim      int64  `json:"tim,omitempty"`
	Ext      string `json:"ext,omitempty"`
	Filename string `json:"filename,omitempty"`
	Closed   int    `json:"closed,omitempty"`
}

// HasFile reports whether the post carries an attachment
func (p *Post) HasFile() bool {
	return p.Tim != 0
}

// RemoteName returns the server-side filename of the post's attachment,
// derived from the upload timestamp and extension.
func (p *Post) RemoteName() string {
	return fmt.Sprintf("%d%s", p.Tim, p.Ext)
}

// Thread represents a thread's post list. Posts keep the API's
// chronological order; the sequence is never reordered after fetch.
type Thread struct {
	Posts []Post `json:"posts"`
}

// OP returns the thread's opening post, or nil for an empty thread.
func (t *Thread) OP() *Post {
	if len(t.Posts) == 0 {
		return nil
	}
	return &t.Posts[0]
}

// IsArchived reports whether the OP marks the thread closed.
func (t *Thread) IsArchived() bool {
	op := t.OP()
	return op != nil && op.Closed == 1
}

// Title derives a display title for the thread: the OP subject if set,
// else the first maxLen runes of the OP comment, else fallback.
func (t *Thread) Title(fallback string, maxLen int) string {
	op := t.OP()
	if op == nil {
		return fallback
	}
	if op.Sub != "" {
		return op.Sub
	}
	if op.Com != "" {
		runes := []rune(op.Com)
		if len(runes) > maxLen {
			runes = runes[:maxLen]
		}
		return string(runes)
	}
	return fallback
}
