package scraper

import (
	"io"

	"sukureipu/pkg/fourchan"
)

// Client defines the remote API operations the engine needs
type Client interface {
	FetchThread(ref fourchan.ThreadRef, ifModifiedSince string) (*fourchan.ThreadPage, error)
	DownloadFile(board, remoteName string) (io.ReadCloser, error)
}
