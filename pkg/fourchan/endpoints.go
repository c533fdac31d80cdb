package fourchan

import "fmt"

const (
	// DefaultMetadataHost serves thread JSON
	DefaultMetadataHost = "https://a.4cdn.org"

	// DefaultFileHost serves media attachments
	DefaultFileHost = "https://i.4cdn.org"
)

// ThreadURL constructs the metadata URL for a thread
func ThreadURL(host string, ref ThreadRef) string {
	return fmt.Sprintf("%s/%s/thread/%s.json", host, ref.Board, ref.ID)
}

// FileURL constructs the download URL for an attachment on a board
func FileURL(host, board, remoteName string) string {
	return fmt.Sprintf("%s/%s/%s", host, board, remoteName)
}
