// Package fourchan provides a client for the 4chan-style read-only JSON API.
//
// This package includes:
//   - A configurable HTTP client for conditional thread fetches and
//     streamed file downloads
//   - Wire models for threads and posts
//   - Helper functions for constructing API endpoints and parsing
//     thread URLs
//
// Example usage:
//
//	client := fourchan.NewClient("", "", "sukureipu/1.0", 30*time.Second, nil)
//
//	ref, ok := fourchan.ParseThreadURL("https://boards.4chan.org/g/thread/12345")
//	if !ok {
//	    // not a thread URL
//	}
//
//	page, err := client.FetchThread(ref, "")
//	if err != nil {
//	    // typed error, see pkg/errors
//	}
//	for _, post := range page.Thread.Posts {
//	    if post.HasFile() {
//	        body, err := client.DownloadFile(ref.Board, post.RemoteName())
//	        // stream body to disk
//	    }
//	}
package fourchan
