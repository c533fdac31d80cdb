package fourchan

import (
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"time"

	"sukureipu/pkg/errors"
	"sukureipu/pkg/logger"
)

// ThreadPage is the result of a conditional thread metadata fetch.
// Thread and Raw are only set on a 200 response; a 304 carries neither.
type ThreadPage struct {
	StatusCode   int
	LastModified string
	Thread       *Thread
	Raw          json.RawMessage
}

// NotModified reports whether the server answered 304 to the
// conditional request.
func (p *ThreadPage) NotModified() bool {
	return p.StatusCode == http.StatusNotModified
}

// Client talks to the imageboard's read-only JSON and file hosts
type Client struct {
	httpClient   *http.Client
	headers      map[string]string
	metadataHost string
	fileHost     string
	logger       logger.Logger
}

// NewClient creates a new API client. Empty hosts fall back to the
// public 4chan endpoints.
func NewClient(metadataHost, fileHost, userAgent string, timeout time.Duration, log logger.Logger) *Client {
	if log == nil {
		log = logger.GetLogger()
	}
	if metadataHost == "" {
		metadataHost = DefaultMetadataHost
	}
	if fileHost == "" {
		fileHost = DefaultFileHost
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		headers: map[string]string{
			"User-Agent": userAgent,
			"Accept":     "application/json, */*;q=0.5",
		},
		metadataHost: metadataHost,
		fileHost:     fileHost,
		logger:       log,
	}
}

// SetHeader sets a custom header for the client
func (c *Client) SetHeader(key, value string) {
	c.headers[key] = value
}

// doRequest performs an HTTP request with the configured headers
func (c *Client) doRequest(req *http.Request) (*http.Response, error) {
	for key, value := range c.headers {
		if value != "" {
			req.Header.Set(key, value)
		}
	}

	start := time.Now()
	c.logger.DebugWithFields("sending HTTP request", map[string]interface{}{
		"method": req.Method,
		"url":    req.URL.String(),
	})

	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)

	if err != nil {
		c.logger.ErrorWithFields("HTTP request failed", map[string]interface{}{
			"method":   req.Method,
			"url":      req.URL.String(),
			"error":    err.Error(),
			"duration": duration,
		})
		return nil, errors.New(errors.ErrorTypeTransport, fmt.Sprintf("network error: %v", err))
	}

	logger.LogRequest(req.Method, req.URL.String(), resp.StatusCode, float64(duration.Milliseconds()))

	return resp, nil
}

// FetchThread fetches a thread's metadata. A non-empty ifModifiedSince
// validator is attached as an If-Modified-Since header; a 304 answer is
// returned as a ThreadPage, not an error. Anything other than a 200 with
// a JSON body or a 304 is a typed error.
func (c *Client) FetchThread(ref ThreadRef, ifModifiedSince string) (*ThreadPage, error) {
	url := ThreadURL(c.metadataHost, ref)

	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.New(errors.ErrorTypeUnknown, fmt.Sprintf("failed to create request: %v", err))
	}
	if ifModifiedSince != "" {
		req.Header.Set("If-Modified-Since", ifModifiedSince)
	}

	resp, err := c.doRequest(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		// handled below
	case http.StatusNotModified:
		return &ThreadPage{StatusCode: resp.StatusCode}, nil
	default:
		return nil, errors.NewWithCode(errors.ErrorTypeTransport,
			fmt.Sprintf("thread fetch returned status %d", resp.StatusCode), resp.StatusCode)
	}

	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if mediaType != "application/json" {
		return nil, errors.NewWithCode(errors.ErrorTypeContentType,
			fmt.Sprintf("expected application/json, got %q", resp.Header.Get("Content-Type")), resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.NewWithCode(errors.ErrorTypeTransport,
			fmt.Sprintf("failed to read response body: %v", err), resp.StatusCode)
	}

	var thread Thread
	if err := json.Unmarshal(body, &thread); err != nil {
		c.logger.ErrorWithFields("failed to parse thread JSON", map[string]interface{}{
			"url":    url,
			"status": resp.StatusCode,
			"error":  err.Error(),
		})
		return nil, errors.NewWithCode(errors.ErrorTypeParsing,
			fmt.Sprintf("failed to parse thread JSON: %v", err), resp.StatusCode)
	}

	return &ThreadPage{
		StatusCode:   resp.StatusCode,
		LastModified: resp.Header.Get("Last-Modified"),
		Thread:       &thread,
		Raw:          body,
	}, nil
}

// DownloadFile issues a streamed GET for an attachment. The caller owns
// the returned body and must close it. Non-200 statuses are returned as
// typed errors with the body already closed.
func (c *Client) DownloadFile(board, remoteName string) (io.ReadCloser, error) {
	url := FileURL(c.fileHost, board, remoteName)

	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.New(errors.ErrorTypeUnknown, fmt.Sprintf("failed to create request: %v", err))
	}

	resp, err := c.doRequest(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, errors.NewWithCode(errors.ErrorTypeTransport,
			fmt.Sprintf("file fetch returned status %d", resp.StatusCode), resp.StatusCode)
	}

	return resp.Body, nil
}
