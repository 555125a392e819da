package sheets

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"moviestream/internal/catalog"
	"moviestream/internal/services"
)

const (
	maxBodyBytes     = 8 << 20
	defaultUserAgent = "MovieStream-Go/0.1.0"

	// FormatJSON posts the write body as application/json.
	FormatJSON = "json"
	// FormatForm posts the write body as application/x-www-form-urlencoded.
	FormatForm = "form"
)

// Write actions understood by the remote write endpoint.
const (
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

// HTTPStatusError reports a non-2xx response from the catalog source.
type HTTPStatusError struct {
	URL        string
	StatusCode int
	Location   string
}

func (e *HTTPStatusError) Error() string {
	if e == nil {
		return "HTTP status error"
	}
	loc := strings.TrimSpace(e.Location)
	if loc == "" {
		return fmt.Sprintf("HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("HTTP %d location=%s", e.StatusCode, loc)
}

// WriteOutcome classifies the result of a remote write.
type WriteOutcome string

const (
	OutcomeConfirmed WriteOutcome = "confirmed"
	OutcomeUnknown   WriteOutcome = "unknown"
	OutcomeFailed    WriteOutcome = "failed"
)

// WriteResult is the decoded reply of the write endpoint.
type WriteResult struct {
	Outcome WriteOutcome
	Message string
}

type writeReply struct {
	Success *bool  `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

// Client talks to the published spreadsheet and its companion write script.
type Client struct {
	writeURL   string
	format     string
	opaque     bool
	userAgent  string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithWriteFormat selects the write body encoding (json or form).
func WithWriteFormat(format string) Option {
	return func(c *Client) {
		if format = strings.ToLower(strings.TrimSpace(format)); format != "" {
			c.format = format
		}
	}
}

// WithOpaqueWrites treats every completed write as having an unknown outcome.
// Use it for endpoints whose replies cannot be read, such as script
// deployments that redirect cross-origin.
func WithOpaqueWrites(opaque bool) Option {
	return func(c *Client) {
		c.opaque = opaque
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua = strings.TrimSpace(ua); ua != "" {
			c.userAgent = ua
		}
	}
}

// New creates a client. writeURL may be empty when the deployment is read-only.
func New(writeURL string, opts ...Option) *Client {
	client := &Client{
		writeURL:   strings.TrimSpace(writeURL),
		format:     FormatJSON,
		userAgent:  defaultUserAgent,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// CanWrite reports whether a write endpoint is configured.
func (c *Client) CanWrite() bool {
	return c != nil && c.writeURL != ""
}

// Fetch retrieves the raw body published at sourceURL. A 2xx body is returned
// as-is, even when it is not a valid envelope. It does not retry.
func (c *Client) Fetch(ctx context.Context, sourceURL string) (string, error) {
	sourceURL = strings.TrimSpace(sourceURL)
	if sourceURL == "" {
		return "", services.Wrap(services.ErrConfiguration, "sheets", "fetch", "catalog source not configured", nil)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return "", services.Wrap(services.ErrConfiguration, "sheets", "fetch", "build request", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json, text/plain, */*")

	requestStart := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		return "", services.Wrap(services.ErrTransport, "sheets", "fetch", fmt.Sprintf("execute request (latency=%v)", latency), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		statusErr := &HTTPStatusError{URL: sourceURL, StatusCode: resp.StatusCode, Location: resp.Header.Get("Location")}
		return "", services.Wrap(services.ErrTransport, "sheets", "fetch", "unexpected status", statusErr)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", services.Wrap(services.ErrTransport, "sheets", "fetch", "read body", err)
	}
	return string(body), nil
}

// Write sends one mutation to the write endpoint. On create the id is omitted.
//
// A returned error always carries services.ErrWriteFailed. An opaque client
// reports OutcomeUnknown once the request completes, whatever the status.
func (c *Client) Write(ctx context.Context, action string, movie catalog.Movie) (WriteResult, error) {
	if !c.CanWrite() {
		return WriteResult{Outcome: OutcomeFailed}, services.Wrap(services.ErrConfiguration, "sheets", "write", "write endpoint not configured", nil)
	}
	req, err := c.buildWriteRequest(ctx, action, movie)
	if err != nil {
		return WriteResult{Outcome: OutcomeFailed}, services.Wrap(services.ErrWriteFailed, "sheets", "write", "build request", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return WriteResult{Outcome: OutcomeFailed}, services.Wrap(services.ErrWriteFailed, "sheets", "write", "execute request", err)
	}
	defer resp.Body.Close()
	body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))

	if c.opaque {
		return WriteResult{Outcome: OutcomeUnknown, Message: "sent, outcome unknown"}, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		statusErr := &HTTPStatusError{URL: c.writeURL, StatusCode: resp.StatusCode, Location: resp.Header.Get("Location")}
		return WriteResult{Outcome: OutcomeFailed, Message: statusErr.Error()}, services.Wrap(services.ErrWriteFailed, "sheets", "write", "unexpected status", statusErr)
	}
	if readErr != nil {
		return WriteResult{Outcome: OutcomeFailed}, services.Wrap(services.ErrWriteFailed, "sheets", "write", "read body", readErr)
	}

	var reply writeReply
	if err := json.Unmarshal(bytes.TrimSpace(body), &reply); err != nil || reply.Success == nil {
		if err == nil {
			err = errors.New("missing success field")
		}
		return WriteResult{Outcome: OutcomeFailed, Message: "unreadable write response"}, services.Wrap(services.ErrWriteFailed, "sheets", "write", "decode response", err)
	}
	message := strings.TrimSpace(reply.Message)
	if message == "" {
		message = strings.TrimSpace(reply.Error)
	}
	if !*reply.Success {
		if message == "" {
			message = "remote rejected the change"
		}
		return WriteResult{Outcome: OutcomeFailed, Message: message}, services.Wrap(services.ErrWriteFailed, "sheets", "write", message, nil)
	}
	return WriteResult{Outcome: OutcomeConfirmed, Message: message}, nil
}

func (c *Client) buildWriteRequest(ctx context.Context, action string, movie catalog.Movie) (*http.Request, error) {
	fields := writeFields(action, movie)
	var (
		body        io.Reader
		contentType string
	)
	switch c.format {
	case FormatForm:
		values := url.Values{}
		for key, value := range fields {
			values.Set(key, fmt.Sprint(value))
		}
		body = strings.NewReader(values.Encode())
		contentType = "application/x-www-form-urlencoded"
	case FormatJSON:
		payload, err := json.Marshal(fields)
		if err != nil {
			return nil, fmt.Errorf("encode body: %w", err)
		}
		body = bytes.NewReader(payload)
		contentType = "application/json"
	default:
		return nil, fmt.Errorf("unsupported write format %q", c.format)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.writeURL, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("User-Agent", c.userAgent)
	return req, nil
}

func writeFields(action string, movie catalog.Movie) map[string]any {
	fields := map[string]any{"action": action}
	if action != ActionCreate {
		fields["id"] = strconv.Itoa(movie.ID)
	}
	if action == ActionDelete {
		fields["title"] = movie.Title
		return fields
	}
	fields["title"] = movie.Title
	fields["year"] = movie.Year
	fields["rating"] = movie.Rating
	fields["genre"] = movie.Genre
	fields["description"] = movie.Description
	fields["posterUrl"] = movie.PosterURL
	fields["streamUrl"] = movie.StreamURL
	fields["downloadUrl"] = movie.DownloadURL
	return fields
}
