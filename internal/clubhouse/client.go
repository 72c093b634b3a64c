package clubhouse

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rpggio/storytree/internal/domain/issue"
)

const (
	// DefaultBaseURL is the Clubhouse REST API v3 endpoint
	DefaultBaseURL = "https://api.clubhouse.io/api/v3"

	// TokenHeader carries the API token on every request
	TokenHeader = "Clubhouse-Token"

	defaultTimeout = 30 * time.Second
	maxErrorBody   = 4 << 10
)

// StatusError is returned for non-2xx responses that map to no domain error.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("clubhouse: HTTP %d: %s", e.StatusCode, e.Body)
}

// Client is a Clubhouse REST API client. The token is supplied per call.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the client logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// NewClient creates a client for baseURL, or DefaultBaseURL when empty.
func NewClient(baseURL string, opts ...Option) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListProjects returns all projects visible to the token.
func (c *Client) ListProjects(ctx context.Context, token string) ([]issue.Project, error) {
	var out []project
	if err := c.do(ctx, http.MethodGet, "/projects", token, nil, &out); err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	projects := make([]issue.Project, 0, len(out))
	for _, p := range out {
		projects = append(projects, p.toIssue())
	}
	return projects, nil
}

// ListEpics returns all epics visible to the token.
func (c *Client) ListEpics(ctx context.Context, token string) ([]issue.Epic, error) {
	var out []epic
	if err := c.do(ctx, http.MethodGet, "/epics", token, nil, &out); err != nil {
		return nil, fmt.Errorf("list epics: %w", err)
	}
	epics := make([]issue.Epic, 0, len(out))
	for _, e := range out {
		epics = append(epics, e.toIssue())
	}
	return epics, nil
}

// ListStories returns the stories of a project. A nil projectID issues an
// unscoped search, which the server may reject with issue.ErrInvalidScope.
func (c *Client) ListStories(ctx context.Context, token string, projectID *int64, includeDescription bool) ([]issue.Story, error) {
	var out []story
	if projectID != nil {
		path := fmt.Sprintf("/projects/%d/stories?includes_description=%s", *projectID, strconv.FormatBool(includeDescription))
		if err := c.do(ctx, http.MethodGet, path, token, nil, &out); err != nil {
			return nil, fmt.Errorf("list stories for project %d: %w", *projectID, err)
		}
	} else {
		body := searchRequest{IncludesDescription: includeDescription}
		if err := c.do(ctx, http.MethodPost, "/stories/search", token, body, &out); err != nil {
			if isScopeRejection(err) {
				return nil, fmt.Errorf("list stories: %w", issue.ErrInvalidScope)
			}
			return nil, fmt.Errorf("list stories: %w", err)
		}
	}

	stories := make([]issue.Story, 0, len(out))
	for _, s := range out {
		stories = append(stories, s.toIssue())
	}
	return stories, nil
}

// isScopeRejection reports whether the server refused an unscoped story query.
func isScopeRejection(err error) bool {
	if errors.Is(err, issue.ErrNotFound) {
		return true
	}
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		return false
	}
	return statusErr.StatusCode == http.StatusBadRequest || statusErr.StatusCode == http.StatusUnprocessableEntity
}

func (c *Client) do(ctx context.Context, method, path, token string, in, out any) error {
	var reader io.Reader
	if in != nil {
		body, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(TokenHeader, token)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	c.logger.Debug("clubhouse request",
		"method", method,
		"path", req.URL.Path,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		switch resp.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return issue.ErrUnauthorized
		case http.StatusNotFound:
			return issue.ErrNotFound
		default:
			return &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
		}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
