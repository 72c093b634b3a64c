package testserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rpggio/storytree/internal/clubhouse"
	"github.com/rpggio/storytree/internal/domain/issue"
)

// Clubhouse is an in-process fake of the Clubhouse REST API.
type Clubhouse struct {
	Server *httptest.Server
	Token  string

	mu             sync.Mutex
	projects       []issue.Project
	epics          []issue.Epic
	stories        []issue.Story
	rejectUnscoped bool
	requests       map[string]int
}

// NewClubhouse starts a fake API accepting token.
func NewClubhouse(t *testing.T, token string) *Clubhouse {
	t.Helper()

	c := &Clubhouse{Token: token, requests: make(map[string]int)}

	r := chi.NewRouter()
	r.Use(c.authorize)
	r.Get("/projects", func(w http.ResponseWriter, _ *http.Request) {
		c.mu.Lock()
		defer c.mu.Unlock()
		writeJSON(w, c.projects)
	})
	r.Get("/epics", func(w http.ResponseWriter, _ *http.Request) {
		c.mu.Lock()
		defer c.mu.Unlock()
		writeJSON(w, c.epics)
	})
	r.Get("/projects/{id}/stories", func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			http.Error(w, "bad project id", http.StatusBadRequest)
			return
		}
		c.mu.Lock()
		defer c.mu.Unlock()
		out := []issue.Story{}
		for _, s := range c.stories {
			if s.ProjectID == id {
				out = append(out, s)
			}
		}
		writeJSON(w, out)
	})
	r.Post("/stories/search", func(w http.ResponseWriter, _ *http.Request) {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.rejectUnscoped {
			http.Error(w, `{"message":"project_id is required"}`, http.StatusBadRequest)
			return
		}
		writeJSON(w, c.stories)
	})

	c.Server = httptest.NewServer(r)
	t.Cleanup(c.Server.Close)
	return c
}

// URL returns the API base URL.
func (c *Clubhouse) URL() string {
	return c.Server.URL
}

// SetData replaces the served projects, epics and stories.
func (c *Clubhouse) SetData(projects []issue.Project, epics []issue.Epic, stories []issue.Story) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.projects, c.epics, c.stories = projects, epics, stories
}

// RejectUnscoped makes unscoped story searches fail with 400.
func (c *Clubhouse) RejectUnscoped(reject bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rejectUnscoped = reject
}

// Requests returns how many requests reached path.
func (c *Clubhouse) Requests(path string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.requests[path]
}

func (c *Clubhouse) authorize(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c.mu.Lock()
		c.requests[r.URL.Path]++
		c.mu.Unlock()

		if r.Header.Get(clubhouse.TokenHeader) != c.Token {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
