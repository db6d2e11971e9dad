// Package testutil provides testing utilities for the course catalog.
package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"time"
)

// MockResponse defines the behavior for a mock endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockService is a configurable mock of the content-suggestion service.
type MockService struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]http.HandlerFunc

	// Tracking
	requestCount map[string]int
	lastQuery    map[string]url.Values
	lastHeader   http.Header
}

// NewMockService creates a new mock content service.
func NewMockService() *MockService {
	mock := &MockService{
		handlers:     make(map[string]http.HandlerFunc),
		requestCount: make(map[string]int),
		lastQuery:    make(map[string]url.Values),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.requestCount[r.URL.Path]++
		mock.lastQuery[r.URL.Path] = r.URL.Query()
		mock.lastHeader = r.Header.Clone()
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.Unlock()

		if exists {
			handler(w, r)
			return
		}
		http.NotFound(w, r)
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockService) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockService) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockService) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount = make(map[string]int)
	m.lastQuery = make(map[string]url.Values)
	m.lastHeader = nil
}

// SetHandler sets a custom handler for a specific path.
func (m *MockService) SetHandler(path string, handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a simple response for a path.
func (m *MockService) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			select {
			case <-time.After(resp.Delay):
			case <-r.Context().Done():
				return
			}
		}

		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}

		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// SetGatedResponse serves resp only after release is closed or the client
// goes away. Useful to keep requests in flight.
func (m *MockService) SetGatedResponse(path string, release <-chan struct{}, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
			return
		}
		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}
		w.WriteHeader(resp.StatusCode)
		w.Write([]byte(resp.Body))
	})
}

// RequestCount returns the number of requests made to path.
func (m *MockService) RequestCount(path string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.requestCount[path]
}

// LastQuery returns the query of the most recent request to path.
func (m *MockService) LastQuery(path string) url.Values {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastQuery[path]
}

// LastHeader returns the headers of the most recent request.
func (m *MockService) LastHeader() http.Header {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastHeader
}

// NewJSONResponse creates a 200 OK response with v encoded as JSON.
func NewJSONResponse(v any) MockResponse {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       string(data),
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewErrorResponse creates a JSON error response with the given status.
func NewErrorResponse(statusCode int) MockResponse {
	return MockResponse{
		StatusCode: statusCode,
		Body:       `{"error": "` + http.StatusText(statusCode) + `"}`,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// SampleChapters is a three chapter listing in /suggest wire format.
func SampleChapters() []map[string]any {
	return []map[string]any{
		{"chapter": 1, "chapter_title": "Intro", "chapter_description": "Getting started"},
		{"chapter": 2, "chapter_title": "Variables", "chapter_description": "Naming values"},
		{"chapter": 3, "chapter_title": "Control Flow", "chapter_description": "Branches and loops"},
	}
}

// SampleDetail returns a /details wire payload for title.
func SampleDetail(title string) map[string]any {
	return map[string]any{
		"chapter_title":       title,
		"chapter_description": "About " + title,
		"sections": []map[string]string{
			{"section_title": "Overview", "section_content": "What " + title + " covers"},
		},
		"exercises": []map[string]string{
			{"exercise_title": "Practice", "exercise_description": "Try it"},
		},
		"examples": []map[string]string{
			{"example_title": "Hello", "example_code": "fmt.Println(\"hello\")"},
		},
	}
}

// DetailHandler answers /details with SampleDetail for the requested
// chapter_title.
func DetailHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		title := r.URL.Query().Get("chapter_title")
		data, err := json.Marshal(SampleDetail(title))
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Write(data)
	}
}
