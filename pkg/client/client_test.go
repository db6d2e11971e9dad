package client

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/Sternrassler/course-catalog/internal/testutil"
	"github.com/Sternrassler/course-catalog/pkg/content"
)

// newTestClient creates a client against the mock with fast retries.
func newTestClient(t *testing.T, mock *testutil.MockService, attempts int) *Client {
	t.Helper()

	cfg := DefaultConfig("CourseCatalog/test")
	cfg.BaseURL = mock.URL()
	cfg.Retry = RetryConfig{
		MaxAttempts:       attempts,
		InitialBackoff:    time.Millisecond,
		MaxBackoff:        5 * time.Millisecond,
		BackoffMultiplier: 2.0,
	}

	c, err := New(cfg)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	return c
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name        string
		config      Config
		expectError bool
		errorMsg    string
	}{
		{
			name:   "valid config",
			config: DefaultConfig("TestApp/1.0.0"),
		},
		{
			name: "empty user agent",
			config: Config{
				BaseURL: DefaultBaseURL,
			},
			expectError: true,
			errorMsg:    "user-agent is required",
		},
		{
			name: "unsupported scheme",
			config: Config{
				BaseURL:   "ftp://example.com",
				UserAgent: "TestApp/1.0.0",
			},
			expectError: true,
			errorMsg:    `base url must be http or https (got "ftp://example.com")`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := New(tt.config)

			if tt.expectError {
				if err == nil {
					t.Errorf("Expected error but got nil")
					return
				}
				if tt.errorMsg != "" && err.Error() != tt.errorMsg {
					t.Errorf("Error message = %q, want %q", err.Error(), tt.errorMsg)
				}
				return
			}
			if err != nil {
				t.Errorf("Unexpected error: %v", err)
				return
			}
			if client == nil {
				t.Error("Client is nil")
			}
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig("TestApp/1.0.0")

	if cfg.BaseURL != DefaultBaseURL {
		t.Errorf("BaseURL = %q, want %q", cfg.BaseURL, DefaultBaseURL)
	}
	if cfg.UserAgent != "TestApp/1.0.0" {
		t.Errorf("UserAgent = %q", cfg.UserAgent)
	}
	if cfg.Retry.MaxAttempts != 3 {
		t.Errorf("Retry.MaxAttempts = %d, want 3", cfg.Retry.MaxAttempts)
	}
}

func TestSuggestChapters(t *testing.T) {
	mock := testutil.NewMockService()
	defer mock.Close()
	mock.SetResponse(EndpointSuggest, testutil.NewJSONResponse(testutil.SampleChapters()))

	c := newTestClient(t, mock, 1)

	chapters, err := c.SuggestChapters(context.Background(), "python3")
	if err != nil {
		t.Fatalf("SuggestChapters() failed: %v", err)
	}
	if len(chapters) != 3 {
		t.Fatalf("len(chapters) = %d, want 3", len(chapters))
	}
	if chapters[1] != (content.ChapterSummary{Chapter: 2, ChapterTitle: "Variables", ChapterDescription: "Naming values"}) {
		t.Errorf("chapters[1] = %+v", chapters[1])
	}

	if got := mock.LastQuery(EndpointSuggest).Get("language"); got != "python3" {
		t.Errorf("language param = %q, want python3", got)
	}
	header := mock.LastHeader()
	if got := header.Get("User-Agent"); got != "CourseCatalog/test" {
		t.Errorf("User-Agent = %q", got)
	}
	if got := header.Get("Accept"); got != "application/json" {
		t.Errorf("Accept = %q", got)
	}
}

func TestChapterDetails_Params(t *testing.T) {
	mock := testutil.NewMockService()
	defer mock.Close()
	mock.SetResponse(EndpointDetails, testutil.NewJSONResponse(testutil.SampleDetail("Control Flow")))

	c := newTestClient(t, mock, 1)

	detail, err := c.ChapterDetails(context.Background(), DetailsRequest{
		Language:     "go",
		ChapterTitle: "Control Flow",
		Meta:         content.ChapterMeta{ChapterNumber: 3, ChapterDescription: "Branches & loops"},
	})
	if err != nil {
		t.Fatalf("ChapterDetails() failed: %v", err)
	}
	if detail.ChapterTitle != "Control Flow" {
		t.Errorf("ChapterTitle = %q", detail.ChapterTitle)
	}

	q := mock.LastQuery(EndpointDetails)
	want := map[string]string{
		"language":            "go",
		"chapter_title":       "Control Flow",
		"chapter_number":      "3",
		"chapter_description": "Branches & loops",
	}
	for key, value := range want {
		if got := q.Get(key); got != value {
			t.Errorf("param %s = %q, want %q", key, got, value)
		}
	}
}

func TestChapterDetails_EmptyMeta(t *testing.T) {
	mock := testutil.NewMockService()
	defer mock.Close()
	mock.SetResponse(EndpointDetails, testutil.NewJSONResponse(testutil.SampleDetail("Intro")))

	c := newTestClient(t, mock, 1)
	if _, err := c.ChapterDetails(context.Background(), DetailsRequest{Language: "go", ChapterTitle: "Intro"}); err != nil {
		t.Fatalf("ChapterDetails() failed: %v", err)
	}

	q := mock.LastQuery(EndpointDetails)
	if _, ok := q["chapter_number"]; !ok || q.Get("chapter_number") != "" {
		t.Errorf("chapter_number should be sent empty, got %v", q["chapter_number"])
	}
}

func TestGet_HTTPError(t *testing.T) {
	tests := []struct {
		name         string
		status       int
		attempts     int
		wantClass    ErrorClass
		wantRequests int
	}{
		{
			name:         "404 is not retried",
			status:       http.StatusNotFound,
			attempts:     3,
			wantClass:    ErrorClassClient,
			wantRequests: 1,
		},
		{
			name:         "500 is retried until exhausted",
			status:       http.StatusInternalServerError,
			attempts:     3,
			wantClass:    ErrorClassServer,
			wantRequests: 3,
		},
		{
			name:         "429 is retried",
			status:       http.StatusTooManyRequests,
			attempts:     2,
			wantClass:    ErrorClassRateLimit,
			wantRequests: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := testutil.NewMockService()
			defer mock.Close()
			mock.SetResponse(EndpointSuggest, testutil.NewErrorResponse(tt.status))

			c := newTestClient(t, mock, tt.attempts)
			_, err := c.SuggestChapters(context.Background(), "go")

			var httpErr *HTTPError
			if !errors.As(err, &httpErr) {
				t.Fatalf("expected *HTTPError, got %v", err)
			}
			if httpErr.StatusCode != tt.status {
				t.Errorf("StatusCode = %d, want %d", httpErr.StatusCode, tt.status)
			}
			if httpErr.ErrorClass != tt.wantClass {
				t.Errorf("ErrorClass = %q, want %q", httpErr.ErrorClass, tt.wantClass)
			}
			if got := mock.RequestCount(EndpointSuggest); got != tt.wantRequests {
				t.Errorf("requests = %d, want %d", got, tt.wantRequests)
			}
		})
	}
}

func TestGet_RetryThenSuccess(t *testing.T) {
	mock := testutil.NewMockService()
	defer mock.Close()

	calls := 0
	mock.SetHandler(EndpointSuggest, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`[{"chapter":1,"chapter_title":"Intro"}]`))
	})

	c := newTestClient(t, mock, 3)
	chapters, err := c.SuggestChapters(context.Background(), "go")
	if err != nil {
		t.Fatalf("SuggestChapters() failed: %v", err)
	}
	if len(chapters) != 1 {
		t.Errorf("len(chapters) = %d, want 1", len(chapters))
	}
	if got := mock.RequestCount(EndpointSuggest); got != 2 {
		t.Errorf("requests = %d, want 2", got)
	}
}

func TestGet_TransportError(t *testing.T) {
	mock := testutil.NewMockService()
	url := mock.URL()
	mock.Close() // nothing listens any more

	cfg := DefaultConfig("CourseCatalog/test")
	cfg.BaseURL = url
	cfg.Retry.MaxAttempts = 1
	c, err := New(cfg)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	_, err = c.SuggestChapters(context.Background(), "go")
	var transportErr *TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("expected *TransportError, got %v", err)
	}
	if transportErr.Endpoint != EndpointSuggest {
		t.Errorf("Endpoint = %q, want %q", transportErr.Endpoint, EndpointSuggest)
	}
}

func TestGet_InvalidPayload(t *testing.T) {
	mock := testutil.NewMockService()
	defer mock.Close()
	mock.SetResponse(EndpointSuggest, testutil.MockResponse{StatusCode: http.StatusOK, Body: `{"oops": true}`})

	c := newTestClient(t, mock, 1)
	_, err := c.SuggestChapters(context.Background(), "go")

	var verr *content.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *content.ValidationError, got %v", err)
	}
}

func TestGet_ContextCancelled(t *testing.T) {
	mock := testutil.NewMockService()
	defer mock.Close()
	release := make(chan struct{})
	defer close(release)
	mock.SetGatedResponse(EndpointSuggest, release, testutil.NewJSONResponse(testutil.SampleChapters()))

	c := newTestClient(t, mock, 3)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := c.SuggestChapters(ctx, "go")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		t.Error("cancellation must not be reported as a transport error")
	}
}

func TestGet_HonoursRetryAfter(t *testing.T) {
	mock := testutil.NewMockService()
	defer mock.Close()

	calls := 0
	mock.SetHandler(EndpointSuggest, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`[{"chapter":1,"chapter_title":"Intro"}]`))
	})

	c := newTestClient(t, mock, 2)
	start := time.Now()
	if _, err := c.SuggestChapters(context.Background(), "go"); err != nil {
		t.Fatalf("SuggestChapters() failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 900*time.Millisecond {
		t.Errorf("retry sent after %v, want at least the 1s Retry-After", elapsed)
	}
	if c.gate.State().LastUpdate.IsZero() {
		t.Error("gate did not record the hint")
	}
}

// countingTransport counts round trips before delegating.
type countingTransport struct {
	calls int
}

func (rt *countingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	rt.calls++
	return http.DefaultTransport.RoundTrip(req)
}

func TestNew_CustomHTTPClient(t *testing.T) {
	mock := testutil.NewMockService()
	defer mock.Close()
	mock.SetResponse(EndpointSuggest, testutil.NewJSONResponse(testutil.SampleChapters()))

	rt := &countingTransport{}
	cfg := DefaultConfig("CourseCatalog/test")
	cfg.BaseURL = mock.URL()
	cfg.HTTPClient = &http.Client{Transport: rt}

	c, err := New(cfg)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	if _, err := c.SuggestChapters(context.Background(), "go"); err != nil {
		t.Fatalf("SuggestChapters() failed: %v", err)
	}
	if rt.calls != 1 {
		t.Errorf("round trips through custom client = %d, want 1", rt.calls)
	}
}
