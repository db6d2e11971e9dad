// Package client provides the HTTP client for the content-suggestion
// service with retry, error classification and schema validation.
package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/course-catalog/pkg/content"
	"github.com/Sternrassler/course-catalog/pkg/ratelimit"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultBaseURL is the public content-suggestion service.
	DefaultBaseURL = "https://unittest.fly.dev"

	// EndpointSuggest lists the chapters of a language.
	EndpointSuggest = "/suggest"

	// EndpointDetails returns the full content of one chapter.
	EndpointDetails = "/details"

	// maxBodyBytes bounds how much of a response body is read.
	maxBodyBytes = 8 << 20
)

// Client talks to the content-suggestion service.
type Client struct {
	httpClient *http.Client
	baseURL    *url.URL
	config     Config
	gate       *ratelimit.Gate
	logger     zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// BaseURL of the content service, without trailing path
	BaseURL string

	// User-Agent header sent with every request
	UserAgent string

	// Timeout bounds a single HTTP attempt (0 disables it)
	Timeout time.Duration

	// Retry controls retries of network and 5xx failures
	Retry RetryConfig

	// HTTPClient overrides the default HTTP client (for testing)
	HTTPClient *http.Client
}

// DetailsRequest holds the parameters of a chapter detail request.
type DetailsRequest struct {
	Language     string
	ChapterTitle string
	Meta         content.ChapterMeta
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(userAgent string) Config {
	return Config{
		BaseURL:   DefaultBaseURL,
		UserAgent: userAgent,
		Timeout:   30 * time.Second,
		Retry:     DefaultRetryConfig(),
	}
}

// New creates a new content service client.
func New(cfg Config) (*Client, error) {
	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}

	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("base url must be http or https (got %q)", cfg.BaseURL)
	}

	if cfg.Retry.MaxAttempts < 1 {
		cfg.Retry.MaxAttempts = 1
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	logger := log.With().Str("component", "catalog-client").Logger()
	return &Client{
		httpClient: httpClient,
		baseURL:    base,
		config:     cfg,
		gate:       ratelimit.NewGate(logger),
		logger:     logger,
	}, nil
}

// SuggestChapters fetches the ordered chapter listing of a language.
func (c *Client) SuggestChapters(ctx context.Context, language string) ([]content.ChapterSummary, error) {
	query := url.Values{}
	query.Set("language", language)

	body, err := c.get(ctx, EndpointSuggest, query)
	if err != nil {
		return nil, err
	}

	chapters, err := content.DecodeChapterList(body)
	if err != nil {
		c.logger.Warn().Err(err).Str("language", language).Msg("Invalid chapter listing")
		return nil, fmt.Errorf("decode %s: %w", EndpointSuggest, err)
	}
	return chapters, nil
}

// ChapterDetails fetches the full content of one chapter. Unknown metadata
// is sent as empty parameters.
func (c *Client) ChapterDetails(ctx context.Context, req DetailsRequest) (*content.ChapterDetail, error) {
	query := url.Values{}
	query.Set("language", req.Language)
	query.Set("chapter_title", req.ChapterTitle)
	query.Set("chapter_number", req.Meta.NumberParam())
	query.Set("chapter_description", req.Meta.ChapterDescription)

	body, err := c.get(ctx, EndpointDetails, query)
	if err != nil {
		return nil, err
	}

	detail, err := content.DecodeChapterDetail(body)
	if err != nil {
		c.logger.Warn().Err(err).
			Str("language", req.Language).
			Str("chapter_title", req.ChapterTitle).
			Msg("Invalid chapter detail")
		return nil, fmt.Errorf("decode %s: %w", EndpointDetails, err)
	}
	return detail, nil
}

// get performs a GET with retries and returns the body of a 2xx response.
func (c *Client) get(ctx context.Context, endpoint string, query url.Values) ([]byte, error) {
	target := c.baseURL.JoinPath(endpoint)
	target.RawQuery = query.Encode()

	startTime := time.Now()
	defer func() {
		requestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}()

	var body []byte
	err := retryWithBackoff(ctx, c.config.Retry, func() error {
		if err := c.gate.Wait(ctx); err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("User-Agent", c.config.UserAgent)
		req.Header.Set("Accept", "application/json")

		c.logger.Debug().
			Str("endpoint", endpoint).
			Str("url", target.String()).
			Msg("Executing content request")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				requestsTotal.WithLabelValues(endpoint, "cancelled").Inc()
				return ctxErr
			}
			c.logger.Error().Err(err).Str("endpoint", endpoint).Msg("HTTP request failed")
			errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
			requestsTotal.WithLabelValues(endpoint, "network_error").Inc()
			return &TransportError{Endpoint: endpoint, Err: err}
		}
		defer resp.Body.Close()

		status := strconv.Itoa(resp.StatusCode)
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			errClass := classifyStatus(resp.StatusCode)
			if errClass == "" {
				// 1xx/3xx that the transport did not resolve
				errClass = ErrorClassClient
			}
			errorsTotal.WithLabelValues(string(errClass)).Inc()
			requestsTotal.WithLabelValues(endpoint, status).Inc()
			c.gate.UpdateFromResponse(resp.StatusCode, resp.Header)
			_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

			c.logger.Warn().
				Str("endpoint", endpoint).
				Int("status", resp.StatusCode).
				Str("error_class", string(errClass)).
				Msg("Content request error")

			return &HTTPError{
				Endpoint:   endpoint,
				StatusCode: resp.StatusCode,
				Status:     resp.Status,
				ErrorClass: errClass,
			}
		}

		data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
			requestsTotal.WithLabelValues(endpoint, "network_error").Inc()
			return &TransportError{Endpoint: endpoint, Err: fmt.Errorf("read body: %w", err)}
		}

		requestsTotal.WithLabelValues(endpoint, status).Inc()
		body = data
		return nil
	})
	if err != nil {
		return nil, err
	}
	return body, nil
}
