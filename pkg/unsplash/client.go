package unsplash

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"imgfetch/pkg/config"
	"imgfetch/pkg/errors"
	"imgfetch/pkg/logger"
)

// Client talks to the search API and the image CDN
type Client struct {
	httpClient *http.Client
	headers    map[string]string
	baseURL    string
	logger     logger.Logger
}

// NewClient creates a client for cfg. A timeout of 0 means requests never time out.
func NewClient(cfg *config.UnsplashConfig, timeout time.Duration, log logger.Logger) *Client {
	if log == nil {
		log = logger.GetLogger()
	}

	baseURL := cfg.APIURL
	if baseURL == "" {
		baseURL = BaseURL
	}
	version := cfg.AcceptVersion
	if version == "" {
		version = "v1"
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		headers: map[string]string{
			"Accept-Version": version,
			"Authorization":  AuthorizationHeader(cfg.AccessKey),
		},
		baseURL: baseURL,
		logger:  log,
	}
}

// do sends req and classifies transport failures and non-2xx statuses
func (c *Client) do(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)

	if err != nil {
		c.logger.DebugWithFields("HTTP request failed", map[string]interface{}{
			"method":   req.Method,
			"url":      req.URL.String(),
			"error":    err.Error(),
			"duration": duration,
		})
		return nil, errors.Wrap(errors.KindNetwork, err, "request failed")
	}

	logger.LogRequest(c.logger, req.Method, req.URL.String(), resp.StatusCode, duration.Milliseconds())

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		apiErr := errors.FromStatus(resp.StatusCode)
		apiErr.RetryAfter = parseRetryAfter(resp.Header.Get("Retry-After"), time.Now())
		return nil, apiErr
	}
	return resp, nil
}

// parseRetryAfter reads a Retry-After value given either as seconds or as an HTTP date
func parseRetryAfter(value string, now time.Time) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if secs, err := strconv.Atoi(value); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil && at.After(now) {
		return at.Sub(now)
	}
	return 0
}

// SearchPhotos fetches one page of results for params
func (c *Client) SearchPhotos(ctx context.Context, params SearchParams) (*SearchResponse, error) {
	url := SearchURL(c.baseURL, params)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(errors.KindUnknown, err, "failed to create request")
	}
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(errors.KindNetwork, err, "failed to read response body")
	}

	var result SearchResponse
	if err := json.Unmarshal(body, &result); err != nil {
		preview := string(body)
		if len(preview) > 200 {
			preview = preview[:200] + "..."
		}
		c.logger.ErrorWithFields("failed to parse search response", map[string]interface{}{
			"query":        params.Query,
			"body_preview": preview,
			"error":        err.Error(),
		})
		return nil, &errors.Error{
			Kind:    errors.KindParsing,
			Message: fmt.Sprintf("failed to parse JSON: %v", err),
			Code:    resp.StatusCode,
			Err:     err,
		}
	}

	c.logger.DebugWithFields("search completed", map[string]interface{}{
		"query":   params.Query,
		"results": len(result.Results),
		"total":   result.Total,
	})
	return &result, nil
}

// OpenImage starts a GET for an image URL and returns the unread body.
// Image URLs are pre-signed CDN links, so API credentials are not sent.
// The caller must close the returned body.
func (c *Client) OpenImage(ctx context.Context, imageURL string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, errors.Wrap(errors.KindUnknown, err, "failed to create request")
	}

	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}
