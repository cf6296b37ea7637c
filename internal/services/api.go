// API service for making raw HTTP requests to the proxy endpoints
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/desertthunder/hifix/internal/shared"
)

// APIService performs raw HTTP requests against the active base of an [EndpointPool].
type APIService struct {
	pool       *EndpointPool
	httpClient *http.Client
}

// NewAPIService creates a new API service bound to pool.
//
// A nil pool is allowed for callers that only use [APIService.Fetch] with absolute URLs.
func NewAPIService(pool *EndpointPool, client *http.Client) *APIService {
	if client == nil {
		client = http.DefaultClient
	}

	return &APIService{
		pool:       pool,
		httpClient: client,
	}
}

// APIResponse represents a raw API response with status and body.
type APIResponse struct {
	URL        string
	StatusCode int
	Headers    http.Header
	Body       []byte
	IsJSON     bool
	JSONData   any
}

// OK reports whether the response has a 2xx status.
func (r *APIResponse) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Pool returns the endpoint pool the service is bound to.
func (a *APIService) Pool() *EndpointPool {
	return a.pool
}

// Get performs a GET request for path against the pool's current base.
func (a *APIService) Get(ctx context.Context, path string) (*APIResponse, error) {
	if a.pool == nil {
		return nil, fmt.Errorf("%w: no endpoint pool configured", shared.ErrMissingConfig)
	}
	return a.Fetch(ctx, a.pool.Current()+path)
}

// Fetch performs a GET request to fullURL and returns the raw response.
//
// Transport failures and non-2xx statuses are wrapped with [shared.ErrAPIRequest].
func (a *APIService) Fetch(ctx context.Context, fullURL string) (*APIResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", shared.ErrAPIRequest, err)
	}

	apiResp := &APIResponse{
		URL:        fullURL,
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       body,
	}

	var jsonData any
	if err := json.Unmarshal(body, &jsonData); err == nil {
		apiResp.IsJSON = true
		apiResp.JSONData = jsonData
	}

	if !apiResp.OK() {
		return apiResp, fmt.Errorf("%w: status %d from %s", shared.ErrAPIRequest, resp.StatusCode, fullURL)
	}
	return apiResp, nil
}
