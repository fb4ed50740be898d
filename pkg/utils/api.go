package utils

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// API is a thin JSON GET helper shared by the catalog clients.
type API struct {
	client  *http.Client
	baseURL string
}

func NewAPI(baseURL string) *API {
	return &API{client: http.DefaultClient, baseURL: baseURL}
}

// NewAPIWithClient allows injecting a client with timeouts configured.
func NewAPIWithClient(baseURL string, client *http.Client) *API {
	return &API{client: client, baseURL: baseURL}
}

// StatusError reports a non-2xx response so callers can classify it.
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d", e.URL, e.Code)
}

// Get performs a GET against the base URL and decodes the JSON body into v.
func (a *API) Get(ctx context.Context, path string, params url.Values, v any) error {
	if params != nil {
		path += "?" + params.Encode()
	}
	fullURL := fmt.Sprintf("%s%s", a.baseURL, path)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{Code: resp.StatusCode, URL: fullURL}
	}
	return json.NewDecoder(resp.Body).Decode(v)
}
