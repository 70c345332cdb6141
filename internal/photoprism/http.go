package photoprism

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"
)

// doGetJSON performs a GET request and unmarshals the JSON response into the result type.
// The endpoint should be the path after the base API URL (e.g., "albums/123").
func doGetJSON[T any](ctx context.Context, pp *PhotoPrism, endpoint string) (*T, error) {
	return doRequestJSON[T](ctx, pp, http.MethodGet, endpoint, nil, http.StatusOK)
}

// doRequestJSON performs an HTTP request with an optional JSON body and
// decodes the JSON response. Any status outside expectedStatuses is an error.
func doRequestJSON[T any](ctx context.Context, pp *PhotoPrism, method, endpoint string, requestBody any, expectedStatuses ...int) (*T, error) {
	resp, err := send(ctx, pp, method, endpoint, requestBody, expectedStatuses...)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var result T
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("could not unmarshal response: %w", err)
	}
	return &result, nil
}

// doRequestRaw performs an HTTP request and discards the response body.
func doRequestRaw(ctx context.Context, pp *PhotoPrism, method, endpoint string, requestBody any) error {
	resp, err := send(ctx, pp, method, endpoint, requestBody, http.StatusOK)
	if err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.Body.Close()
}

func send(ctx context.Context, pp *PhotoPrism, method, endpoint string, requestBody any, expectedStatuses ...int) (*http.Response, error) {
	var bodyReader io.Reader
	if requestBody != nil {
		jsonBody, err := json.Marshal(requestBody)
		if err != nil {
			return nil, fmt.Errorf("could not marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, pp.resolveURL(endpoint), bodyReader)
	if err != nil {
		return nil, fmt.Errorf("could not create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+pp.token)
	if requestBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := pp.client.Do(req) //nolint:gosec // URL constructed from validated parsedURL via resolveURL
	if err != nil {
		return nil, fmt.Errorf("could not send request: %w", err)
	}
	if !slices.Contains(expectedStatuses, resp.StatusCode) {
		defer resp.Body.Close()
		return nil, fmt.Errorf("request failed with status %d: %s", resp.StatusCode, readErrorBody(resp.Body))
	}
	return resp, nil
}

// download fetches a binary resource outside the JSON API (downloads use the
// download token in the URL instead of the session header).
func (pp *PhotoPrism) download(ctx context.Context, rawURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("could not create request: %w", err)
	}

	resp, err := pp.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("could not send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("request failed with status %d: %s", resp.StatusCode, readErrorBody(resp.Body))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("could not read response body: %w", err)
	}
	return data, resp.Header.Get("Content-Type"), nil
}

// IsNotFoundError returns true if the error indicates a 404 Not Found response.
func IsNotFoundError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "status 404")
}
