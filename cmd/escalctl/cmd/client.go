package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/safetrack-hq/escalator/pkg/config"
)

// apiError mirrors the server's error payload.
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// apiResponse mirrors the server's response wrapper.
type apiResponse struct {
	Data  json.RawMessage `json:"data"`
	Error *apiError       `json:"error"`
}

// apiClient is a thin HTTP client for the escalatord API.
type apiClient struct {
	base  string
	token string
	http  *http.Client
}

func newAPIClient() *apiClient {
	return &apiClient{
		base:  resolveServer(),
		token: resolveToken(),
		http:  &http.Client{Timeout: 120 * time.Second},
	}
}

// call performs one API request and decodes the data payload into out.
// out may be nil when the response body is not needed.
func (c *apiClient) call(method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.base+path, reqBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("User-Agent", "escalctl/"+config.ShortVersionString())

	PrintVerbose("%s %s", method, c.base+path)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	var wrapper apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&wrapper); err != nil {
		return fmt.Errorf("decode response (HTTP %d): %w", resp.StatusCode, err)
	}

	if wrapper.Error != nil {
		return fmt.Errorf("%s: %s", wrapper.Error.Code, wrapper.Error.Message)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("unexpected HTTP status %d", resp.StatusCode)
	}

	if out != nil && len(wrapper.Data) > 0 {
		if err := json.Unmarshal(wrapper.Data, out); err != nil {
			return fmt.Errorf("decode data: %w", err)
		}
	}
	return nil
}

func (c *apiClient) get(path string, out any) error {
	return c.call(http.MethodGet, path, nil, out)
}

func (c *apiClient) post(path string, body, out any) error {
	return c.call(http.MethodPost, path, body, out)
}
