package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	apperrors "tourdesk/pkg/errors"
)

const DefaultTimeout = 10 * time.Second

// Authorizer supplies bearer tokens. ForceRefresh is called once when the
// server answers 401 to a request sent with stale.
type Authorizer interface {
	Token(ctx context.Context) (string, error)
	ForceRefresh(ctx context.Context, stale string) (string, error)
}

type HttpClient struct {
	BaseURL    string
	HTTPClient *http.Client
	auth       Authorizer
}

func NewHttpClient(baseURL string, timeout time.Duration) *HttpClient {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &HttpClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// WithAuthorizer returns a copy of c that authenticates every request.
func (c *HttpClient) WithAuthorizer(auth Authorizer) *HttpClient {
	copied := *c
	copied.auth = auth
	return &copied
}

type Response struct {
	*http.Response
	Body []byte
}

type envelope struct {
	Data json.RawMessage `json:"data"`
}

// wholeBody marks decode targets that take the full response body instead
// of its "data" member.
type wholeBody interface {
	wholeBody()
}

// Do sends a JSON request and decodes the "data" member of a 2xx response
// into out. On a 401 the request is retried exactly once with a refreshed
// token; the outcome of the retry is returned unchanged.
func (c *HttpClient) Do(ctx context.Context, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
	}

	bearer := ""
	if c.auth != nil {
		var err error
		if bearer, err = c.auth.Token(ctx); err != nil {
			return err
		}
	}

	resp, err := c.send(ctx, method, path, payload, bearer)
	if err != nil {
		return err
	}

	if resp.StatusCode == http.StatusUnauthorized && c.auth != nil {
		if bearer, err = c.auth.ForceRefresh(ctx, bearer); err != nil {
			return err
		}
		if resp, err = c.send(ctx, method, path, payload, bearer); err != nil {
			return err
		}
	}

	return decode(resp, out)
}

func (c *HttpClient) send(ctx context.Context, method, path string, payload []byte, bearer string) (*Response, error) {
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, apperrors.Network(fmt.Sprintf("%s %s failed", method, path), err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.Network("failed to read response body", err)
	}

	return &Response{Response: resp, Body: respBody}, nil
}

func decode(resp *Response, out any) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil || len(resp.Body) == 0 {
			return nil
		}
		if _, ok := out.(wholeBody); ok {
			if err := json.Unmarshal(resp.Body, out); err != nil {
				return apperrors.Server(resp.StatusCode, "malformed response body")
			}
			return nil
		}
		var env envelope
		if err := json.Unmarshal(resp.Body, &env); err != nil {
			return apperrors.Server(resp.StatusCode, "malformed response body")
		}
		if err := json.Unmarshal(env.Data, out); err != nil {
			return apperrors.Server(resp.StatusCode, "malformed response data")
		}
		return nil
	}
	return apperrors.FromResponse(resp.StatusCode, resp.Body)
}

func (c *HttpClient) WaitForHealthy(ctx context.Context, maxWait time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, maxWait)
	defer cancel()

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/health", nil)
		if err != nil {
			return err
		}
		resp, err := c.HTTPClient.Do(req)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("service did not become healthy within %v", maxWait)
		case <-ticker.C:
		}
	}
}
