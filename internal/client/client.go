// Package client talks to a running friday-server over its HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"friday/internal/domain"
)

var ErrNotConfigured = errors.New("server url is not configured")

// StatusError is returned for any non-2xx response.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("friday server status=%d body=%s", e.Status, e.Body)
}

type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) Enabled() bool {
	return c != nil && c.baseURL != ""
}

// Understand splits and understands text without running any skill.
func (c *Client) Understand(ctx context.Context, text string) ([]domain.StructureView, error) {
	var out domain.UnderstandResponse
	if err := c.do(ctx, http.MethodPost, "/v1/understand", domain.UnderstandRequest{Text: text}, &out); err != nil {
		return nil, err
	}
	return out.Structures, nil
}

func (c *Client) CreateSession(ctx context.Context) (string, error) {
	var out struct {
		SessionID string `json:"session_id"`
	}
	if err := c.do(ctx, http.MethodPost, "/v1/sessions", nil, &out); err != nil {
		return "", err
	}
	if out.SessionID == "" {
		return "", fmt.Errorf("create session: empty session id")
	}
	return out.SessionID, nil
}

func (c *Client) DeleteSession(ctx context.Context, sessionID string) error {
	return c.do(ctx, http.MethodDelete, "/v1/sessions/"+url.PathEscape(sessionID), nil, nil)
}

// Turn runs text through the session. Dispatch failures come back in
// TurnResponse.Error, not as an error.
func (c *Client) Turn(ctx context.Context, sessionID, text string, final bool) (domain.TurnResponse, error) {
	var out domain.TurnResponse
	path := "/v1/sessions/" + url.PathEscape(sessionID) + "/turns"
	if err := c.do(ctx, http.MethodPost, path, domain.TurnRequest{Text: text, Final: final}, &out); err != nil {
		return domain.TurnResponse{}, err
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	if !c.Enabled() {
		return ErrNotConfigured
	}
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		return &StatusError{Status: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
	}
	if out == nil || len(respBody) == 0 {
		return nil
	}
	return json.Unmarshal(respBody, out)
}
