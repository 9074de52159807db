// Package sdk provides the client-side library for the LRS. It supports
// both remote daemons over HTTP and a local embedded engine.
package sdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/veris-dev/veris-lrs/internal/lrs"
	"github.com/veris-dev/veris-lrs/pkg/schema"
)

// Client is a remote client for a running LRS daemon.
// It implements the RecordService interface.
type Client struct {
	baseURL string
	http    *http.Client

	mu    sync.RWMutex
	token string
}

// Connect verifies that a daemon answers at baseURL and returns a client
// for it. The liveness probe retries up to 3 times with backoff, so a
// daemon that is still starting does not fail its callers immediately.
func Connect(baseURL string) (*Client, error) {
	if !strings.Contains(baseURL, "://") {
		baseURL = "http://" + baseURL
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}

	var err error
	for i := 0; i < 3; i++ {
		if _, err = c.Status(context.Background()); err == nil {
			return c, nil
		}
		time.Sleep(time.Duration((i+1)*200) * time.Millisecond)
	}
	return nil, fmt.Errorf("failed after 3 attempts. last error: %v", err)
}

// SetToken installs a bearer token obtained elsewhere (for example from
// the LRS_TOKEN environment variable).
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// Status fetches the daemon's liveness payload.
func (c *Client) Status(ctx context.Context) (map[string]any, error) {
	var out map[string]any
	if err := c.do(ctx, http.MethodGet, "/status", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Authenticate exchanges a password credential for a bearer token and
// installs it on the client.
func (c *Client) Authenticate(ctx context.Context, email, password string) (*schema.AuthResponse, error) {
	in := schema.Credentials{Email: email, Password: password}
	var out schema.AuthResponse
	if err := c.do(ctx, http.MethodPost, "/users/authenticate", in, &out); err != nil {
		return nil, err
	}
	c.SetToken(out.Token)
	return &out, nil
}

// AuthenticateWithMagicToken redeems a single-use magic token and
// installs the resulting bearer token on the client.
func (c *Client) AuthenticateWithMagicToken(ctx context.Context, magic string) (*schema.AuthResponse, error) {
	in := schema.MagicCredentials{MagicToken: magic}
	var out schema.AuthResponse
	if err := c.do(ctx, http.MethodPost, "/users/authenticateWithMagicToken", in, &out); err != nil {
		return nil, err
	}
	c.SetToken(out.Token)
	return &out, nil
}

// Register creates an account. Whether this needs an admin token depends
// on the daemon's public-registration switch.
func (c *Client) Register(ctx context.Context, reg schema.Registration) error {
	return c.do(ctx, http.MethodPost, "/users/register", reg, nil)
}

// Ingest writes one statement document.
func (c *Client) Ingest(ctx context.Context, doc map[string]any) error {
	var ack struct {
		Result string `json:"result"`
	}
	if err := c.do(ctx, http.MethodPost, "/lrs", doc, &ack); err != nil {
		return err
	}
	if ack.Result != "done" {
		return fmt.Errorf("unexpected ingest ack %q", ack.Result)
	}
	return nil
}

// Query runs a caller-specified query over the statement collection.
func (c *Client) Query(ctx context.Context, req lrs.QueryRequest) (*lrs.QueryResult, error) {
	var out lrs.QueryResult
	if err := c.do(ctx, http.MethodPost, "/records/get", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	c.mu.RLock()
	token := c.token
	c.mu.RUnlock()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg := readErrorMessage(resp.Body)
		if msg != "" {
			return fmt.Errorf("server returned %s: %s", resp.Status, msg)
		}
		return fmt.Errorf("server returned %s", resp.Status)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// readErrorMessage pulls the "message" field out of an error body, when
// the server sent one at all.
func readErrorMessage(r io.Reader) string {
	var body struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r).Decode(&body); err != nil {
		return ""
	}
	return body.Message
}
