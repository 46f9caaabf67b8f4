package chores

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	tokenHeader    = "token"
	defaultTimeout = 10 * time.Second
	maxBodyBytes   = 1 << 20
)

// SubmitError carries the raw upstream text of a failed call. Transport
// errors and non-2xx responses both end up here.
type SubmitError struct {
	Status int
	Body   string
	Err    error
}

func (e *SubmitError) Error() string {
	switch {
	case e.Err != nil:
		return e.Err.Error()
	case e.Body != "":
		return e.Body
	default:
		return fmt.Sprintf("upstream returned status %d", e.Status)
	}
}

func (e *SubmitError) Unwrap() error {
	return e.Err
}

// Client talks to the downstream chores API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		if c != nil {
			cl.httpClient = c
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(cl *Client) {
		if d > 0 {
			cl.httpClient.Timeout = d
		}
	}
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

func (c *Client) ListIcons(ctx context.Context, token string) ([]Icon, error) {
	var out envelope[Icon]
	if err := c.do(ctx, http.MethodGet, "/chores/icon", token, nil, &out); err != nil {
		return nil, fmt.Errorf("listing icons: %w", err)
	}
	if out.Data == nil {
		return []Icon{}, nil
	}
	return out.Data, nil
}

func (c *Client) ListMembers(ctx context.Context, token string) ([]Member, error) {
	var out envelope[Member]
	if err := c.do(ctx, http.MethodGet, "/chores/memberInfoList", token, nil, &out); err != nil {
		return nil, fmt.Errorf("listing members: %w", err)
	}
	if out.Data == nil {
		return []Member{}, nil
	}
	return out.Data, nil
}

// Submit creates a chore from the collected slots. The payload is sent as a
// flat JSON object of strings.
func (c *Client) Submit(ctx context.Context, payload map[string]string, token string) error {
	return c.do(ctx, http.MethodPost, "/chores/create", token, payload, nil)
}

func (c *Client) do(ctx context.Context, method, path, token string, body any, result any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return &SubmitError{Err: fmt.Errorf("marshaling request body: %w", err)}
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return &SubmitError{Err: fmt.Errorf("building request: %w", err)}
	}
	req.Header.Set(tokenHeader, token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &SubmitError{Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return &SubmitError{Status: resp.StatusCode, Err: fmt.Errorf("reading response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &SubmitError{Status: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}

	if result == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, result); err != nil {
		return &SubmitError{Status: resp.StatusCode, Body: string(raw), Err: fmt.Errorf("decoding response: %w", err)}
	}
	return nil
}

// IsTimeout reports whether err came from a deadline or client timeout.
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}
