// Package medusa is a client for the Medusa v2 Store API: product search and
// detail, region lookup and order placement.
package medusa

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

	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	"github.com/worldofchami/medusa-mcp/pkg/utils"
)

const DefaultBaseURL = "http://localhost:9000"

var (
	// ErrNotFound is returned when a product does not exist.
	ErrNotFound = errors.New("not found")
	// ErrNoVariants is returned when no order line carries a variant id.
	ErrNoVariants = errors.New("no items with valid variant IDs")
	// ErrNoRegion is returned when the store region cannot be determined.
	ErrNoRegion = errors.New("could not determine store region")
)

// Client talks to one Medusa backend.
type Client struct {
	HTTP    *http.Client
	BaseURL string
	Regions *Regions

	log *logrus.Entry
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.HTTP = h
		}
	}
}

// WithPublishableKey replaces the HTTP client with one that sends key.
func WithPublishableKey(key string) Option {
	return func(c *Client) {
		c.HTTP = utils.NewHTTPClientWithPublishableKey(key)
	}
}

func WithLogger(log *logrus.Entry) Option {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

func NewClient(baseURL string, opts ...Option) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		HTTP:    utils.NewHTTPClientWithPublishableKey(""),
		BaseURL: baseURL,
		log:     logrus.NewEntry(logrus.StandardLogger()),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	c.log = c.log.WithField("component", "medusa")
	c.Regions = NewRegions(c)
	return c
}

// APIError is a non-2xx response from Medusa. Message is the "message" field
// of the error body when Medusa sent one.
type APIError struct {
	StatusCode int    `json:"statusCode"`
	Status     string `json:"status"`
	URL        string `json:"url"`
	Body       string `json:"body,omitempty"`
	Message    string `json:"message,omitempty"`
}

func (e *APIError) Error() string {
	if e == nil {
		return "medusa api error"
	}
	detail := e.Message
	if detail == "" {
		detail = e.Body
	}
	return fmt.Sprintf("Medusa API %d: %s", e.StatusCode, detail)
}

// IsStatus reports whether err is an APIError with the given status code.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == status
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	body, err := c.do(ctx, http.MethodGet, path, params, nil)
	if err != nil {
		return err
	}
	return decode(body, out)
}

func (c *Client) post(ctx context.Context, path string, payload any, out any) ([]byte, error) {
	if payload == nil {
		payload = map[string]any{}
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	body, err := c.do(ctx, http.MethodPost, path, nil, b)
	if err != nil {
		return nil, err
	}
	if out != nil {
		if err := decode(body, out); err != nil {
			return nil, err
		}
	}
	return body, nil
}

func (c *Client) do(ctx context.Context, method, path string, params url.Values, payload []byte) ([]byte, error) {
	endpoint, err := Resolve(c.BaseURL, path, params)
	if err != nil {
		return nil, err
	}

	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("medusa request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			URL:        endpoint,
			Body:       string(body),
		}
		if msg := gjson.GetBytes(body, "message"); msg.Type == gjson.String {
			apiErr.Message = msg.String()
		}
		c.log.WithFields(logrus.Fields{
			"method": method,
			"url":    endpoint,
			"status": resp.StatusCode,
		}).Debug("medusa request rejected")
		return nil, apiErr
	}
	return body, nil
}

func decode(body []byte, out any) error {
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// Resolve joins an absolute API path and query onto the base URL. The base
// path is replaced, matching how URLs resolve against a root-relative path.
func Resolve(baseURL, absolutePath string, params url.Values) (string, error) {
	in := strings.TrimSpace(baseURL)
	if in == "" {
		return "", fmt.Errorf("base URL is empty")
	}
	if !strings.Contains(in, "://") {
		in = "http://" + in
	}

	u, err := url.Parse(in)
	if err != nil {
		return "", err
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return "", fmt.Errorf("unsupported URL scheme %q (must be http or https)", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("invalid base URL (missing host): %q", baseURL)
	}
	if !strings.HasPrefix(absolutePath, "/") {
		return "", fmt.Errorf("absolutePath must start with '/': %q", absolutePath)
	}

	u.Path = absolutePath
	u.RawQuery = params.Encode()
	u.Fragment = ""
	return u.String(), nil
}
