// Package messaging talks to Stream Chat. The server-side Client wraps the
// Stream SDK and acts with the API secret; UserClient acts as a single
// customer with a token issued by Client.
package messaging

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	stream "github.com/GetStream/stream-chat-go/v6"

	"github.com/zhouzirui/support-desk/backend/internal/errs"
)

const (
	DefaultBaseURL     = "https://chat.stream-io-api.com"
	DefaultChannelType = "messaging"
)

// Config holds the credentials and tuning for Client.
type Config struct {
	APIKey     string
	APISecret  string
	BaseURL    string
	Timeout    time.Duration
	TokenTTL   time.Duration
	HTTPClient *http.Client
}

// Client is the server-side Stream client.
type Client struct {
	sdk      *stream.Client
	apiKey   string
	secret   []byte
	tokenTTL time.Duration
	now      func() time.Time
}

// New creates a server-side client. The secret signs user tokens; the SDK
// uses it for the server token sent with every request.
func New(cfg Config) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" || strings.TrimSpace(cfg.APISecret) == "" {
		return nil, fmt.Errorf("stream api key and secret are required")
	}

	sdk, err := stream.NewClient(apiKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("create stream client: %w", err)
	}
	sdk.BaseURL = baseURLOrDefault(cfg.BaseURL)
	sdk.HTTP = httpClientOrDefault(cfg.HTTPClient, cfg.Timeout)

	return &Client{
		sdk:      sdk,
		apiKey:   apiKey,
		secret:   []byte(cfg.APISecret),
		tokenTTL: cfg.TokenTTL,
		now:      time.Now,
	}, nil
}

// APIKey returns the public API key clients need alongside their token.
func (c *Client) APIKey() string {
	return c.apiKey
}

// upstream tags an SDK failure. Stream API errors carry the HTTP status;
// anything else (transport failure, undecodable 2xx body) counts as a
// network failure.
func upstream(op string, err error) error {
	// the SDK returns Error by value
	var apiErr stream.Error
	if errors.As(err, &apiErr) {
		auth := apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden
		return errs.Upstream(op, auth, fmt.Errorf("%s failed with error: %q", op, apiErr.Message))
	}
	return errs.Upstream(op, false, fmt.Errorf("%s: %w", op, err))
}

func baseURLOrDefault(baseURL string) string {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return DefaultBaseURL
	}
	return baseURL
}

func httpClientOrDefault(hc *http.Client, timeout time.Duration) *http.Client {
	if hc != nil {
		return hc
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &http.Client{Timeout: timeout}
}
