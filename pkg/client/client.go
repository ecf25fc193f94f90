// Package client calls the support-desk HTTP API.
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

	"github.com/zhouzirui/support-desk/backend/internal/model/session"
)

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("support-desk: %d %s", e.Status, e.Message)
}

// Client talks to one support-desk server.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a client for baseURL, e.g. http://localhost:8080. hc may be nil.
func New(baseURL string, hc *http.Client) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid server url %q", baseURL)
	}
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{baseURL: baseURL, http: hc}, nil
}

// ExportURL is the endpoint a capture trigger posts to.
func (c *Client) ExportURL() string {
	return c.baseURL + "/email-transcript"
}

// WatchURL is the websocket endpoint for server-side capture of channelID.
func (c *Client) WatchURL(channelID string) string {
	u, _ := url.Parse(c.baseURL)
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/session-watch/" + url.PathEscape(channelID)
	return u.String()
}

// Login opens a support session for the named customer.
func (c *Client) Login(ctx context.Context, firstName, lastName string) (session.Descriptor, error) {
	body, err := json.Marshal(map[string]string{"firstName": firstName, "lastName": lastName})
	if err != nil {
		return session.Descriptor{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/customer-login", bytes.NewReader(body))
	if err != nil {
		return session.Descriptor{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return session.Descriptor{}, fmt.Errorf("customer login: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return session.Descriptor{}, fmt.Errorf("customer login: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error string `json:"error"`
		}
		msg := strings.TrimSpace(string(raw))
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error != "" {
			msg = apiErr.Error
		}
		return session.Descriptor{}, &APIError{Status: resp.StatusCode, Message: msg}
	}

	var desc session.Descriptor
	if err := json.Unmarshal(raw, &desc); err != nil {
		return session.Descriptor{}, fmt.Errorf("customer login: decode response: %w", err)
	}
	if desc.CustomerID == "" || desc.CustomerToken == "" || desc.ChannelID == "" {
		return session.Descriptor{}, errors.New("customer login: incomplete session descriptor")
	}
	return desc, nil
}
