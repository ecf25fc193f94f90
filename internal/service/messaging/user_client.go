package messaging

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

	"github.com/samber/lo"

	"github.com/zhouzirui/support-desk/backend/internal/errs"
	"github.com/zhouzirui/support-desk/backend/internal/model/transcript"
)

// UserClient acts on the backend as one identity, authenticated by the token
// returned from a session bootstrap. The Stream Go SDK only signs requests
// with the API secret, so this client speaks the REST API directly.
type UserClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
	userID  string
	token   string
}

// NewUserClient builds a client for userID. baseURL may be empty.
func NewUserClient(apiKey, baseURL, userID, token string, timeout time.Duration) (*UserClient, error) {
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(token) == "" {
		return nil, errors.New("user id and token are required")
	}
	return &UserClient{
		apiKey:  strings.TrimSpace(apiKey),
		baseURL: baseURLOrDefault(baseURL),
		http:    httpClientOrDefault(nil, timeout),
		userID:  userID,
		token:   token,
	}, nil
}

type messagePagination struct {
	Limit int `json:"limit"`
}

type queryChannelRequest struct {
	State    bool               `json:"state"`
	Messages *messagePagination `json:"messages,omitempty"`
}

type wireUser struct {
	ID string `json:"id"`
}

type wireMessage struct {
	ID   string   `json:"id"`
	Text string   `json:"text"`
	User wireUser `json:"user"`
}

type wireChannel struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	CreatedAt time.Time `json:"created_at"`
	CreatedBy wireUser  `json:"created_by"`
}

type wireMember struct {
	UserID string `json:"user_id"`
}

type queryChannelResponse struct {
	Channel  wireChannel   `json:"channel"`
	Members  []wireMember  `json:"members"`
	Messages []wireMessage `json:"messages"`
}

type sendMessageRequest struct {
	Message struct {
		Text string `json:"text"`
	} `json:"message"`
}

type sendMessageResponse struct {
	Message wireMessage `json:"message"`
}

// apiError is the error body Stream returns on non-2xx responses.
type apiError struct {
	Code       int    `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"StatusCode"`
}

// SendMessage posts text to the channel as the client's user.
func (u *UserClient) SendMessage(ctx context.Context, channelType, channelID, text string) (transcript.Message, error) {
	path, err := channelPath(channelType, channelID, "message")
	if err != nil {
		return transcript.Message{}, err
	}

	var req sendMessageRequest
	req.Message.Text = text
	var resp sendMessageResponse
	if err := u.do(ctx, "SendMessage", path, req, &resp); err != nil {
		return transcript.Message{}, err
	}

	senderID := lo.CoalesceOrEmpty(resp.Message.User.ID, u.userID)
	return transcript.Message{User: transcript.Sender{ID: senderID}, Text: resp.Message.Text}, nil
}

// QueryChannel reads the channel history visible to the client's user.
func (u *UserClient) QueryChannel(ctx context.Context, channelType, channelID string, limit int) (ChannelState, error) {
	path, err := channelPath(channelType, channelID, "query")
	if err != nil {
		return ChannelState{}, err
	}

	var resp queryChannelResponse
	req := queryChannelRequest{State: true, Messages: &messagePagination{Limit: limit}}
	if err := u.do(ctx, "QueryChannel", path, req, &resp); err != nil {
		return ChannelState{}, err
	}

	ch := Channel{
		Type:      lo.CoalesceOrEmpty(resp.Channel.Type, channelType, DefaultChannelType),
		ID:        lo.CoalesceOrEmpty(resp.Channel.ID, channelID),
		CreatedBy: resp.Channel.CreatedBy.ID,
		CreatedAt: resp.Channel.CreatedAt,
	}
	ch.Members = lo.Map(resp.Members, func(m wireMember, _ int) string {
		return m.UserID
	})
	messages := lo.Map(resp.Messages, func(m wireMessage, _ int) transcript.Message {
		return transcript.Message{User: transcript.Sender{ID: m.User.ID}, Text: m.Text}
	})
	return ChannelState{Channel: ch, Messages: messages}, nil
}

func (u *UserClient) do(ctx context.Context, op, path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return errs.Upstream(op, false, fmt.Errorf("%s: encode request: %w", op, err))
	}

	endpoint := u.baseURL + path + "?api_key=" + url.QueryEscape(u.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return errs.Upstream(op, false, err)
	}
	req.Header.Set("Authorization", u.token)
	req.Header.Set("Stream-Auth-Type", "jwt")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := u.http.Do(req)
	if err != nil {
		return errs.Upstream(op, false, fmt.Errorf("%s: %w", op, err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return errs.Upstream(op, false, fmt.Errorf("%s: read response: %w", op, err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		auth := resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden
		return errs.Upstream(op, auth, fmt.Errorf("%s failed with error: %q", op, upstreamMessage(resp.StatusCode, raw)))
	}

	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return errs.Upstream(op, false, fmt.Errorf("%s: decode response: %w", op, err))
	}
	return nil
}

func upstreamMessage(status int, raw []byte) string {
	var apiErr apiError
	if err := json.Unmarshal(raw, &apiErr); err == nil && apiErr.Message != "" {
		return apiErr.Message
	}
	if text := strings.TrimSpace(string(raw)); text != "" {
		return text
	}
	return http.StatusText(status)
}

func channelPath(channelType, channelID, action string) (string, error) {
	channelType, channelID, err := channelRef(channelType, channelID)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("/channels/%s/%s/%s", url.PathEscape(channelType), url.PathEscape(channelID), action), nil
}
