package messaging

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	stream "github.com/GetStream/stream-chat-go/v6"
	"github.com/samber/lo"

	"github.com/zhouzirui/support-desk/backend/internal/errs"
	"github.com/zhouzirui/support-desk/backend/internal/model/transcript"
)

// Channel is the backend's view of a conversation container.
type Channel struct {
	Type      string
	ID        string
	Members   []string
	CreatedBy string
	CreatedAt time.Time
}

// ChannelState is a channel plus its message history, oldest first.
type ChannelState struct {
	Channel  Channel
	Messages []transcript.Message
}

// CreateChannel creates channelType:channelID with exactly the given members.
func (c *Client) CreateChannel(ctx context.Context, channelType, channelID string, members []string, createdBy string) (Channel, error) {
	channelType, channelID, err := channelRef(channelType, channelID)
	if err != nil {
		return Channel{}, err
	}

	resp, err := c.sdk.CreateChannel(ctx, channelType, channelID, createdBy, &stream.ChannelRequest{Members: members})
	if err != nil {
		return Channel{}, upstream("CreateChannel", err)
	}

	ch := fromStream(resp.Channel, channelType, channelID).Channel
	if len(ch.Members) == 0 {
		ch.Members = append([]string(nil), members...)
	}
	if ch.CreatedBy == "" {
		ch.CreatedBy = createdBy
	}
	return ch, nil
}

// QueryChannel reads the channel and its most recent limit messages.
func (c *Client) QueryChannel(ctx context.Context, channelType, channelID string, limit int) (ChannelState, error) {
	channelType, channelID, err := channelRef(channelType, channelID)
	if err != nil {
		return ChannelState{}, err
	}

	q := &stream.QueryOption{
		Filter: map[string]interface{}{"type": channelType, "id": channelID},
		Limit:  1,
	}
	if limit > 0 {
		q.MessageLimit = &limit
	}
	resp, err := c.sdk.QueryChannels(ctx, q)
	if err != nil {
		return ChannelState{}, upstream("QueryChannel", err)
	}
	if len(resp.Channels) == 0 {
		return ChannelState{}, errs.Upstream("QueryChannel", false, fmt.Errorf("QueryChannel: channel %s:%s not found", channelType, channelID))
	}
	return fromStream(resp.Channels[0], channelType, channelID), nil
}

func fromStream(sc *stream.Channel, channelType, channelID string) ChannelState {
	if sc == nil {
		return ChannelState{Channel: Channel{Type: channelType, ID: channelID}}
	}

	ch := Channel{
		Type:      lo.CoalesceOrEmpty(sc.Type, channelType),
		ID:        lo.CoalesceOrEmpty(sc.ID, channelID),
		CreatedAt: sc.CreatedAt,
		Members: lo.FilterMap(sc.Members, func(m *stream.ChannelMember, _ int) (string, bool) {
			if m == nil {
				return "", false
			}
			id := m.UserID
			if id == "" && m.User != nil {
				id = m.User.ID
			}
			return id, id != ""
		}),
	}
	if sc.CreatedBy != nil {
		ch.CreatedBy = sc.CreatedBy.ID
	}

	messages := lo.FilterMap(sc.Messages, func(m *stream.Message, _ int) (transcript.Message, bool) {
		if m == nil {
			return transcript.Message{}, false
		}
		var sender string
		if m.User != nil {
			sender = m.User.ID
		}
		return transcript.Message{User: transcript.Sender{ID: sender}, Text: m.Text}, true
	})
	return ChannelState{Channel: ch, Messages: messages}
}

func channelRef(channelType, channelID string) (string, string, error) {
	channelType = strings.TrimSpace(channelType)
	channelID = strings.TrimSpace(channelID)
	if channelType == "" {
		channelType = DefaultChannelType
	}
	if channelID == "" {
		return "", "", errors.New("channel id is required")
	}
	return channelType, channelID, nil
}
