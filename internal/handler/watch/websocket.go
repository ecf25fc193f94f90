package watch

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/samber/lo"

	"github.com/zhouzirui/support-desk/backend/internal/logging"
	transcriptModel "github.com/zhouzirui/support-desk/backend/internal/model/transcript"
	"github.com/zhouzirui/support-desk/backend/internal/service/messaging"
)

// Backend reads channel history and checks customer tokens.
type Backend interface {
	QueryChannel(ctx context.Context, channelType, channelID string, limit int) (messaging.ChannelState, error)
	VerifyToken(token string) (string, error)
}

// Exporter renders and sends a transcript.
type Exporter interface {
	Export(ctx context.Context, req transcriptModel.Request) (*transcriptModel.Document, error)
}

// Options 配置会话监听
type Options struct {
	ChannelType   string
	HistoryLimit  int
	ReadTimeout   time.Duration
	PingInterval  time.Duration
	ExportTimeout time.Duration
}

// Handler 监听客户会话，连接断开时在服务端导出聊天记录
type Handler struct {
	backend  Backend
	exporter Exporter
	opts     Options
	log      *logging.Logger
	upgrader websocket.Upgrader
}

// New 创建会话监听处理器
func New(backend Backend, exporter Exporter, opts Options, log *logging.Logger) *Handler {
	if opts.ChannelType == "" {
		opts.ChannelType = messaging.DefaultChannelType
	}
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = 300
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = 60 * time.Second
	}
	if opts.PingInterval <= 0 {
		opts.PingInterval = 54 * time.Second
	}
	if opts.ExportTimeout <= 0 {
		opts.ExportTimeout = 30 * time.Second
	}
	if log == nil {
		log = logging.Nop()
	}
	return &Handler{
		backend:  backend,
		exporter: exporter,
		opts:     opts,
		log:      log.Sub("watch"),
		upgrader: websocket.Upgrader{
			// CORS middleware already restricts browser origins
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes 注册监听路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/session-watch/{channelID}", h.handleWatch)
}

type inboundMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Hello is the first frame a client sends after connecting.
type Hello struct {
	CustomerToken string `json:"customerToken"`
	FirstName     string `json:"firstName"`
	LastName      string `json:"lastName"`
	Email         string `json:"email"`
}

type outgoingMessage struct {
	Type      string      `json:"type"`
	ChannelID string      `json:"channelId,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

type watchState struct {
	channelID  string
	customerID string
	hello      *Hello
	openedAt   time.Time
}

// handleWatch 处理监听连接
func (h *Handler) handleWatch(w http.ResponseWriter, r *http.Request) {
	channelID := strings.TrimSpace(chi.URLParam(r, "channelID"))
	if channelID == "" {
		http.Error(w, "channelID is required", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	state := &watchState{channelID: channelID, openedAt: time.Now().UTC()}
	h.log.Debug().Str("channel", channelID).Msg("watch connection opened")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// 连接以任何方式结束都只导出一次
	defer h.exportOnClose(context.WithoutCancel(r.Context()), state)

	conn.SetReadDeadline(time.Now().Add(h.opts.ReadTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(h.opts.ReadTimeout))
		return nil
	})

	go h.pingLoop(ctx, conn)

	for {
		var msg inboundMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.log.Warn().Err(err).Str("channel", channelID).Msg("watch read error")
			}
			return
		}

		conn.SetReadDeadline(time.Now().Add(h.opts.ReadTimeout))

		switch msg.Type {
		case "hello":
			h.handleHello(conn, state, msg.Data)
		case "ping":
			h.sendInfo(conn, channelID, map[string]any{"type": "pong"})
		default:
			h.sendError(conn, "unsupported message type")
		}
	}
}

func (h *Handler) handleHello(conn *websocket.Conn, state *watchState, raw json.RawMessage) {
	if state.hello != nil {
		h.sendError(conn, "hello already received")
		return
	}

	var hello Hello
	if err := json.Unmarshal(raw, &hello); err != nil {
		h.sendError(conn, "invalid hello payload")
		return
	}

	customerID, err := h.backend.VerifyToken(hello.CustomerToken)
	if err != nil {
		h.sendError(conn, "invalid customer token")
		return
	}

	state.hello = &hello
	state.customerID = customerID
	h.sendInfo(conn, state.channelID, map[string]any{
		"type":       "watching",
		"customerId": customerID,
	})
}

func (h *Handler) exportOnClose(parent context.Context, state *watchState) {
	if state.hello == nil {
		h.log.Debug().Str("channel", state.channelID).Msg("watch closed before hello, nothing to export")
		return
	}

	ctx, cancel := context.WithTimeout(parent, h.opts.ExportTimeout)
	defer cancel()

	if err := h.export(ctx, state); err != nil {
		h.log.Error().Err(err).Str("channel", state.channelID).Str("customer", state.customerID).Msg("server-side transcript export failed")
		return
	}
	h.log.Info().Str("channel", state.channelID).Str("customer", state.customerID).Msg("server-side transcript exported")
}

var errNotMember = errors.New("customer is not a member of the channel")

func (h *Handler) export(ctx context.Context, state *watchState) error {
	ch, err := h.backend.QueryChannel(ctx, h.opts.ChannelType, state.channelID, h.opts.HistoryLimit)
	if err != nil {
		return err
	}
	if !lo.Contains(ch.Channel.Members, state.customerID) {
		return errNotMember
	}

	createdAt := ch.Channel.CreatedAt
	if createdAt.IsZero() {
		createdAt = state.openedAt
	}

	_, err = h.exporter.Export(ctx, transcriptModel.Request{
		Messages:  ch.Messages,
		FirstName: state.hello.FirstName,
		LastName:  state.hello.LastName,
		Email:     state.hello.Email,
		CreatedAt: createdAt.UTC().Format(time.RFC3339),
	})
	return err
}

func (h *Handler) sendInfo(conn *websocket.Conn, channelID string, data map[string]any) {
	msg := outgoingMessage{
		Type:      "result",
		ChannelID: channelID,
		Data:      data,
		Timestamp: time.Now().Unix(),
	}
	if err := conn.WriteJSON(msg); err != nil {
		h.log.Warn().Err(err).Msg("write info failed")
	}
}

func (h *Handler) sendError(conn *websocket.Conn, message string) {
	msg := outgoingMessage{
		Type:      "error",
		Data:      map[string]string{"message": message},
		Timestamp: time.Now().Unix(),
	}
	if err := conn.WriteJSON(msg); err != nil {
		h.log.Warn().Err(err).Msg("write error failed")
	}
}

// pingLoop 定期发送ping消息
func (h *Handler) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(h.opts.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(10*time.Second)); err != nil {
				return
			}
		}
	}
}
