package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gookit/color"
	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/zhouzirui/support-desk/backend/internal/model/session"
	"github.com/zhouzirui/support-desk/backend/internal/model/transcript"
	"github.com/zhouzirui/support-desk/backend/internal/service/messaging"
	"github.com/zhouzirui/support-desk/backend/pkg/capture"
	"github.com/zhouzirui/support-desk/backend/pkg/client"
)

type chatOptions struct {
	profile      profileFlags
	channelType  string
	poll         time.Duration
	grace        time.Duration
	historyLimit int
	capture      bool
	watch        bool
}

func newChatCmd() *cobra.Command {
	opts := chatOptions{}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with support from the terminal; the transcript is exported on exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !opts.capture && !opts.watch {
				return fmt.Errorf("at least one of --capture or --watch must be enabled")
			}
			return runChat(cmd, opts)
		},
	}

	opts.profile.register(cmd, true)
	cmd.Flags().StringVar(&opts.channelType, "channel-type", messaging.DefaultChannelType, "channel type")
	cmd.Flags().DurationVar(&opts.poll, "poll", 2*time.Second, "channel history poll interval")
	cmd.Flags().DurationVar(&opts.grace, "grace", 5*time.Second, "how long to wait for the transcript export on exit")
	cmd.Flags().IntVar(&opts.historyLimit, "history-limit", 300, "messages fetched per poll")
	cmd.Flags().BoolVar(&opts.capture, "capture", true, "post the transcript from this client on exit")
	cmd.Flags().BoolVar(&opts.watch, "watch", false, "hold a session-watch connection so the server exports on disconnect")
	return cmd
}

func runChat(cmd *cobra.Command, opts chatOptions) error {
	out := cmd.OutOrStdout()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	api, err := client.New(serverURL, nil)
	if err != nil {
		return err
	}
	desc, err := api.Login(ctx, opts.profile.first, opts.profile.last)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, color.Green.Sprintf("connected as %s, channel %s", desc.CustomerID, desc.ChannelID))
	fmt.Fprintln(out, color.Gray.Sprint("type a message and press enter; Ctrl-D or Ctrl-C ends the session"))

	user, err := messaging.NewUserClient(desc.APIKey, streamBaseURL, desc.CustomerID, desc.CustomerToken, 10*time.Second)
	if err != nil {
		return err
	}

	rec := capture.NewRecorder(time.Time{})
	view := &printer{out: out, self: desc.CustomerID}

	chatCtx, endChat := context.WithCancel(ctx)
	defer endChat()

	var trigger *capture.Trigger
	if opts.capture {
		trigger = capture.NewTrigger(api.ExportURL(), capture.Profile{
			FirstName: opts.profile.first,
			LastName:  opts.profile.last,
			Email:     opts.profile.email,
		}, rec, capture.WithLogger(log))
		capture.FireOnDone(chatCtx, trigger)
	}

	var ws *websocket.Conn
	if opts.watch {
		ws, err = openWatch(ctx, api.WatchURL(desc.ChannelID), desc, opts.profile)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, color.Gray.Sprint("session watch established"))
	}

	refresh := func(ctx context.Context) {
		state, err := user.QueryChannel(ctx, opts.channelType, desc.ChannelID, opts.historyLimit)
		if err != nil {
			log.Warn().Err(err).Msg("channel poll failed")
			return
		}
		rec.SetCreatedAt(state.Channel.CreatedAt)
		rec.Replace(state.Messages)
		view.show(state.Messages)
	}
	refresh(chatCtx)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(opts.poll)
		defer ticker.Stop()
		for {
			select {
			case <-chatCtx.Done():
				return
			case <-ticker.C:
				refresh(chatCtx)
			}
		}
	}()

	go readInput(chatCtx, cmd.InOrStdin(), func(line string) {
		msg, err := user.SendMessage(chatCtx, opts.channelType, desc.ChannelID, line)
		if err != nil {
			fmt.Fprintln(out, color.Red.Sprintf("send failed: %v", err))
			return
		}
		rec.Append(msg)
	}, endChat)

	<-chatCtx.Done()
	wg.Wait()

	if ws != nil {
		_ = ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session ended"), time.Now().Add(time.Second))
		_ = ws.Close()
	}

	if trigger == nil {
		return nil
	}
	select {
	case <-trigger.Done():
		if err := trigger.Err(); err != nil {
			fmt.Fprintln(out, color.Red.Sprintf("transcript export failed: %v", err))
			return nil
		}
		fmt.Fprintln(out, color.Green.Sprint("transcript sent to support"))
	case <-time.After(opts.grace):
		fmt.Fprintln(out, color.Yellow.Sprint("transcript export still running, exiting anyway"))
	}
	return nil
}

// readInput calls send for every non-empty line and end on EOF.
func readInput(ctx context.Context, in io.Reader, send func(string), end func()) {
	defer end()
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		if line := scanner.Text(); line != "" {
			send(line)
		}
	}
}

func openWatch(ctx context.Context, url string, desc session.Descriptor, profile profileFlags) (*websocket.Conn, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("open session watch: %w", err)
	}

	hello := map[string]any{
		"type": "hello",
		"data": map[string]string{
			"customerToken": desc.CustomerToken,
			"firstName":     profile.first,
			"lastName":      profile.last,
			"email":         profile.email,
		},
	}
	if err := conn.WriteJSON(hello); err != nil {
		conn.Close()
		return nil, fmt.Errorf("send hello: %w", err)
	}

	var reply struct {
		Type string `json:"type"`
		Data struct {
			Message string `json:"message"`
		} `json:"data"`
	}
	conn.SetReadDeadline(time.Now().Add(10 * time.Second))
	if err := conn.ReadJSON(&reply); err != nil {
		conn.Close()
		return nil, fmt.Errorf("read hello reply: %w", err)
	}
	if reply.Type == "error" {
		conn.Close()
		return nil, fmt.Errorf("session watch refused: %s", reply.Data.Message)
	}
	conn.SetReadDeadline(time.Time{})

	// 读取控制帧，使 ping 得到回应
	go func() {
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()
	return conn, nil
}

// printer prints messages it has not shown yet.
type printer struct {
	mu    sync.Mutex
	out   io.Writer
	self  string
	shown int
}

func (p *printer) show(history []transcript.Message) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, m := range unseen(history, p.shown) {
		if m.User.ID == p.self {
			fmt.Fprintln(p.out, color.Cyan.Sprintf("you: %s", m.Text))
			continue
		}
		fmt.Fprintln(p.out, color.Magenta.Sprintf("%s: %s", m.User.ID, m.Text))
	}
	if len(history) > p.shown {
		p.shown = len(history)
	}
}

func unseen(history []transcript.Message, shown int) []transcript.Message {
	if shown >= len(history) {
		return nil
	}
	return history[shown:]
}
