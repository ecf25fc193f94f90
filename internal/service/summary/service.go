package summary

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"unicode/utf8"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/zhouzirui/support-desk/backend/internal/analysis/mood"
	"github.com/zhouzirui/support-desk/backend/internal/logging"
	"github.com/zhouzirui/support-desk/backend/internal/model/identity"
	"github.com/zhouzirui/support-desk/backend/internal/model/transcript"
)

const (
	summarySystemPrompt = `You summarize customer support chats for the support team.
Reply in Markdown with at most five short bullet points: the customer's problem,
what support answered, and any follow-up that is still open. Never invent details.`

	summaryUserPrompt = `Customer: {customer}

Transcript:
{transcript}`

	maxTranscriptChars = 12000
)

// Config 控制摘要服务的行为。
type Config struct {
	Timeout time.Duration
}

// Stats counts messages per side of the conversation. Mood is a keyword
// heuristic over the customer's messages.
type Stats struct {
	Total    int
	Customer int
	Support  int
	Mood     mood.Label
}

// Summary is attached to an exported transcript. HTML is empty when no model
// produced text.
type Summary struct {
	Stats    Stats
	Markdown string
	HTML     string
}

// Service 使用大模型为聊天记录生成摘要，不可用时只给出统计信息。
type Service struct {
	chain   compose.Runnable[map[string]any, *schema.Message]
	md      goldmark.Markdown
	timeout time.Duration
	log     *logging.Logger
}

// NewService builds a summarizer. chatModel may be nil, in which case only
// statistics are produced.
func NewService(ctx context.Context, chatModel model.ChatModel, cfg Config, log *logging.Logger) (*Service, error) {
	if log == nil {
		log = logging.Nop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 8 * time.Second
	}

	svc := &Service{
		// Raw HTML in model output is dropped by goldmark's default renderer.
		md:      goldmark.New(goldmark.WithExtensions(extension.GFM)),
		timeout: timeout,
		log:     log.Sub("summary"),
	}
	if chatModel == nil {
		return svc, nil
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage(summarySystemPrompt),
		schema.UserMessage(summaryUserPrompt),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile summary chain: %w", err)
	}
	svc.chain = runnable
	return svc, nil
}

// Enabled 返回是否配置了大模型。
func (s *Service) Enabled() bool {
	return s != nil && s.chain != nil
}

// Summarize never fails: a model error only drops the generated text.
func (s *Service) Summarize(ctx context.Context, req transcript.Request) Summary {
	out := Summary{Stats: count(req.Messages)}
	if !s.Enabled() || len(req.Messages) == 0 {
		return out
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	msg, err := s.chain.Invoke(ctx, map[string]any{
		"customer":   strings.TrimSpace(req.FirstName + " " + req.LastName),
		"transcript": formatTranscript(req.Messages),
	})
	if err != nil {
		s.log.Warn().Err(err).Msg("summary model invoke failed, using stats only")
		return out
	}
	if msg == nil || strings.TrimSpace(msg.Content) == "" {
		return out
	}

	out.Markdown = strings.TrimSpace(msg.Content)
	html, err := s.render(out.Markdown)
	if err != nil {
		s.log.Warn().Err(err).Msg("summary markdown render failed")
		return out
	}
	out.HTML = html
	return out
}

func (s *Service) render(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := s.md.Convert([]byte(markdown), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func count(messages []transcript.Message) Stats {
	stats := Stats{Total: len(messages)}
	var customerTexts []string
	for _, m := range messages {
		if m.User.ID == identity.AdminID {
			stats.Support++
			continue
		}
		stats.Customer++
		customerTexts = append(customerTexts, m.Text)
	}
	stats.Mood = mood.Analyze(customerTexts).Mood
	return stats
}

// formatTranscript flattens the conversation for the prompt, keeping the most
// recent part when it is too long.
func formatTranscript(messages []transcript.Message) string {
	var b strings.Builder
	for _, m := range messages {
		role := "customer"
		if m.User.ID == identity.AdminID {
			role = "support"
		}
		fmt.Fprintf(&b, "%s: %s\n", role, strings.TrimSpace(m.Text))
	}
	text := b.String()
	if len(text) > maxTranscriptChars {
		text = text[len(text)-maxTranscriptChars:]
		// 截断点可能落在多字节字符中间
		for len(text) > 0 && !utf8.RuneStart(text[0]) {
			text = text[1:]
		}
		if i := strings.IndexByte(text, '\n'); i >= 0 && i < len(text)-1 {
			text = text[i+1:]
		}
	}
	return text
}
