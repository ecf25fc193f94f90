package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/zhouzirui/support-desk/backend/internal/model/transcript"
)

func msg(sender, text string) transcript.Message {
	return transcript.Message{User: transcript.Sender{ID: sender}, Text: text}
}

func TestPrinterShowsOnlyNewMessages(t *testing.T) {
	var buf bytes.Buffer
	p := &printer{out: &buf, self: "jane-smith"}

	p.show([]transcript.Message{msg("jane-smith", "Hi")})
	p.show([]transcript.Message{msg("jane-smith", "Hi"), msg("admin-id", "Hello")})
	p.show([]transcript.Message{msg("jane-smith", "Hi"), msg("admin-id", "Hello")})

	out := buf.String()
	assert.Equal(t, 1, strings.Count(out, "you: Hi"))
	assert.Equal(t, 1, strings.Count(out, "admin-id: Hello"))
}

func TestReadInputSkipsBlankLinesAndEndsOnEOF(t *testing.T) {
	var sent []string
	ended := false

	readInput(context.Background(), strings.NewReader("hello\n\nmy order is late\n"), func(line string) {
		sent = append(sent, line)
	}, func() { ended = true })

	assert.Equal(t, []string{"hello", "my order is late"}, sent)
	assert.True(t, ended)
}

func TestChatRequiresCaptureOrWatch(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetArgs([]string{"chat", "--first", "Jane", "--last", "Smith", "--email", "jane@example.com", "--capture=false"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})

	err := cmd.Execute()
	assert.ErrorContains(t, err, "--capture or --watch")
}

func TestLoginRequiresNames(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetArgs([]string{"login", "--first", "Jane"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})

	assert.Error(t, cmd.Execute())
}
