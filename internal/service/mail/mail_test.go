package mail

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"github.com/zhouzirui/support-desk/backend/internal/errs"
)

func sampleMessage() Message {
	return Message{
		To:      "support@example.com",
		From:    "bot@example.com",
		Subject: "Stream Chat: Your client started a Support Chat Session",
		HTML:    "<p>hello</p>",
		Text:    "hello",
	}
}

// sentMail mirrors the parts of the v3 mail/send body the tests inspect.
type sentMail struct {
	Personalizations []struct {
		To []struct {
			Email string `json:"email"`
		} `json:"to"`
	} `json:"personalizations"`
	From struct {
		Email string `json:"email"`
	} `json:"from"`
	Subject string `json:"subject"`
	Content []struct {
		Type  string `json:"type"`
		Value string `json:"value"`
	} `json:"content"`
}

func TestSendGridSend(t *testing.T) {
	var got sentMail
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v3/mail/send", r.URL.Path)
		auth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	sg, err := NewSendGrid("SG.key", srv.URL)
	require.NoError(t, err)
	require.NoError(t, sg.Send(context.Background(), sampleMessage()))

	assert.Equal(t, "Bearer SG.key", auth)
	require.Len(t, got.Personalizations, 1)
	assert.Equal(t, "support@example.com", got.Personalizations[0].To[0].Email)
	assert.Equal(t, "bot@example.com", got.From.Email)
	assert.Equal(t, "Stream Chat: Your client started a Support Chat Session", got.Subject)
	require.Len(t, got.Content, 2)
	assert.Equal(t, "text/plain", got.Content[0].Type)
	assert.Equal(t, "text/html", got.Content[1].Type)
}

func TestSendGridFailureIsReported(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = io.WriteString(w, `{"errors":[{"message":"The from address does not match a verified Sender Identity.","field":"from"}]}`)
	}))
	defer srv.Close()

	sg, err := NewSendGrid("SG.key", srv.URL)
	require.NoError(t, err)

	err = sg.Send(context.Background(), sampleMessage())
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrUpstreamAuth)
	assert.Contains(t, err.Error(), "verified Sender Identity")
}

func TestSendGridHonorsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	sg, err := NewSendGrid("SG.key", srv.URL)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err = sg.Send(ctx, sampleMessage())
	assert.ErrorIs(t, err, errs.ErrUpstreamNetwork)
}

func TestSendGridRequiresKey(t *testing.T) {
	_, err := NewSendGrid(" ", "")
	assert.Error(t, err)
}

func TestMissingAddressIsServerFault(t *testing.T) {
	sg, err := NewSendGrid("SG.key", "http://127.0.0.1:1")
	require.NoError(t, err)

	msg := sampleMessage()
	msg.From = ""
	err = sg.Send(context.Background(), msg)
	assert.ErrorIs(t, err, errs.ErrMisconfigured)
	assert.ErrorIs(t, err, ErrNoSender)
	assert.NotErrorIs(t, err, errs.ErrValidation)
	assert.Equal(t, http.StatusInternalServerError, errs.HTTPStatus(err))

	g, err := NewGmailWithClient(context.Background(), http.DefaultClient, option.WithEndpoint("http://127.0.0.1:1/"))
	require.NoError(t, err)
	msg = sampleMessage()
	msg.To = ""
	err = g.Send(context.Background(), msg)
	assert.ErrorIs(t, err, errs.ErrMisconfigured)
	assert.Equal(t, http.StatusInternalServerError, errs.HTTPStatus(err))
}

func TestMessageValidate(t *testing.T) {
	msg := sampleMessage()
	msg.To = ""
	assert.ErrorIs(t, msg.Validate(), ErrNoRecipient)

	msg = sampleMessage()
	msg.From = ""
	assert.ErrorIs(t, msg.Validate(), ErrNoSender)
}

func TestGmailSend(t *testing.T) {
	var raw string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/users/me/messages/send"), r.URL.Path)
		var body struct {
			Raw string `json:"raw"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		raw = body.Raw
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"18c0"}`)
	}))
	defer srv.Close()

	g, err := NewGmailWithClient(context.Background(), srv.Client(), option.WithEndpoint(srv.URL+"/"))
	require.NoError(t, err)
	require.NoError(t, g.Send(context.Background(), sampleMessage()))

	decoded, err := base64.URLEncoding.DecodeString(raw)
	require.NoError(t, err)
	assert.Contains(t, string(decoded), "To: support@example.com\r\n")
	assert.Contains(t, string(decoded), "multipart/alternative")
}

func TestBuildMIMEVariants(t *testing.T) {
	now := time.Date(2026, 10, 14, 10, 0, 0, 0, time.UTC)

	htmlOnly := sampleMessage()
	htmlOnly.Text = ""
	out := string(buildMIME(htmlOnly, now))
	assert.Contains(t, out, "Content-Type: text/html; charset=UTF-8\r\n\r\n<p>hello</p>")

	textOnly := sampleMessage()
	textOnly.HTML = ""
	out = string(buildMIME(textOnly, now))
	assert.Contains(t, out, "Content-Type: text/plain; charset=UTF-8\r\n\r\nhello")
	assert.Contains(t, out, "Subject: Stream Chat: Your client started a Support Chat Session\r\n")
}
