package config

import (
	"testing"
	"time"

	env "github.com/Netflix/go-env"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseEnv() env.EnvSet {
	return env.EnvSet{
		"STREAM_API_KEY":    "key",
		"STREAM_API_SECRET": "secret",
		"SENDGRID_API_KEY":  "SG.test",
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadFromEnvSet(baseEnv())
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "https://chat.stream-io-api.com", cfg.Stream.BaseURL)
	assert.Equal(t, "messaging", cfg.Stream.ChannelType)
	assert.Equal(t, 24*time.Hour, cfg.Stream.TokenTTL)
	assert.False(t, cfg.Stream.CustomerIDNonce)
	assert.Equal(t, MailProviderSendGrid, cfg.Mail.Provider)
	assert.Equal(t, "recipient@example.com", cfg.Mail.SupportMailbox)
	assert.Equal(t, 15*time.Second, cfg.Mail.SendTimeout)
	assert.False(t, cfg.Transcript.WatchEnabled)
	assert.Equal(t, 300, cfg.Transcript.HistoryLimit)
	assert.False(t, cfg.AI.Enabled())
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadRequiresStreamCredentials(t *testing.T) {
	for _, missing := range []string{"STREAM_API_KEY", "STREAM_API_SECRET"} {
		t.Run(missing, func(t *testing.T) {
			es := baseEnv()
			delete(es, missing)
			_, err := LoadFromEnvSet(es)
			assert.Error(t, err)
		})
	}
}

func TestLoadRejectsBlankCredentials(t *testing.T) {
	es := baseEnv()
	es["STREAM_API_SECRET"] = "   "
	_, err := LoadFromEnvSet(es)
	assert.Error(t, err)
}

func TestLoadRequiresSendGridKey(t *testing.T) {
	es := baseEnv()
	delete(es, "SENDGRID_API_KEY")
	_, err := LoadFromEnvSet(es)
	assert.ErrorContains(t, err, "SENDGRID_API_KEY")
}

func TestLoadGmailProvider(t *testing.T) {
	es := baseEnv()
	delete(es, "SENDGRID_API_KEY")
	es["MAIL_PROVIDER"] = "Gmail"

	_, err := LoadFromEnvSet(es)
	assert.ErrorContains(t, err, "GMAIL_CREDENTIALS_FILE")

	es["GMAIL_CREDENTIALS_FILE"] = "/etc/support/credentials.json"
	es["GMAIL_TOKEN_FILE"] = "/etc/support/token.json"
	cfg, err := LoadFromEnvSet(es)
	require.NoError(t, err)
	assert.Equal(t, MailProviderGmail, cfg.Mail.Provider)
}

func TestLoadUnknownMailProvider(t *testing.T) {
	es := baseEnv()
	es["MAIL_PROVIDER"] = "pigeon"
	_, err := LoadFromEnvSet(es)
	assert.Error(t, err)
}

func TestResolveAddr(t *testing.T) {
	cases := map[string]string{
		"":               ":8080",
		"9000":           ":9000",
		":9001":          ":9001",
		"127.0.0.1:9002": "127.0.0.1:9002",
	}
	for in, want := range cases {
		got, err := resolveAddr(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := resolveAddr("80 80")
	assert.Error(t, err)
}

func TestLoadOverrides(t *testing.T) {
	es := baseEnv()
	es["PORT"] = "3001"
	es["CORS_ALLOWED_ORIGINS"] = "http://localhost:3000, https://support.example.com"
	es["STREAM_BASE_URL"] = "https://stream.internal/"
	es["STREAM_TOKEN_TTL"] = "0s"
	es["CUSTOMER_ID_NONCE"] = "true"
	es["TRANSCRIPT_WATCH_ENABLED"] = "true"
	es["ARK_API_KEY"] = "ark"
	es["ARK_MODEL"] = "doubao"

	cfg, err := LoadFromEnvSet(es)
	require.NoError(t, err)

	assert.Equal(t, ":3001", cfg.Server.Addr)
	assert.Equal(t, []string{"http://localhost:3000", "https://support.example.com"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "https://stream.internal", cfg.Stream.BaseURL)
	assert.Zero(t, cfg.Stream.TokenTTL)
	assert.True(t, cfg.Stream.CustomerIDNonce)
	assert.True(t, cfg.Transcript.WatchEnabled)
	assert.True(t, cfg.AI.Enabled())
}

func TestLoadAINumbers(t *testing.T) {
	es := baseEnv()
	es["ARK_TEMPERATURE"] = "0.3"
	es["ARK_MAX_TOKENS"] = "512"

	cfg, err := LoadFromEnvSet(es)
	require.NoError(t, err)
	require.NotNil(t, cfg.AI.Temperature)
	require.NotNil(t, cfg.AI.MaxTokens)
	assert.InDelta(t, 0.3, *cfg.AI.Temperature, 1e-9)
	assert.Equal(t, 512, *cfg.AI.MaxTokens)
	assert.False(t, cfg.AI.Enabled())

	es["ARK_MAX_TOKENS"] = "lots"
	_, err = LoadFromEnvSet(es)
	assert.Error(t, err)
}
