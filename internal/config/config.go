package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	env "github.com/Netflix/go-env"
	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
)

const (
	MailProviderSendGrid = "sendgrid"
	MailProviderGmail    = "gmail"
)

// Config 聚合整个服务的配置项。
type Config struct {
	Server     ServerConfig
	Stream     StreamConfig
	Mail       MailConfig
	Transcript TranscriptConfig
	AI         AIConfig
	Log        LogConfig
}

// Load 从环境变量加载配置。
func Load() (*Config, error) {
	es, err := env.EnvironToEnvSet(os.Environ())
	if err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}
	return LoadFromEnvSet(es)
}

// LoadFromEnvSet builds the configuration from an explicit variable set.
func LoadFromEnvSet(es env.EnvSet) (*Config, error) {
	server, err := loadServerConfig(es)
	if err != nil {
		return nil, err
	}

	stream, err := loadStreamConfig(es)
	if err != nil {
		return nil, err
	}

	mail, err := loadMailConfig(es)
	if err != nil {
		return nil, err
	}

	var transcript TranscriptConfig
	if err := env.Unmarshal(es, &transcript); err != nil {
		return nil, fmt.Errorf("transcript config: %w", err)
	}
	if transcript.HistoryLimit < 1 {
		transcript.HistoryLimit = 1
	}

	ai, err := loadAIConfig(es)
	if err != nil {
		return nil, err
	}

	var logCfg LogConfig
	if err := env.Unmarshal(es, &logCfg); err != nil {
		return nil, fmt.Errorf("log config: %w", err)
	}

	return &Config{
		Server:     server,
		Stream:     stream,
		Mail:       mail,
		Transcript: transcript,
		AI:         ai,
		Log:        logCfg,
	}, nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Addr            string
	AllowedOrigins  []string
	ShutdownTimeout time.Duration
}

type serverEnv struct {
	Port            string        `env:"PORT,default=8080"`
	AllowedOrigins  string        `env:"CORS_ALLOWED_ORIGINS,default=*"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT,default=10s"`
}

// loadServerConfig 解析服务器监听地址。
func loadServerConfig(es env.EnvSet) (ServerConfig, error) {
	var raw serverEnv
	if err := env.Unmarshal(es, &raw); err != nil {
		return ServerConfig{}, fmt.Errorf("server config: %w", err)
	}

	addr, err := resolveAddr(raw.Port)
	if err != nil {
		return ServerConfig{}, err
	}

	return ServerConfig{
		Addr:            addr,
		AllowedOrigins:  splitList(raw.AllowedOrigins),
		ShutdownTimeout: raw.ShutdownTimeout,
	}, nil
}

func resolveAddr(port string) (string, error) {
	port = strings.TrimSpace(port)
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":8080" 或 "127.0.0.1:8080"。
		return port, nil
	}

	if strings.Contains(port, " ") {
		return "", fmt.Errorf("invalid PORT value: %q", port)
	}

	return ":" + port, nil
}

// StreamConfig 描述消息后端 (Stream Chat) 的凭证与参数。
type StreamConfig struct {
	APIKey          string        `env:"STREAM_API_KEY,required=true"`
	APISecret       string        `env:"STREAM_API_SECRET,required=true"`
	BaseURL         string        `env:"STREAM_BASE_URL,default=https://chat.stream-io-api.com"`
	ChannelType     string        `env:"STREAM_CHANNEL_TYPE,default=messaging"`
	TokenTTL        time.Duration `env:"STREAM_TOKEN_TTL,default=24h"`
	Timeout         time.Duration `env:"STREAM_TIMEOUT,default=10s"`
	CustomerIDNonce bool          `env:"CUSTOMER_ID_NONCE,default=false"`
}

func loadStreamConfig(es env.EnvSet) (StreamConfig, error) {
	var cfg StreamConfig
	if err := env.Unmarshal(es, &cfg); err != nil {
		return StreamConfig{}, fmt.Errorf("stream config: %w", err)
	}

	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.APISecret = strings.TrimSpace(cfg.APISecret)
	if cfg.APIKey == "" || cfg.APISecret == "" {
		return StreamConfig{}, errors.New("stream config: STREAM_API_KEY and STREAM_API_SECRET must be set")
	}
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.TokenTTL < 0 {
		return StreamConfig{}, fmt.Errorf("invalid STREAM_TOKEN_TTL value %s", cfg.TokenTTL)
	}
	return cfg, nil
}

// MailConfig 描述邮件发送配置。收件地址和发件地址由运维方在启动时确定，不接受请求参数覆盖。
type MailConfig struct {
	Provider             string        `env:"MAIL_PROVIDER,default=sendgrid"`
	SendGridAPIKey       string        `env:"SENDGRID_API_KEY"`
	SendGridBaseURL      string        `env:"SENDGRID_BASE_URL,default=https://api.sendgrid.com"`
	GmailCredentialsFile string        `env:"GMAIL_CREDENTIALS_FILE"`
	GmailTokenFile       string        `env:"GMAIL_TOKEN_FILE"`
	SupportMailbox       string        `env:"SUPPORT_MAILBOX,default=recipient@example.com"`
	From                 string        `env:"MAIL_FROM,default=yourSendGridVerifiedEmail@example.com"`
	SendTimeout          time.Duration `env:"MAIL_SEND_TIMEOUT,default=15s"`
}

func loadMailConfig(es env.EnvSet) (MailConfig, error) {
	var cfg MailConfig
	if err := env.Unmarshal(es, &cfg); err != nil {
		return MailConfig{}, fmt.Errorf("mail config: %w", err)
	}

	cfg.Provider = strings.ToLower(strings.TrimSpace(cfg.Provider))
	cfg.SendGridAPIKey = strings.TrimSpace(cfg.SendGridAPIKey)
	cfg.SendGridBaseURL = strings.TrimRight(strings.TrimSpace(cfg.SendGridBaseURL), "/")

	switch cfg.Provider {
	case MailProviderSendGrid:
		if cfg.SendGridAPIKey == "" {
			return MailConfig{}, errors.New("mail config: SENDGRID_API_KEY must be set")
		}
	case MailProviderGmail:
		if strings.TrimSpace(cfg.GmailCredentialsFile) == "" || strings.TrimSpace(cfg.GmailTokenFile) == "" {
			return MailConfig{}, errors.New("mail config: GMAIL_CREDENTIALS_FILE and GMAIL_TOKEN_FILE must be set")
		}
	default:
		return MailConfig{}, fmt.Errorf("invalid MAIL_PROVIDER value %q", cfg.Provider)
	}

	if cfg.SendTimeout <= 0 {
		return MailConfig{}, fmt.Errorf("invalid MAIL_SEND_TIMEOUT value %s", cfg.SendTimeout)
	}
	return cfg, nil
}

// TranscriptConfig 控制聊天记录导出的附加行为。
type TranscriptConfig struct {
	WatchEnabled   bool          `env:"TRANSCRIPT_WATCH_ENABLED,default=false"`
	HistoryLimit   int           `env:"TRANSCRIPT_HISTORY_LIMIT,default=300"`
	SummaryTimeout time.Duration `env:"TRANSCRIPT_SUMMARY_TIMEOUT,default=8s"`
}

// LogConfig 描述日志输出。
type LogConfig struct {
	Level  string `env:"LOG_LEVEL,default=info"`
	Format string `env:"LOG_FORMAT,default=console"`
}

// AIConfig 描述大模型相关配置，用于生成聊天摘要。
type AIConfig struct {
	APIKey      string
	AccessKey   string
	SecretKey   string
	Model       string
	BaseURL     string
	Region      string
	Temperature *float64
	MaxTokens   *int
}

type aiEnv struct {
	APIKey      string `env:"ARK_API_KEY"`
	AccessKey   string `env:"ARK_ACCESS_KEY"`
	SecretKey   string `env:"ARK_SECRET_KEY"`
	Model       string `env:"ARK_MODEL"`
	BaseURL     string `env:"ARK_BASE_URL,default=https://ark.cn-beijing.volces.com/api/v3"`
	Region      string `env:"ARK_REGION,default=cn-beijing"`
	Temperature string `env:"ARK_TEMPERATURE"`
	MaxTokens   string `env:"ARK_MAX_TOKENS"`
}

func loadAIConfig(es env.EnvSet) (AIConfig, error) {
	var raw aiEnv
	if err := env.Unmarshal(es, &raw); err != nil {
		return AIConfig{}, fmt.Errorf("ai config: %w", err)
	}

	cfg := AIConfig{
		APIKey:    strings.TrimSpace(raw.APIKey),
		AccessKey: strings.TrimSpace(raw.AccessKey),
		SecretKey: strings.TrimSpace(raw.SecretKey),
		Model:     strings.TrimSpace(raw.Model),
		BaseURL:   strings.TrimSpace(raw.BaseURL),
		Region:    strings.TrimSpace(raw.Region),
	}

	if v := strings.TrimSpace(raw.Temperature); v != "" {
		t, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return AIConfig{}, fmt.Errorf("invalid ARK_TEMPERATURE value %q: %w", v, err)
		}
		cfg.Temperature = &t
	}
	if v := strings.TrimSpace(raw.MaxTokens); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return AIConfig{}, fmt.Errorf("invalid ARK_MAX_TOKENS value %q", v)
		}
		cfg.MaxTokens = &n
	}
	return cfg, nil
}

// Enabled 表示是否提供了必需的密钥。
func (c AIConfig) Enabled() bool {
	return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
}

// NewChatModel 使用配置创建一个模型实例。
func (c AIConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("Ark 凭证或模型配置缺失，至少提供 ARK_API_KEY + ARK_MODEL 或 AK/SK 组合")
	}

	var temperature *float32
	if c.Temperature != nil {
		val := float32(*c.Temperature)
		temperature = &val
	}

	cfg := &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      c.APIKey,
		AccessKey:   c.AccessKey,
		SecretKey:   c.SecretKey,
		Model:       c.Model,
		MaxTokens:   c.MaxTokens,
		Temperature: temperature,
	}

	return ark.NewChatModel(ctx, cfg)
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
