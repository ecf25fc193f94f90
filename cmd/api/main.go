package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/joho/godotenv"

	"github.com/zhouzirui/support-desk/backend/internal/config"
	"github.com/zhouzirui/support-desk/backend/internal/handler"
	"github.com/zhouzirui/support-desk/backend/internal/handler/watch"
	"github.com/zhouzirui/support-desk/backend/internal/logging"
	"github.com/zhouzirui/support-desk/backend/internal/service/mail"
	"github.com/zhouzirui/support-desk/backend/internal/service/messaging"
	"github.com/zhouzirui/support-desk/backend/internal/service/session"
	"github.com/zhouzirui/support-desk/backend/internal/service/summary"
	"github.com/zhouzirui/support-desk/backend/internal/service/transcript"
	"github.com/zhouzirui/support-desk/backend/pkg/utils"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	boot := logging.New(nil, "info")

	// Load .env file
	if err := godotenv.Load(); err != nil {
		boot.Warn().Err(err).Msg("failed to load .env file, continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		boot.Fatal().Err(err).Msg("failed to load configuration")
	}

	log := logging.NewFromFormat(cfg.Log.Format, cfg.Log.Level)
	utils.SetLogger(log)

	// Messaging backend
	stream, err := messaging.New(messaging.Config{
		APIKey:    cfg.Stream.APIKey,
		APISecret: cfg.Stream.APISecret,
		BaseURL:   cfg.Stream.BaseURL,
		Timeout:   cfg.Stream.Timeout,
		TokenTTL:  cfg.Stream.TokenTTL,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create messaging client")
	}

	sessions := session.NewService(stream, session.Options{
		APIKey:          cfg.Stream.APIKey,
		ChannelType:     cfg.Stream.ChannelType,
		CustomerIDNonce: cfg.Stream.CustomerIDNonce,
	}, log)

	mailer, err := newMailer(ctx, cfg.Mail)
	if err != nil {
		log.Fatal().Err(err).Str("provider", cfg.Mail.Provider).Msg("failed to initialize mail provider")
	}
	log.Info().Str("provider", cfg.Mail.Provider).Str("to", cfg.Mail.SupportMailbox).Msg("mail provider ready")

	// 摘要服务：未配置 Ark 时只输出统计信息
	var chatModel model.ChatModel
	if cfg.AI.Enabled() {
		chatModel, err = cfg.AI.NewChatModel(ctx)
		if err != nil {
			log.Warn().Err(err).Msg("failed to initialize chat model, transcript summaries will contain stats only")
			chatModel = nil
		}
	} else {
		log.Info().Msg("Ark 凭证未配置，摘要仅包含统计信息")
	}
	summarizer, err := summary.NewService(ctx, chatModel, summary.Config{Timeout: cfg.Transcript.SummaryTimeout}, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize summary service")
	}

	exporter := transcript.NewExporter(mailer, summarizer, transcript.Options{
		To:          cfg.Mail.SupportMailbox,
		From:        cfg.Mail.From,
		SendTimeout: cfg.Mail.SendTimeout,
	}, log)

	var watcher *watch.Handler
	if cfg.Transcript.WatchEnabled {
		watcher = watch.New(stream, exporter, watch.Options{
			ChannelType:   cfg.Stream.ChannelType,
			HistoryLimit:  cfg.Transcript.HistoryLimit,
			ExportTimeout: cfg.Mail.SendTimeout + cfg.Stream.Timeout + cfg.Transcript.SummaryTimeout,
		}, log)
		log.Info().Msg("server-side session watch enabled")
	}

	router := handler.NewRouter(handler.Dependencies{
		Sessions:       sessions,
		Exporter:       exporter,
		Watch:          watcher,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Log:            log,
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Info().Str("addr", cfg.Server.Addr).Msg("support desk backend listening")
	if err := runServer(ctx, srv, cfg.Server.ShutdownTimeout); err != nil {
		log.Error().Err(err).Msg("server error")
	}

	// 等待尚未完成的邮件发送
	exporter.Wait()
	log.Info().Msg("shutdown complete")
}

func newMailer(ctx context.Context, cfg config.MailConfig) (transcript.Mailer, error) {
	switch cfg.Provider {
	case config.MailProviderSendGrid:
		return mail.NewSendGrid(cfg.SendGridAPIKey, cfg.SendGridBaseURL)
	case config.MailProviderGmail:
		return mail.NewGmail(ctx, cfg.GmailCredentialsFile, cfg.GmailTokenFile)
	default:
		return nil, fmt.Errorf("unsupported mail provider %q", cfg.Provider)
	}
}

func runServer(ctx context.Context, srv *http.Server, shutdownTimeout time.Duration) error {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
