package transcript

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/zhouzirui/support-desk/backend/internal/errs"
	"github.com/zhouzirui/support-desk/backend/internal/logging"
	model "github.com/zhouzirui/support-desk/backend/internal/model/transcript"
	"github.com/zhouzirui/support-desk/backend/internal/service/mail"
	"github.com/zhouzirui/support-desk/backend/internal/service/summary"
)

//go:generate mockgen -source=exporter.go -destination=../../mocks/mock_exporter.go -package=mocks

// Mailer delivers a rendered notification.
type Mailer interface {
	Send(ctx context.Context, msg mail.Message) error
}

// Summarizer produces the optional summary section. It must not fail.
type Summarizer interface {
	Summarize(ctx context.Context, req model.Request) summary.Summary
}

// Options 配置通知的收发地址与发送超时。
type Options struct {
	To          string
	From        string
	SendTimeout time.Duration
}

// Exporter turns a captured transcript into a notification and hands it to
// the mailer.
type Exporter struct {
	mailer     Mailer
	summarizer Summarizer
	opts       Options
	validate   *validator.Validate
	log        *logging.Logger
	inflight   sync.WaitGroup
}

// NewExporter wires an exporter. summarizer may be nil.
func NewExporter(mailer Mailer, summarizer Summarizer, opts Options, log *logging.Logger) *Exporter {
	if opts.SendTimeout <= 0 {
		opts.SendTimeout = 15 * time.Second
	}
	if log == nil {
		log = logging.Nop()
	}

	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})

	return &Exporter{
		mailer:     mailer,
		summarizer: summarizer,
		opts:       opts,
		validate:   v,
		log:        log.Sub("transcript"),
	}
}

// Export validates and renders req, then sends it and waits for the provider.
// The send itself is detached from ctx: if the caller goes away the message is
// still delivered (or fails) in the background and Export returns ctx.Err().
func (e *Exporter) Export(ctx context.Context, req model.Request) (*model.Document, error) {
	if err := e.check(req); err != nil {
		return nil, err
	}

	detached := context.WithoutCancel(ctx)

	var sum summary.Summary
	if e.summarizer != nil {
		sum = e.summarizer.Summarize(detached, req)
	}

	html, text, items, err := render(req, sum)
	if err != nil {
		return nil, err
	}
	doc := &model.Document{
		To:      e.opts.To,
		From:    e.opts.From,
		Subject: Subject,
		HTML:    html,
		Text:    text,
		Entries: items,
	}

	done := e.dispatch(detached, doc, req.Email)
	select {
	case err := <-done:
		return doc, err
	case <-ctx.Done():
		e.log.Warn().Str("customer", req.Email).Msg("caller left before transcript dispatch finished")
		return doc, ctx.Err()
	}
}

// Wait blocks until every dispatch started by Export has finished.
func (e *Exporter) Wait() {
	e.inflight.Wait()
}

func (e *Exporter) dispatch(ctx context.Context, doc *model.Document, customer string) <-chan error {
	done := make(chan error, 1)
	e.inflight.Add(1)
	go func() {
		defer e.inflight.Done()

		sendCtx, cancel := context.WithTimeout(ctx, e.opts.SendTimeout)
		defer cancel()

		start := time.Now()
		err := e.mailer.Send(sendCtx, mail.Message{
			To:      doc.To,
			From:    doc.From,
			Subject: doc.Subject,
			HTML:    doc.HTML,
			Text:    doc.Text,
		})
		if err != nil {
			e.log.Error().Err(err).Str("customer", customer).Int("entries", len(doc.Entries)).Msg("transcript dispatch failed")
		} else {
			e.log.Info().Str("customer", customer).Int("entries", len(doc.Entries)).Dur("took", time.Since(start)).Msg("transcript sent")
		}
		done <- err
	}()
	return done
}

func (e *Exporter) check(req model.Request) error {
	err := e.validate.Struct(req)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return errs.Validation("export transcript", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return errs.Validation("export transcript", errors.New(strings.Join(msgs, "; ")))
}

func fieldMessage(fe validator.FieldError) string {
	// messages[2].user.id
	field := strings.TrimPrefix(fe.Namespace(), "Request.")
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email address"
	default:
		return fmt.Sprintf("%s failed %s", field, fe.Tag())
	}
}
