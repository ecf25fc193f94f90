package capture

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/zhouzirui/support-desk/backend/internal/logging"
	"github.com/zhouzirui/support-desk/backend/internal/model/transcript"
)

// Profile 是客户在登录时填写的信息
type Profile struct {
	FirstName string
	LastName  string
	Email     string
}

// Option customizes a Trigger.
type Option func(*Trigger)

// WithHTTPClient sets the client used for the export POST.
func WithHTTPClient(hc *http.Client) Option {
	return func(t *Trigger) { t.http = hc }
}

// WithLogger sets where the outcome is logged.
func WithLogger(log *logging.Logger) Option {
	return func(t *Trigger) { t.log = log }
}

// WithTimeout bounds the export POST.
func WithTimeout(d time.Duration) Option {
	return func(t *Trigger) { t.timeout = d }
}

// Trigger posts the transcript to the export endpoint at most once.
//
// Delivery is best effort. Fire never blocks and there is no retry: if the
// process exits before Done is closed the transcript may be lost. Callers
// that can afford it wait on Done for a bounded grace period.
type Trigger struct {
	endpoint string
	profile  Profile
	history  History
	http     *http.Client
	log      *logging.Logger
	timeout  time.Duration

	once sync.Once
	done chan struct{}
	err  error
}

// NewTrigger builds a trigger posting to endpoint, e.g.
// http://localhost:8080/email-transcript.
func NewTrigger(endpoint string, profile Profile, history History, opts ...Option) *Trigger {
	t := &Trigger{
		endpoint: strings.TrimSpace(endpoint),
		profile:  profile,
		history:  history,
		timeout:  15 * time.Second,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.http == nil {
		t.http = &http.Client{}
	}
	if t.log == nil {
		t.log = logging.Nop()
	}
	t.log = t.log.Sub("capture")
	return t
}

// Fire snapshots the history and starts the export in the background. Only
// the first call has any effect.
func (t *Trigger) Fire() {
	t.once.Do(func() {
		req := t.snapshot()
		go t.send(req)
	})
}

// Done is closed once the export POST has finished, successfully or not.
func (t *Trigger) Done() <-chan struct{} {
	return t.done
}

// Err reports the outcome of the export. It is only meaningful after Done is
// closed.
func (t *Trigger) Err() error {
	select {
	case <-t.done:
		return t.err
	default:
		return nil
	}
}

// FireOnDone fires t when ctx is cancelled, typically by a signal handler or
// the end of input.
func FireOnDone(ctx context.Context, t *Trigger) {
	go func() {
		<-ctx.Done()
		t.Fire()
	}()
}

// wireMessage drops everything but the fields the export endpoint reads.
type wireMessage struct {
	User struct {
		ID string `json:"id"`
	} `json:"user"`
	Text string `json:"text"`
}

type exportPayload struct {
	Messages  []wireMessage `json:"messages"`
	FirstName string        `json:"firstName"`
	LastName  string        `json:"lastName"`
	Email     string        `json:"email"`
	CreatedAt string        `json:"createdAt"`
}

func (t *Trigger) snapshot() exportPayload {
	createdAt := t.history.CreatedAt()
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	return exportPayload{
		Messages: lo.Map(t.history.Messages(), func(m transcript.Message, _ int) wireMessage {
			var w wireMessage
			w.User.ID = m.User.ID
			w.Text = m.Text
			return w
		}),
		FirstName: t.profile.FirstName,
		LastName:  t.profile.LastName,
		Email:     t.profile.Email,
		CreatedAt: createdAt.UTC().Format(time.RFC3339),
	}
}

func (t *Trigger) send(payload exportPayload) {
	defer close(t.done)

	t.err = t.post(payload)
	if t.err != nil {
		t.log.Warn().Err(t.err).Int("messages", len(payload.Messages)).Msg("transcript export failed")
		return
	}
	t.log.Info().Int("messages", len(payload.Messages)).Msg("transcript export accepted")
}

func (t *Trigger) post(payload exportPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode transcript: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), t.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build export request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.http.Do(req)
	if err != nil {
		return fmt.Errorf("post transcript: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	var apiErr struct {
		Error string `json:"error"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error != "" {
		return fmt.Errorf("export rejected: %d %s", resp.StatusCode, apiErr.Error)
	}
	return fmt.Errorf("export rejected: %d %s", resp.StatusCode, strings.TrimSpace(string(raw)))
}
