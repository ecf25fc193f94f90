// Package capture keeps the client's view of a support channel and posts it
// to the export endpoint when the session ends.
package capture

import (
	"slices"
	"sync"
	"time"

	"github.com/zhouzirui/support-desk/backend/internal/model/transcript"
)

// History is the source a Trigger snapshots when it fires.
type History interface {
	Messages() []transcript.Message
	CreatedAt() time.Time
}

// Recorder is an in-memory, ordered channel history. Safe for concurrent use.
type Recorder struct {
	mu        sync.RWMutex
	messages  []transcript.Message
	createdAt time.Time
}

// NewRecorder starts an empty history. createdAt is the channel creation time
// and may be zero until the backend reports it.
func NewRecorder(createdAt time.Time) *Recorder {
	return &Recorder{createdAt: createdAt}
}

// Append records messages after the ones already held.
func (r *Recorder) Append(msgs ...transcript.Message) {
	r.mu.Lock()
	r.messages = append(r.messages, msgs...)
	r.mu.Unlock()
}

// Replace swaps in a full history, as returned by a channel query.
func (r *Recorder) Replace(msgs []transcript.Message) {
	r.mu.Lock()
	r.messages = slices.Clone(msgs)
	r.mu.Unlock()
}

// SetCreatedAt records the channel creation time. Zero values are ignored.
func (r *Recorder) SetCreatedAt(t time.Time) {
	if t.IsZero() {
		return
	}
	r.mu.Lock()
	r.createdAt = t
	r.mu.Unlock()
}

// Messages returns a copy of the history, oldest first.
func (r *Recorder) Messages() []transcript.Message {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.messages)
}

func (r *Recorder) CreatedAt() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.createdAt
}

// Len reports how many messages are held.
func (r *Recorder) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.messages)
}
