package capture

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/support-desk/backend/internal/model/transcript"
)

func msg(sender, text string) transcript.Message {
	return transcript.Message{User: transcript.Sender{ID: sender}, Text: text}
}

var profile = Profile{FirstName: "Jane", LastName: "Smith", Email: "jane@example.com"}

func waitDone(t *testing.T, trig *Trigger) {
	t.Helper()
	select {
	case <-trig.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("trigger did not finish")
	}
}

func TestRecorderKeepsOrder(t *testing.T) {
	r := NewRecorder(time.Time{})
	r.Append(msg("jane-smith", "Hi"))
	r.Append(msg("admin-id", "Hello"), msg("jane-smith", "Hi"))

	assert.Equal(t, 3, r.Len())
	assert.Equal(t, []transcript.Message{
		msg("jane-smith", "Hi"),
		msg("admin-id", "Hello"),
		msg("jane-smith", "Hi"),
	}, r.Messages())

	// callers get a copy
	got := r.Messages()
	got[0].Text = "changed"
	assert.Equal(t, "Hi", r.Messages()[0].Text)

	r.Replace([]transcript.Message{msg("admin-id", "only")})
	assert.Equal(t, []transcript.Message{msg("admin-id", "only")}, r.Messages())
}

func TestRecorderCreatedAt(t *testing.T) {
	r := NewRecorder(time.Time{})
	assert.True(t, r.CreatedAt().IsZero())

	created := time.Date(2026, 10, 14, 9, 30, 0, 0, time.UTC)
	r.SetCreatedAt(created)
	r.SetCreatedAt(time.Time{})
	assert.Equal(t, created, r.CreatedAt())
}

func TestRecorderConcurrentAppend(t *testing.T) {
	r := NewRecorder(time.Time{})
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Append(msg("jane-smith", "Hi"))
		}()
	}
	wg.Wait()
	assert.Equal(t, 20, r.Len())
}

func TestTriggerFiresOnce(t *testing.T) {
	var hits atomic.Int32
	payloads := make(chan exportPayload, 3)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var p exportPayload
		_ = json.NewDecoder(r.Body).Decode(&p)
		payloads <- p
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	rec := NewRecorder(time.Date(2026, 10, 14, 9, 30, 0, 0, time.UTC))
	rec.Append(msg("jane-smith", "Hi"), msg("admin-id", "Hello"))

	trig := NewTrigger(srv.URL+"/email-transcript", profile, rec)
	trig.Fire()
	trig.Fire()
	waitDone(t, trig)
	trig.Fire()

	require.NoError(t, trig.Err())
	assert.Equal(t, int32(1), hits.Load())
	got := <-payloads
	assert.Equal(t, "Jane", got.FirstName)
	assert.Equal(t, "Smith", got.LastName)
	assert.Equal(t, "jane@example.com", got.Email)
	assert.Equal(t, "2026-10-14T09:30:00Z", got.CreatedAt)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "admin-id", got.Messages[1].User.ID)
	assert.Equal(t, "Hello", got.Messages[1].Text)
}

func TestTriggerSnapshotsAtFire(t *testing.T) {
	release := make(chan struct{})
	payloads := make(chan exportPayload, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		var p exportPayload
		_ = json.NewDecoder(r.Body).Decode(&p)
		payloads <- p
	}))
	defer srv.Close()

	rec := NewRecorder(time.Time{})
	rec.Append(msg("jane-smith", "Hi"))

	trig := NewTrigger(srv.URL, profile, rec)
	trig.Fire()
	rec.Append(msg("jane-smith", "late"))
	close(release)
	waitDone(t, trig)

	got := <-payloads
	assert.Len(t, got.Messages, 1)
}

func TestTriggerDoesNotBlock(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	trig := NewTrigger(srv.URL, profile, NewRecorder(time.Time{}))

	start := time.Now()
	trig.Fire()
	assert.Less(t, time.Since(start), 100*time.Millisecond)

	select {
	case <-trig.Done():
		t.Fatal("done closed before the request finished")
	default:
	}
}

func TestTriggerReportsRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"email must be a valid email address"}`))
	}))
	defer srv.Close()

	trig := NewTrigger(srv.URL, profile, NewRecorder(time.Time{}))
	trig.Fire()
	waitDone(t, trig)

	require.Error(t, trig.Err())
	assert.Contains(t, trig.Err().Error(), "400 email must be a valid email address")
}

func TestTriggerTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	trig := NewTrigger(srv.URL, profile, NewRecorder(time.Time{}), WithTimeout(30*time.Millisecond))
	trig.Fire()
	waitDone(t, trig)
	assert.Error(t, trig.Err())
}

func TestFireOnDone(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	trig := NewTrigger(srv.URL, profile, NewRecorder(time.Time{}))
	ctx, cancel := context.WithCancel(context.Background())
	FireOnDone(ctx, trig)

	assert.Nil(t, trig.Err())
	cancel()
	waitDone(t, trig)
	assert.Equal(t, int32(1), hits.Load())
}
