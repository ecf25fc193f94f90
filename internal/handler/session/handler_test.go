package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/support-desk/backend/internal/errs"
	"github.com/zhouzirui/support-desk/backend/internal/model/identity"
	sessionModel "github.com/zhouzirui/support-desk/backend/internal/model/session"
	"github.com/zhouzirui/support-desk/backend/internal/service/messaging"
	sessionService "github.com/zhouzirui/support-desk/backend/internal/service/session"
)

type fakeBootstrapper struct {
	calls int
	err   error
}

func (f *fakeBootstrapper) Bootstrap(_ context.Context, first, last string) (sessionModel.Descriptor, error) {
	f.calls++
	if f.err != nil {
		return sessionModel.Descriptor{}, f.err
	}
	id, err := identity.DeriveCustomer(first, last)
	if err != nil {
		return sessionModel.Descriptor{}, err
	}
	return sessionModel.Descriptor{
		CustomerID:    id.ID,
		CustomerToken: "token-" + id.ID,
		ChannelID:     "c0ffee",
		APIKey:        "key",
	}, nil
}

func setupRouter(svc Bootstrapper) *chi.Mux {
	r := chi.NewRouter()
	New(svc, nil).RegisterRoutes(r)
	return r
}

func post(r http.Handler, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/customer-login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestCustomerLoginSuccess(t *testing.T) {
	svc := &fakeBootstrapper{}
	resp := post(setupRouter(svc), []byte(`{"firstName":"Jane Doe","lastName":"Smith"}`))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var got map[string]string
	if err := json.Unmarshal(resp.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got["customerId"] != "jane_doe-smith" {
		t.Fatalf("unexpected customerId %q", got["customerId"])
	}
	for _, key := range []string{"customerToken", "channelId", "streamApiKey"} {
		if got[key] == "" {
			t.Fatalf("missing %s in %v", key, got)
		}
	}
}

func TestCustomerLoginMalformedBody(t *testing.T) {
	svc := &fakeBootstrapper{}
	resp := post(setupRouter(svc), []byte(`{"firstName":`))

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
	if svc.calls != 0 {
		t.Fatalf("bootstrap must not run on malformed body")
	}
}

func TestCustomerLoginMissingNames(t *testing.T) {
	resp := post(setupRouter(&fakeBootstrapper{}), []byte(`{"firstName":"   "}`))

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
	var got map[string]string
	_ = json.Unmarshal(resp.Body.Bytes(), &got)
	if got["error"] == "" {
		t.Fatalf("expected error message, got %s", resp.Body.String())
	}
}

func TestCustomerLoginUpstreamFailure(t *testing.T) {
	svc := &fakeBootstrapper{err: errs.Upstream("upsert users", true, errors.New(`UpsertUsers failed with error: "api_key not valid"`))}
	resp := post(setupRouter(svc), []byte(`{"firstName":"Jane","lastName":"Smith"}`))

	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.Code)
	}
	var got map[string]string
	_ = json.Unmarshal(resp.Body.Bytes(), &got)
	if got["error"] != `UpsertUsers failed with error: "api_key not valid"` {
		t.Fatalf("unexpected error body %q", got["error"])
	}
}

// A backend that answers 2xx with a body that is not JSON is still a
// backend failure, not a bad request.
func TestCustomerLoginUndecodableBackendReply(t *testing.T) {
	stream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/query") {
			w.Header().Set("Content-Type", "text/html")
			w.WriteHeader(http.StatusCreated)
			_, _ = io.WriteString(w, `<html>gateway</html>`)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"users":{},"duration":"1ms"}`)
	}))
	defer stream.Close()

	client, err := messaging.New(messaging.Config{APIKey: "key", APISecret: "secret", BaseURL: stream.URL})
	if err != nil {
		t.Fatalf("messaging client: %v", err)
	}
	svc := sessionService.NewService(client, sessionService.Options{APIKey: client.APIKey()}, nil)

	resp := post(setupRouter(svc), []byte(`{"firstName":"Jane","lastName":"Smith"}`))

	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d: %s", resp.Code, resp.Body.String())
	}
	var got map[string]string
	_ = json.Unmarshal(resp.Body.Bytes(), &got)
	if !strings.Contains(got["error"], "CreateChannel") {
		t.Fatalf("unexpected error body %q", got["error"])
	}
}
