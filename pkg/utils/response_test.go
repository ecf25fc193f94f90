package utils

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/support-desk/backend/internal/errs"
	"github.com/zhouzirui/support-desk/backend/internal/logging"
)

func TestRespondErrMapsKinds(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{errs.Validation("op", errors.New("firstName is required")), http.StatusBadRequest},
		{errs.Serialization("op", errors.New("bad json")), http.StatusBadRequest},
		{errs.Upstream("op", true, errors.New("bad key")), http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		rr := httptest.NewRecorder()
		RespondErr(rr, tc.err)

		assert.Equal(t, tc.code, rr.Code)
		var body map[string]string
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
		assert.Equal(t, tc.err.Error(), body["error"])
	}
}

func TestDecodeJSON(t *testing.T) {
	var v struct {
		FirstName string `json:"firstName"`
	}

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"firstName":"Jane","extra":1}`))
	require.NoError(t, DecodeJSON(httptest.NewRecorder(), req, &v))
	assert.Equal(t, "Jane", v.FirstName)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"firstName":`))
	assert.ErrorIs(t, DecodeJSON(httptest.NewRecorder(), req, &v), errs.ErrSerialization)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(``))
	err := DecodeJSON(httptest.NewRecorder(), req, &v)
	assert.ErrorIs(t, err, errs.ErrSerialization)
	assert.EqualError(t, err, "request body is required")
}

func TestRespondJSONLogsEncodeFailure(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(logging.New(&buf, "warn"))
	t.Cleanup(func() { SetLogger(nil) })

	rr := httptest.NewRecorder()
	RespondJSON(rr, http.StatusOK, map[string]any{"bad": make(chan int)})

	line := buf.String()
	assert.Contains(t, line, "failed to encode response")
	assert.Contains(t, line, `"subsystem":"http"`)
}
