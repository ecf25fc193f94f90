package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"

	"github.com/zhouzirui/support-desk/backend/internal/errs"
	"github.com/zhouzirui/support-desk/backend/internal/logging"
)

// maxBodyBytes 限制请求体大小，transcript 附带完整聊天记录
const maxBodyBytes = 4 << 20

var logger atomic.Pointer[logging.Logger]

func init() {
	logger.Store(logging.Nop())
}

// SetLogger 设置响应编码失败时使用的日志
func SetLogger(l *logging.Logger) {
	if l == nil {
		l = logging.Nop()
	}
	logger.Store(l.Sub("http"))
}

// RespondJSON 发送JSON响应
func RespondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Load().Warn().Err(err).Msg("failed to encode response")
	}
}

// RespondError 发送错误响应
func RespondError(w http.ResponseWriter, status int, message string) {
	RespondJSON(w, status, map[string]string{"error": message})
}

// RespondErr 根据错误分类选择状态码
func RespondErr(w http.ResponseWriter, err error) {
	RespondError(w, errs.HTTPStatus(err), err.Error())
}

// DecodeJSON reads a JSON body into v. Unknown fields are ignored.
func DecodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errs.Serialization("decode body", errors.New("request body is required"))
		}
		return errs.Serialization("decode body", fmt.Errorf("invalid request body: %w", err))
	}
	return nil
}
