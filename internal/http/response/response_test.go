package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestErrorCarriesRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Set("request_id", "req-9")

	Error(c, CodeConflict, "conflito")

	var resp struct {
		StatusCode int               `json:"status_code"`
		Msg        string            `json:"msg"`
		Data       map[string]string `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if resp.StatusCode != CodeConflict || resp.Msg != "conflito" || resp.Data["request_id"] != "req-9" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestAttachment(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	Attachment(c, "carga-LP 1.xlsx", "application/octet-stream", []byte("xlsx"))

	if got := w.Header().Get("Content-Disposition"); got != "attachment; filename*=UTF-8''carga-LP%201.xlsx" {
		t.Fatalf("unexpected disposition: %s", got)
	}
	if w.Body.String() != "xlsx" {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}
}

func TestAppErrorChain(t *testing.T) {
	cause := errors.New("db down")
	err := fmt.Errorf("load: %w", NewAppError(CodeUnavailable, "error.queue_unavailable", "fila", cause))
	appErr, ok := AsAppError(err)
	if !ok || !errors.Is(err, cause) || !appErr.ServerSide() {
		t.Fatalf("unexpected app error: %+v ok=%v", appErr, ok)
	}
	if appErr.Error() != "fila: db down" {
		t.Fatalf("unexpected message: %s", appErr.Error())
	}
	if NewAppError(CodeConflict, "error.key", "", nil).Error() != "error.key" || NewAppError(CodeConflict, "", "", nil).ServerSide() {
		t.Fatalf("client errors should fall back to key and stay client side")
	}
}

func TestErrorFromUnknownError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	ErrorFrom(c, errors.New("boom"), "erro interno")

	var resp Response
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if resp.StatusCode != CodeInternal || resp.Msg != "erro interno" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}
