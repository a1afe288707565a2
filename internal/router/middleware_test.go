package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tms-next/internal/cache"
	handlershared "github.com/tms-next/internal/http/handlers/shared"
	"github.com/tms-next/internal/service"

	"github.com/gin-gonic/gin"
)

type stubValidator struct {
	claims   *service.JWTClaims
	parseErr error
	state    *cache.UserAuthState
	err      error
}

func (v *stubValidator) ParseJWT(string) (*service.JWTClaims, error) {
	return v.claims, v.parseErr
}

func (v *stubValidator) ValidateClaims(context.Context, *service.JWTClaims) (*cache.UserAuthState, error) {
	return v.state, v.err
}

func decodeStatusCode(t *testing.T, w *httptest.ResponseRecorder) int {
	t.Helper()
	var resp struct {
		StatusCode int `json:"status_code"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response failed: %v", err)
	}
	return resp.StatusCode
}

func TestResolveAllowedOrigin(t *testing.T) {
	if got := resolveAllowedOrigin("https://example.com", []string{"*"}, false); got != "*" {
		t.Fatalf("wildcard without credentials should return *, got %s", got)
	}
	if got := resolveAllowedOrigin("https://example.com", []string{"*"}, true); got != "https://example.com" {
		t.Fatalf("wildcard with credentials should echo origin, got %s", got)
	}
	if got := resolveAllowedOrigin("https://a.example.com", []string{"https://A.example.com"}, false); got != "https://a.example.com" {
		t.Fatalf("allow-list should match case-insensitively, got %s", got)
	}
	if got := resolveAllowedOrigin("https://x.example.com", []string{"https://a.example.com"}, false); got != "" {
		t.Fatalf("unmatched origin should be empty, got %s", got)
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"request_id": getRequestID(c)})
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(requestIDHeader, "req-123")
	r.ServeHTTP(w, req)
	if w.Header().Get(requestIDHeader) != "req-123" {
		t.Fatalf("response request id want req-123 got %s", w.Header().Get(requestIDHeader))
	}

	w2 := httptest.NewRecorder()
	r.ServeHTTP(w2, httptest.NewRequest(http.MethodGet, "/ping", nil))
	if w2.Header().Get(requestIDHeader) == "" {
		t.Fatalf("generated request id should not be empty")
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(RecoveryMiddleware(nil))
	r.GET("/boom", func(c *gin.Context) {
		panic("boom")
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	if got := decodeStatusCode(t, w); got != 500 {
		t.Fatalf("status_code want 500 got %d", got)
	}
}

func TestJWTAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name      string
		secret    string
		header    string
		validator *stubValidator
		want      int
	}{
		{name: "missing secret", secret: "", header: "Bearer x", validator: &stubValidator{}, want: 401},
		{name: "missing header", secret: "s", validator: &stubValidator{}, want: 401},
		{name: "bad scheme", secret: "s", header: "Token x", validator: &stubValidator{}, want: 401},
		{name: "invalid token", secret: "s", header: "Bearer x", validator: &stubValidator{parseErr: service.ErrInvalidToken}, want: 401},
		{
			name:   "disabled user",
			secret: "s", header: "Bearer x",
			validator: &stubValidator{claims: &service.JWTClaims{UserID: 1}, err: service.ErrUserDisabled},
			want:      401,
		},
		{
			name:   "valid",
			secret: "s", header: "Bearer x",
			validator: &stubValidator{
				claims: &service.JWTClaims{UserID: 7, Username: "ana"},
				state:  &cache.UserAuthState{UserID: 7, Role: "planner", IsActive: true},
			},
			want: 0,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := gin.New()
			r.Use(JWTAuthMiddleware(tc.secret, tc.validator))
			r.GET("/admin/ping", func(c *gin.Context) {
				userID, _ := c.Get(handlershared.ContextUserID)
				role, _ := c.Get(handlershared.ContextUserRole)
				c.JSON(http.StatusOK, gin.H{"status_code": 0, "user_id": userID, "role": role})
			})
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/admin/ping", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			r.ServeHTTP(w, req)
			if got := decodeStatusCode(t, w); got != tc.want {
				t.Fatalf("status_code want %d got %d (%s)", tc.want, got, w.Body.String())
			}
		})
	}
}
