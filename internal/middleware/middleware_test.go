package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apperrors "freelance/tracker/internal/errors"
)

type staticParser struct{}

func (staticParser) ParseToken(token string) (string, *apperrors.APIError) {
	if token != "good" {
		return "", apperrors.Unauthorized("invalid token")
	}
	return "user-1", nil
}

func newEngine() *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(RequestLogger(zap.NewNop()))
	engine.GET("/me", Auth(staticParser{}), func(c *gin.Context) {
		c.String(http.StatusOK, UserID(c))
	})
	return engine
}

func TestAuthHeaderFormats(t *testing.T) {
	engine := newEngine()
	cases := map[string]int{
		"":            http.StatusUnauthorized,
		"Basic good":  http.StatusUnauthorized,
		"Bearer ":     http.StatusUnauthorized,
		"Bearer bad":  http.StatusUnauthorized,
		"Bearer good": http.StatusOK,
		"bearer good": http.StatusOK,
	}
	for header, want := range cases {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		recorder := httptest.NewRecorder()
		engine.ServeHTTP(recorder, req)
		if recorder.Code != want {
			t.Fatalf("header %q: expected %d, got %d", header, want, recorder.Code)
		}
		if want == http.StatusOK && recorder.Body.String() != "user-1" {
			t.Fatalf("expected user id in context, got %q", recorder.Body.String())
		}
	}
}

func TestRequestIDIsEchoed(t *testing.T) {
	engine := newEngine()

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set(RequestIDHeader, "req-42")
	recorder := httptest.NewRecorder()
	engine.ServeHTTP(recorder, req)
	if got := recorder.Header().Get(RequestIDHeader); got != "req-42" {
		t.Fatalf("expected echoed request id, got %q", got)
	}

	recorder = httptest.NewRecorder()
	engine.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/me", nil))
	if recorder.Header().Get(RequestIDHeader) == "" {
		t.Fatal("expected generated request id")
	}
}
