package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestShouldSkipJWT(t *testing.T) {
	t.Parallel()

	cases := []struct {
		path string
		want bool
	}{
		{path: "/ping", want: true},
		{path: "/health", want: true},
		{path: "/webhook", want: true},
		{path: "/privacy", want: true},
		{path: "/auth/login", want: true},
		{path: "/auth/refresh", want: false},
		{path: "/conversations", want: false},
		{path: "/settings/temperature", want: false},
		{path: "/api/webhook", want: false},
	}

	for _, tc := range cases {
		got := shouldSkipJWT(tc.path)
		if got != tc.want {
			t.Fatalf("path=%q want=%v got=%v", tc.path, tc.want, got)
		}
	}
}

func TestRedactQuery(t *testing.T) {
	t.Parallel()

	if got := redactQuery("/webhook?hub.verify_token=secret&hub.challenge=1"); got != "/webhook" {
		t.Fatalf("unexpected redaction: %q", got)
	}
	if got := redactQuery("/ping"); got != "/ping" {
		t.Fatalf("unexpected redaction: %q", got)
	}
}

type routeHandler struct{}

func (routeHandler) Register(e *echo.Echo) {
	e.GET("/ping", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/conversations", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
}

func TestServerProtectsAdminRoutes(t *testing.T) {
	t.Parallel()

	srv := NewServer(nil, "", "secret", routeHandler{}, nil)

	cases := map[string]int{
		"/ping":          http.StatusOK,
		"/conversations": http.StatusUnauthorized,
	}
	for path, want := range cases {
		rec := httptest.NewRecorder()
		srv.Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != want {
			t.Fatalf("path=%q want=%d got=%d", path, want, rec.Code)
		}
	}
}
