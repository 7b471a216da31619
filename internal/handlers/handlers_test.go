package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memohai/mbot/internal/config"
	"github.com/memohai/mbot/internal/conversation"
	"github.com/memohai/mbot/internal/settings"
)

type testValidator struct {
	v *validator.Validate
}

func (tv testValidator) Validate(i any) error {
	if err := tv.v.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

func newTestEcho(handlers ...interface{ Register(*echo.Echo) }) *echo.Echo {
	e := echo.New()
	e.Validator = testValidator{v: validator.New()}
	for _, h := range handlers {
		h.Register(e)
	}
	return e
}

func serve(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestPingAndPrivacy(t *testing.T) {
	t.Parallel()

	e := newTestEcho(NewPingHandler(nil, "test"), NewPrivacyHandler())

	rec := serve(e, http.MethodGet, "/ping", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)

	assert.Equal(t, http.StatusOK, serve(e, http.MethodHead, "/health", "").Code)

	rec = serve(e, http.MethodGet, "/privacy", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get(echo.HeaderContentType), "text/html")
	for _, section := range []string{"Privacy Policy", "Information We Collect", "How We Use Information", "Data Sharing", "Data Security"} {
		assert.Contains(t, rec.Body.String(), section)
	}
}

func TestAuthLogin(t *testing.T) {
	t.Parallel()

	cfg := config.Defaults()
	cfg.Admin.Username = "admin"
	cfg.Admin.Password = "s3cret"
	cfg.Auth.JWTSecret = "jwt-secret"
	h, err := NewAuthHandler(nil, cfg)
	require.NoError(t, err)
	e := newTestEcho(h)

	rec := serve(e, http.MethodPost, "/auth/login", `{"username":"admin","password":"s3cret"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp LoginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, "Bearer", resp.TokenType)
	assert.Equal(t, "admin", resp.Username)

	assert.Equal(t, http.StatusUnauthorized, serve(e, http.MethodPost, "/auth/login", `{"username":"admin","password":"wrong"}`).Code)
	assert.Equal(t, http.StatusUnauthorized, serve(e, http.MethodPost, "/auth/login", `{"username":"root","password":"s3cret"}`).Code)
	assert.Equal(t, http.StatusBadRequest, serve(e, http.MethodPost, "/auth/login", `{"username":"admin"}`).Code)
}

func TestAuthLoginDisabledWithoutSecret(t *testing.T) {
	t.Parallel()

	cfg := config.Defaults()
	cfg.Auth.JWTSecret = ""
	h, err := NewAuthHandler(nil, cfg)
	require.NoError(t, err)
	e := newTestEcho(h)

	rec := serve(e, http.MethodPost, "/auth/login", `{"username":"admin","password":"change-your-password-here"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestConversationsHandler(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := conversation.NewMemoryStore()
	_, err := store.Save(ctx, conversation.Conversation{
		SenderID: "psid-1",
		History:  []conversation.Turn{conversation.UserTurn("hello"), conversation.AssistantTurn("Hi!")},
	})
	require.NoError(t, err)
	_, err = store.Save(ctx, conversation.Conversation{SenderID: "psid-2"})
	require.NoError(t, err)

	e := newTestEcho(NewConversationsHandler(nil, conversation.NewService(nil, store)))

	rec := serve(e, http.MethodGet, "/conversations?q=psid-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list listConversationsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Items, 1)
	assert.Equal(t, 2, list.Items[0].MessageCount)
	assert.Equal(t, "user: hello", list.Items[0].HistoryPreview)

	rec = serve(e, http.MethodGet, "/conversations/psid-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"content":"Hi!"`)

	assert.Equal(t, http.StatusNotFound, serve(e, http.MethodGet, "/conversations/nobody", "").Code)

	assert.Equal(t, http.StatusNoContent, serve(e, http.MethodDelete, "/conversations/psid-1/history", "").Code)
	conv, err := store.Get(ctx, "psid-1")
	require.NoError(t, err)
	assert.Empty(t, conv.History)

	assert.Equal(t, http.StatusNotFound, serve(e, http.MethodDelete, "/conversations/nobody/history", "").Code)

	rec = serve(e, http.MethodPost, "/conversations/clear", `{"sender_ids":["psid-1","psid-2"]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"cleared":2}`, rec.Body.String())

	assert.Equal(t, http.StatusBadRequest, serve(e, http.MethodPost, "/conversations/clear", `{"sender_ids":[]}`).Code)
}

func TestSettingsHandler(t *testing.T) {
	t.Parallel()

	e := newTestEcho(NewSettingsHandler(nil, settings.NewService(nil, settings.NewMemoryStore())))

	rec := serve(e, http.MethodPut, "/settings/temperature", `{"value":"0.4"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"value":"0.4"`)

	assert.Equal(t, http.StatusBadRequest, serve(e, http.MethodPut, "/settings/temperature", `{"value":"9"}`).Code)
	assert.Equal(t, http.StatusBadRequest, serve(e, http.MethodPut, "/settings/thinking_budget", `{"value":"lots"}`).Code)
	assert.Equal(t, http.StatusBadRequest, serve(e, http.MethodPut, "/settings/temperature", `{}`).Code)

	assert.Equal(t, http.StatusOK, serve(e, http.MethodGet, "/settings/temperature", "").Code)
	assert.Equal(t, http.StatusNotFound, serve(e, http.MethodGet, "/settings/missing", "").Code)
	assert.Equal(t, http.StatusNoContent, serve(e, http.MethodDelete, "/settings/temperature", "").Code)
	assert.Equal(t, http.StatusNotFound, serve(e, http.MethodDelete, "/settings/temperature", "").Code)
}

func TestCredentialsHandler(t *testing.T) {
	t.Parallel()

	e := newTestEcho(NewSettingsHandler(nil, settings.NewService(nil, settings.NewMemoryStore())))

	rec := serve(e, http.MethodPost, "/credentials", `{"name":"backup","api_key":"AIzaSyExample1234"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created settings.CredentialView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "****1234", created.APIKey)

	rec = serve(e, http.MethodGet, "/credentials", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "AIzaSyExample1234")

	assert.Equal(t, http.StatusBadRequest, serve(e, http.MethodPost, "/credentials", `{"name":"x"}`).Code)
	assert.Equal(t, http.StatusBadRequest, serve(e, http.MethodDelete, "/credentials/not-a-uuid", "").Code)
	assert.Equal(t, http.StatusNoContent, serve(e, http.MethodDelete, "/credentials/"+created.ID.String(), "").Code)
	assert.Equal(t, http.StatusNotFound, serve(e, http.MethodDelete, "/credentials/"+created.ID.String(), "").Code)
}
