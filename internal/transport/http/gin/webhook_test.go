package httpgin

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/tablegate/internal/domain"
	"github.com/example/tablegate/internal/line"
	"github.com/example/tablegate/internal/service"
	"github.com/example/tablegate/internal/service/command"
)

type fakeRuleStore struct {
	created []domain.CapacityRule
}

func (f *fakeRuleStore) ListActiveRules(ctx context.Context, storeID string) ([]domain.CapacityRule, error) {
	return nil, nil
}

func (f *fakeRuleStore) CreateRule(ctx context.Context, rule domain.CapacityRule) (domain.CapacityRule, error) {
	f.created = append(f.created, rule)
	return rule, nil
}

func newWebhookRouter(t *testing.T) (*gin.Engine, *fakeRuleStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := slog.New(slog.DiscardHandler)
	store := &fakeRuleStore{}

	svcs := &service.Services{
		Command: command.New(store, nil, logger),
	}

	router := NewRouter(svcs, line.NewClient("", ""), Options{
		DefaultStoreID: "restaurant-002",
		LIFFURL:        "https://liff.line.me/123-abc",
	}, logger)

	return router, store
}

func postWebhook(router *gin.Engine, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestWebhookAlwaysReturns200(t *testing.T) {
	router, _ := newWebhookRouter(t)

	cases := []string{
		``,
		`not json at all`,
		`{"events": null}`,
		`{"events": [{"type": "unfollow"}]}`,
		`{"events": [{"type": "message", "message": {"type": "sticker"}}]}`,
	}

	for _, body := range cases {
		w := postWebhook(router, body)
		assert.Equal(t, http.StatusOK, w.Code, "body %q", body)
	}
}

func TestWebhookCommandEventCreatesRule(t *testing.T) {
	router, store := newWebhookRouter(t)

	w := postWebhook(router, `{"events": [{
		"type": "message",
		"replyToken": "rt-1",
		"source": {"userId": "U123"},
		"message": {"type": "text", "text": "/limit sat,sun lunch 5/h"}
	}]}`)

	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, store.created, 1)
	assert.Equal(t, "restaurant-002", store.created[0].StoreID)
}

func TestWebhookKeywordEventDoesNotTouchRules(t *testing.T) {
	router, store := newWebhookRouter(t)

	w := postWebhook(router, `{"events": [{
		"type": "message",
		"replyToken": "rt-1",
		"source": {"userId": "U123"},
		"message": {"type": "text", "text": "予約したいです"}
	}]}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, store.created)
}

func TestCORSPreflight(t *testing.T) {
	router, _ := newWebhookRouter(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/reservations", nil)
	req.Header.Set("Origin", "https://liff.line.me")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestHealthz(t *testing.T) {
	router, _ := newWebhookRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
	assert.Contains(t, w.Body.String(), `"has_line_token":false`)
}
