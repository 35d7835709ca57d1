package ws

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/jsMelius/Gleisure/internal/config"
	"github.com/jsMelius/Gleisure/internal/notifier"
)

func TestOriginChecker(t *testing.T) {
	tests := []struct {
		name    string
		allowed []string
		origin  string
		want    bool
	}{
		{name: "no allow-list admits any origin", origin: "https://anywhere.example", want: true},
		{name: "no origin header passes", allowed: []string{"https://app.gleisure.example"}, want: true},
		{name: "listed origin passes", allowed: []string{"https://app.gleisure.example"}, origin: "https://app.gleisure.example", want: true},
		{name: "case-insensitive match", allowed: []string{"https://App.Gleisure.example"}, origin: "https://app.gleisure.example", want: true},
		{name: "unlisted origin refused", allowed: []string{"https://app.gleisure.example"}, origin: "https://evil.example", want: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/notifications", nil)
			if tc.origin != "" {
				req.Header.Set("Origin", tc.origin)
			}
			assert.Equal(t, tc.want, originChecker(tc.allowed)(req))
		})
	}
}

func TestSubscribeRefusesDisallowedOrigin(t *testing.T) {
	cfg := config.Config{}
	cfg.Notifier.AllowedOrigins = []string{"https://app.gleisure.example"}

	h := NewHandler(notifier.NewHub(4, zap.NewNop()), cfg, zap.NewNop())
	e := echo.New()
	Register(e, h)

	req := httptest.NewRequest(http.MethodGet, "/notifications", nil)
	req.Header.Set("Origin", "https://evil.example")
	req.Header.Set("Connection", "Upgrade")
	req.Header.Set("Upgrade", "websocket")
	req.Header.Set("Sec-WebSocket-Version", "13")
	req.Header.Set("Sec-WebSocket-Key", "x3JJHMbDL1EzLkh9GBhXDw==")

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}
