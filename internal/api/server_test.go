package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dealersense/chat-api/internal/config"
)

func testConfig() *config.AppConfig {
	return &config.AppConfig{
		API: &config.APIConfig{
			Environment:   "test",
			Port:          "0",
			BaseURL:       "localhost",
			JWTSigningKey: "test-key",
			JWTTTL:        time.Hour,
		},
		Gin:  &config.GinConfig{Mode: "test"},
		Chat: &config.ChatConfig{EnforceParticipants: true, SendBuffer: 8},
	}
}

func TestNewServer_Routes(t *testing.T) {
	s := NewServer(testConfig(), Dependencies{})
	assert.NotNil(t, s.Hub)

	tests := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodGet, "/", http.StatusOK},
		{http.MethodGet, "/api/v1/users/me", http.StatusUnauthorized},
		{http.MethodGet, "/api/v1/chat/7-9", http.StatusUnauthorized},
		{http.MethodGet, "/api/v1/rooms/7-9/messages", http.StatusUnauthorized},
		{http.MethodPost, "/api/v1/chat/send", http.StatusUnauthorized},
		{http.MethodGet, "/api/v1/ws", http.StatusUnauthorized},
		{http.MethodGet, "/api/v1/nope", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			s.Router.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, tt.want, w.Code)
		})
	}
}
