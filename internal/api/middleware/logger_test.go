package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestRedactPath(t *testing.T) {
	tests := []struct {
		name string
		path string
		want string
	}{
		{name: "no query", path: "/api/v1/ws", want: "/api/v1/ws"},
		{name: "token", path: "/api/v1/ws?token=abc.def.ghi", want: "/api/v1/ws?token=REDACTED"},
		{name: "other params kept", path: "/api/v1/users/dealers?location=Pune&token=abc", want: "/api/v1/users/dealers?location=Pune&token=REDACTED"},
		{name: "without token", path: "/api/v1/users/dealers?location=Pune", want: "/api/v1/users/dealers?location=Pune"},
		{name: "unparsable", path: "/api/v1/ws?token=%zz", want: "/api/v1/ws?[unparsable query]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RedactPath(tt.path))
		})
	}
}

func TestAccessLog_HidesQueryToken(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var out bytes.Buffer
	r := gin.New()
	r.Use(AccessLog(&out))
	r.GET("/api/v1/ws", NewAuthenticator("test-key", nil).VerifyJWT(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/ws?token=SECRET.JWT.VALUE", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, out.String(), "401")
	assert.Contains(t, out.String(), "/api/v1/ws?token=REDACTED")
	assert.NotContains(t, out.String(), "SECRET.JWT.VALUE")
}
