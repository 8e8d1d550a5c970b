package helpers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaxAgeFrom(t *testing.T) {
	assert.Greater(t, maxAgeFrom(time.Now().Add(time.Hour)), 3500)
	assert.Negative(t, maxAgeFrom(time.Now().Add(-time.Hour)))
	assert.Negative(t, maxAgeFrom(time.Now()))
}

func TestSetSession_PastExpiryExpiresCookie(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	m := NewCookie("session_token", "localhost", false)
	m.SetSession(c, "tok", time.Now().Add(-time.Minute))

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "session_token", cookies[0].Name)
	assert.Negative(t, cookies[0].MaxAge)
}
