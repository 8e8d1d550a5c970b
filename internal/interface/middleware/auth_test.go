package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ymatsuda/member-api/internal/application"
	"github.com/ymatsuda/member-api/internal/domain/entity"
)

type stubProvider struct {
	getSessionFn func(ctx context.Context, token string) (*entity.Session, *entity.User, error)
}

func (s *stubProvider) Register(ctx context.Context, in application.RegisterInput) (*entity.User, error) {
	return nil, nil
}

func (s *stubProvider) Login(ctx context.Context, in application.LoginInput) (*entity.Session, *entity.User, error) {
	return nil, nil, nil
}

func (s *stubProvider) GetSession(ctx context.Context, token string) (*entity.Session, *entity.User, error) {
	if s.getSessionFn != nil {
		return s.getSessionFn(ctx, token)
	}
	return nil, nil, nil
}

func (s *stubProvider) InvalidateSession(ctx context.Context, token string) error { return nil }
func (s *stubProvider) SendVerificationEmail(ctx context.Context, id string) error { return nil }
func (s *stubProvider) ConfirmEmail(ctx context.Context, token string) error { return nil }
func (s *stubProvider) RequestPasswordReset(ctx context.Context, email string) error { return nil }
func (s *stubProvider) ResetPassword(ctx context.Context, token, pw string) error { return nil }

func newAuthTestRouter(provider application.IdentityProvider, handlerCalled *bool, gotUserID *string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/protected", Auth(provider, "session_token"), func(c *gin.Context) {
		*handlerCalled = true
		*gotUserID = c.GetString("userID")
		c.Status(http.StatusOK)
	})
	return r
}

func TestAuth_MissingCookie(t *testing.T) {
	called := false
	uid := ""
	r := newAuthTestRouter(&stubProvider{}, &called, &uid)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.False(t, called, "handler must not run without a session")
}

func TestAuth_UnknownSession(t *testing.T) {
	called := false
	uid := ""
	provider := &stubProvider{
		getSessionFn: func(_ context.Context, _ string) (*entity.Session, *entity.User, error) {
			return nil, nil, nil
		},
	}
	r := newAuthTestRouter(provider, &called, &uid)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(&http.Cookie{Name: "session_token", Value: "revoked-token"})
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.False(t, called)
}

func TestAuth_ValidSessionSetsContext(t *testing.T) {
	called := false
	uid := ""
	var seenToken string
	provider := &stubProvider{
		getSessionFn: func(_ context.Context, token string) (*entity.Session, *entity.User, error) {
			seenToken = token
			return &entity.Session{ID: "s1", UserID: "u1", Token: token, ExpiresAt: time.Now().Add(time.Hour)},
				&entity.User{ID: "u1", Name: "Taro", Email: "taro@example.com"},
				nil
		},
	}
	r := newAuthTestRouter(provider, &called, &uid)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(&http.Cookie{Name: "session_token", Value: "good-token"})
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, called)
	assert.Equal(t, "u1", uid)
	assert.Equal(t, "good-token", seenToken)
}
