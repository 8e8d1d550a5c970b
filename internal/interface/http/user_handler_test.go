package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ymatsuda/member-api/internal/application"
	"github.com/ymatsuda/member-api/internal/domain/entity"
	"github.com/ymatsuda/member-api/pkg/helpers"
)

// fakeUserStore is a stateful in-memory user repository so withdrawal
// behavior can be observed end to end through the handler.
type fakeUserStore struct {
	users map[string]*entity.User
}

func newFakeUserStore(users ...*entity.User) *fakeUserStore {
	m := make(map[string]*entity.User, len(users))
	for _, u := range users {
		m[u.ID] = u
	}
	return &fakeUserStore{users: m}
}

func (s *fakeUserStore) Create(_ context.Context, u *entity.User) error {
	s.users[u.ID] = u
	return nil
}

func (s *fakeUserStore) GetByID(_ context.Context, id string) (*entity.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (s *fakeUserStore) GetByEmail(_ context.Context, email string) (*entity.User, error) {
	for _, u := range s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *fakeUserStore) Update(_ context.Context, u *entity.User) error {
	s.users[u.ID] = u
	return nil
}

func (s *fakeUserStore) SetEmailVerified(_ context.Context, id string) error {
	if u, ok := s.users[id]; ok {
		u.EmailVerified = true
	}
	return nil
}

func (s *fakeUserStore) Withdraw(_ context.Context, id string) (bool, error) {
	u, ok := s.users[id]
	if !ok || u.DeletedAt != nil {
		return false, nil
	}
	now := time.Now()
	u.DeletedAt = &now
	u.Email = entity.AnonymizedEmail(id)
	u.Name = entity.WithdrawnName
	return true, nil
}

func fakeAuth(userID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("userID", userID)
		c.Next()
	}
}

func newUserRouter(store *fakeUserStore, userID string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	cfg := testCfg()
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	svc := application.NewAccountService(store, nil, nil, "", nil, logger, cfg)
	h := &UserHandler{
		Svc:     svc,
		Logger:  logger,
		Cookies: helpers.NewCookie(cfg.CookieName, cfg.CookieDomain, cfg.CookieSecure),
	}

	r := gin.New()
	auth := r.Group("/", fakeAuth(userID))
	auth.GET("/api/me", h.Me)
	auth.PUT("/api/profile", h.UpdateProfile)
	auth.POST("/api/user/withdraw", h.Withdraw)
	return r
}

func TestWithdraw_SucceedsAndAnonymizes(t *testing.T) {
	store := newFakeUserStore(&entity.User{ID: "u1", Name: "Taro", Email: "taro@example.com", EmailVerified: true})
	r := newUserRouter(store, "u1")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/user/withdraw", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"success":true`)

	u := store.users["u1"]
	require.NotNil(t, u.DeletedAt)
	assert.Equal(t, entity.AnonymizedEmail("u1"), u.Email)
	assert.Equal(t, entity.WithdrawnName, u.Name)

	cleared := false
	for _, c := range w.Result().Cookies() {
		if c.Name == "session_token" && c.MaxAge < 0 {
			cleared = true
		}
	}
	assert.True(t, cleared, "session cookie must be cleared on withdrawal")
}

func TestWithdraw_SecondCallAlsoSucceeds(t *testing.T) {
	store := newFakeUserStore(&entity.User{ID: "u1", Name: "Taro", Email: "taro@example.com"})
	r := newUserRouter(store, "u1")

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/user/withdraw", nil)
		r.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code, "call %d", i+1)
	}
}

func TestWithdraw_UnknownUser(t *testing.T) {
	store := newFakeUserStore()
	r := newUserRouter(store, "ghost")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/user/withdraw", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMe_WithdrawnUserNotFound(t *testing.T) {
	now := time.Now()
	store := newFakeUserStore(&entity.User{ID: "u1", Name: entity.WithdrawnName, Email: entity.AnonymizedEmail("u1"), DeletedAt: &now})
	r := newUserRouter(store, "u1")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdateProfile_ChangesName(t *testing.T) {
	store := newFakeUserStore(&entity.User{ID: "u1", Name: "Old", Email: "taro@example.com"})
	r := newUserRouter(store, "u1")

	req := httptest.NewRequest(http.MethodPut, "/api/profile", strings.NewReader(`{"name":"New"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "New", store.users["u1"].Name)
}
