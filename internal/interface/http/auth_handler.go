package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ymatsuda/member-api/config"
	"github.com/ymatsuda/member-api/internal/application"
	"github.com/ymatsuda/member-api/internal/domain/entity"
	"github.com/ymatsuda/member-api/pkg/helpers"
	"github.com/ymatsuda/member-api/pkg/response"
	"github.com/ymatsuda/member-api/pkg/validation"
)

const oauthStateCookie = "oauth_state"

// AuthHandler exposes the credential and Google sign-in flows plus the
// email verification and password reset endpoints.
type AuthHandler struct {
	Provider application.IdentityProvider
	Svc      *application.AuthService
	Logger   *logrus.Logger
	Cfg      *config.Config
	Cookies  *helpers.CookieManager
}

func NewAuthHandler(svc *application.AuthService, logger *logrus.Logger, cfg *config.Config) *AuthHandler {
	return &AuthHandler{
		Provider: svc,
		Svc:      svc,
		Logger:   logger,
		Cfg:      cfg,
		Cookies:  helpers.NewCookie(cfg.CookieName, cfg.CookieDomain, cfg.CookieSecure),
	}
}

type signUpRequest struct {
	Name            string `json:"name" binding:"required"`
	Email           string `json:"email" binding:"required,email"`
	Password        string `json:"password" binding:"required,pwd"`
	ConfirmPassword string `json:"confirm_password" binding:"required,eqfield=Password"`
}

type signInRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func clientIP(c *gin.Context) string {
	if ip := c.GetString("real_ip"); ip != "" {
		return ip
	}
	return c.ClientIP()
}

func userPayload(u *entity.User) gin.H {
	return gin.H{
		"id":             u.ID,
		"name":           u.Name,
		"email":          u.Email,
		"email_verified": u.EmailVerified,
		"image":          u.Image,
		"created_at":     u.CreatedAt,
		"updated_at":     u.UpdatedAt,
	}
}

// SignUp POST /api/auth/sign-up/email
// Creates a credential account and sends the verification email. The user
// cannot sign in until the address is verified.
func (h *AuthHandler) SignUp(c *gin.Context) {
	var req signUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}

	u, err := h.Provider.Register(c.Request.Context(), application.RegisterInput{
		Name:      req.Name,
		Email:     req.Email,
		Password:  req.Password,
		IP:        clientIP(c),
		UserAgent: c.GetHeader("User-Agent"),
	})
	if err != nil {
		if errors.Is(err, application.ErrEmailTaken) {
			response.Error[any](c, http.StatusConflict, "email already registered", nil)
			return
		}
		h.Logger.WithError(err).Error("sign-up failed")
		response.Error[any](c, http.StatusInternalServerError, "sign-up failed", nil)
		return
	}
	response.Success(c, http.StatusCreated, userPayload(u), "account created, verification email sent", nil)
}

// SignIn POST /api/auth/sign-in/email
func (h *AuthHandler) SignIn(c *gin.Context) {
	var req signInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}

	sess, u, err := h.Provider.Login(c.Request.Context(), application.LoginInput{
		Email:     req.Email,
		Password:  req.Password,
		IP:        clientIP(c),
		UserAgent: c.GetHeader("User-Agent"),
	})
	if err != nil {
		if errors.Is(err, application.ErrEmailNotVerified) {
			response.Error[any](c, http.StatusForbidden, "email not verified", nil)
			return
		}
		response.Error[any](c, http.StatusUnauthorized, "invalid credentials", nil)
		return
	}

	h.Cookies.SetSession(c, sess.Token, sess.ExpiresAt)
	response.Success(c, http.StatusOK, gin.H{"user": userPayload(u)}, "signed in", map[string]any{"expires_at": sess.ExpiresAt})
}

// SignOut POST /api/auth/sign-out
// Deletes the server-side session and clears the cookie. Succeeds even
// without a valid session.
func (h *AuthHandler) SignOut(c *gin.Context) {
	if token, err := c.Cookie(h.Cfg.CookieName); err == nil && token != "" {
		if err := h.Provider.InvalidateSession(c.Request.Context(), token); err != nil {
			h.Logger.WithError(err).Warn("sign-out: session delete failed")
		}
	}
	h.Cookies.Clear(c)
	response.Success[any](c, http.StatusOK, gin.H{"signed_out": true}, "signed out", nil)
}

// GetSession GET /api/auth/get-session
// Returns the session and user for the cookie, or null data when there is
// no live session. Never an error status, mirroring client expectations.
func (h *AuthHandler) GetSession(c *gin.Context) {
	token, err := c.Cookie(h.Cfg.CookieName)
	if err != nil || token == "" {
		response.Success[any](c, http.StatusOK, nil, "no session", nil)
		return
	}
	sess, u, err := h.Provider.GetSession(c.Request.Context(), token)
	if err != nil {
		h.Logger.WithError(err).Error("session lookup failed")
		response.Error[any](c, http.StatusInternalServerError, "session lookup failed", nil)
		return
	}
	if sess == nil || u == nil {
		response.Success[any](c, http.StatusOK, nil, "no session", nil)
		return
	}
	response.Success(c, http.StatusOK, gin.H{
		"session": gin.H{"token": sess.Token, "expires_at": sess.ExpiresAt},
		"user":    userPayload(u),
	}, "session", nil)
}

// GoogleRedirect GET /api/auth/google
// Issues a state nonce and redirects to Google's consent screen.
func (h *AuthHandler) GoogleRedirect(c *gin.Context) {
	state, err := helpers.GenToken(16)
	if err != nil {
		response.Error[any](c, http.StatusInternalServerError, "state generation failed", nil)
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(oauthStateCookie, state, 600, "/", h.Cfg.CookieDomain, h.Cfg.CookieSecure, true)
	c.Redirect(http.StatusTemporaryRedirect, h.Svc.GoogleLoginURL(state))
}

// GoogleCallback GET /api/auth/google/callback?code=...&state=...
func (h *AuthHandler) GoogleCallback(c *gin.Context) {
	state, err := c.Cookie(oauthStateCookie)
	if err != nil || state == "" || state != c.Query("state") {
		response.Error[any](c, http.StatusBadRequest, "invalid oauth state", nil)
		return
	}
	c.SetCookie(oauthStateCookie, "", -1, "/", h.Cfg.CookieDomain, h.Cfg.CookieSecure, true)

	code := c.Query("code")
	if code == "" {
		response.Error[any](c, http.StatusBadRequest, "missing authorization code", nil)
		return
	}

	sess, _, err := h.Svc.GoogleCallback(c.Request.Context(), code, clientIP(c), c.GetHeader("User-Agent"))
	if err != nil {
		h.Logger.WithError(err).Error("google callback failed")
		response.Error[any](c, http.StatusUnauthorized, "google sign-in failed", nil)
		return
	}

	h.Cookies.SetSession(c, sess.Token, sess.ExpiresAt)
	c.Redirect(http.StatusTemporaryRedirect, h.Cfg.FrontendURL)
}

// SendVerificationEmail POST /api/auth/send-verification-email (auth required)
// Idempotent: already-verified users get an OK without a new token.
func (h *AuthHandler) SendVerificationEmail(c *gin.Context) {
	uid := c.GetString("userID")
	if err := h.Provider.SendVerificationEmail(c.Request.Context(), uid); err != nil {
		h.Logger.WithError(err).Error("send verification failed")
		response.Error[any](c, http.StatusInternalServerError, "could not send verification email", nil)
		return
	}
	response.Success[any](c, http.StatusOK, gin.H{"sent": true}, "verification email sent", nil)
}

// VerifyEmail POST /api/auth/verify-email {token}
func (h *AuthHandler) VerifyEmail(c *gin.Context) {
	var req struct {
		Token string `json:"token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	if err := h.Provider.ConfirmEmail(c.Request.Context(), req.Token); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid or expired token", nil)
		return
	}
	response.Success[any](c, http.StatusOK, gin.H{"verified": true}, "email verified", nil)
}

// ForgetPassword POST /api/auth/forget-password {email}
// Always returns OK to avoid account enumeration.
func (h *AuthHandler) ForgetPassword(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required,email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	if err := h.Provider.RequestPasswordReset(c.Request.Context(), req.Email); err != nil {
		h.Logger.WithError(err).Error("password reset request failed")
		response.Error[any](c, http.StatusInternalServerError, "could not process request", nil)
		return
	}
	response.Success[any](c, http.StatusOK, gin.H{"sent": true}, "if the account exists, a reset email was sent", nil)
}

// ResetPassword POST /api/auth/reset-password {token, new_password, confirm_password}
// Consuming the token also revokes every live session for the user.
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req struct {
		Token           string `json:"token" binding:"required"`
		NewPassword     string `json:"new_password" binding:"required,pwd"`
		ConfirmPassword string `json:"confirm_password" binding:"required,eqfield=NewPassword"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	if err := h.Provider.ResetPassword(c.Request.Context(), req.Token, req.NewPassword); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid or expired token", nil)
		return
	}
	response.Success[any](c, http.StatusOK, gin.H{"reset": true}, "password updated", nil)
}
