package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ymatsuda/member-api/config"
	"github.com/ymatsuda/member-api/internal/application"
	"github.com/ymatsuda/member-api/pkg/helpers"
	"github.com/ymatsuda/member-api/pkg/response"
	"github.com/ymatsuda/member-api/pkg/validation"
)

const maxAvatarBytes = 5 << 20

type UserHandler struct {
	Svc     *application.AccountService
	Logger  *logrus.Logger
	Cookies *helpers.CookieManager
}

func NewUserHandler(svc *application.AccountService, logger *logrus.Logger, cfg *config.Config) *UserHandler {
	return &UserHandler{
		Svc:     svc,
		Logger:  logger,
		Cookies: helpers.NewCookie(cfg.CookieName, cfg.CookieDomain, cfg.CookieSecure),
	}
}

type updateProfileRequest struct {
	Name  string `json:"name" binding:"omitempty,min=1,max=100"`
	Image string `json:"image" binding:"omitempty,url"`
}

// Me GET /api/me
func (h *UserHandler) Me(c *gin.Context) {
	uid := c.GetString("userID")
	u, err := h.Svc.GetProfile(c.Request.Context(), uid)
	if err != nil {
		response.Error[any](c, http.StatusNotFound, "user not found", nil)
		return
	}
	response.Success(c, http.StatusOK, userPayload(u), "profile", nil)
}

// UpdateProfile PUT /api/profile
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	uid := c.GetString("userID")
	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	u, err := h.Svc.UpdateProfile(c.Request.Context(), uid, application.UpdateProfileInput{Name: req.Name, Image: req.Image})
	if err != nil {
		response.Error[any](c, http.StatusBadRequest, "failed to update profile", nil)
		return
	}
	response.Success(c, http.StatusOK, userPayload(u), "profile updated", nil)
}

// UploadAvatar POST /api/profile/avatar (multipart form, field "avatar")
func (h *UserHandler) UploadAvatar(c *gin.Context) {
	uid := c.GetString("userID")
	fh, err := c.FormFile("avatar")
	if err != nil {
		response.Error[any](c, http.StatusBadRequest, "missing avatar file", nil)
		return
	}
	if fh.Size > maxAvatarBytes {
		response.Error[any](c, http.StatusRequestEntityTooLarge, "avatar too large", nil)
		return
	}
	f, err := fh.Open()
	if err != nil {
		response.Error[any](c, http.StatusBadRequest, "could not read avatar file", nil)
		return
	}
	defer func() { _ = f.Close() }()

	url, err := h.Svc.UploadAvatar(c.Request.Context(), uid, f, fh.Filename, fh.Header.Get("Content-Type"))
	if err != nil {
		h.Logger.WithError(err).Error("avatar upload failed")
		response.Error[any](c, http.StatusInternalServerError, "avatar upload failed", nil)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"image": url}, "avatar updated", nil)
}

// Withdraw POST /api/user/withdraw
// Soft-deletes the account, revokes every session, and clears the cookie.
// Calling it twice reports success both times.
func (h *UserHandler) Withdraw(c *gin.Context) {
	uid := c.GetString("userID")
	if err := h.Svc.Withdraw(c.Request.Context(), uid); err != nil {
		if errors.Is(err, application.ErrUserNotFound) {
			response.Error[any](c, http.StatusNotFound, "user not found", nil)
			return
		}
		h.Logger.WithError(err).WithField("user_id", uid).Error("withdrawal failed")
		response.Error[any](c, http.StatusInternalServerError, "withdrawal failed", nil)
		return
	}
	h.Cookies.Clear(c)
	response.Success[any](c, http.StatusOK, gin.H{"success": true}, "account withdrawn", nil)
}
