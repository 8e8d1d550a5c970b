package helpers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// CookieManager writes and clears the session cookie.
type CookieManager struct {
	Name   string
	Domain string
	Secure bool
}

func NewCookie(name, domain string, secure bool) *CookieManager {
	return &CookieManager{Name: name, Domain: domain, Secure: secure}
}

func (m *CookieManager) SetSession(c *gin.Context, token string, exp time.Time) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(m.Name, token, maxAgeFrom(exp), "/", m.Domain, m.Secure, true)
}

func (m *CookieManager) Clear(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(m.Name, "", -1, "/", m.Domain, m.Secure, true)
}

// maxAgeFrom never returns 0: a zero Max-Age would be omitted and leave a
// browser-session cookie, so an already-past expiry expires immediately.
func maxAgeFrom(exp time.Time) int {
	sec := int(time.Until(exp).Seconds())
	if sec <= 0 {
		return -1
	}
	return sec
}
