package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/rl1809/storefront/internal/core/service"
)

const (
	sessionCookie = "sessionid"
	tokenCookie   = "token"
	actorKey      = "actor"
)

// session makes sure every visitor carries a session id, the key of their
// anonymous basket.
func (h *HTTPHandler) session(c *gin.Context) {
	id, err := c.Cookie(sessionCookie)
	if err != nil || id == "" {
		id = uuid.NewString()
		h.setCookie(c, sessionCookie, id, int(h.sessionTTL.Seconds()))
	}
	c.Set(actorKey, service.Actor{SessionID: id})
	c.Next()
}

// authenticate attaches the user of a valid bearer token or token cookie.
// Requests without one stay anonymous.
func (h *HTTPHandler) authenticate(c *gin.Context) {
	var tok string
	if ah := c.GetHeader("Authorization"); strings.HasPrefix(ah, "Bearer ") {
		tok = strings.TrimPrefix(ah, "Bearer ")
	}
	if tok == "" {
		if v, err := c.Cookie(tokenCookie); err == nil {
			tok = v
		}
	}
	if tok != "" {
		if uid, err := h.svc.Auth.ParseToken(tok); err == nil {
			a := actor(c)
			a.UserID = uid
			c.Set(actorKey, a)
		}
	}
	c.Next()
}

func requireAuth(c *gin.Context) {
	if !actor(c).Authenticated() {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "login required"})
		return
	}
	c.Next()
}

func actor(c *gin.Context) service.Actor {
	if v, ok := c.Get(actorKey); ok {
		if a, ok := v.(service.Actor); ok {
			return a
		}
	}
	return service.Actor{}
}

func (h *HTTPHandler) setCookie(c *gin.Context, name, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(name, value, maxAge, "/", "", h.secure, true)
}
