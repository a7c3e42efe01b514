package core

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/sessions"
)

// establishSession binds the session to an account id, rotating the value
// bag so nothing from a previous login survives.
func establishSession(c *gin.Context, cfg Config, accountID string) error {
	sess := contextSession(c)
	if sess == nil {
		return http.ErrNoCookie
	}
	sess.Values = map[interface{}]interface{}{}
	sess.Values["account_id"] = accountID
	applySessionOptions(cfg, sess)
	return sess.Save(c.Request, c.Writer)
}

// clearSession drops all session state and expires the cookie. Safe to call
// for anonymous sessions, which makes logout idempotent.
func clearSession(c *gin.Context, cfg Config) error {
	sess := contextSession(c)
	if sess == nil {
		return nil
	}
	sess.Values = map[interface{}]interface{}{}
	applySessionOptions(cfg, sess)
	sess.Options.MaxAge = -1 // Must be set AFTER applySessionOptions to properly delete cookie
	return sess.Save(c.Request, c.Writer)
}

// sessionAccountID returns the logged-in account id, or "" for anonymous.
func sessionAccountID(c *gin.Context) string {
	sess := contextSession(c)
	if sess == nil {
		return ""
	}
	id, _ := sess.Values["account_id"].(string)
	return strings.TrimSpace(id)
}

// requireLogin resolves the session account id or responds 401.
func requireLogin(c *gin.Context) (string, bool) {
	id := sessionAccountID(c)
	if id == "" {
		respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "You must be logged in")
		return "", false
	}
	return id, true
}

func contextSession(c *gin.Context) *sessions.Session {
	sessionAny, _ := c.Get("session")
	sess, _ := sessionAny.(*sessions.Session)
	return sess
}
