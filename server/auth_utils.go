package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/securecookie"
	"github.com/jrsteele09/go-members-gateway/internal/config"
	"github.com/rs/zerolog/log"
)

// cookieCodec signs the session cookie. The cookie carries the session id and nothing else.
type cookieCodec struct {
	name   string
	maxAge int
	codec  *securecookie.SecureCookie
}

func newCookieCodec(c config.Config) (*cookieCodec, error) {
	hashKey := []byte(c.GetSessionSecret())
	if len(hashKey) == 0 {
		if c.GetEnv() != config.DevEnv {
			return nil, fmt.Errorf("session secret is required outside %s", config.DevEnv)
		}
		// Cookies from a previous run stop verifying, which only logs DEV users out
		hashKey = securecookie.GenerateRandomKey(32)
		log.Warn().Msg("SESSION_SECRET not set, using a random signing key for this run")
	}

	maxAge := int(c.GetSessionIdleTimeout().Seconds())
	codec := securecookie.New(hashKey, nil).MaxAge(maxAge)
	return &cookieCodec{
		name:   c.GetSessionCookieName(),
		maxAge: maxAge,
		codec:  codec,
	}, nil
}

// read returns the verified session id, or false when the cookie is absent or tampered with
func (cc *cookieCodec) read(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(cc.name)
	if err != nil {
		return "", false
	}
	var sessionID string
	if err := cc.codec.Decode(cc.name, cookie.Value, &sessionID); err != nil {
		return "", false
	}
	return sessionID, sessionID != ""
}

func (cc *cookieCodec) write(w http.ResponseWriter, r *http.Request, sessionID string) error {
	encoded, err := cc.codec.Encode(cc.name, sessionID)
	if err != nil {
		return fmt.Errorf("[cookieCodec write] %w", err)
	}
	dropSetCookie(w.Header(), cc.name)
	http.SetCookie(w, &http.Cookie{
		Name:     cc.name,
		Value:    encoded,
		Path:     "/",
		HttpOnly: true,
		Secure:   getScheme(r) == "https",
		SameSite: http.SameSiteLaxMode,
		MaxAge:   cc.maxAge,
	})
	return nil
}

func (cc *cookieCodec) clear(w http.ResponseWriter, r *http.Request) {
	dropSetCookie(w.Header(), cc.name)
	http.SetCookie(w, &http.Cookie{
		Name:     cc.name,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   getScheme(r) == "https",
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

// dropSetCookie removes a pending Set-Cookie for name so a replacement is the only one sent
func dropSetCookie(h http.Header, name string) {
	prefix := name + "="
	var kept []string
	for _, v := range h.Values("Set-Cookie") {
		if !strings.HasPrefix(v, prefix) {
			kept = append(kept, v)
		}
	}
	if len(kept) == 0 {
		h.Del("Set-Cookie")
		return
	}
	h["Set-Cookie"] = kept
}

// redirectSuccess issues the post-form redirect
func redirectSuccess(w http.ResponseWriter, r *http.Request, path string) {
	http.Redirect(w, r, path, http.StatusSeeOther)
}
