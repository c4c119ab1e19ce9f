package auth

import (
	"net/http"
	"strings"
	"time"
)

// DefaultCookieName is the name of the cookie carrying the session token.
const DefaultCookieName = "Record-Signature"

// CookieCodec reads and writes the session cookie.
//
// COOKIE ATTRIBUTES:
//   - HttpOnly: scripts cannot read the token (XSS can't steal it)
//   - Secure: only sent over HTTPS
//   - SameSite=None: the SPA lives on a different site than the API, so the
//     browser must send the cookie on cross-site requests. SameSite=None
//     requires Secure.
type CookieCodec struct {
	name   string
	domain string
}

// NewCookieCodec creates a codec for the named cookie. An empty name means
// DefaultCookieName; an empty domain scopes the cookie to the API host.
func NewCookieCodec(name, domain string) *CookieCodec {
	if name == "" {
		name = DefaultCookieName
	}
	return &CookieCodec{name: name, domain: domain}
}

// Name returns the cookie name.
func (c *CookieCodec) Name() string {
	return c.name
}

// Extract finds the session cookie in a raw Cookie header.
//
// The header is split on ";" and each entry trimmed; the entry whose name
// is exactly the session cookie name wins and its value is everything after
// the first "=". ok is false when the header is empty, the cookie is
// missing, or its value is empty.
func (c *CookieCodec) Extract(cookieHeader string) (value string, ok bool) {
	if cookieHeader == "" {
		return "", false
	}

	for _, part := range strings.Split(cookieHeader, ";") {
		name, val, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found || name != c.name {
			continue
		}
		if val == "" {
			return "", false
		}
		return val, true
	}

	return "", false
}

// FromRequest is Extract applied to the request's Cookie header.
func (c *CookieCodec) FromRequest(r *http.Request) (string, bool) {
	return c.Extract(r.Header.Get("Cookie"))
}

// Attach sets the session cookie on the response.
func (c *CookieCodec) Attach(w http.ResponseWriter, value string, ttl time.Duration) {
	http.SetCookie(w, c.cookie(value, int(ttl.Seconds())))
}

// Clear tells the browser to drop the session cookie. Name, path, domain and
// security attributes must match the ones used by Attach or the browser
// keeps the original.
func (c *CookieCodec) Clear(w http.ResponseWriter) {
	http.SetCookie(w, c.cookie("", -1))
}

func (c *CookieCodec) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     c.name,
		Value:    value,
		Path:     "/",
		Domain:   c.domain,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
	}
}
