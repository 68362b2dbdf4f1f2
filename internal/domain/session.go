package domain

import "time"

// Session binds an opaque token to an identity and a validity window.
type Session struct {
	ID        string    `json:"id"`
	Identity  Identity  `json:"identity"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// IsExpired reports whether the session is past its validity window at now.
func (s *Session) IsExpired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// SameSite mirrors the cookie SameSite attribute without pulling net/http into the domain.
type SameSite string

const (
	SameSiteLax    SameSite = "Lax"
	SameSiteStrict SameSite = "Strict"
	SameSiteNone   SameSite = "None"
)

// Cookie is the wire representation of a session reference.
type Cookie struct {
	Name     string
	Value    string
	Path     string
	MaxAge   int
	HttpOnly bool
	Secure   bool
	SameSite SameSite
}

// CookiePolicy holds the attributes shared by every session cookie.
type CookiePolicy struct {
	Name     string
	Secure   bool
	SameSite SameSite
}

// SessionCookie builds the cookie that carries sess to the browser.
func (p CookiePolicy) SessionCookie(sess *Session, now time.Time) Cookie {
	maxAge := int(sess.ExpiresAt.Sub(now).Seconds())
	if maxAge < 1 {
		maxAge = 1
	}
	return Cookie{
		Name:     p.Name,
		Value:    sess.ID,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   p.Secure,
		SameSite: p.SameSite,
	}
}

// ExpiredCookie builds the cookie that tells the browser to drop the session.
func (p CookiePolicy) ExpiredCookie() Cookie {
	return Cookie{
		Name:     p.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   p.Secure,
		SameSite: p.SameSite,
	}
}
