package model

import "time"

// Session binds a browser session to an authenticated identity. The session
// ID is the only thing embedded in the client's cookie token; everything else
// lives server-side so sign-out takes effect immediately.
type Session struct {
	ID        string
	Identity  Identity
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Expired reports whether the session is past its expiry at the given time.
func (s Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
