package qbt

import (
	"net/http"
	"regexp"
	"strings"
	"time"
)

// SessionCookieName is the cookie carrying the daemon session id.
const SessionCookieName = "SID"

var (
	sidPattern     = regexp.MustCompile(`(?:^|[\s;,])SID=([^;]*)`)
	sidSafePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
)

// ExtractSessionID returns the SID value from a Set-Cookie header value:
// the text after "SID=" up to the first ';' or the end, trimmed.
func ExtractSessionID(setCookie string) (string, bool) {
	m := sidPattern.FindStringSubmatch(setCookie)
	if m == nil {
		return "", false
	}
	sid := strings.TrimSpace(m[1])
	if sid == "" {
		return "", false
	}
	return sid, true
}

// sessionFromHeader scans every Set-Cookie header; the last SID wins.
func sessionFromHeader(h http.Header) (string, bool) {
	var (
		sid   string
		found bool
	)
	for _, line := range h.Values("Set-Cookie") {
		if v, ok := ExtractSessionID(line); ok {
			sid, found = v, true
		}
	}
	return sid, found
}

// sessionExpiry reads the lifetime the daemon attached to the SID cookie.
// A zero time means the daemon gave none.
func sessionExpiry(h http.Header, now time.Time) time.Time {
	var expiry time.Time
	for _, line := range h.Values("Set-Cookie") {
		c, err := http.ParseSetCookie(line)
		if err != nil || c.Name != SessionCookieName {
			continue
		}
		switch {
		case c.MaxAge > 0:
			expiry = now.Add(time.Duration(c.MaxAge) * time.Second)
		case !c.Expires.IsZero():
			expiry = c.Expires
		}
	}
	return expiry
}

// isSafeSessionID reports whether sid only uses [A-Za-z0-9_-].
func isSafeSessionID(sid string) bool {
	return sidSafePattern.MatchString(sid)
}
