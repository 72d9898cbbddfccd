package middleware

import (
	"context"
	"net/http"
	"time"

	"vitrine/internal/session"
)

// VisitorHeader lets non-browser clients carry their visitor ID without cookies
const VisitorHeader = "X-Visitor-ID"

const visitorIDKey contextKey = "visitor_id"

// VisitorSession makes sure every request carries an anonymous visitor ID.
// The ID is read from the session cookie or the X-Visitor-ID header; a missing
// or malformed one is replaced by a fresh ID, set as an HttpOnly cookie and
// echoed in the response header.
func VisitorSession(ttl time.Duration, secure bool) func(http.Handler) http.Handler {
	if ttl <= 0 {
		ttl = session.DefaultTTL
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			visitorID := ""
			if c, err := r.Cookie(session.CookieName); err == nil {
				visitorID = c.Value
			}
			if !session.ValidVisitorID(visitorID) {
				visitorID = r.Header.Get(VisitorHeader)
			}

			if !session.ValidVisitorID(visitorID) {
				visitorID = session.NewVisitorID()
			}
			// sliding expiry, like the stored state
			http.SetCookie(w, &http.Cookie{
				Name:     session.CookieName,
				Value:    visitorID,
				Path:     "/",
				MaxAge:   int(ttl.Seconds()),
				HttpOnly: true,
				Secure:   secure,
				SameSite: http.SameSiteLaxMode,
			})
			w.Header().Set(VisitorHeader, visitorID)

			ctx := context.WithValue(r.Context(), visitorIDKey, visitorID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetVisitorID extracts the visitor ID from request context
func GetVisitorID(ctx context.Context) (string, bool) {
	visitorID, ok := ctx.Value(visitorIDKey).(string)
	return visitorID, ok
}
