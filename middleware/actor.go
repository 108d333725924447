package middleware

import (
	"net/http"
	"strings"

	"github.com/originrp/sentryn/sessions"
	"github.com/originrp/sentryn/userctx"
)

// ActorContext tags every request context with an acting identity for the
// operational log: the Discord username once the session knows it, the
// client IP before that.
func ActorContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor := sessions.FromRequest(r).DiscordUsername()
		if actor == "" {
			actor = clientIP(r)
		}
		next.ServeHTTP(w, r.WithContext(userctx.WithActor(r.Context(), actor)))
	})
}

// clientIP extracts the client address, preferring proxy headers.
func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		ips := strings.Split(forwarded, ",")
		return strings.TrimSpace(ips[0])
	}

	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}

	ip := r.RemoteAddr
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		ip = ip[:idx]
	}
	return ip
}
