package middleware

import (
	"net/http"

	"github.com/originrp/sentryn/sessions"
	"github.com/originrp/sentryn/userctx"
)

// RequireToken gates the link entry point: the request must carry a token
// query parameter. A missing token renders the given not-found handler,
// the same one invalid tokens get, so the two are indistinguishable.
func RequireToken(notFound http.HandlerFunc) func(http.Handler) http.Handler {
	if notFound == nil {
		notFound = http.NotFound
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Get("token") == "" {
				notFound(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireDiscordSession gates the Steam callback: the session must have
// passed through initiation, carrying both the Discord identity and the
// pending token. The identity is also placed on the request context.
func RequireDiscordSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		state := sessions.FromRequest(r)
		if !state.HasDiscordIdentity() || !state.HasPendingToken() {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}

		ctx := userctx.WithDiscordID(r.Context(), state.DiscordID())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireSession rejects requests whose session never saw initiation.
func RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !sessions.FromRequest(r).HasDiscordIdentity() {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
