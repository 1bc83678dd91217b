// Package handlers contains the HTTP handlers for the application's API endpoints.
package handlers

import (
	"context"
	"net/http"
	"strings"

	"livechat/internal/models"
	appwebsocket "livechat/internal/websocket"
)

// ContextKey is a custom type for context keys to avoid collisions.
type ContextKey string

// UserContextKey is the key used to store the user session in the request context.
const UserContextKey = ContextKey("user")

// Auth guards the REST surface with bearer access tokens. Token decoding and
// session verification go through the same assistant the chat sessions use.
type Auth struct {
	Assistant appwebsocket.Assistant
}

// Middleware validates the access token and injects the user session into
// the request context.
func (a *Auth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString := extractToken(r)
		if tokenString == "" {
			RespondWithError(w, http.StatusUnauthorized, "Authorization token is missing")
			return
		}

		userID, numToken, serr := a.Assistant.DecodeAndVerifyToken(tokenString)
		if serr != nil {
			RespondWithStatusError(w, serr)
			return
		}

		session, serr := a.Assistant.CheckNumTokenAndGetUser(userID, numToken)
		if serr != nil {
			RespondWithStatusError(w, serr)
			return
		}

		ctx := context.WithValue(r.Context(), UserContextKey, session)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// UserFromContext returns the authenticated user session, or nil when the
// request did not pass the auth middleware.
func UserFromContext(r *http.Request) *models.UserSession {
	session, _ := r.Context().Value(UserContextKey).(*models.UserSession)
	return session
}

// extractToken pulls the bearer token from the Authorization header, falling
// back to the 'token' query parameter.
func extractToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return r.URL.Query().Get("token")
}
