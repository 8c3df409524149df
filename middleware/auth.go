// Package middleware holds the HTTP middleware shared by the API and the
// socket endpoint.
package middleware

import (
	"context"
	"log"
	"net/http"
	"strings"

	"github.com/clerk/clerk-sdk-go/v2"
	clerkhttp "github.com/clerk/clerk-sdk-go/v2/http"

	"milkroad_server/helpers"
)

type ctxKey string

const callerIDKey ctxKey = "callerID"

// DebugUserHeader names the caller in development mode
const DebugUserHeader = "X-Debug-User"

// VerifiedCallerHeader carries the authenticated caller into the socket
// server's handshake. Any client-supplied value is discarded.
const VerifiedCallerHeader = "X-Verified-Caller"

// WithCaller stores the authenticated caller id in ctx
func WithCaller(ctx context.Context, callerID string) context.Context {
	return context.WithValue(ctx, callerIDKey, callerID)
}

// CallerFromContext returns the authenticated caller id
func CallerFromContext(ctx context.Context) (string, bool) {
	callerID, ok := ctx.Value(callerIDKey).(string)
	return callerID, ok && callerID != ""
}

// Authenticator verifies the caller of each request. With Clerk enabled it
// checks the session token in the Authorization header; otherwise it trusts
// DebugUserHeader.
type Authenticator struct {
	ClerkEnabled bool
}

func NewAuthenticator(clerkSecretKey string) *Authenticator {
	if clerkSecretKey != "" {
		clerk.SetKey(clerkSecretKey)
		log.Println("🔐 Clerk authentication enabled")
		return &Authenticator{ClerkEnabled: true}
	}
	log.Printf("⚠️ CLERK_SECRET_KEY not set: trusting the %s header. Do not run this in production.", DebugUserHeader)
	return &Authenticator{}
}

// identify wraps next so that it only runs for an authenticated caller,
// with the caller id in the request context
func (a *Authenticator) identify(next http.Handler) http.Handler {
	if !a.ClerkEnabled {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			callerID := strings.TrimSpace(r.Header.Get(DebugUserHeader))
			if callerID == "" {
				unauthorized(w)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), callerID)))
		})
	}

	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := clerk.SessionClaimsFromContext(r.Context())
		if !ok || claims.Subject == "" {
			unauthorized(w)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), claims.Subject)))
	})
	return clerkhttp.WithHeaderAuthorization()(inner)
}

// RequireAuth rejects requests without a verified caller
func (a *Authenticator) RequireAuth(next http.Handler) http.Handler {
	return a.identify(next)
}

// SocketAuth authenticates the socket.io handshake and forwards the caller
// id in VerifiedCallerHeader. Browsers cannot set headers on a websocket
// upgrade, so a token query parameter is accepted as the bearer token.
func (a *Authenticator) SocketAuth(next http.Handler) http.Handler {
	forward := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		callerID, _ := CallerFromContext(r.Context())
		r.Header.Set(VerifiedCallerHeader, callerID)
		next.ServeHTTP(w, r)
	})
	identified := a.identify(forward)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Header.Del(VerifiedCallerHeader)
		if r.Header.Get("Authorization") == "" {
			if token := r.URL.Query().Get("token"); token != "" {
				r.Header.Set("Authorization", "Bearer "+token)
			}
		}
		if !a.ClerkEnabled && r.Header.Get(DebugUserHeader) == "" {
			if user := r.URL.Query().Get("debugUser"); user != "" {
				r.Header.Set(DebugUserHeader, user)
			}
		}
		identified.ServeHTTP(w, r)
	})
}

func unauthorized(w http.ResponseWriter) {
	helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrorCodeUnauthorized, "missing or invalid authentication")
}
