// Package auth issues and verifies JWT session tokens carried in a cookie
// or the Authorization header, and provides the middleware gating every
// identity-scoped endpoint. Handlers never see a request without a
// verified email in its context.
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"

	"github.com/ptracker-app/ptracker/internal/logger"
)

// Claims are the JWT claims of one session: the standard set plus the
// verified user email.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}

// ContextKey is a private type for context values to avoid collisions.
type ContextKey string

// emailKey is the context key under which the middleware stores the
// resolved identity.
const emailKey ContextKey = "userEmail"

// Auth handles session issuance and verification.
type Auth struct {
	authCookieName             string
	authCookieSigningSecretKey []byte
	sessionTTL                 time.Duration
}

// New creates an Auth with the given cookie name, HMAC signing secret and
// session lifetime.
func New(
	authCookieName string,
	authCookieSigningSecretKey []byte,
	sessionTTL time.Duration,
) *Auth {
	return &Auth{
		authCookieName:             authCookieName,
		authCookieSigningSecretKey: authCookieSigningSecretKey,
		sessionTTL:                 sessionTTL,
	}
}

// IssueSession signs a session token for the given email and attaches it to
// the response as both a cookie and an Authorization header.
func (a *Auth) IssueSession(response http.ResponseWriter, email string) error {
	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.sessionTTL)),
		},
		Email: email,
	}

	JWTString, err := a.buildJWTString(claims)
	if err != nil {
		return err
	}

	response.Header().Set("Authorization", JWTString)

	http.SetCookie(
		response,
		&http.Cookie{
			Name:     a.authCookieName,
			Value:    JWTString,
			Path:     "/",
			HttpOnly: true,
			Expires:  now.Add(a.sessionTTL),
		},
	)

	return nil
}

// ClearSession expires the session cookie.
func (a *Auth) ClearSession(response http.ResponseWriter) {
	http.SetCookie(
		response,
		&http.Cookie{
			Name:     a.authCookieName,
			Value:    "",
			Path:     "/",
			HttpOnly: true,
			MaxAge:   -1,
		},
	)
}

// AuthenticateUser rejects requests without a valid, unexpired session
// token with 401 before any store is touched. On success the verified
// email is stored in the request context.
func (a *Auth) AuthenticateUser(h http.Handler) http.Handler {
	middleware := func(response http.ResponseWriter, request *http.Request) {
		email, ok := a.resolveEmail(request)
		if !ok {
			respondUnauthenticated(response)
			return
		}

		ctx := context.WithValue(request.Context(), emailKey, email)
		h.ServeHTTP(response, request.WithContext(ctx))
	}

	return http.HandlerFunc(middleware)
}

// EmailFromContext returns the identity resolved by AuthenticateUser.
func EmailFromContext(ctx context.Context) (string, bool) {
	email, ok := ctx.Value(emailKey).(string)
	return email, ok && email != ""
}

// ContextWithEmail injects an identity directly, bypassing token
// verification. Intended for tests.
func ContextWithEmail(ctx context.Context, email string) context.Context {
	return context.WithValue(ctx, emailKey, email)
}

func (a *Auth) resolveEmail(request *http.Request) (string, bool) {
	tokenString := a.getTokenStringFromAuthorizationHeaderOrCookie(request)
	if tokenString == "" {
		return "", false
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return a.authCookieSigningSecretKey, nil
		},
	)
	if err != nil || !token.Valid {
		logger.Log.Debugln("rejecting session token:", err)
		return "", false
	}

	return claims.Email, claims.Email != ""
}

func (a *Auth) getTokenStringFromAuthorizationHeaderOrCookie(request *http.Request) string {
	tokenString := request.Header.Get("Authorization")
	if tokenString != "" {
		return tokenString
	}
	cookie, err := request.Cookie(a.authCookieName)
	if err == nil {
		tokenString = cookie.Value
	}

	return tokenString
}

func (a *Auth) buildJWTString(claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, *claims)

	tokenString, err := token.SignedString(a.authCookieSigningSecretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

func respondUnauthenticated(response http.ResponseWriter) {
	response.Header().Set("Content-Type", "application/json")
	response.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(response).Encode(map[string]string{"error": "Not authenticated"})
}
