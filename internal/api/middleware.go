/**
 * @description
 * This file contains custom middleware for the HTTP router. Middlewares are used
 * to process requests before they reach the final handler, perfect for tasks like
 * authentication, logging, or adding context to a request.
 *
 * AuthMiddleware validates the bearer token and attaches a RequestContext
 * (request id + authenticated user id) to the request. Handlers never read
 * identity from anywhere else.
 *
 * @dependencies
 * - context, net/http, strings: Standard Go libraries.
 * - github.com/golang-jwt/jwt/v5: Token parsing and validation.
 */

package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/achpay/payments-service/internal/app"
	"github.com/achpay/payments-service/internal/domain"
)

// requestContextKey is a custom type for the context key to avoid collisions.
type requestContextKey string

const rcKey requestContextKey = "requestContext"

// AuthMiddleware creates a middleware that validates HMAC-signed JWT tokens
// and attaches the caller's RequestContext.
func AuthMiddleware(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, "Authorization header required", http.StatusUnauthorized)
				return
			}

			tokenString := strings.TrimPrefix(authHeader, "Bearer ")
			if tokenString == authHeader {
				http.Error(w, "Invalid Authorization header format", http.StatusUnauthorized)
				return
			}

			token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
				}
				return []byte(jwtSecret), nil
			})
			if err != nil {
				http.Error(w, fmt.Sprintf("Invalid token: %v", err), http.StatusUnauthorized)
				return
			}
			if !token.Valid {
				http.Error(w, "Invalid token", http.StatusUnauthorized)
				return
			}

			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok {
				http.Error(w, "Invalid token claims", http.StatusUnauthorized)
				return
			}

			userID, err := subjectUserID(claims)
			if err != nil {
				http.Error(w, "User ID not found in token", http.StatusUnauthorized)
				return
			}

			rc := domain.NewRequestContext(userID)
			if header := strings.TrimSpace(r.Header.Get("X-Request-ID")); header != "" {
				if parsed, err := uuid.Parse(header); err == nil {
					rc.RequestID = parsed
				}
			}

			ctx := context.WithValue(r.Context(), rcKey, rc)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// subjectUserID extracts the numeric user id from the sub claim, which some
// issuers encode as a JSON number and others as a string.
func subjectUserID(claims jwt.MapClaims) (int64, error) {
	switch sub := claims["sub"].(type) {
	case string:
		return strconv.ParseInt(sub, 10, 64)
	case float64:
		return int64(sub), nil
	default:
		return 0, fmt.Errorf("unsupported sub claim type %T", sub)
	}
}

// GetRequestContext retrieves the authenticated RequestContext from the
// request context. Handlers should use this to get the caller's identity.
func GetRequestContext(ctx context.Context) (domain.RequestContext, bool) {
	rc, ok := ctx.Value(rcKey).(domain.RequestContext)
	return rc, ok
}

// RateLimitMiddleware throttles mutating requests per user through the
// distributed limiter. Reads pass through untouched. A limiter outage fails
// open.
func RateLimitMiddleware(limiter *app.RedisRateLimiter, limit int, window time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter == nil || limit <= 0 {
				next.ServeHTTP(w, r)
				return
			}
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				next.ServeHTTP(w, r)
				return
			}

			rc, ok := GetRequestContext(r.Context())
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			count, retryAfter, err := limiter.ConsumeRateLimit(r.Context(), "mutations", strconv.FormatInt(rc.UserID, 10), limit, window)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}
			if count > limit {
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				http.Error(w, "Too many requests", http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
