package middleware

import (
	"net"
	"net/http"
	"strings"

	"mindmap-backend/pkg/auth"
	"mindmap-backend/pkg/common"
	pkgerrors "mindmap-backend/pkg/errors"

	"go.uber.org/zap"
)

// Headers set by the Lambda entry point once API Gateway has validated the JWT
const (
	HeaderGatewayAuthorized = "X-API-Gateway-Authorized"
	HeaderUserID            = "X-User-ID"
	HeaderUserEmail         = "X-User-Email"
	HeaderUserRoles         = "X-User-Roles"
)

// AuthConfig configures Authenticate
type AuthConfig struct {
	// Validator checks bearer tokens; it may be nil when TrustGateway is set
	Validator *auth.JWTValidator
	// TrustGateway accepts the user headers set behind API Gateway
	TrustGateway bool
	IPLimiter    auth.RateLimiter
	UserLimiter  auth.RateLimiter
}

// Authenticate resolves the calling user from a bearer token or, behind API
// Gateway, from the forwarded user headers and applies per-IP and per-user
// rate limits
func Authenticate(cfg AuthConfig, errs *pkgerrors.ErrorHandler, logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientIP := getClientIP(r)
			if !allow(r, cfg.IPLimiter, clientIP) {
				errs.Handle(w, r, pkgerrors.NewThrottledError("rate limit exceeded"))
				return
			}

			user, err := resolveUser(r, cfg)
			if err != nil {
				logger.Debug("Authentication failed",
					zap.Error(err),
					zap.String("ip", clientIP),
					zap.String("path", r.URL.Path),
				)
				errs.Handle(w, r, err)
				return
			}

			if !allow(r, cfg.UserLimiter, user.UserID) {
				errs.Handle(w, r, pkgerrors.NewThrottledError("user rate limit exceeded"))
				return
			}

			ctx := auth.SetUserInContext(r.Context(), user)
			ctx = common.WithUserID(ctx, user.UserID)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func resolveUser(r *http.Request, cfg AuthConfig) (*auth.UserContext, error) {
	if cfg.TrustGateway && r.Header.Get(HeaderGatewayAuthorized) == "true" {
		userID := r.Header.Get(HeaderUserID)
		if userID == "" {
			return nil, pkgerrors.NewUnauthorizedError("missing user context from API Gateway")
		}
		roles := []string{"authenticated"}
		if v := r.Header.Get(HeaderUserRoles); v != "" {
			roles = strings.Split(v, ",")
		}
		return &auth.UserContext{
			UserID: userID,
			Email:  r.Header.Get(HeaderUserEmail),
			Roles:  roles,
		}, nil
	}

	if cfg.Validator == nil {
		return nil, pkgerrors.NewUnauthorizedError("request not authorized by API Gateway")
	}

	token := extractToken(r)
	if token == "" {
		return nil, pkgerrors.NewUnauthorizedError("missing authentication token")
	}

	claims, err := cfg.Validator.ValidateToken(token)
	if err != nil {
		switch err {
		case auth.ErrExpiredToken:
			return nil, pkgerrors.NewUnauthorizedError("token has expired")
		case auth.ErrInvalidSignature:
			return nil, pkgerrors.NewUnauthorizedError("invalid token signature")
		default:
			return nil, pkgerrors.NewUnauthorizedError("invalid token")
		}
	}

	return &auth.UserContext{
		UserID: claims.UserID,
		Email:  claims.Email,
		Roles:  claims.Roles,
	}, nil
}

func allow(r *http.Request, limiter auth.RateLimiter, key string) bool {
	if limiter == nil {
		return true
	}
	ok, err := limiter.Allow(r.Context(), key)
	return err != nil || ok
}

// extractToken reads the bearer token from the Authorization header
func extractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

// getClientIP is the host part of RemoteAddr. Forwarding headers are only
// honoured when the router runs chi's RealIP behind a trusted proxy.
func getClientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
