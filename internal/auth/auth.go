// Package auth verifies bearer tokens issued by the identity provider and
// carries the resulting principal on the request context.
package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"labcommerce/internal/domain"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
)

type contextKey string

const principalKey contextKey = "principal"

// Claims are the token claims we rely on: the subject and its roles.
type Claims struct {
	jwt.RegisteredClaims
	Roles []string `json:"roles"`
}

type Config struct {
	SigningKey []byte
	Issuer     string
	Audience   string
	// Dev admits requests without a token as an admin "dev-user".
	Dev bool
}

func WithPrincipal(ctx context.Context, p domain.Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFromContext returns the caller, or a zero Principal if unauthenticated.
func PrincipalFromContext(ctx context.Context) domain.Principal {
	p, _ := ctx.Value(principalKey).(domain.Principal)
	return p
}

func abort(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}

// Middleware rejects requests without a valid bearer token.
func Middleware(cfg Config, logger zerolog.Logger) gin.HandlerFunc {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256"}), jwt.WithExpirationRequired()}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}
	parser := jwt.NewParser(opts...)

	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" && cfg.Dev {
			setPrincipal(c, domain.Principal{Subject: "dev-user", Roles: []string{domain.RolePatient, domain.RoleAdmin}})
			c.Next()
			return
		}
		if header == "" {
			abort(c, http.StatusUnauthorized, "missing authorization header")
			return
		}
		scheme, tokenStr, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "bearer") || tokenStr == "" {
			abort(c, http.StatusUnauthorized, "invalid authorization format")
			return
		}

		claims := &Claims{}
		token, err := parser.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (any, error) {
			return cfg.SigningKey, nil
		})
		if err != nil || !token.Valid || claims.Subject == "" {
			logger.Debug().Err(err).Str("path", c.FullPath()).Msg("token rejected")
			abort(c, http.StatusUnauthorized, "invalid token")
			return
		}
		setPrincipal(c, domain.Principal{Subject: claims.Subject, Roles: claims.Roles})
		c.Next()
	}
}

func setPrincipal(c *gin.Context, p domain.Principal) {
	c.Request = c.Request.WithContext(WithPrincipal(c.Request.Context(), p))
}

// RequireRole admits callers holding at least one of roles. Admins always pass.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		p := PrincipalFromContext(c.Request.Context())
		if p.IsAdmin() {
			c.Next()
			return
		}
		for _, r := range roles {
			if p.HasRole(r) {
				c.Next()
				return
			}
		}
		abort(c, http.StatusForbidden, fmt.Sprintf("required role: %s", strings.Join(roles, " or ")))
	}
}

// Sign issues an HS256 token for subject. Used by tests and local tooling;
// production tokens come from the identity provider.
func Sign(cfg Config, subject string, roles []string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Roles: roles,
	}
	if cfg.Audience != "" {
		claims.Audience = jwt.ClaimStrings{cfg.Audience}
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(cfg.SigningKey)
}
