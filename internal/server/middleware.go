package server

import (
	"errors"
	"fmt"
	"strings"

	identitydomain "github.com/akadahq/akada/internal/identity/domain"
	"github.com/akadahq/akada/internal/requestctx"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	ctxAccountKey = "auth.account"
)

type accessClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}

// Authenticate resolves the bearer token to an identity account. The
// token's email claim is the lookup key; the stored role is what
// authorization decisions use, never a role claim from the token.
func (s *Server) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		claims, err := s.parseAccessToken(token)
		if err != nil {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		account, err := s.identityRepo.FindByEmail(c.Request.Context(), s.db, claims.Email)
		if err != nil {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		if account.Status != identitydomain.StatusActive {
			AbortWithError(c, ErrForbidden)
			return
		}

		c.Set(ctxAccountKey, account)
		ctx := requestctx.WithActor(c.Request.Context(), account.ID.String(), account.Role)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func (s *Server) parseAccessToken(raw string) (*accessClaims, error) {
	if s.cfg.AuthJWTSecret == "" {
		return nil, errors.New("auth secret not configured")
	}

	token, err := jwt.ParseWithClaims(raw, &accessClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(s.cfg.AuthJWTSecret), nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*accessClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid claims")
	}
	if strings.TrimSpace(claims.Email) == "" {
		return nil, errors.New("missing email claim")
	}
	return claims, nil
}

// RequireRole guards a route group to the listed roles. super_admin
// passes every check.
func (s *Server) RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		account := accountFromContext(c)
		if account == nil {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		if account.Role == identitydomain.RoleSuperAdmin {
			c.Next()
			return
		}
		for _, role := range roles {
			if account.Role == role {
				c.Next()
				return
			}
		}
		AbortWithError(c, ErrForbidden)
	}
}

// RateLimit applies the shared token bucket per client IP. A nil
// limiter or a redis outage degrades to pass-through; availability
// wins over strict limiting here.
func (s *Server) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.limiter == nil {
			c.Next()
			return
		}

		key := "ratelimit:" + c.ClientIP()
		result, err := s.limiter.Allow(c.Request.Context(), key, s.cfg.RateLimitRate, s.cfg.RateLimitBurst)
		if err != nil {
			c.Next()
			return
		}
		if !result.Allowed {
			if s.obsMetrics != nil {
				s.obsMetrics.RateLimitDenied.Inc()
			}
			c.Header("Retry-After", fmt.Sprintf("%.0f", result.RetryAfter.Seconds()))
			AbortWithError(c, ErrRateLimited)
			return
		}
		c.Next()
	}
}

func accountFromContext(c *gin.Context) *identitydomain.IdentityAccount {
	value, ok := c.Get(ctxAccountKey)
	if !ok {
		return nil
	}
	account, ok := value.(*identitydomain.IdentityAccount)
	if !ok {
		return nil
	}
	return account
}

// tenantScope reports the tenant the account may act on. Platform
// operators have no tenant binding and may act on any.
func tenantScope(account *identitydomain.IdentityAccount) (tenantBound bool, tenantID int64) {
	if account == nil || account.Role == identitydomain.RoleSuperAdmin || account.TenantID == nil {
		return false, 0
	}
	return true, int64(*account.TenantID)
}

func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
