package server

import (
	"strings"

	"github.com/gin-gonic/gin"
	authdomain "github.com/nutrikit/nutrikit/internal/auth/domain"
	obscontext "github.com/nutrikit/nutrikit/internal/observability/context"
)

const identityKey = "identity"

// BearerRequired resolves the Authorization header to a caller identity
// and stores it on the request context.
func (s *Server) BearerRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := strings.TrimSpace(c.GetHeader("Authorization"))
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		raw := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
		identity, err := s.authsvc.VerifyToken(raw)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		c.Set(identityKey, identity)
		c.Request = c.Request.WithContext(
			obscontext.WithActor(c.Request.Context(), "user", identity.UserID.String()),
		)
		c.Next()
	}
}

// RequireRole rejects callers holding none of the given roles.
func (s *Server) RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := currentIdentity(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		for _, role := range roles {
			if identity.HasRole(role) {
				c.Next()
				return
			}
		}
		AbortWithError(c, ErrForbidden)
	}
}

// RateLimit guards a route with the shared limiter, keyed by route,
// caller identity and network origin.
func (s *Server) RateLimit(route string) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller := "anonymous"
		if identity, ok := currentIdentity(c); ok {
			caller = identity.UserID.String()
		}
		key := route + "|" + caller + "|" + c.ClientIP()

		allowed, err := s.limiter.Allow(c.Request.Context(), key)
		if err != nil {
			// A broken limiter backend fails open rather than taking
			// the route down.
			c.Next()
			return
		}
		if !allowed {
			if s.obsMetrics != nil {
				s.obsMetrics.RecordRateLimitDenied(route)
			}
			AbortWithError(c, ErrRateLimited)
			return
		}
		c.Next()
	}
}

func currentIdentity(c *gin.Context) (authdomain.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return authdomain.Identity{}, false
	}
	identity, ok := v.(authdomain.Identity)
	return identity, ok
}
