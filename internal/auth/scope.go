package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RoleAdmin is the scope required by administrative operations. Any other
// role (including the empty one) is an ordinary user.
const RoleAdmin = "admin"

const identityKey = "auth.identity"

// Allow reports whether an identity satisfies a scope requirement. An empty
// requirement admits any authenticated identity. It is total: no input,
// including zero identities, makes it panic; policy evaluation denies
// instead of failing.
func Allow(required []string, id Identity) bool {
	if len(required) == 0 {
		return id.Subject != ""
	}
	for _, scope := range required {
		if id.Role == scope {
			return true
		}
	}
	return false
}

// IdentityFrom returns the identity the middleware resolved for this
// request, if any.
func IdentityFrom(c *gin.Context) (Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return Identity{}, false
	}
	id, ok := v.(Identity)
	return id, ok
}

// Middleware resolves the bearer credential into an Identity and aborts
// with 401 when it cannot. Scope checks happen separately in RequireScopes,
// so a route can demand authentication without naming a role.
func Middleware(a *Authenticator, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := BearerToken(c.GetHeader("Authorization"))
		if err != nil {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		id, err := a.Verify(raw)
		if err != nil {
			log.Debug("credential rejected", zap.Error(err))
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		c.Set(identityKey, id)
		c.Next()
	}
}

// RequireScopes aborts with 403 when the resolved identity does not satisfy
// the route's scope requirement. Forbidden is deliberately distinct from
// Unauthorized: the caller proved who they are, they just may not do this.
func RequireScopes(required []string, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, _ := IdentityFrom(c)
		if !Allow(required, id) {
			log.Debug("scope denied",
				zap.String("subject", id.Subject),
				zap.String("role", id.Role),
				zap.Strings("required", required))
			c.AbortWithStatus(http.StatusForbidden)
			return
		}
		c.Next()
	}
}
