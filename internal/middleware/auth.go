package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/sigmarp/medical-api/internal/model"
	"github.com/sigmarp/medical-api/pkg/auth"
	"github.com/sigmarp/medical-api/pkg/httputil"
)

const ContextActor = "actor"

// AccountSource returns the stored account for dni, or nil when none is
// registered.
type AccountSource interface {
	Account(ctx context.Context, dni string) (*model.User, error)
}

type AuthMiddleware struct {
	verifier auth.TokenVerifier
	accounts AccountSource
}

func NewAuthMiddleware(verifier auth.TokenVerifier) *AuthMiddleware {
	return &AuthMiddleware{verifier: verifier}
}

// WithAccounts makes stored accounts authoritative: their grants replace the
// roles claimed by the token and disabled accounts are refused.
func (m *AuthMiddleware) WithAccounts(accounts AccountSource) *AuthMiddleware {
	m.accounts = accounts
	return m
}

// Authenticate verifies the bearer token and stores the caller in the context.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			httputil.RespondWithStatus(c, http.StatusUnauthorized, "missing authorization header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			httputil.RespondWithStatus(c, http.StatusUnauthorized, "invalid authorization format")
			return
		}

		actor, err := m.verifier.Verify(strings.TrimSpace(parts[1]))
		if err != nil {
			httputil.RespondWithStatus(c, http.StatusUnauthorized, "invalid token")
			return
		}

		if m.accounts != nil && actor.Role != model.RoleAdmin {
			account, err := m.accounts.Account(c.Request.Context(), actor.DNI)
			if err != nil {
				httputil.RespondWithStatus(c, http.StatusServiceUnavailable, "unable to resolve account")
				return
			}
			if account != nil {
				if !account.Enabled {
					httputil.RespondWithStatus(c, http.StatusForbidden, "account disabled")
					return
				}
				actor.Roles = account.Roles
			}
		}

		c.Set(ContextActor, *actor)
		c.Next()
	}
}

// RequireRole lets the request through when the caller holds any of roles.
// Admins always pass.
func (m *AuthMiddleware) RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := ActorFrom(c)
		if !ok {
			httputil.RespondWithStatus(c, http.StatusUnauthorized, "unauthenticated")
			return
		}
		if actor.Role == model.RoleAdmin {
			c.Next()
			return
		}
		for _, r := range roles {
			if actor.HasRole(r) {
				c.Next()
				return
			}
		}
		httputil.RespondWithStatus(c, http.StatusForbidden, "permission denied")
	}
}

// ActorFrom returns the authenticated caller.
func ActorFrom(c *gin.Context) (model.Actor, bool) {
	v, ok := c.Get(ContextActor)
	if !ok {
		return model.Actor{}, false
	}
	actor, ok := v.(model.Actor)
	return actor, ok
}
