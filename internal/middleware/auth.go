package middleware

import (
	"crypto/subtle"
	"relay-story-server/internal/auth"
	"relay-story-server/internal/domain"
	"relay-story-server/internal/errors"
	"strings"

	"github.com/gin-gonic/gin"
)

const identityKey = "identity"

type Auth struct {
	Verifier       *auth.Verifier
	InternalSecret string
}

func (m *Auth) AuthMiddleWare() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		authHeader := ctx.GetHeader("Authorization")
		if authHeader == "" {
			ctx.Error(errors.Unauthenticated("Authorization is not found!", nil))
			ctx.Abort()
			return
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		parsedToken, err := m.Verifier.VerifyJWT(token)
		if err != nil {
			ctx.Error(errors.Unauthenticated("Invalid token!", err))
			ctx.Abort()
			return
		}

		identity, err := auth.IdentityFromToken(parsedToken)
		if err != nil {
			ctx.Error(errors.Unauthenticated("Invalid token!", err))
			ctx.Abort()
			return
		}

		ctx.Set(identityKey, identity)
		ctx.Next()
	}
}

func (m *Auth) InternalAuthMiddleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		token := strings.TrimPrefix(
			ctx.GetHeader("Authorization"),
			"Bearer ",
		)

		if subtle.ConstantTimeCompare([]byte(token), []byte(m.InternalSecret)) != 1 {
			ctx.Error(errors.Unauthenticated("Unauthorized internal call!", nil))
			ctx.Abort()
			return
		}

		ctx.Next()
	}
}

// SetIdentity stores the caller on the request context.
func SetIdentity(ctx *gin.Context, identity domain.Identity) {
	ctx.Set(identityKey, identity)
}

// IdentityFrom returns the caller set by AuthMiddleWare.
func IdentityFrom(ctx *gin.Context) (domain.Identity, error) {
	v, ok := ctx.Get(identityKey)
	if !ok {
		return domain.Identity{}, errors.Unauthenticated("No caller identity", nil)
	}
	identity, ok := v.(domain.Identity)
	if !ok || identity.UserID == 0 {
		return domain.Identity{}, errors.Unauthenticated("No caller identity", nil)
	}
	return identity, nil
}
