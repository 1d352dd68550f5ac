package middleware

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/dealersense/chat-api/internal/api/handler/v1/response"
	"github.com/dealersense/chat-api/internal/domain"
	"github.com/dealersense/chat-api/internal/pkg/jwthelper"
	"github.com/dealersense/chat-api/internal/service"
)

const (
	ContextKeyUser = "user"

	tokenQueryParam = "token"
)

var (
	errMissingToken = errors.New("missing bearer token")
	errUnknownUser  = errors.New("token subject no longer exists")
)

type UserGetter interface {
	GetUser(ctx context.Context, id uint) (domain.User, error)
}

type Authenticator struct {
	signingKey []byte
	users      UserGetter
}

func NewAuthenticator(signingKey string, users UserGetter) *Authenticator {
	return &Authenticator{
		signingKey: []byte(signingKey),
		users:      users,
	}
}

// VerifyJWT accepts the token from the Authorization header, or from the token query
// parameter for websocket upgrades where browsers cannot set headers.
func (a *Authenticator) VerifyJWT() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		tokenString := bearerToken(ctx)
		if tokenString == "" {
			response.RenderErr(ctx, response.ErrUnauthorized(errMissingToken))
			return
		}

		claims, err := jwthelper.ParseToken(a.signingKey, tokenString)
		if err != nil {
			response.RenderErr(ctx, response.ErrUnauthorized(err))
			return
		}

		user, err := a.users.GetUser(ctx.Request.Context(), claims.UserID)
		if err != nil {
			if errors.Is(err, service.ErrUserNotFound) {
				response.RenderErr(ctx, response.ErrUnauthorized(errUnknownUser))
				return
			}
			response.RenderErr(ctx, response.ErrInternalServerError(fmt.Errorf("a.users.GetUser -> %w", err)))
			return
		}

		ctx.Set(ContextKeyUser, user)
		ctx.Next()
	}
}

// RequireRole must run after VerifyJWT.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		user, ok := UserFromContext(ctx)
		if !ok {
			response.RenderErr(ctx, response.ErrUnauthorized(errMissingToken))
			return
		}

		for _, role := range roles {
			if user.Role == role {
				ctx.Next()
				return
			}
		}

		response.RenderErr(ctx, response.ErrPermissionDenied(fmt.Errorf("role %v may not access this resource", user.Role)))
	}
}

func UserFromContext(ctx *gin.Context) (domain.User, bool) {
	v, ok := ctx.Get(ContextKeyUser)
	if !ok {
		return domain.User{}, false
	}
	user, ok := v.(domain.User)

	return user, ok
}

func bearerToken(ctx *gin.Context) string {
	header := ctx.GetHeader("Authorization")
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return strings.TrimSpace(token)
	}

	return ctx.Query(tokenQueryParam)
}
