package middleware

import (
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cppla/qaforum/models"
	"github.com/cppla/qaforum/utils"
)

const (
	// ContextTokenKey stores the raw bearer token for logout.
	ContextTokenKey = "access_token"
	// ContextTokenExpiryKey stores the token's expiry time.
	ContextTokenExpiryKey = "access_token_expires_at"
)

// authenticate resolves the bearer token into an active user. It returns (nil, nil)
// when no Authorization header is present.
func authenticate(ctx *gin.Context, db *gorm.DB) (*models.User, error) {
	authHeader := ctx.GetHeader("Authorization")
	if authHeader == "" {
		return nil, nil
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return nil, utils.NewAuthenticationError("invalid authorization header format")
	}
	tokenString := strings.TrimSpace(parts[1])
	if tokenString == "" {
		return nil, utils.NewAuthenticationError("empty bearer token")
	}
	if utils.IsTokenBlacklisted(tokenString) {
		return nil, utils.NewAuthenticationError("token revoked")
	}
	claims, err := utils.ParseToken(tokenString)
	if err != nil {
		return nil, utils.NewAuthenticationError("invalid token")
	}

	// Load the row so bans and role changes apply before the token expires.
	var user models.User
	if err := db.WithContext(ctx.Request.Context()).First(&user, claims.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.NewAuthenticationError("account no longer exists")
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, utils.NewAuthorizationError("account is suspended")
	}

	ctx.Set(utils.ContextUserKey, &user)
	ctx.Set(ContextTokenKey, tokenString)
	if claims.ExpiresAt != nil {
		ctx.Set(ContextTokenExpiryKey, claims.ExpiresAt.Time)
	}
	return &user, nil
}

// AuthRequired ensures the request carries a valid token for an active user.
func AuthRequired(db *gorm.DB) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if CurrentUser(ctx) != nil {
			ctx.Next()
			return
		}
		user, err := authenticate(ctx, db)
		if err != nil {
			utils.Abort(ctx, err)
			return
		}
		if user == nil {
			utils.Abort(ctx, utils.NewAuthenticationError("authorization header missing"))
			return
		}
		ctx.Next()
	}
}

// OptionalAuth attaches the user when a valid token is present and otherwise lets the
// request through anonymously.
func OptionalAuth(db *gorm.DB) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if _, err := authenticate(ctx, db); err != nil {
			utils.L(ctx.Request.Context()).Debugw("optional auth ignored token", "path", ctx.Request.URL.Path, "err", err)
		}
		ctx.Next()
	}
}

// RequireRoles admits users holding at least one of roles. It must run after
// AuthRequired.
func RequireRoles(roles ...models.Role) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		user := CurrentUser(ctx)
		if user == nil {
			utils.Abort(ctx, utils.NewAuthenticationError("authentication required"))
			return
		}
		if !utils.HasAny(user.Roles, roles) {
			utils.Abort(ctx, utils.NewAuthorizationError("insufficient permissions"))
			return
		}
		ctx.Next()
	}
}

// CurrentUser returns the authenticated user or nil.
func CurrentUser(ctx *gin.Context) *models.User {
	if v, ok := ctx.Get(utils.ContextUserKey); ok {
		if u, ok := v.(*models.User); ok {
			return u
		}
	}
	return nil
}

// CurrentToken returns the bearer token and its expiry, if any.
func CurrentToken(ctx *gin.Context) (string, time.Time) {
	token := ctx.GetString(ContextTokenKey)
	exp, _ := ctx.Get(ContextTokenExpiryKey)
	t, _ := exp.(time.Time)
	return token, t
}
