package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/cppla/qaforum/middleware"
	"github.com/cppla/qaforum/services"
	"github.com/cppla/qaforum/utils"
)

// AuthController handles accounts and sessions.
type AuthController struct {
	auth  *services.AuthService
	posts *services.PostService
}

// NewAuthController creates a new AuthController instance.
func NewAuthController(auth *services.AuthService, posts *services.PostService) *AuthController {
	return &AuthController{auth: auth, posts: posts}
}

// Register creates an account and returns a token pair.
func (a *AuthController) Register(ctx *gin.Context) {
	var req services.RegisterInput
	if !bindJSON(ctx, &req) {
		return
	}
	pair, err := a.auth.Register(ctx.Request.Context(), req)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Created(ctx, pair)
}

// Login exchanges credentials for a token pair.
func (a *AuthController) Login(ctx *gin.Context) {
	var req struct {
		Login    string `json:"login"`
		Username string `json:"username"`
		Password string `json:"password" binding:"required"`
	}
	if !bindJSON(ctx, &req) {
		return
	}
	login := req.Login
	if login == "" {
		login = req.Username
	}
	pair, err := a.auth.Login(ctx.Request.Context(), login, req.Password)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, pair)
}

// Refresh rotates the refresh token.
func (a *AuthController) Refresh(ctx *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if !bindJSON(ctx, &req) {
		return
	}
	pair, err := a.auth.Refresh(ctx.Request.Context(), req.RefreshToken)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, pair)
}

// Logout revokes the session.
func (a *AuthController) Logout(ctx *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	_ = ctx.ShouldBindJSON(&req)
	user := middleware.CurrentUser(ctx)
	token, exp := middleware.CurrentToken(ctx)
	if err := a.auth.Logout(ctx.Request.Context(), user.ID, req.RefreshToken, token, exp); err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"logged_out": true})
}

// Me returns the caller's own account.
func (a *AuthController) Me(ctx *gin.Context) {
	utils.Success(ctx, middleware.CurrentUser(ctx))
}

// UpdateProfile edits the caller's bio and avatar.
func (a *AuthController) UpdateProfile(ctx *gin.Context) {
	var req services.ProfileInput
	if !bindJSON(ctx, &req) {
		return
	}
	user, err := a.auth.UpdateProfile(ctx.Request.Context(), middleware.CurrentUser(ctx).ID, req)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, user)
}

// GetUserPublic returns a public profile by id.
func (a *AuthController) GetUserPublic(ctx *gin.Context) {
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	profile, err := a.posts.PublicProfile(ctx.Request.Context(), id)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, profile)
}
