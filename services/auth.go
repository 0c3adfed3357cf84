package services

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cppla/qaforum/config"
	"github.com/cppla/qaforum/models"
	"github.com/cppla/qaforum/utils"
)

// RegisterInput is the sign-up payload.
type RegisterInput struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// TokenPair is returned by login, register and refresh.
type TokenPair struct {
	AccessToken      string       `json:"access_token"`
	AccessExpiresAt  time.Time    `json:"access_expires_at"`
	RefreshToken     string       `json:"refresh_token"`
	RefreshExpiresAt time.Time    `json:"refresh_expires_at"`
	User             *models.User `json:"user"`
}

// AuthService owns accounts and session tokens.
type AuthService struct {
	db       *gorm.DB
	settings *SettingsService
}

func NewAuthService(db *gorm.DB, settings *SettingsService) *AuthService {
	return &AuthService{db: db, settings: settings}
}

// validUsername allows 3-32 letters, digits, '-' and '_'.
func validUsername(name string) bool {
	if l := len([]rune(name)); l < 3 || l > 32 {
		return false
	}
	for _, r := range name {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-' && r != '_' {
			return false
		}
	}
	return true
}

func validEmail(email string) bool {
	at := strings.IndexByte(email, '@')
	return at > 0 && at < len(email)-1 && strings.Contains(email[at:], ".") && !strings.ContainsAny(email, " \t\r\n")
}

// Register creates an account and signs it in. Usernames listed in the admin bootstrap
// configuration receive ADMIN.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*TokenPair, error) {
	if s.settings != nil {
		site, err := s.settings.Settings(ctx)
		if err != nil {
			return nil, err
		}
		if !site.AllowRegistration {
			return nil, utils.NewAuthorizationError("registration is closed")
		}
	}

	username := strings.TrimSpace(in.Username)
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if !validUsername(username) {
		return nil, utils.NewValidationError("username must be 3-32 letters, digits, '-' or '_'")
	}
	if !validEmail(email) {
		return nil, utils.NewValidationError("email is invalid")
	}
	if len(in.Password) < utils.MinPasswordLength {
		return nil, utils.NewValidationError("password must be at least %d characters", utils.MinPasswordLength)
	}

	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	user := &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Roles:        models.RoleSet{models.RoleUser},
		IsActive:     true,
	}
	for _, admin := range config.Get().AdminUsernames {
		if strings.EqualFold(admin, username) {
			user.Roles = append(user.Roles, models.RoleAdmin)
		}
	}

	var pair *TokenPair
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&models.User{}).Where("username = ? OR email = ?", username, email).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return utils.NewConflictError("username or email already registered")
		}
		if err := tx.Create(user).Error; err != nil {
			return err
		}
		pair, err = issueTokens(tx, user)
		return err
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, utils.NewConflictError("username or email already registered")
	}
	if err != nil {
		return nil, err
	}
	utils.L(ctx).Infow("user registered", "user_id", user.ID, "username", user.Username)
	return pair, nil
}

// Login checks credentials. Unknown users and wrong passwords look the same.
func (s *AuthService) Login(ctx context.Context, login, password string) (*TokenPair, error) {
	login = strings.TrimSpace(login)
	var user models.User
	err := s.db.WithContext(ctx).
		Where("username = ? OR email = ?", login, strings.ToLower(login)).
		First(&user).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if err != nil || !utils.CheckPassword(user.PasswordHash, password) {
		return nil, utils.NewAuthenticationError("invalid username or password")
	}
	if !user.IsActive {
		return nil, utils.NewAuthorizationError("account is suspended")
	}
	return issueTokens(s.db.WithContext(ctx), &user)
}

// Refresh rotates a refresh token: the presented one is revoked and a new pair issued.
func (s *AuthService) Refresh(ctx context.Context, token string) (*TokenPair, error) {
	var pair *TokenPair
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rt models.RefreshToken
		if err := tx.Where("token = ?", token).First(&rt).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return utils.NewAuthenticationError("invalid refresh token")
			}
			return err
		}
		if !rt.Usable(time.Now()) {
			return utils.NewAuthenticationError("refresh token expired or revoked")
		}
		var user models.User
		if err := tx.First(&user, rt.UserID).Error; err != nil {
			return notFoundOr(err, "user")
		}
		if !user.IsActive {
			return utils.NewAuthorizationError("account is suspended")
		}
		res := tx.Model(&models.RefreshToken{}).
			Where("id = ? AND revoked_at IS NULL", rt.ID).
			Update("revoked_at", time.Now())
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return utils.NewAuthenticationError("refresh token already used")
		}
		var err error
		pair, err = issueTokens(tx, &user)
		return err
	})
	return pair, err
}

// Logout revokes the refresh token and blacklists the access token until it expires.
func (s *AuthService) Logout(ctx context.Context, userID uint, refreshToken, accessToken string, accessExpiresAt time.Time) error {
	if accessToken != "" {
		utils.BlacklistToken(accessToken, accessExpiresAt)
	}
	if refreshToken == "" {
		return nil
	}
	return s.db.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("token = ? AND user_id = ? AND revoked_at IS NULL", refreshToken, userID).
		Update("revoked_at", time.Now()).Error
}

// Profile returns a user by id.
func (s *AuthService) Profile(ctx context.Context, userID uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		return nil, notFoundOr(err, "user")
	}
	return &user, nil
}

// ProfileInput is the self-service profile update.
type ProfileInput struct {
	Bio       *string `json:"bio"`
	AvatarURL *string `json:"avatar_url"`
}

// UpdateProfile edits the caller's bio and avatar.
func (s *AuthService) UpdateProfile(ctx context.Context, userID uint, in ProfileInput) (*models.User, error) {
	updates := map[string]interface{}{}
	if in.Bio != nil {
		updates["bio"] = utils.SanitizeText(*in.Bio)
	}
	if in.AvatarURL != nil {
		avatar := strings.TrimSpace(*in.AvatarURL)
		if avatar != "" && !strings.HasPrefix(avatar, "https://") && !strings.HasPrefix(avatar, "http://") {
			return nil, utils.NewValidationError("avatar_url must be an http(s) URL")
		}
		updates["avatar_url"] = avatar
	}
	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Updates(updates).Error; err != nil {
			return nil, err
		}
	}
	return s.Profile(ctx, userID)
}

func issueTokens(tx *gorm.DB, user *models.User) (*TokenPair, error) {
	cfg := config.Get()
	access, accessExp, err := utils.GenerateToken(user, time.Duration(cfg.AccessTokenTTLMinutes)*time.Minute)
	if err != nil {
		return nil, err
	}
	rt := models.RefreshToken{
		UserID:    user.ID,
		Token:     uuid.NewString(),
		ExpiresAt: time.Now().Add(time.Duration(cfg.RefreshTokenTTLHours) * time.Hour),
	}
	if err := tx.Create(&rt).Error; err != nil {
		return nil, err
	}
	return &TokenPair{
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     rt.Token,
		RefreshExpiresAt: rt.ExpiresAt,
		User:             user,
	}, nil
}
