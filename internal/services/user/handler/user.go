package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"invoicing-system/internal/apperror"
	"invoicing-system/internal/database/models"
	"invoicing-system/internal/logger"
	sysutils "invoicing-system/internal/utils"
)

const (
	USER_CACHE_PREFIX = "user:"
	CACHE_TTL_MEDIUM  = 30 * time.Minute

	minPasswordLength = 8
)

type RegisterInput struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	FullName string `json:"full_name"`
}

type LoginInput struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type AuthResult struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      models.User `json:"user"`
}

type UserHandler struct {
	db     *gorm.DB
	redis  *redis.Client
	tokens *sysutils.TokenManager
	log    zerolog.Logger
}

// NewUserHandler wires the account store. redisClient may be nil, in which
// case profiles are always read from the database.
func NewUserHandler(db *gorm.DB, redisClient *redis.Client, tokens *sysutils.TokenManager) *UserHandler {
	return &UserHandler{
		db:     db,
		redis:  redisClient,
		tokens: tokens,
		log:    logger.WithComponent("user"),
	}
}

func (s *UserHandler) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	const op = "user.Register"

	username := strings.TrimSpace(in.Username)
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if username == "" || email == "" || in.Password == "" {
		return nil, apperror.Validation(op, "username, email, and password are required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, apperror.Validation(op, "email is not valid")
	}
	if len(in.Password) < minPasswordLength {
		return nil, apperror.Validation(op, "password must be at least %d characters", minPasswordLength)
	}

	var existing models.User
	err := s.db.WithContext(ctx).Where("username = ? OR email = ?", username, email).First(&existing).Error
	if err == nil {
		return nil, apperror.New(op, apperror.ErrConflict, "username or email already exists")
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.Persistence(op, err)
	}

	pwHash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("%s: hash password: %w", op, err)
	}

	user := models.User{
		Username: username,
		Email:    email,
		Password: string(pwHash),
		FullName: strings.TrimSpace(in.FullName),
		IsActive: true,
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, apperror.Persistence(op, err)
	}

	s.log.Info().Int64("user_id", user.ID).Str("username", user.Username).Msg("user registered")
	return s.issue(op, user)
}

// Login accepts either the username or the email address.
func (s *UserHandler) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	const op = "user.Login"

	identity := strings.TrimSpace(in.Username)
	if identity == "" || in.Password == "" {
		return nil, apperror.Validation(op, "username and password are required")
	}

	invalid := apperror.New(op, apperror.ErrUnauthorized, "invalid username or password")

	var user models.User
	err := s.db.WithContext(ctx).
		Where("(username = ? OR email = ?) AND is_active = ?", identity, strings.ToLower(identity), true).
		First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, invalid
	}
	if err != nil {
		return nil, apperror.Persistence(op, err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(in.Password)); err != nil {
		s.log.Warn().Str("username", identity).Msg("failed login attempt")
		return nil, invalid
	}

	now := time.Now()
	user.LastLogin = &now
	if err := s.db.WithContext(ctx).Model(&user).Update("last_login", now).Error; err != nil {
		s.log.Warn().Err(err).Int64("user_id", user.ID).Msg("failed to record last login")
	}
	s.InvalidateUserCache(ctx, user.ID)

	return s.issue(op, user)
}

// GetUser returns the profile behind an authenticated request, cached in Redis when available.
func (s *UserHandler) GetUser(ctx context.Context, id int64) (*models.User, error) {
	const op = "user.GetUser"

	cacheKey := fmt.Sprintf("%s%d", USER_CACHE_PREFIX, id)
	if s.redis != nil {
		if cached, err := s.redis.Get(ctx, cacheKey).Bytes(); err == nil {
			var user models.User
			if json.Unmarshal(cached, &user) == nil {
				return &user, nil
			}
		}
	}

	var user models.User
	err := s.db.WithContext(ctx).Where("id = ? AND is_active = ?", id, true).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.NotFound(op, "user")
	}
	if err != nil {
		return nil, apperror.Persistence(op, err)
	}

	if s.redis != nil {
		if data, err := json.Marshal(user); err == nil {
			_ = s.redis.Set(ctx, cacheKey, data, CACHE_TTL_MEDIUM).Err()
		}
	}
	return &user, nil
}

func (s *UserHandler) InvalidateUserCache(ctx context.Context, userIDs ...int64) {
	if s.redis == nil {
		return
	}
	for _, id := range userIDs {
		_ = s.redis.Del(ctx, fmt.Sprintf("%s%d", USER_CACHE_PREFIX, id))
	}
}

func (s *UserHandler) issue(op string, user models.User) (*AuthResult, error) {
	token, exp, err := s.tokens.GenerateToken(user.ID, user.Username)
	if err != nil {
		return nil, fmt.Errorf("%s: generate token: %w", op, err)
	}
	return &AuthResult{Token: token, ExpiresAt: exp, User: user}, nil
}
