package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/dating-api/internal/config"
	"github.com/dating-api/internal/models"
)

// 错误定义
var (
	ErrInvalidCredentials = Error("invalid username or password")
	ErrUsernameTaken      = Error("username already exists")
	ErrInvalidToken       = Error("invalid or expired token")
)

type Error string

func (e Error) Error() string {
	return string(e)
}

// Claims JWT令牌声明，字段名沿用 nameid / unique_name
type Claims struct {
	UserID   string `json:"nameid"`
	Username string `json:"unique_name"`
	jwt.RegisteredClaims
}

// Service 注册、登录与令牌签发
type Service struct {
	store  models.Store
	secret []byte
	expiry time.Duration
	now    func() time.Time
	log    logrus.FieldLogger
}

// NewService 创建认证服务
func NewService(store models.Store, cfg config.AuthConfig, log logrus.FieldLogger) *Service {
	expiry := cfg.TokenExpiry
	if expiry <= 0 {
		expiry = 24 * time.Hour
	}
	return &Service{
		store:  store,
		secret: []byte(cfg.JWTSecret),
		expiry: expiry,
		now:    time.Now,
		log:    log,
	}
}

// Register 创建新用户
func (s *Service) Register(ctx context.Context, req *models.UserForRegister) (*models.User, error) {
	user := models.NewUserFromRegister(req)

	exists, err := s.store.Users().Exists(ctx, user.Username)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrUsernameTaken
	}

	user.PasswordHash, user.PasswordSalt, err = HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	user.CreatedAt = now
	user.LastActive = now

	if err := s.store.Users().Create(ctx, user); err != nil {
		if errors.Is(err, models.ErrDuplicate) {
			return nil, ErrUsernameTaken
		}
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"user_id":  user.ID,
		"username": user.Username,
	}).Info("User registered")

	return user, nil
}

// Login 验证用户凭据并签发令牌
func (s *Service) Login(ctx context.Context, req *models.UserForLogin) (*models.LoginResponse, error) {
	user, err := s.store.Users().GetByUsername(ctx, req.Username)
	if errors.Is(err, models.ErrNotFound) {
		burnPassword(req.Password)
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if !VerifyPassword(req.Password, user.PasswordHash, user.PasswordSalt) {
		s.log.WithField("username", user.Username).Warn("Failed login attempt")
		return nil, ErrInvalidCredentials
	}

	token, err := s.GenerateToken(user)
	if err != nil {
		return nil, err
	}

	return &models.LoginResponse{
		Token: token,
		User:  models.ToUserForList(*user, s.now()),
	}, nil
}

// GenerateToken 生成JWT令牌
func (s *Service) GenerateToken(user *models.User) (string, error) {
	now := s.now()
	claims := Claims{
		UserID:   user.ID.String(),
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiry)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS512, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken 校验签名算法、签名与过期时间
func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS512.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if _, err := uuid.Parse(claims.UserID); err != nil {
		return nil, fmt.Errorf("%w: bad subject", ErrInvalidToken)
	}

	return claims, nil
}
