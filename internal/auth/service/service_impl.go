package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/golang-jwt/jwt/v5"
	authdomain "github.com/nutrikit/nutrikit/internal/auth/domain"
	"github.com/nutrikit/nutrikit/internal/clock"
	"github.com/nutrikit/nutrikit/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Cfg   config.Config
	Clock clock.Clock
}

type Service struct {
	db     *gorm.DB
	log    *zap.Logger
	secret []byte
	ttl    time.Duration
	clock  clock.Clock
}

func NewService(p ServiceParam) authdomain.Service {
	return &Service{
		db:     p.DB,
		log:    p.Log.Named("auth.service"),
		secret: []byte(p.Cfg.AuthJWTSecret),
		ttl:    p.Cfg.AuthTokenTTL,
		clock:  p.Clock,
	}
}

type claims struct {
	Roles []string `json:"roles"`
	jwt.RegisteredClaims
}

func (s *Service) Login(ctx context.Context, req authdomain.LoginRequest) (authdomain.LoginResult, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		return authdomain.LoginResult{}, authdomain.ErrInvalidCredentials
	}

	var user authdomain.User
	if err := s.db.WithContext(ctx).First(&user, "email = ?", email).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return authdomain.LoginResult{}, authdomain.ErrInvalidCredentials
		}
		return authdomain.LoginResult{}, err
	}

	if user.PasswordHash == nil ||
		bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(req.Password)) != nil {
		return authdomain.LoginResult{}, authdomain.ErrInvalidCredentials
	}

	token, err := s.IssueToken(user)
	if err != nil {
		return authdomain.LoginResult{}, err
	}

	return authdomain.LoginResult{
		Token:     token,
		ExpiresIn: int64(s.ttl.Seconds()),
		UserID:    user.ID.String(),
		Roles:     append([]string(nil), user.Roles...),
	}, nil
}

func (s *Service) IssueToken(user authdomain.User) (string, error) {
	now := s.clock.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Roles: append([]string(nil), user.Roles...),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			Issuer:    "nutrikit",
		},
	})
	return token.SignedString(s.secret)
}

func (s *Service) VerifyToken(raw string) (authdomain.Identity, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return authdomain.Identity{}, authdomain.ErrInvalidToken
	}

	parsed, err := jwt.ParseWithClaims(raw, &claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, authdomain.ErrInvalidToken
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.clock.Now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return authdomain.Identity{}, authdomain.ErrTokenExpired
		}
		return authdomain.Identity{}, authdomain.ErrInvalidToken
	}

	c, ok := parsed.Claims.(*claims)
	if !ok || !parsed.Valid {
		return authdomain.Identity{}, authdomain.ErrInvalidToken
	}

	userID, err := snowflake.ParseString(c.Subject)
	if err != nil {
		return authdomain.Identity{}, authdomain.ErrInvalidToken
	}

	return authdomain.Identity{
		UserID: userID,
		Roles:  append([]string(nil), c.Roles...),
	}, nil
}
