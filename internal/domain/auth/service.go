package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

type Service struct {
	Store  CredentialStore
	Secret string
	TTL    time.Duration
	logger *zap.Logger
}

func NewService(store CredentialStore, secret string, ttl time.Duration, logger ...*zap.Logger) *Service {
	l := zap.L().Named("auth.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("auth.service")
	}
	return &Service{Store: store, Secret: secret, TTL: ttl, logger: l}
}

type LoginResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	UserID    string    `json:"userId"`
	Username  string    `json:"username"`
	Roles     []Role    `json:"roles"`
}

func (s *Service) Login(ctx context.Context, username, password string) (LoginResult, error) {
	username = strings.TrimSpace(username)
	cred, err := s.Store.FindByUsername(ctx, username)
	if errors.Is(err, ErrCredentialNotFound) {
		s.logger.Info("login rejected", zap.String("username", username), zap.String("reason", "unknown user"))
		return LoginResult{}, ErrInvalidCredentials
	}
	if err != nil {
		return LoginResult{}, err
	}
	if err := CheckPassword(cred.PasswordHash, password); err != nil {
		s.logger.Info("login rejected", zap.String("username", username), zap.String("reason", "bad password"))
		return LoginResult{}, ErrInvalidCredentials
	}

	token, err := GenerateToken(s.Secret, Claims{
		UserID:   cred.UserID,
		Username: cred.Username,
		Roles:    RoleNames(cred.Roles),
	}, s.TTL)
	if err != nil {
		return LoginResult{}, err
	}
	s.logger.Debug("login succeeded", zap.String("user_id", cred.UserID))
	return LoginResult{
		Token:     token,
		ExpiresAt: time.Now().Add(s.TTL).UTC(),
		UserID:    cred.UserID,
		Username:  cred.Username,
		Roles:     cred.Roles,
	}, nil
}
