package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"marketplace/internal/entity"
	"marketplace/internal/repository"
)

const minPasswordLength = 8

// Claims is the JWT payload issued at login.
type Claims struct {
	UserID int64       `json:"uid"`
	Email  string      `json:"email"`
	Role   entity.Role `json:"role"`
	jwt.RegisteredClaims
}

// Requester turns verified claims into the caller identity.
func (c *Claims) Requester() *Requester {
	return &Requester{UserID: c.UserID, Email: c.Email, Role: c.Role}
}

type UserService struct {
	uow      repository.UnitOfWork
	rdb      *redis.Client
	secret   []byte
	tokenTTL time.Duration
}

// NewUserService creates a new instance of UserService. Sessions are kept
// in redis when rdb is set.
func NewUserService(uow repository.UnitOfWork, rdb *redis.Client, secret string, tokenTTL time.Duration) *UserService {
	return &UserService{uow: uow, rdb: rdb, secret: []byte(secret), tokenTTL: tokenTTL}
}

type RegisterRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// Register creates an account. A guest record left behind by an earlier
// checkout with the same email is upgraded in place so its orders carry
// over.
func (s *UserService) Register(ctx context.Context, req RegisterRequest) (*entity.User, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, err
	}
	if len(req.Password) < minPasswordLength {
		return nil, ErrInvalidPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	var user *entity.User
	err = s.uow.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		existing, err := repos.Users.GetUserByEmailForUpdate(ctx, email)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			user, err = repos.Users.CreateUser(ctx, &entity.User{
				Email:        email,
				PasswordHash: string(hash),
				FirstName:    strings.TrimSpace(req.FirstName),
				LastName:     strings.TrimSpace(req.LastName),
				Active:       true,
				Role:         entity.RoleConsumer,
			})
			if errors.Is(err, repository.ErrDuplicate) {
				return ErrEmailTaken
			}
			return err
		case err != nil:
			return err
		case existing.PasswordHash != "":
			return ErrEmailTaken
		}

		existing.PasswordHash = string(hash)
		if name := strings.TrimSpace(req.FirstName); name != "" {
			existing.FirstName = name
		}
		if name := strings.TrimSpace(req.LastName); name != "" {
			existing.LastName = name
		}
		user = existing
		return repos.Users.UpdateUser(ctx, existing)
	})
	if err != nil {
		var domainErr *Error
		if !errors.As(err, &domainErr) {
			logger.Error().Err(err).Msg("Error creating user")
		}
		return nil, err
	}
	return user, nil
}

// Login checks credentials and returns a signed HS256 token.
func (s *UserService) Login(ctx context.Context, email, password string) (string, error) {
	user, err := s.uow.Repositories().Users.GetUserByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, repository.ErrNotFound) {
		return "", ErrInvalidCredentials
	}
	if err != nil {
		logger.Error().Err(err).Msg("Error logging in user")
		return "", err
	}
	if user.PasswordHash == "" || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return "", ErrInvalidCredentials
	}
	if !user.Active {
		return "", ErrForbidden.withMessage("account is deactivated")
	}

	now := time.Now()
	claims := &Claims{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   fmt.Sprint(user.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", err
	}

	if s.rdb != nil {
		if err := s.rdb.Set(ctx, sessionKey(claims.ID), user.ID, s.tokenTTL).Err(); err != nil {
			logger.Error().Err(err).Msgf("Error storing session of user %d", user.ID)
			return "", err
		}
	}
	return token, nil
}

func sessionKey(id string) string {
	return fmt.Sprintf("session:%s", id)
}

// ValidateSession reports whether the token with this id is still live.
func (s *UserService) ValidateSession(ctx context.Context, tokenID string) (bool, error) {
	if s.rdb == nil {
		return true, nil
	}
	err := s.rdb.Get(ctx, sessionKey(tokenID)).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Logout ends the session of the token with this id.
func (s *UserService) Logout(ctx context.Context, tokenID string) error {
	if s.rdb == nil {
		return nil
	}
	return s.rdb.Del(ctx, sessionKey(tokenID)).Err()
}

// Deactivate switches an account off. Users may deactivate themselves;
// admins may deactivate anyone. Accounts are never deleted.
func (s *UserService) Deactivate(ctx context.Context, requester *Requester, userID int64) error {
	if requester == nil || (requester.UserID != userID && !requester.isAdmin()) {
		return ErrForbidden
	}
	return s.uow.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		user, err := repos.Users.GetUserByID(ctx, userID)
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		if err != nil {
			return err
		}
		if !user.Active {
			return nil
		}
		user.Active = false
		return repos.Users.UpdateUser(ctx, user)
	})
}

// ParseToken verifies a token string and returns its claims.
func (s *UserService) ParseToken(token string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	return claims, nil
}
