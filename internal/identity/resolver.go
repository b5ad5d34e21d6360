package identity

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/Freeeeeet/studio_booking/internal/access"
	"github.com/Freeeeeet/studio_booking/internal/model"
	"github.com/golang-jwt/jwt/v5"
)

// UserLookup - поиск пользователя (repository.UserRepository)
type UserLookup interface {
	GetByID(ctx context.Context, id int64) (*model.User, error)
}

// Claims - полезная нагрузка токена. Роль берётся из базы, а не из токена.
type Claims struct {
	jwt.RegisteredClaims
}

// Resolver превращает подписанный HS256 токен в access.Caller
type Resolver struct {
	secret []byte
	users  UserLookup
}

func NewResolver(secret string, users UserLookup) *Resolver {
	return &Resolver{secret: []byte(secret), users: users}
}

// IssueToken подписывает токен для пользователя на ttl
func (r *Resolver) IssueToken(userID int64, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(r.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ResolveCaller проверяет токен и возвращает активного пользователя с его ролью
func (r *Resolver) ResolveCaller(ctx context.Context, token string) (access.Caller, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return r.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return access.Caller{}, fmt.Errorf("%w: invalid token: %v", model.ErrForbidden, err)
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return access.Caller{}, fmt.Errorf("%w: invalid token subject", model.ErrForbidden)
	}

	user, err := r.users.GetByID(ctx, userID)
	if err != nil {
		return access.Caller{}, fmt.Errorf("get user: %w", err)
	}
	if user == nil || !user.IsActive {
		return access.Caller{}, fmt.Errorf("%w: user %d not found or inactive", model.ErrForbidden, userID)
	}
	if !user.Role.Valid() {
		return access.Caller{}, fmt.Errorf("%w: unknown role %q", model.ErrForbidden, user.Role)
	}

	return access.Caller{ID: user.ID, Role: user.Role}, nil
}
