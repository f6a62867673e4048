package services

import (
	"context"
	"time"

	"committee-live/config"
	committee_errors "committee-live/pkg/errors"

	"github.com/golang-jwt/jwt/v5"
)

// TokenService verifies the access tokens issued by the identity service. Issuing is
// kept for development seeding and tests.
type TokenService struct {
	jwtSecret []byte
	accessTTL time.Duration
}

func NewTokenService(cfg *config.Config) *TokenService {
	return &TokenService{
		jwtSecret: []byte(cfg.JWTSecret),
		accessTTL: time.Duration(cfg.JWTExpiryMin) * time.Minute,
	}
}

type AccessClaims struct {
	SAPIN int    `json:"sapin"`
	Name  string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

func (s *TokenService) IssueAccessToken(sapin int, name string) (string, int64, error) {
	if sapin <= 0 {
		return "", 0, committee_errors.ErrInvalidInput
	}
	now := time.Now()
	claims := AccessClaims{
		SAPIN: sapin,
		Name:  name,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", 0, err
	}
	return signed, int64(s.accessTTL.Seconds()), nil
}

func (s *TokenService) ParseAccessToken(tokenString string) (AccessClaims, error) {
	if tokenString == "" {
		return AccessClaims{}, committee_errors.ErrUnauthorized
	}

	parsed, err := jwt.ParseWithClaims(tokenString, &AccessClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, committee_errors.ErrUnauthorized
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return AccessClaims{}, committee_errors.ErrUnauthorized
	}

	claims, ok := parsed.Claims.(*AccessClaims)
	if !ok || !parsed.Valid || claims.SAPIN <= 0 {
		return AccessClaims{}, committee_errors.ErrUnauthorized
	}

	return *claims, nil
}

type ctxKey string

var sapinKey ctxKey = "sapin"

func WithSAPIN(ctx context.Context, sapin int) context.Context {
	return context.WithValue(ctx, sapinKey, sapin)
}

func SAPINFromContext(ctx context.Context) (int, bool) {
	sapin, ok := ctx.Value(sapinKey).(int)
	return sapin, ok
}
