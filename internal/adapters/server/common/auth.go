package common

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/hylla/kanboard/internal/app"
	"github.com/hylla/kanboard/internal/domain"
)

// defaultTokenTTL applies when no lifetime is configured.
const defaultTokenTTL = 24 * time.Hour

const bearerPrefix = "bearer "

// TokenIssuer signs and verifies HS256 bearer tokens for the development server.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
	parser *jwt.Parser
}

// NewTokenIssuer constructs an issuer; now defaults to time.Now.
func NewTokenIssuer(secret []byte, ttl time.Duration, now func() time.Time) (*TokenIssuer, error) {
	if len(secret) == 0 {
		return nil, fmt.Errorf("token secret is required")
	}
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	if now == nil {
		now = time.Now
	}
	return &TokenIssuer{
		secret: append([]byte(nil), secret...),
		ttl:    ttl,
		now:    now,
		// Expiry is checked against the issuer clock below.
		parser: jwt.NewParser(jwt.WithValidMethods([]string{"HS256"}), jwt.WithoutClaimsValidation()),
	}, nil
}

// Issue signs a token for user.
func (i *TokenIssuer) Issue(user domain.User) (string, error) {
	now := i.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   user.ID,
		"email": user.Email,
		"iat":   now.Unix(),
		"exp":   now.Add(i.ttl).Unix(),
	})
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify parses raw and returns the actor it names.
func (i *TokenIssuer) Verify(raw string) (app.Actor, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return app.Actor{}, fmt.Errorf("empty token: %w", ErrUnauthorized)
	}
	parsed, err := i.parser.Parse(raw, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return i.secret, nil
	})
	if err != nil {
		return app.Actor{}, fmt.Errorf("parse token: %w", errors.Join(ErrUnauthorized, err))
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return app.Actor{}, fmt.Errorf("invalid claims: %w", ErrUnauthorized)
	}
	if !claims.VerifyExpiresAt(i.now().Unix(), true) {
		return app.Actor{}, fmt.Errorf("token expired: %w", ErrUnauthorized)
	}
	sub, _ := claims["sub"].(string)
	if strings.TrimSpace(sub) == "" {
		return app.Actor{}, fmt.Errorf("missing sub: %w", ErrUnauthorized)
	}
	email, _ := claims["email"].(string)
	return app.Actor{UserID: sub, Email: email}, nil
}

// Authorize implements Authorizer for "Bearer <token>" headers.
func (i *TokenIssuer) Authorize(ctx context.Context, header string) (context.Context, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return ctx, nil
	}
	if len(header) <= len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return ctx, fmt.Errorf("bad authorization header: %w", ErrUnauthorized)
	}
	actor, err := i.Verify(header[len(bearerPrefix):])
	if err != nil {
		return ctx, err
	}
	return app.WithActor(ctx, actor), nil
}
