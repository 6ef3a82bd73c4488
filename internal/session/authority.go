// Package session gates the admin-only paths: a single administrative
// identity, authenticated by password, receives a signed session token.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrInvalidCredentials is returned for a wrong email or password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUnauthorized is returned for a missing, expired or forged token.
	ErrUnauthorized = errors.New("unauthorized")
)

const issuer = "wedding-site"

// Token is an issued admin session.
type Token struct {
	Value     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Authority checks the admin password and issues HS256 session tokens.
type Authority struct {
	email  string
	hash   []byte
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewAuthority creates an Authority for the one admin account. passwordHash
// is a bcrypt hash.
func NewAuthority(email, passwordHash, secret string, ttl time.Duration) (*Authority, error) {
	if email == "" {
		return nil, fmt.Errorf("missing admin email")
	}
	if passwordHash == "" {
		return nil, fmt.Errorf("missing admin password hash")
	}
	if len(secret) < 16 {
		return nil, fmt.Errorf("session secret must be at least 16 bytes")
	}
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &Authority{
		email:  strings.ToLower(email),
		hash:   []byte(passwordHash),
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// HashPassword returns the bcrypt hash to put in configuration.
func HashPassword(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(h), nil
}

// Email is the fixed admin identity.
func (a *Authority) Email() string { return a.email }

// Login verifies the credentials and issues a token.
func (a *Authority) Login(ctx context.Context, email, password string) (Token, error) {
	if err := ctx.Err(); err != nil {
		return Token{}, err
	}
	if strings.ToLower(strings.TrimSpace(email)) != a.email {
		return Token{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(a.hash, []byte(password)); err != nil {
		return Token{}, ErrInvalidCredentials
	}

	now := a.now()
	expires := now.Add(a.ttl)
	claims := jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   a.email,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return Token{}, fmt.Errorf("failed to sign session: %w", err)
	}
	return Token{Value: signed, ExpiresAt: expires.Truncate(time.Second)}, nil
}

// Verify checks a token issued by Login.
func (a *Authority) Verify(raw string) (*jwt.RegisteredClaims, error) {
	if raw == "" {
		return nil, ErrUnauthorized
	}
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithSubject(a.email),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	return claims, nil
}
