package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type TokenKind string

const (
	AccessToken  TokenKind = "access"
	RefreshToken TokenKind = "refresh"
	ResetToken   TokenKind = "reset_password"
)

var (
	ErrInvalidToken   = errors.New("invalid token")
	ErrTokenExpired   = errors.New("token expired")
	ErrWrongTokenKind = errors.New("wrong token type")
)

type Subject struct {
	UserID string
	Email  string
	Role   string
}

type Claims struct {
	UserID string    `json:"user_id"`
	Email  string    `json:"email,omitempty"`
	Role   string    `json:"role,omitempty"`
	Type   TokenKind `json:"type"`
	jwt.RegisteredClaims
}

// TokenService is the only place tokens are minted or checked.
type TokenService struct {
	secret []byte
	ttls   map[TokenKind]time.Duration
	now    func() time.Time
}

func NewTokenService(secret string, accessTTL, refreshTTL, resetTTL time.Duration) *TokenService {
	return &TokenService{
		secret: []byte(secret),
		ttls: map[TokenKind]time.Duration{
			AccessToken:  accessTTL,
			RefreshToken: refreshTTL,
			ResetToken:   resetTTL,
		},
		now: time.Now,
	}
}

// TTL is how long tokens of kind stay valid.
func (s *TokenService) TTL(kind TokenKind) time.Duration {
	return s.ttls[kind]
}

func (s *TokenService) Issue(kind TokenKind, subject Subject) (string, error) {
	ttl, ok := s.ttls[kind]
	if !ok {
		return "", ErrWrongTokenKind
	}
	now := s.now()
	claims := Claims{
		UserID: subject.UserID,
		Type:   kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	if kind == AccessToken {
		claims.Email = subject.Email
		claims.Role = subject.Role
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

func (s *TokenService) Verify(tokenString string, kind TokenKind) (Claims, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrTokenExpired
		}
		return Claims{}, ErrInvalidToken
	}
	if claims.UserID == "" {
		return Claims{}, ErrInvalidToken
	}
	if claims.Type != kind {
		return Claims{}, ErrWrongTokenKind
	}
	return claims, nil
}

type Session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

func (s *TokenService) IssueSession(subject Subject) (Session, error) {
	access, err := s.Issue(AccessToken, subject)
	if err != nil {
		return Session{}, err
	}
	refresh, err := s.Issue(RefreshToken, subject)
	if err != nil {
		return Session{}, err
	}
	return Session{AccessToken: access, RefreshToken: refresh}, nil
}
