package service

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const tokenIssuer = "rolecraft"

// Principal is the identity proven by a valid session token.
type Principal struct {
	AdminID string
	Email   string
}

// AuthService issues and verifies the stateless session tokens that
// authorize admin requests. There is no server-side revocation; logging out
// means the client discards its token.
type AuthService struct {
	jwtSecret []byte
	ttl       time.Duration
	now       func() time.Time
}

// NewAuthService creates an AuthService signing with jwtSecret. Tokens live
// for ttl.
func NewAuthService(jwtSecret string, ttl time.Duration) *AuthService {
	return &AuthService{
		jwtSecret: []byte(jwtSecret),
		ttl:       ttl,
		now:       time.Now,
	}
}

// WithClock replaces the time source used for issuing and verifying tokens.
func (s *AuthService) WithClock(now func() time.Time) *AuthService {
	s.now = now
	return s
}

// IssueToken creates a new signed JWT for the given admin.
func (s *AuthService) IssueToken(ctx context.Context, adminID, email string) (string, error) {
	now := s.now()
	claims := jwtClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   adminID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			Issuer:    tokenIssuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

// VerifyToken checks signature, issuer and expiry of tokenStr and returns the
// admin it identifies. Every failure is reported as ErrInvalidToken.
func (s *AuthService) VerifyToken(ctx context.Context, tokenStr string) (*Principal, error) {
	claims := &jwtClaims{}

	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.jwtSecret, nil
	},
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, ErrInvalidToken.withCause(err)
	}

	if !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}

	return &Principal{
		AdminID: claims.Subject,
		Email:   claims.Email,
	}, nil
}

type jwtClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}
