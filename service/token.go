package service

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("token invalid")
)

// Default lifetimes for the three token kinds.
const (
	DefaultSessionTTL  = 24 * time.Hour
	RememberSessionTTL = 30 * 24 * time.Hour
	RecoveryTTL        = 20 * time.Minute
	VerificationTTL    = 2 * time.Hour
)

// SessionClaims identify a logged-in principal. Subject is the account id hex.
type SessionClaims struct {
	Role     string `json:"role"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	LastName string `json:"lastName"`
	jwt.RegisteredClaims
}

// RecoveryClaims carry the password-recovery one-time code. A token is
// minted with Verified=false and reissued with Verified=true once the code
// is confirmed; tokens are never mutated after signing.
type RecoveryClaims struct {
	Email    string `json:"email"`
	Code     string `json:"code"`
	Role     string `json:"role"`
	Verified bool   `json:"verified"`
	jwt.RegisteredClaims
}

// VerificationClaims carry the signup email-confirmation code.
type VerificationClaims struct {
	Email string `json:"email"`
	Code  string `json:"code"`
	jwt.RegisteredClaims
}

// TokenService mints and verifies all three token kinds with one HS256
// secret. The TTL fields default from the constants above and exist so
// tests can shrink them.
type TokenService struct {
	secret          []byte
	SessionTTL      time.Duration
	RememberTTL     time.Duration
	RecoveryTTL     time.Duration
	VerificationTTL time.Duration
}

func NewTokenService(secret string) *TokenService {
	return &TokenService{
		secret:          []byte(secret),
		SessionTTL:      DefaultSessionTTL,
		RememberTTL:     RememberSessionTTL,
		RecoveryTTL:     RecoveryTTL,
		VerificationTTL: VerificationTTL,
	}
}

func (s *TokenService) sign(claims jwt.Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

func (s *TokenService) parse(token string, claims jwt.Claims) error {
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ErrTokenExpired
		}
		return ErrTokenInvalid
	}
	if !parsed.Valid {
		return ErrTokenInvalid
	}
	return nil
}

// IssueSession mints a session token and returns it with its lifetime, so
// the cookie maxAge can match the token expiry.
func (s *TokenService) IssueSession(id, role, email, name, lastName string, rememberMe bool) (string, time.Duration, error) {
	ttl := s.SessionTTL
	if rememberMe {
		ttl = s.RememberTTL
	}
	token, err := s.sign(&SessionClaims{
		Role:     role,
		Email:    email,
		Name:     name,
		LastName: lastName,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	})
	return token, ttl, err
}

func (s *TokenService) ParseSession(token string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	if err := s.parse(token, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

func (s *TokenService) IssueRecovery(email, code, role string, verified bool) (string, error) {
	return s.sign(&RecoveryClaims{
		Email:    email,
		Code:     code,
		Role:     role,
		Verified: verified,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(s.RecoveryTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	})
}

func (s *TokenService) ParseRecovery(token string) (*RecoveryClaims, error) {
	claims := &RecoveryClaims{}
	if err := s.parse(token, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

func (s *TokenService) IssueVerification(email, code string) (string, error) {
	return s.sign(&VerificationClaims{
		Email: email,
		Code:  code,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(s.VerificationTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	})
}

func (s *TokenService) ParseVerification(token string) (*VerificationClaims, error) {
	claims := &VerificationClaims{}
	if err := s.parse(token, claims); err != nil {
		return nil, err
	}
	return claims, nil
}
