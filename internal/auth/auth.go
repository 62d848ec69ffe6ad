// Package auth resolves request credentials into an application.Principal.
//
// Two credential kinds are accepted: HS256 bearer tokens carrying a
// can_manage claim, and API keys compared against configured bcrypt or
// argon2id hashes. A request without credentials is anonymous and may only
// read.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/example/facility-scheduler/internal/application"
)

var (
	// ErrInvalidCredentials is returned when supplied credentials cannot be verified.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	// ErrMissingSecret is returned when no signing secret is configured.
	ErrMissingSecret = errors.New("auth: signing secret is required")
)

// Claims is the bearer token payload.
type Claims struct {
	CanManage bool `json:"can_manage"`
	jwt.RegisteredClaims
}

// Authenticator verifies bearer tokens and API keys.
type Authenticator struct {
	secret []byte
	keys   []string
	now    func() time.Time
}

// NewAuthenticator builds an authenticator. apiKeyHashes holds bcrypt or
// argon2id hashes; each matching key grants manage capability.
func NewAuthenticator(secret string, apiKeyHashes []string, now func() time.Time) (*Authenticator, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, ErrMissingSecret
	}
	if now == nil {
		now = time.Now
	}
	keys := make([]string, 0, len(apiKeyHashes))
	for i, hash := range apiKeyHashes {
		hash = strings.TrimSpace(hash)
		if hash == "" {
			continue
		}
		if _, err := schemeOf(hash); err != nil {
			return nil, fmt.Errorf("auth: api key hash %d: %w", i, err)
		}
		keys = append(keys, hash)
	}
	return &Authenticator{secret: []byte(secret), keys: keys, now: now}, nil
}

// Anonymous is the principal used when no credentials are presented.
func Anonymous() application.Principal {
	return application.Principal{Subject: "anonymous"}
}

// ParseToken verifies an HS256 token and returns its principal.
func (a *Authenticator) ParseToken(raw string) (application.Principal, error) {
	claims := &Claims{}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	token, err := parser.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return a.secret, nil
	})
	if err != nil || !token.Valid {
		return application.Principal{}, ErrInvalidCredentials
	}
	if claims.ExpiresAt != nil && !a.now().Before(claims.ExpiresAt.Time) {
		return application.Principal{}, ErrInvalidCredentials
	}

	subject := claims.Subject
	if subject == "" {
		subject = "token"
	}
	return application.Principal{Subject: subject, CanManage: claims.CanManage}, nil
}

// IssueToken signs a token for subject valid for ttl. A non-positive ttl
// issues a token without expiry.
func (a *Authenticator) IssueToken(subject string, canManage bool, ttl time.Duration) (string, error) {
	now := a.now()
	claims := Claims{
		CanManage: canManage,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  subject,
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// VerifyAPIKey matches key against the configured hashes.
func (a *Authenticator) VerifyAPIKey(key string) (application.Principal, error) {
	if key == "" {
		return application.Principal{}, ErrInvalidCredentials
	}
	for i, hash := range a.keys {
		if verifyKey(hash, key) == nil {
			return application.Principal{Subject: fmt.Sprintf("api-key-%d", i+1), CanManage: true}, nil
		}
	}
	return application.Principal{}, ErrInvalidCredentials
}

// Resolve turns an Authorization header and an X-API-Key header into a
// principal. Both empty yields Anonymous; a bad credential is an error.
func (a *Authenticator) Resolve(authorization, apiKey string) (application.Principal, error) {
	authorization = strings.TrimSpace(authorization)
	if authorization != "" {
		scheme, token, ok := strings.Cut(authorization, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			return application.Principal{}, ErrInvalidCredentials
		}
		return a.ParseToken(strings.TrimSpace(token))
	}
	if apiKey = strings.TrimSpace(apiKey); apiKey != "" {
		return a.VerifyAPIKey(apiKey)
	}
	return Anonymous(), nil
}
