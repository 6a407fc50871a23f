// Package authtoken issues and verifies the signed bearer tokens used by
// both tenant users and platform administrators.
//
// Tokens are HMAC-SHA256 JWTs. Tenant tokens carry a tenant claim that the
// authentication middleware compares against the resolved request tenant;
// admin tokens carry no tenant claim and additionally embed fine-grained
// permissions. Tokens are never revoked server-side: a claim stays valid
// until its expiry.
package authtoken

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Shakvilla/saas-starter-template-shared-schema/pkg/environment"
)

// JWT header constants required by RFC 7519.
const (
	headerType      = "JWT"
	headerAlgorithm = "HS256"
)

// MinKeyBytes is the minimum signing key length: 256 bits of entropy for
// HMAC-SHA256. A shorter key refuses to start in production and only warns
// elsewhere.
const MinKeyBytes = 32

type header struct {
	Type      string `json:"typ"`
	Algorithm string `json:"alg"`
}

// Claims are the token payload for both tenant and admin tokens.
// Tenant is empty for platform-admin tokens.
type Claims struct {
	Subject     string   `json:"sub"`
	Tenant      string   `json:"tenant,omitempty"`
	Roles       []string `json:"roles,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
	IssuedAt    int64    `json:"iat"`
	ExpiresAt   int64    `json:"exp"`
}

// Valid checks the temporal claims against the current time.
func (c Claims) Valid() error {
	if c.ExpiresAt > 0 && time.Now().Unix() > c.ExpiresAt {
		return ErrExpiredToken
	}
	return nil
}

// IsAdmin reports whether the claims belong to a platform administrator,
// identified by the absence of a tenant binding.
func (c Claims) IsAdmin() bool {
	return c.Tenant == ""
}

// Config holds token service configuration.
type Config struct {
	SigningKey string        `env:"JWT_SIGNING_KEY,required"`
	TTL        time.Duration `env:"JWT_TTL" envDefault:"1h"`
}

// Service issues and verifies signed bearer tokens.
type Service struct {
	signingKey []byte
	ttl        time.Duration
}

// New creates a token service. In production a key shorter than MinKeyBytes
// is a fatal configuration error; in other environments it only logs a
// warning so local setups keep working.
func New(cfg Config, env environment.Environment, log *slog.Logger) (*Service, error) {
	if cfg.SigningKey == "" {
		return nil, ErrMissingSigningKey
	}

	if len(cfg.SigningKey) < MinKeyBytes {
		if env.IsProduction() {
			return nil, fmt.Errorf("%w: got %d bytes, need at least %d", ErrWeakSigningKey, len(cfg.SigningKey), MinKeyBytes)
		}
		if log != nil {
			log.Warn("JWT signing key is shorter than recommended",
				slog.Int("got_bytes", len(cfg.SigningKey)),
				slog.Int("min_bytes", MinKeyBytes))
		}
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = time.Hour
	}

	return &Service{
		signingKey: []byte(cfg.SigningKey),
		ttl:        ttl,
	}, nil
}

// ExpiresIn returns the configured token lifetime, so auth responses can
// report expires_in to clients.
func (s *Service) ExpiresIn() time.Duration {
	return s.ttl
}

// Issue creates a tenant-scoped token.
func (s *Service) Issue(subject, tenantID string, roles []string) (string, error) {
	return s.IssueWithPermissions(subject, tenantID, roles, nil)
}

// IssueWithPermissions creates a tenant-scoped token carrying fine-grained
// permissions in addition to roles.
func (s *Service) IssueWithPermissions(subject, tenantID string, roles, permissions []string) (string, error) {
	now := time.Now()
	return s.generate(Claims{
		Subject:     subject,
		Tenant:      tenantID,
		Roles:       roles,
		Permissions: permissions,
		IssuedAt:    now.Unix(),
		ExpiresAt:   now.Add(s.ttl).Unix(),
	})
}

// IssueAdmin creates a platform-admin token. Admin tokens carry no tenant
// claim; the admin authentication check never compares tenants.
func (s *Service) IssueAdmin(subject string, roles, permissions []string) (string, error) {
	now := time.Now()
	return s.generate(Claims{
		Subject:     subject,
		Roles:       roles,
		Permissions: permissions,
		IssuedAt:    now.Unix(),
		ExpiresAt:   now.Add(s.ttl).Unix(),
	})
}

func (s *Service) generate(claims Claims) (string, error) {
	headerJSON, err := json.Marshal(header{Type: headerType, Algorithm: headerAlgorithm})
	if err != nil {
		return "", fmt.Errorf("authtoken: failed to marshal header: %w", err)
	}

	claimsJSON, err := json.Marshal(claims)
	if err != nil {
		return "", fmt.Errorf("authtoken: failed to marshal claims: %w", err)
	}

	payload := base64URLEncode(headerJSON) + "." + base64URLEncode(claimsJSON)
	return payload + "." + s.sign(payload), nil
}

// Verify validates the signature, the algorithm, and the temporal claims,
// and returns the decoded claims.
func (s *Service) Verify(tokenString string) (Claims, error) {
	parts := strings.Split(tokenString, ".")
	if len(parts) != 3 {
		return Claims{}, ErrInvalidToken
	}

	// Verify the signature before decoding anything, using constant-time
	// comparison to avoid timing side channels.
	payload := parts[0] + "." + parts[1]
	expected := s.sign(payload)
	if subtle.ConstantTimeCompare([]byte(parts[2]), []byte(expected)) != 1 {
		return Claims{}, ErrInvalidToken
	}

	headerJSON, err := base64URLDecode(parts[0])
	if err != nil {
		return Claims{}, ErrInvalidToken
	}

	var h header
	if err := json.Unmarshal(headerJSON, &h); err != nil {
		return Claims{}, ErrInvalidToken
	}

	// Pin the algorithm to prevent algorithm confusion attacks.
	if h.Algorithm != headerAlgorithm {
		return Claims{}, ErrInvalidToken
	}

	claimsJSON, err := base64URLDecode(parts[1])
	if err != nil {
		return Claims{}, ErrInvalidToken
	}

	var claims Claims
	if err := json.Unmarshal(claimsJSON, &claims); err != nil {
		return Claims{}, ErrInvalidToken
	}

	if err := claims.Valid(); err != nil {
		return Claims{}, err
	}

	return claims, nil
}

func (s *Service) sign(payload string) string {
	h := hmac.New(sha256.New, s.signingKey)
	h.Write([]byte(payload))
	return base64URLEncode(h.Sum(nil))
}

// base64url without padding, as required by RFC 7515.
func base64URLEncode(data []byte) string {
	return base64.RawURLEncoding.EncodeToString(data)
}

func base64URLDecode(s string) ([]byte, error) {
	return base64.RawURLEncoding.DecodeString(s)
}
