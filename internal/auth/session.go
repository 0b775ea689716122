// internal/auth/session.go
package auth

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// CookieName carries the session token for browsers and websocket upgrades.
const CookieName = "auth_token"

// ErrNoToken means the request carried neither a cookie nor a bearer token.
var ErrNoToken = errors.New("no auth token")

// Authenticator issues and verifies EdDSA-signed session tokens whose subject is a user ID.
type Authenticator struct {
	private ed25519.PrivateKey
	public  ed25519.PublicKey
	// ttl of 0 issues tokens without an exp claim.
	ttl time.Duration
	now func() time.Time
}

// NewAuthenticator generates a fresh key pair. Tokens do not survive a restart.
func NewAuthenticator(ttl time.Duration) (*Authenticator, error) {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to generate ed25519 key pair: %w", err)
	}
	return &Authenticator{private: priv, public: pub, ttl: ttl, now: time.Now}, nil
}

// NewAuthenticatorFromFiles loads a raw ed25519 key pair.
func NewAuthenticatorFromFiles(privatePath, publicPath string, ttl time.Duration) (*Authenticator, error) {
	privateKeyData, err := os.ReadFile(privatePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key file: %w", err)
	}
	publicKeyData, err := os.ReadFile(publicPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read public key file: %w", err)
	}
	if len(privateKeyData) != ed25519.PrivateKeySize || len(publicKeyData) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("invalid ed25519 key sizes")
	}
	return &Authenticator{
		private: ed25519.PrivateKey(privateKeyData),
		public:  ed25519.PublicKey(publicKeyData),
		ttl:     ttl,
		now:     time.Now,
	}, nil
}

// TTL is how long issued tokens stay valid. Zero means no expiry.
func (a *Authenticator) TTL() time.Duration {
	return a.ttl
}

// Issue signs a token for userID.
func (a *Authenticator) Issue(userID uuid.UUID) (string, error) {
	now := a.now()
	claims := jwt.RegisteredClaims{
		Subject:  userID.String(),
		IssuedAt: jwt.NewNumericDate(now),
	}
	if a.ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(a.ttl))
	}
	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	return token.SignedString(a.private)
}

// Verify checks the signature and expiry and returns the subject.
func (a *Authenticator) Verify(tokenString string) (uuid.UUID, error) {
	var claims jwt.RegisteredClaims
	t, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return a.public, nil
	}, jwt.WithTimeFunc(a.now))
	if err != nil {
		return uuid.Nil, fmt.Errorf("jwt parse error: %w", err)
	}
	if !t.Valid {
		return uuid.Nil, fmt.Errorf("invalid token")
	}
	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid sub in jwt: %w", err)
	}
	return id, nil
}

// FromRequest authenticates r by the auth_token cookie or an Authorization bearer header.
func (a *Authenticator) FromRequest(r *http.Request) (uuid.UUID, error) {
	if c, err := r.Cookie(CookieName); err == nil && c.Value != "" {
		return a.Verify(c.Value)
	}
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return a.Verify(strings.TrimPrefix(h, "Bearer "))
	}
	return uuid.Nil, ErrNoToken
}
