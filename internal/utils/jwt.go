package utils // package utils provides helper functions for token creation and hashing

import (
	"errors" // sentinel errors for token verification
	"fmt"    // error wrapping
	"time"   // time utilities for generating expirations

	"github.com/golang-jwt/jwt/v5" // JWT library for creating signed tokens

	"github.com/iliyamo/messagely/internal/config"
)

// ErrInvalidToken covers every verification failure: bad signature,
// malformed token, unknown key id, wrong algorithm, expiry or a missing
// username claim.
var ErrInvalidToken = errors.New("invalid token")

// AccessToken represents a signed JWT access token along with its expiry.
// Exp is the zero time when tokens are issued without expiration.
type AccessToken struct {
	Token string    // the serialized JWT string
	Exp   time.Time // the UTC expiration time
}

// Claims is the payload of an identity token.  Username is duplicated into
// the registered "sub" claim for clients that only read standard claims.
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies HS256 identity tokens.  It is built once
// at startup from configuration and is safe for concurrent use; nothing in
// it changes after construction.
type TokenService struct {
	keyID string
	keys  map[string][]byte // kid -> secret, current key included
	ttl   time.Duration
	now   func() time.Time
}

// NewTokenService builds a TokenService from cfg.  The current key signs;
// previous keys are only accepted on verification.
func NewTokenService(cfg config.TokenConfig) (*TokenService, error) {
	if cfg.Secret == "" {
		return nil, errors.New("jwt secret is empty")
	}
	kid := cfg.KeyID
	if kid == "" {
		kid = "v1"
	}
	keys := make(map[string][]byte, len(cfg.PreviousKeys)+1)
	for k, s := range cfg.PreviousKeys {
		keys[k] = []byte(s)
	}
	keys[kid] = []byte(cfg.Secret)
	return &TokenService{
		keyID: kid,
		keys:  keys,
		ttl:   time.Duration(cfg.AccessTTLMin) * time.Minute,
		now:   func() time.Time { return time.Now().UTC() },
	}, nil
}

// Issue signs a token for username.
func (s *TokenService) Issue(username string) (AccessToken, error) {
	now := s.now()
	claims := Claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  username,
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	var exp time.Time
	if s.ttl > 0 {
		exp = now.Add(s.ttl)
		claims.ExpiresAt = jwt.NewNumericDate(exp)
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	t.Header["kid"] = s.keyID
	signed, err := t.SignedString(s.keys[s.keyID])
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, Exp: exp}, nil
}

// Verify checks the signature and standard claims of raw and returns its
// claims.  It does not check that the user still exists.
func (s *TokenService) Verify(raw string) (*Claims, error) {
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(raw, claims, s.keyFor,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !tok.Valid || claims.Username == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (s *TokenService) keyFor(t *jwt.Token) (interface{}, error) {
	kid, _ := t.Header["kid"].(string)
	key, ok := s.keys[kid]
	if !ok {
		return nil, fmt.Errorf("unknown signing key %q", kid)
	}
	return key, nil
}
