// Package identity is the boundary to the identity provider: it verifies the
// provider's bearer ID tokens and relays session changes to subscribers.
package identity

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"mcq-practice-service/internal/domain"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims carries the identity fields of an ID token; the subject is the uid.
type Claims struct {
	Name     string `json:"name,omitempty"`
	Email    string `json:"email,omitempty"`
	Picture  string `json:"picture,omitempty"`
	Provider string `json:"provider,omitempty"`
	jwt.RegisteredClaims
}

// Verifier validates HS256 ID tokens signed with a shared secret.
type Verifier struct {
	secret []byte
	issuer string
	now    func() time.Time
}

func NewVerifier(secret, issuer string) *Verifier {
	return &Verifier{secret: []byte(secret), issuer: issuer, now: time.Now}
}

// Verify parses token and returns the identity it asserts.
func (v *Verifier) Verify(token string) (domain.Identity, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(v.now),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.Subject == "" {
		return domain.Identity{}, ErrInvalidToken
	}
	return claims.identity(), nil
}

// Issue signs a token for ident valid for ttl. It stands in for the identity
// provider in local setups and tests.
func (v *Verifier) Issue(ident domain.Identity, ttl time.Duration) (string, error) {
	now := v.now()
	claims := Claims{
		Name:     deref(ident.DisplayName),
		Email:    deref(ident.Email),
		Picture:  deref(ident.PhotoURL),
		Provider: string(ident.Method),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   ident.UID,
			Issuer:    v.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}
	if ident.IsAnonymous {
		claims.Provider = string(domain.SignInAnonymous)
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

func (c *Claims) identity() domain.Identity {
	method := domain.SignInMethod(c.Provider)
	return domain.Identity{
		UID:         c.Subject,
		DisplayName: optional(c.Name),
		Email:       optional(c.Email),
		PhotoURL:    optional(c.Picture),
		Method:      method,
		IsAnonymous: method == domain.SignInAnonymous,
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
