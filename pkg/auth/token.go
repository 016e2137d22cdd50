package auth

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/pkg/errors"

	"github.com/skillmesh/skillmesh/pkg/graph"
)

// Scope grammar: "skill:<root-id>" grants a subtree, "admin" grants
// everything.
const (
	ScopeSkillPrefix = "skill:"
	ScopeAdmin       = "admin"
)

// DefaultTokenTTL bounds tokens issued without an explicit TTL.
const DefaultTokenTTL = 24 * time.Hour

// Claims is the JWT payload: registered claims plus skill scopes.
type Claims struct {
	jwt.RegisteredClaims
	Scopes []string `json:"scopes,omitempty"`
}

// TokenIssuer signs and verifies HS256 tokens with a shared secret.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenIssuer creates an issuer. An empty secret is a configuration
// fault, not a runtime condition.
func NewTokenIssuer(secret string, ttl time.Duration) (*TokenIssuer, error) {
	if secret == "" {
		return nil, errors.New("jwt secret cannot be empty")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenIssuer{secret: []byte(secret), ttl: ttl}, nil
}

// Issue signs a token for the subject with the given scopes.
func (i *TokenIssuer) Issue(subject string, scopes []string) (string, error) {
	if subject == "" {
		return "", errors.New("token subject cannot be empty")
	}

	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
		Scopes: normalizeGrants(scopes),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", errors.Wrap(err, "failed to sign token")
	}
	return signed, nil
}

// Verify parses a token and maps its scopes to a principal. Any parse
// or signature failure comes back as ErrAccessDenied.
func (i *TokenIssuer) Verify(tokenString string) (graph.Principal, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return i.secret, nil
	})
	if err != nil {
		return graph.Principal{}, errors.Wrap(graph.ErrAccessDenied, err.Error())
	}
	if !token.Valid {
		return graph.Principal{}, errors.Wrap(graph.ErrAccessDenied, "invalid token")
	}

	principal := graph.Principal{Name: claims.Subject}
	for _, scope := range claims.Scopes {
		switch {
		case scope == ScopeAdmin:
			principal.Wildcard = true
		case strings.HasPrefix(scope, ScopeSkillPrefix):
			id := strings.TrimPrefix(scope, ScopeSkillPrefix)
			if id != "" {
				principal.GrantedRootIDs = append(principal.GrantedRootIDs, id)
			}
		}
	}
	return principal, nil
}
