package api

import (
	"errors"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc"
	"github.com/golang-jwt/jwt/v4"

	"flexflow-api/domain"
)

// DefaultTokenTTL is the validity horizon for issued tokens: one week.
const DefaultTokenTTL = 168 * time.Hour

// Auth issues and verifies bearer tokens. In local mode it signs HS256 tokens
// with an injected secret and verifies them with the same secret. In external
// mode it only verifies RS256 tokens against a JWKS endpoint; issuance is
// delegated to the identity provider. Verification is pure computation: it
// never consults the store.
type Auth struct {
	secret   []byte
	ttl      time.Duration
	jwks     *keyfunc.JWKS
	audience string
	issuer   string
	parser   *jwt.Parser
}

// NewAuth creates a local-mode Auth with the given signing secret and token
// lifetime. A non-positive ttl selects DefaultTokenTTL.
func NewAuth(secret []byte, ttl time.Duration) *Auth {
	if len(secret) == 0 {
		panic("api.NewAuth: signing secret is required")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &Auth{
		secret: secret,
		ttl:    ttl,
		parser: jwt.NewParser(jwt.WithValidMethods([]string{"HS256"})),
	}
}

// NewExternalAuth creates a verify-only Auth backed by a JWKS endpoint.
func NewExternalAuth(jwks *keyfunc.JWKS, audience, issuer string) *Auth {
	if jwks == nil {
		panic("api.NewExternalAuth: jwks is required")
	}
	return &Auth{
		jwks:     jwks,
		audience: audience,
		issuer:   issuer,
		parser:   jwt.NewParser(jwt.WithValidMethods([]string{"RS256"})),
	}
}

// CanIssue reports whether this Auth can mint tokens itself.
func (a *Auth) CanIssue() bool { return len(a.secret) > 0 }

// Issue signs a token carrying the user id as subject and an absolute expiry.
func (a *Auth) Issue(userID string) (string, error) {
	if !a.CanIssue() {
		return "", errors.New("token issuance requires a local signing secret")
	}
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// Verify checks signature and validity window and returns the subject claim.
// It deliberately does not check that the subject still exists; that is the
// identity resolver's job.
func (a *Auth) Verify(tokenStr string) (string, error) {
	token, err := a.parser.Parse(tokenStr, a.keyFor)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", domain.ErrExpiredToken
		}
		return "", domain.ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", domain.ErrInvalidToken
	}
	if a.audience != "" && !claims.VerifyAudience(a.audience, false) {
		return "", domain.ErrInvalidToken
	}
	if a.issuer != "" && !claims.VerifyIssuer(a.issuer, false) {
		return "", domain.ErrInvalidToken
	}
	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return "", domain.ErrInvalidToken
	}
	return sub, nil
}

// UserIDFromAuthHeader extracts the bearer token from an Authorization header
// value and verifies it.
func (a *Auth) UserIDFromAuthHeader(h string) (string, error) {
	token, err := bearerToken(h)
	if err != nil {
		return "", err
	}
	return a.Verify(token)
}

func (a *Auth) keyFor(token *jwt.Token) (any, error) {
	if a.jwks != nil {
		return a.jwks.Keyfunc(token)
	}
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, errors.New("invalid signing method")
	}
	return a.secret, nil
}

func bearerToken(h string) (string, error) {
	h = strings.TrimSpace(h)
	if h == "" {
		return "", domain.ErrInvalidToken
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", domain.ErrInvalidToken
	}
	token := strings.TrimSpace(parts[1])
	if strings.Count(token, ".") != 2 {
		return "", domain.ErrInvalidToken
	}
	return token, nil
}
