package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingToken = errors.New("no token")
	ErrBadToken     = errors.New("token failed verification")
)

// Identity is what a verified bearer token tells us about the caller.
type Identity struct {
	UID   string
	Email string
}

type Verifier interface {
	Verify(ctx context.Context, raw string) (*Identity, error)
}

type Claims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// FirebaseVerifier checks Firebase ID tokens: RS256 signed by a key from
// Google's securetoken JWKS, issued for the configured project.
type FirebaseVerifier struct {
	projectID string
	keys      *JWKSCache
}

func NewFirebaseVerifier(projectID string, keys *JWKSCache) *FirebaseVerifier {
	return &FirebaseVerifier{projectID: projectID, keys: keys}
}

func (v *FirebaseVerifier) Verify(ctx context.Context, raw string) (*Identity, error) {
	if raw == "" {
		return nil, ErrMissingToken
	}

	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("token has no kid header")
		}
		return v.keys.Key(ctx, kid)
	},
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithIssuer("https://securetoken.google.com/"+v.projectID),
		jwt.WithAudience(v.projectID),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadToken, err)
	}
	return identityFromClaims(tok, claims)
}

// DevVerifier accepts HS256 tokens signed with a shared secret. Only
// wired when AUTH_DEV_SECRET is set.
type DevVerifier struct {
	secret []byte
}

func NewDevVerifier(secret string) *DevVerifier {
	return &DevVerifier{secret: []byte(secret)}
}

func (v *DevVerifier) Verify(_ context.Context, raw string) (*Identity, error) {
	if raw == "" {
		return nil, ErrMissingToken
	}

	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		// block alg confusion
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrBadToken
		}
		return v.secret, nil
	}, jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadToken, err)
	}
	return identityFromClaims(tok, claims)
}

func identityFromClaims(tok *jwt.Token, claims *Claims) (*Identity, error) {
	if !tok.Valid || claims.Subject == "" {
		return nil, ErrBadToken
	}
	return &Identity{UID: claims.Subject, Email: claims.Email}, nil
}

// MakeDevToken mints a token DevVerifier accepts.
func MakeDevToken(uid, email, secret string, ttl time.Duration) (string, error) {
	c := Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uid,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte(secret))
}
