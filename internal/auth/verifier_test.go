package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testProject = "elumia-test"

func newJWKSServer(t *testing.T, kid string, pub *rsa.PublicKey) (*httptest.Server, *int32) {
	t.Helper()
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		_ = json.NewEncoder(w).Encode(jwksResponse{Keys: []jwksKey{{
			Kty: "RSA",
			Kid: kid,
			Alg: "RS256",
			N:   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
			E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
		}}})
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func signRS256(t *testing.T, key *rsa.PrivateKey, kid string, claims Claims) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	tok.Header["kid"] = kid
	raw, err := tok.SignedString(key)
	require.NoError(t, err)
	return raw
}

func firebaseClaims(sub string) Claims {
	return Claims{
		Email: "patient@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			Issuer:    "https://securetoken.google.com/" + testProject,
			Audience:  jwt.ClaimStrings{testProject},
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
}

func TestFirebaseVerifier(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	srv, hits := newJWKSServer(t, "kid-1", &key.PublicKey)

	v := NewFirebaseVerifier(testProject, NewJWKSCache(srv.URL, time.Minute, srv.Client()))
	ctx := context.Background()

	t.Run("valid token", func(t *testing.T) {
		id, err := v.Verify(ctx, signRS256(t, key, "kid-1", firebaseClaims("uid-123")))
		require.NoError(t, err)
		assert.Equal(t, "uid-123", id.UID)
		assert.Equal(t, "patient@example.com", id.Email)
	})

	t.Run("keys are cached", func(t *testing.T) {
		before := atomic.LoadInt32(hits)
		_, err := v.Verify(ctx, signRS256(t, key, "kid-1", firebaseClaims("uid-123")))
		require.NoError(t, err)
		assert.Equal(t, before, atomic.LoadInt32(hits))
	})

	t.Run("wrong audience", func(t *testing.T) {
		c := firebaseClaims("uid-123")
		c.Audience = jwt.ClaimStrings{"someone-else"}
		_, err := v.Verify(ctx, signRS256(t, key, "kid-1", c))
		assert.ErrorIs(t, err, ErrBadToken)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		c := firebaseClaims("uid-123")
		c.Issuer = "https://evil.example.com"
		_, err := v.Verify(ctx, signRS256(t, key, "kid-1", c))
		assert.ErrorIs(t, err, ErrBadToken)
	})

	t.Run("expired", func(t *testing.T) {
		c := firebaseClaims("uid-123")
		c.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
		_, err := v.Verify(ctx, signRS256(t, key, "kid-1", c))
		assert.ErrorIs(t, err, ErrBadToken)
	})

	t.Run("unknown kid", func(t *testing.T) {
		_, err := v.Verify(ctx, signRS256(t, key, "kid-unknown", firebaseClaims("uid-123")))
		assert.ErrorIs(t, err, ErrBadToken)
	})

	t.Run("signed by another key", func(t *testing.T) {
		other, err := rsa.GenerateKey(rand.Reader, 2048)
		require.NoError(t, err)
		_, err = v.Verify(ctx, signRS256(t, other, "kid-1", firebaseClaims("uid-123")))
		assert.ErrorIs(t, err, ErrBadToken)
	})

	t.Run("hmac token rejected", func(t *testing.T) {
		raw, err := MakeDevToken("uid-123", "", "secret", time.Hour)
		require.NoError(t, err)
		_, err = v.Verify(ctx, raw)
		assert.ErrorIs(t, err, ErrBadToken)
	})

	t.Run("empty token", func(t *testing.T) {
		_, err := v.Verify(ctx, "")
		assert.ErrorIs(t, err, ErrMissingToken)
	})
}

func TestJWKSCache_UnknownKidRefetchFloor(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	srv, hits := newJWKSServer(t, "kid-1", &key.PublicKey)
	cache := NewJWKSCache(srv.URL, time.Hour, srv.Client())
	ctx := context.Background()

	_, err = cache.Key(ctx, "kid-1")
	require.NoError(t, err)
	require.Equal(t, int32(1), atomic.LoadInt32(hits))

	for i := 0; i < 20; i++ {
		_, err := cache.Key(ctx, "forged-kid")
		assert.Error(t, err)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(hits), "unknown kids inside the floor do not refetch")

	cache.MinRefetch = 0
	_, err = cache.Key(ctx, "forged-kid")
	assert.Error(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(hits))
}

func TestJWKSCache_ConcurrentFirstFetch(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	release := make(chan struct{})
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		<-release
		_ = json.NewEncoder(w).Encode(jwksResponse{Keys: []jwksKey{{
			Kty: "RSA",
			Kid: "kid-1",
			N:   base64.RawURLEncoding.EncodeToString(key.PublicKey.N.Bytes()),
			E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.PublicKey.E)).Bytes()),
		}}})
	}))
	t.Cleanup(srv.Close)
	cache := NewJWKSCache(srv.URL, time.Hour, srv.Client())

	const callers = 10
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		go func() {
			_, err := cache.Key(context.Background(), "kid-1")
			errs <- err
		}()
	}
	require.Eventually(t, func() bool { return atomic.LoadInt32(&hits) == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(release)

	for i := 0; i < callers; i++ {
		assert.NoError(t, <-errs)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestDevVerifier(t *testing.T) {
	v := NewDevVerifier("secret")
	ctx := context.Background()

	raw, err := MakeDevToken("uid-1", "dev@example.com", "secret", time.Hour)
	require.NoError(t, err)

	id, err := v.Verify(ctx, raw)
	require.NoError(t, err)
	assert.Equal(t, "uid-1", id.UID)
	assert.Equal(t, "dev@example.com", id.Email)

	raw, err = MakeDevToken("uid-1", "", "other-secret", time.Hour)
	require.NoError(t, err)
	_, err = v.Verify(ctx, raw)
	assert.ErrorIs(t, err, ErrBadToken)

	raw, err = MakeDevToken("", "", "secret", time.Hour)
	require.NoError(t, err)
	_, err = v.Verify(ctx, raw)
	assert.ErrorIs(t, err, ErrBadToken)
}

func TestIdentityContext(t *testing.T) {
	_, ok := IdentityFrom(context.Background())
	assert.False(t, ok)

	ctx := WithIdentity(context.Background(), &Identity{UID: "u"})
	id, ok := IdentityFrom(ctx)
	require.True(t, ok)
	assert.Equal(t, "u", id.UID)
}
