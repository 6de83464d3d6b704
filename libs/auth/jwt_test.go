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

	"github.com/golang-jwt/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClaims(userID, role string, ttl time.Duration) Claims {
	now := time.Now()
	return Claims{Role: role, StandardClaims: jwt.StandardClaims{
		Subject:   userID,
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(ttl).Unix(),
	}}
}

func signHS256(claims Claims, secret string) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func TestHS256RoundTrip(t *testing.T) {
	claims := newClaims("user-1", RoleProvider, time.Hour)
	token, err := signHS256(claims, "test-secret")
	require.NoError(t, err)

	parsed, err := NewVerifier("test-secret", nil).Verify(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", parsed.Subject)
	assert.Equal(t, RoleProvider, parsed.Role)
	assert.True(t, parsed.KnownRole())

	_, err = NewVerifier("wrong-secret", nil).Verify(context.Background(), token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifierRejects(t *testing.T) {
	v := NewVerifier("s", nil)
	ctx := context.Background()

	expired := newClaims("u", RoleCustomer, time.Hour)
	expired.ExpiresAt = time.Now().Add(-time.Minute).Unix()
	tok, err := signHS256(expired, "s")
	require.NoError(t, err)
	_, err = v.Verify(ctx, tok)
	assert.ErrorIs(t, err, ErrInvalidToken, "expired")

	tok, err = signHS256(Claims{Role: RoleCustomer}, "s")
	require.NoError(t, err)
	_, err = v.Verify(ctx, tok)
	assert.ErrorIs(t, err, ErrInvalidToken, "no subject")

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, newClaims("u", RoleAdmin, time.Hour)).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = v.Verify(ctx, unsigned)
	assert.ErrorIs(t, err, ErrInvalidToken, "alg none")

	_, err = v.Verify(ctx, "not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)

	tok, err = signHS256(newClaims("u", RoleCustomer, time.Hour), "s")
	require.NoError(t, err)
	_, err = NewVerifier("", nil).Verify(ctx, tok)
	assert.ErrorIs(t, err, ErrInvalidToken, "hmac disabled without a secret")
}

func TestKnownRole(t *testing.T) {
	assert.True(t, Claims{Role: RoleAdmin}.KnownRole())
	assert.False(t, Claims{Role: "owner"}.KnownRole())
	assert.False(t, Claims{}.KnownRole())
}

func jwksServer(t *testing.T, key *rsa.PublicKey, kid string, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		_ = json.NewEncoder(w).Encode(jwkSet{Keys: []jwk{
			{
				Kty: "RSA",
				Kid: kid,
				Use: "sig",
				N:   base64.RawURLEncoding.EncodeToString(key.N.Bytes()),
				E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.E)).Bytes()),
			},
			{Kty: "EC", Kid: "ec-1"},
		}})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func signRS256(t *testing.T, claims Claims, key *rsa.PrivateKey, kid string) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	if kid != "" {
		tok.Header["kid"] = kid
	}
	s, err := tok.SignedString(key)
	require.NoError(t, err)
	return s
}

func TestVerifierUsesJWKSForRS256(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	var hits atomic.Int32
	srv := jwksServer(t, &key.PublicKey, "kid-1", &hits)

	v := NewVerifier("shared", NewJWKSClient(srv.URL, time.Minute))
	ctx := context.Background()

	claims, err := v.Verify(ctx, signRS256(t, newClaims("user-3", RoleCustomer, time.Hour), key, "kid-1"))
	require.NoError(t, err)
	assert.Equal(t, "user-3", claims.Subject)

	_, err = v.Verify(ctx, signRS256(t, newClaims("user-3", RoleCustomer, time.Hour), key, "kid-2"))
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = v.Verify(ctx, signRS256(t, newClaims("user-3", RoleCustomer, time.Hour), key, ""))
	assert.ErrorIs(t, err, ErrInvalidToken, "rsa tokens need a kid")
	assert.EqualValues(t, 1, hits.Load(), "unknown kids inside the refresh interval hit the cache")

	hs, err := signHS256(newClaims("user-4", RoleProvider, time.Hour), "shared")
	require.NoError(t, err)
	claims, err = v.Verify(ctx, hs)
	require.NoError(t, err)
	assert.Equal(t, "user-4", claims.Subject)
}

func TestJWKSClientRefreshesAfterTTL(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	var hits atomic.Int32
	srv := jwksServer(t, &key.PublicKey, "kid-1", &hits)

	c := NewJWKSClient(srv.URL, time.Minute)
	now := time.Now()
	c.now = func() time.Time { return now }

	_, err = c.Get(context.Background(), "kid-1")
	require.NoError(t, err)
	_, err = c.Get(context.Background(), "kid-1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, hits.Load())

	now = now.Add(2 * time.Minute)
	_, err = c.Get(context.Background(), "kid-1")
	require.NoError(t, err)
	assert.EqualValues(t, 2, hits.Load())

	_, err = c.Get(context.Background(), "ec-1")
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestJWKSClientServesCachedKeyWhenEndpointFails(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	var hits atomic.Int32
	srv := jwksServer(t, &key.PublicKey, "kid-1", &hits)

	c := NewJWKSClient(srv.URL, time.Minute)
	now := time.Now()
	c.now = func() time.Time { return now }
	_, err = c.Get(context.Background(), "kid-1")
	require.NoError(t, err)

	srv.Close()
	now = now.Add(time.Hour)
	pub, err := c.Get(context.Background(), "kid-1")
	require.NoError(t, err)
	assert.Equal(t, key.PublicKey.N, pub.N)
}

func TestBearerToken(t *testing.T) {
	tok, err := BearerToken("Bearer abc.def.ghi")
	require.NoError(t, err)
	assert.Equal(t, "abc.def.ghi", tok)

	_, err = BearerToken("Bearer   ")
	assert.ErrorIs(t, err, ErrMissingToken)
	_, err = BearerToken("Basic dXNlcg==")
	assert.ErrorIs(t, err, ErrMissingToken)
}
