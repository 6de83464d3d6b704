package auth

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"math/big"
	"net/http"
	"sync"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

var ErrKeyNotFound = errors.New("jwks key not found")

const (
	defaultJWKSTTL = 5 * time.Minute
	// an unknown kid triggers at most one refetch per interval
	minJWKSRefresh = 30 * time.Second
	maxJWKSBody    = 1 << 20
)

type jwk struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Use string `json:"use"`
	N   string `json:"n"`
	E   string `json:"e"`
}

type jwkSet struct {
	Keys []jwk `json:"keys"`
}

// JWKSClient caches RSA signing keys published by the identity provider.
type JWKSClient struct {
	url  string
	http *http.Client
	ttl  time.Duration
	now  func() time.Time

	mu        sync.Mutex
	keys      map[string]*rsa.PublicKey
	fetchedAt time.Time
}

func NewJWKSClient(url string, ttl time.Duration) *JWKSClient {
	if ttl <= 0 {
		ttl = defaultJWKSTTL
	}
	return &JWKSClient{
		url:  url,
		ttl:  ttl,
		now:  time.Now,
		http: &http.Client{Timeout: 3 * time.Second, Transport: otelhttp.NewTransport(http.DefaultTransport)},
		keys: map[string]*rsa.PublicKey{},
	}
}

func (c *JWKSClient) Get(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key, ok := c.keys[kid]
	age := c.now().Sub(c.fetchedAt)
	if ok && age < c.ttl {
		return key, nil
	}
	if !ok && !c.fetchedAt.IsZero() && age < minJWKSRefresh {
		return nil, ErrKeyNotFound
	}

	if err := c.fetch(ctx); err != nil {
		// keep serving a cached key while the endpoint is down
		if ok {
			return key, nil
		}
		return nil, err
	}
	if key, ok = c.keys[kid]; ok {
		return key, nil
	}
	return nil, ErrKeyNotFound
}

func (c *JWKSClient) fetch(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("fetch jwks: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch jwks: status %d", resp.StatusCode)
	}

	var set jwkSet
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxJWKSBody)).Decode(&set); err != nil {
		return fmt.Errorf("decode jwks: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(set.Keys))
	for _, k := range set.Keys {
		if k.Kty != "RSA" || k.Kid == "" || (k.Use != "" && k.Use != "sig") {
			continue
		}
		if pub, err := k.publicKey(); err == nil {
			keys[k.Kid] = pub
		}
	}
	c.keys = keys
	c.fetchedAt = c.now()
	return nil
}

func (k jwk) publicKey() (*rsa.PublicKey, error) {
	n, err := decodeUint(k.N)
	if err != nil {
		return nil, err
	}
	e, err := decodeUint(k.E)
	if err != nil {
		return nil, err
	}
	if !e.IsInt64() || e.Int64() < 3 || e.Int64() > math.MaxInt32 {
		return nil, fmt.Errorf("jwk %s: bad exponent", k.Kid)
	}
	return &rsa.PublicKey{N: n, E: int(e.Int64())}, nil
}

func decodeUint(s string) (*big.Int, error) {
	if s == "" {
		return nil, errors.New("empty jwk field")
	}
	b, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(b), nil
}
