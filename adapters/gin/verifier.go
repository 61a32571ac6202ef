package profilegin

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/open-rails/profilekit/adapters/ginutil"
	"github.com/sirupsen/logrus"
)

// Verifier validates JWTs against configured issuers and JWKS, without mounting any routes.
type Verifier struct {
	accept AcceptConfig
	http   *http.Client
	mu     sync.RWMutex
	byIss  map[string]*jwksCache
	algs   map[string]struct{}
	skew   time.Duration
}

type jwksCache struct {
	url      string
	pinned   *rsa.PublicKey
	cacheTTL time.Duration
	maxStale time.Duration

	mu      sync.RWMutex
	pubs    map[string]*rsa.PublicKey // kid -> pub
	fetched time.Time
}

func NewVerifier(accept AcceptConfig) *Verifier {
	v := &Verifier{
		accept: accept,
		http:   &http.Client{Timeout: 5 * time.Second},
		byIss:  map[string]*jwksCache{},
		algs:   map[string]struct{}{"RS256": {}},
		skew:   60 * time.Second,
	}
	if accept.Skew > 0 {
		v.skew = accept.Skew
	}
	if len(accept.Algorithms) > 0 {
		v.algs = map[string]struct{}{}
		for _, a := range accept.Algorithms {
			v.algs[a] = struct{}{}
		}
	}
	for _, iss := range accept.Issuers {
		url := iss.JWKSURL
		if strings.TrimSpace(url) == "" {
			url = strings.TrimRight(iss.Issuer, "/") + "/.well-known/jwks.json"
		}
		jc := &jwksCache{
			url:      url,
			pubs:     map[string]*rsa.PublicKey{},
			cacheTTL: ifOr(iss.CacheTTL, 15*time.Minute),
			maxStale: ifOr(iss.MaxStale, time.Hour),
		}
		if strings.TrimSpace(iss.PinnedRSAPEM) != "" {
			if pk, err := parseRSAPEM(iss.PinnedRSAPEM); err == nil {
				jc.pinned = pk
			} else {
				logrus.WithError(err).WithField("issuer", iss.Issuer).Warn("pinned_key_invalid")
			}
		}
		v.byIss[iss.Issuer] = jc
	}
	return v
}

// WithHTTPClient replaces the client used for JWKS fetches.
func (v *Verifier) WithHTTPClient(h *http.Client) *Verifier {
	if h != nil {
		v.http = h
	}
	return v
}

func ifOr(v, d time.Duration) time.Duration {
	if v > 0 {
		return v
	}
	return d
}

func parseRSAPEM(pemStr string) (*rsa.PublicKey, error) {
	key, err := jwk.ParseKey([]byte(pemStr), jwk.WithPEM(true))
	if err != nil {
		return nil, err
	}
	var pk rsa.PublicKey
	if err := key.Raw(&pk); err != nil {
		return nil, errors.New("not_rsa")
	}
	return &pk, nil
}

func (j *jwksCache) get(ctx context.Context, kid string, cli *http.Client) (*rsa.PublicKey, error) {
	j.mu.RLock()
	pub := j.pubs[kid]
	fetched := j.fetched
	j.mu.RUnlock()
	if pub != nil && time.Since(fetched) < j.cacheTTL {
		return pub, nil
	}

	err := j.refresh(ctx, cli)
	if err == nil {
		j.mu.RLock()
		pub = j.pubs[kid]
		j.mu.RUnlock()
		if pub != nil {
			return pub, nil
		}
	}

	// fallback to pinned if present and within max-stale
	if j.pinned != nil && (fetched.IsZero() || time.Since(fetched) < j.maxStale) {
		return j.pinned, nil
	}

	logrus.WithError(err).WithField("jwks_url", j.url).Error("jwks_fetch_failed")
	return nil, errors.New("key_not_found")
}

func (j *jwksCache) refresh(ctx context.Context, cli *http.Client) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, j.url, nil)
	if err != nil {
		return err
	}
	resp, err := cli.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("jwks_http_%d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	set, err := jwk.Parse(body)
	if err != nil {
		return err
	}
	m := map[string]*rsa.PublicKey{}
	for i := 0; i < set.Len(); i++ {
		key, ok := set.Key(i)
		if !ok || key.KeyType() != jwa.RSA {
			continue
		}
		var pk rsa.PublicKey
		if err := key.Raw(&pk); err != nil {
			continue
		}
		m[key.KeyID()] = &pk
	}
	j.mu.Lock()
	j.pubs = m
	j.fetched = time.Now()
	j.mu.Unlock()
	return nil
}

// Verify parses and validates a JWT string and returns its claims.
func (v *Verifier) Verify(ctx context.Context, tokenStr string) (jwt.MapClaims, error) {
	if strings.TrimSpace(tokenStr) == "" {
		return nil, errors.New("missing_token")
	}
	keyfunc := func(tok *jwt.Token) (any, error) {
		if _, ok := v.algs[tok.Method.Alg()]; !ok {
			return nil, errors.New("bad_alg")
		}
		// issuer from payload (untrusted until verified), but used to select JWKS
		iss, _ := tok.Claims.(jwt.MapClaims)["iss"].(string)
		v.mu.RLock()
		jc := v.byIss[iss]
		v.mu.RUnlock()
		if jc == nil {
			return nil, errors.New("bad_issuer")
		}
		kid, _ := tok.Header["kid"].(string)
		if kid == "" {
			if jc.pinned != nil {
				return jc.pinned, nil
			}
			return nil, errors.New("missing_kid")
		}
		return jc.get(ctx, kid, v.http)
	}
	tok, err := jwt.ParseWithClaims(tokenStr, jwt.MapClaims{}, keyfunc, jwt.WithLeeway(v.skew))
	if err != nil || !tok.Valid {
		return nil, fmt.Errorf("invalid_token: %w", err)
	}
	claims, _ := tok.Claims.(jwt.MapClaims)
	iss := stringVal(claims["iss"])
	if want := acceptAudiences(v.accept, iss); len(want) > 0 && !audContainsAny(claims["aud"], want) {
		return nil, errors.New("bad_audience")
	}
	return claims, nil
}

// MiddlewareRequired rejects requests without a valid bearer token and
// attaches typed Claims otherwise.
func (v *Verifier) MiddlewareRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := ginutil.BearerToken(c.GetHeader("Authorization"))
		if tokenStr == "" {
			ginutil.Unauthorized(c, "missing_token")
			return
		}
		claims, err := v.Verify(c.Request.Context(), tokenStr)
		if err != nil {
			logrus.WithError(err).Debug("token_rejected")
			ginutil.Unauthorized(c, "invalid_token")
			return
		}
		cl := Claims{
			UserID:    stringVal(claims["sub"]),
			Email:     stringVal(claims["email"]),
			SessionID: stringVal(claims["sid"]),
		}
		if cl.UserID == "" {
			ginutil.Unauthorized(c, "missing_subject")
			return
		}
		attachClaims(c, cl)
		c.Next()
	}
}

func stringVal(v any) string { s, _ := v.(string); return s }

func acceptAudiences(ac AcceptConfig, iss string) []string {
	for _, i := range ac.Issuers {
		if i.Issuer == iss {
			return i.Audiences
		}
	}
	return nil
}

func audContains(aud any, want string) bool {
	switch v := aud.(type) {
	case string:
		return v == want
	case []any:
		for _, e := range v {
			if s, ok := e.(string); ok && s == want {
				return true
			}
		}
	case []string:
		for _, s := range v {
			if s == want {
				return true
			}
		}
	}
	return false
}

// audContainsAny checks if token's audience claim contains ANY of the wanted audiences
func audContainsAny(aud any, wantAny []string) bool {
	for _, want := range wantAny {
		if audContains(aud, want) {
			return true
		}
	}
	return false
}
