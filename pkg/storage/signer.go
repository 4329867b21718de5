// Package storage resolves receipt file references to URLs. Public files are
// served from a static base URL; private files get an HMAC-signed URL that
// expires after the configured TTL.
package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/travelflow/travelflow-backend/pkg/config"
	"github.com/travelflow/travelflow-backend/pkg/errors"
)

// DefaultSignedURLTTL is used when the configuration leaves the TTL unset
const DefaultSignedURLTTL = time.Hour

// Signer builds and verifies receipt URLs
type Signer struct {
	publicBaseURL  string
	privateBaseURL string
	secret         []byte
	ttl            time.Duration
	now            func() time.Time
}

// NewSigner creates a signer from the storage configuration
func NewSigner(cfg *config.StorageConfig) *Signer {
	ttl := cfg.SignedURLTTL
	if ttl <= 0 {
		ttl = DefaultSignedURLTTL
	}
	return &Signer{
		publicBaseURL:  strings.TrimRight(cfg.PublicBaseURL, "/"),
		privateBaseURL: strings.TrimRight(cfg.PrivateBaseURL, "/"),
		secret:         []byte(cfg.SigningSecret),
		ttl:            ttl,
		now:            time.Now,
	}
}

// SignedURL is a resolved receipt location
type SignedURL struct {
	URL       string     `json:"url"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// PublicURL returns the unsigned URL of a public file
func (s *Signer) PublicURL(path string) string {
	return s.publicBaseURL + "/" + escapePath(path)
}

// SignURL returns a URL for a private file that is valid for the TTL
func (s *Signer) SignURL(path string) *SignedURL {
	expiresAt := s.now().Add(s.ttl).UTC().Truncate(time.Second)
	exp := strconv.FormatInt(expiresAt.Unix(), 10)

	q := url.Values{}
	q.Set("expires", exp)
	q.Set("signature", s.sign(path, exp))

	return &SignedURL{
		URL:       s.privateBaseURL + "/" + escapePath(path) + "?" + q.Encode(),
		ExpiresAt: &expiresAt,
	}
}

// Resolve returns the public URL or a signed one for private files
func (s *Signer) Resolve(path string, private bool) *SignedURL {
	if private {
		return s.SignURL(path)
	}
	return &SignedURL{URL: s.PublicURL(path)}
}

// Verify checks the signature and expiry of a signed request for path
func (s *Signer) Verify(path, expires, signature string) error {
	exp, err := strconv.ParseInt(expires, 10, 64)
	if err != nil {
		return errors.BadRequest("invalid expiry")
	}

	expected := s.sign(path, expires)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return errors.Forbidden("invalid signature")
	}

	if s.now().Unix() > exp {
		return errors.Forbidden("signed url has expired")
	}
	return nil
}

// VerifyURL verifies a complete URL produced by SignURL
func (s *Signer) VerifyURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return errors.BadRequest("invalid url")
	}

	prefix, err := url.Parse(s.privateBaseURL)
	if err != nil {
		return fmt.Errorf("invalid private base url: %w", err)
	}

	path := strings.TrimPrefix(u.Path, strings.TrimRight(prefix.Path, "/")+"/")
	return s.Verify(path, u.Query().Get("expires"), u.Query().Get("signature"))
}

func (s *Signer) sign(path, expires string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(path))
	mac.Write([]byte{'\n'})
	mac.Write([]byte(expires))
	return hex.EncodeToString(mac.Sum(nil))
}

func escapePath(path string) string {
	parts := strings.Split(strings.TrimLeft(path, "/"), "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}
