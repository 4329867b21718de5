package storage

import (
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/travelflow/travelflow-backend/pkg/config"
	"github.com/travelflow/travelflow-backend/pkg/errors"
)

func newTestSigner(now time.Time) *Signer {
	s := NewSigner(&config.StorageConfig{
		PublicBaseURL:  "https://files.example.com/public/",
		PrivateBaseURL: "https://files.example.com/private",
		SigningSecret:  "test-secret",
	})
	s.now = func() time.Time { return now }
	return s
}

func TestSigner_DefaultTTL(t *testing.T) {
	s := NewSigner(&config.StorageConfig{})
	assert.Equal(t, time.Hour, s.ttl)
}

func TestSigner_PublicURL(t *testing.T) {
	s := newTestSigner(time.Now())
	assert.Equal(t, "https://files.example.com/public/org/receipt%201.png", s.PublicURL("/org/receipt 1.png"))

	resolved := s.Resolve("org/a.png", false)
	assert.Nil(t, resolved.ExpiresAt)
	assert.Equal(t, "https://files.example.com/public/org/a.png", resolved.URL)
}

func TestSigner_SignURLExpiresAfterOneHour(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := newTestSigner(now)

	signed := s.SignURL("org/receipt.png")
	require.NotNil(t, signed.ExpiresAt)
	assert.Equal(t, now.Add(time.Hour), *signed.ExpiresAt)
	assert.True(t, strings.HasPrefix(signed.URL, "https://files.example.com/private/org/receipt.png?"))

	require.NoError(t, s.VerifyURL(signed.URL))

	s.now = func() time.Time { return now.Add(59 * time.Minute) }
	assert.NoError(t, s.VerifyURL(signed.URL))

	s.now = func() time.Time { return now.Add(61 * time.Minute) }
	err := s.VerifyURL(signed.URL)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrForbidden))
}

func TestSigner_VerifyRejectsTampering(t *testing.T) {
	now := time.Now()
	s := newTestSigner(now)
	signed := s.SignURL("org/receipt.png")

	u, err := url.Parse(signed.URL)
	require.NoError(t, err)

	t.Run("other path", func(t *testing.T) {
		err := s.Verify("org/other.png", u.Query().Get("expires"), u.Query().Get("signature"))
		assert.Equal(t, "FORBIDDEN", errors.CodeOf(err))
	})

	t.Run("extended expiry", func(t *testing.T) {
		err := s.Verify("org/receipt.png", "99999999999", u.Query().Get("signature"))
		assert.Equal(t, "FORBIDDEN", errors.CodeOf(err))
	})

	t.Run("malformed expiry", func(t *testing.T) {
		err := s.Verify("org/receipt.png", "soon", u.Query().Get("signature"))
		assert.Equal(t, "BAD_REQUEST", errors.CodeOf(err))
	})

	t.Run("other secret", func(t *testing.T) {
		other := newTestSigner(now)
		other.secret = []byte("different")
		assert.Error(t, other.VerifyURL(signed.URL))
	})
}
