package service

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ependal/vidgate/internal/domain"
)

func TestSignerRoundTrip(t *testing.T) {
	s := NewSigner("test-secret", 15*time.Minute)

	token := s.Issue("video-1", "user-1")
	assert.Equal(t, "user-1", token.SubjectID)
	assert.Greater(t, token.Expires, time.Now().Unix())

	err := s.Verify("video-1", "user-1", strconv.FormatInt(token.Expires, 10), token.Signature)
	assert.NoError(t, err)
}

func TestSignerRejectsTamperedTuple(t *testing.T) {
	s := NewSigner("test-secret", 15*time.Minute)
	token := s.Issue("video-1", "user-1")
	expires := strconv.FormatInt(token.Expires, 10)

	tests := []struct {
		name     string
		resource string
		subject  string
		expires  string
	}{
		{name: "different resource", resource: "video-2", subject: "user-1", expires: expires},
		{name: "different subject", resource: "video-1", subject: "user-2", expires: expires},
		{name: "different expiry", resource: "video-1", subject: "user-1", expires: strconv.FormatInt(token.Expires+1, 10)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.Verify(tt.resource, tt.subject, tt.expires, token.Signature)
			assert.ErrorIs(t, err, domain.ErrInvalidToken)
		})
	}
}

func TestSignerVerifyOrder(t *testing.T) {
	s := NewSigner("test-secret", 15*time.Minute)
	token := s.Issue("video-1", "user-1")

	// Non-numeric expiry fails parsing before anything else.
	err := s.Verify("video-1", "user-1", "not-a-number", token.Signature)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)

	// A lapsed expiry is reported as expired even with a garbage
	// signature: the time check runs before the comparison.
	err = s.Verify("video-1", "user-1", "1000000", "garbage")
	assert.ErrorIs(t, err, domain.ErrExpiredToken)
}

func TestSignerExpiry(t *testing.T) {
	s := NewSigner("test-secret", 15*time.Minute)
	token := s.Issue("video-1", "user-1")
	expires := strconv.FormatInt(token.Expires, 10)

	require.NoError(t, s.Verify("video-1", "user-1", expires, token.Signature))

	// Advance the clock past the TTL; the same token no longer
	// verifies.
	s.now = func() time.Time { return time.Now().Add(16 * time.Minute) }
	err := s.Verify("video-1", "user-1", expires, token.Signature)
	assert.ErrorIs(t, err, domain.ErrExpiredToken)
}

func TestSignerDefaultTTL(t *testing.T) {
	s := NewSigner("test-secret", 0)
	token := s.Issue("video-1", "user-1")
	assert.InDelta(t, time.Now().Add(DefaultSignedURLTTL).Unix(), token.Expires, 2)
}

func TestSignerSecretsDoNotCross(t *testing.T) {
	a := NewSigner("secret-a", 15*time.Minute)
	b := NewSigner("secret-b", 15*time.Minute)

	token := a.Issue("video-1", "user-1")
	err := b.Verify("video-1", "user-1", strconv.FormatInt(token.Expires, 10), token.Signature)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}
