package security

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"time"
)

// Signer produces and checks HMAC signed, expiring download URLs.
type Signer struct {
	secret []byte
	maxAge time.Duration
}

func NewSigner(secret string, maxAge time.Duration) *Signer {
	return &Signer{secret: []byte(secret), maxAge: maxAge}
}

// Signature computes the HMAC-SHA256 over "trackingID:timestamp".
func (s *Signer) Signature(trackingID string, ts int64) string {
	mac := hmac.New(sha256.New, s.secret)
	fmt.Fprintf(mac, "%s:%d", trackingID, ts)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify checks a presented signature in constant time.
func (s *Signer) Verify(trackingID string, ts int64, sig string) bool {
	expected := s.Signature(trackingID, ts)
	return hmac.Equal([]byte(sig), []byte(expected))
}

// Expired reports whether a link created at ts has outlived maxAge.
func (s *Signer) Expired(ts int64, now time.Time) bool {
	return now.Unix()-ts > int64(s.maxAge.Seconds())
}

// DownloadURL builds the full signed link for a payslip.
func (s *Signer) DownloadURL(baseURL, trackingID string) string {
	ts := time.Now().Unix()
	return fmt.Sprintf("%s/api/v1/tracking/download/%s?t=%d&s=%s", baseURL, trackingID, ts, s.Signature(trackingID, ts))
}

// PixelURL builds the open-tracking pixel link.
func PixelURL(baseURL, trackingID string) string {
	return fmt.Sprintf("%s/api/v1/tracking/pixel/%s", baseURL, trackingID)
}

// NewTrackingID returns a 64 character URL-safe random identifier.
func NewTrackingID() string {
	b := make([]byte, 48)
	if _, err := rand.Read(b); err != nil {
		panic(err) // crypto/rand failure is not recoverable
	}
	return base64.RawURLEncoding.EncodeToString(b)
}
