package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"strings"

	"mentor-agenda/internal/config"
)

// BookingSigner binds the slot shown on the SUMMARY screen to the flow token,
// so the final submit cannot swap the date or time that was checked.
type BookingSigner struct {
	secret []byte
}

func NewBookingSigner(cfg *config.Config) *BookingSigner {
	return &BookingSigner{secret: []byte(cfg.Security.FlowSigningSecret)}
}

// Enabled is false when no signing secret is configured
func (s *BookingSigner) Enabled() bool {
	return len(s.secret) > 0
}

func (s *BookingSigner) Sign(flowToken, date, slot string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(strings.Join([]string{flowToken, date, slot}, "|")))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

func (s *BookingSigner) Verify(flowToken, date, slot, signature string) bool {
	got, err := base64.RawURLEncoding.DecodeString(signature)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(strings.Join([]string{flowToken, date, slot}, "|")))
	return hmac.Equal(got, mac.Sum(nil))
}
