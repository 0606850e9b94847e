package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"mentor-agenda/internal/domain/entity"
)

// SignatureHeader carries the Meta webhook signature of the raw body
const SignatureHeader = "X-Hub-Signature-256"

// SignBody returns the header value Meta sends for body: "sha256=" + hex HMAC.
func SignBody(appSecret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(appSecret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// VerifyBodySignature checks header against the HMAC-SHA256 of the raw body.
// Callers decide what an empty appSecret means.
func VerifyBodySignature(appSecret string, body []byte, header string) error {
	if header == "" {
		return fmt.Errorf("%w: missing %s header", entity.ErrInvalidSignature, SignatureHeader)
	}
	got, err := hex.DecodeString(strings.TrimPrefix(header, "sha256="))
	if err != nil {
		return fmt.Errorf("%w: header is not hex", entity.ErrInvalidSignature)
	}

	mac := hmac.New(sha256.New, []byte(appSecret))
	mac.Write(body)
	if !hmac.Equal(got, mac.Sum(nil)) {
		return entity.ErrInvalidSignature
	}
	return nil
}
