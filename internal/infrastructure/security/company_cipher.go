package security

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"

	"mentor-agenda/internal/config"
)

// CompanyCipher decrypts the company identifier embedded in public URLs.
// Tokens have the form hex(iv):hex(ciphertext), AES-256-CBC with PKCS#7 padding.
type CompanyCipher struct {
	key []byte
}

func NewCompanyCipher(cfg *config.Config) (*CompanyCipher, error) {
	key, err := hex.DecodeString(cfg.Security.EncryptionSecretKey)
	if err != nil {
		return nil, fmt.Errorf("security.encryption_secret_key must be hex: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("security.encryption_secret_key must be 32 bytes, got %d", len(key))
	}
	return &CompanyCipher{key: key}, nil
}

func (c *CompanyCipher) Encrypt(companyID string) (string, error) {
	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", err
	}

	iv := make([]byte, aes.BlockSize)
	if _, err := rand.Read(iv); err != nil {
		return "", err
	}

	plain := pkcs7Pad([]byte(companyID), aes.BlockSize)
	out := make([]byte, len(plain))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, plain)

	return hex.EncodeToString(iv) + ":" + hex.EncodeToString(out), nil
}

func (c *CompanyCipher) Decrypt(token string) (string, error) {
	ivHex, ctHex, ok := strings.Cut(token, ":")
	if !ok {
		return "", fmt.Errorf("malformed company token")
	}

	iv, err := hex.DecodeString(ivHex)
	if err != nil || len(iv) != aes.BlockSize {
		return "", fmt.Errorf("malformed company token iv")
	}
	ct, err := hex.DecodeString(ctHex)
	if err != nil || len(ct) == 0 || len(ct)%aes.BlockSize != 0 {
		return "", fmt.Errorf("malformed company token ciphertext")
	}

	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", err
	}

	plain := make([]byte, len(ct))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plain, ct)

	plain, err = pkcs7Unpad(plain, aes.BlockSize)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

func pkcs7Pad(b []byte, size int) []byte {
	n := size - len(b)%size
	return append(b, bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(b []byte, size int) ([]byte, error) {
	if len(b) == 0 || len(b)%size != 0 {
		return nil, fmt.Errorf("invalid padding")
	}
	n := int(b[len(b)-1])
	if n == 0 || n > size || n > len(b) {
		return nil, fmt.Errorf("invalid padding")
	}
	for _, p := range b[len(b)-n:] {
		if int(p) != n {
			return nil, fmt.Errorf("invalid padding")
		}
	}
	return b[:len(b)-n], nil
}
