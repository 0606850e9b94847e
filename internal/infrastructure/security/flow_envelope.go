package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"

	"mentor-agenda/internal/domain/entity"
)

// FlowEnvelope is a decrypted WhatsApp Flow request plus the key material
// needed to encrypt the matching response.
type FlowEnvelope struct {
	Body []byte
	key  []byte
	iv   []byte
}

// DecryptFlowRequest unwraps the AES key with the company's RSA key
// (OAEP, SHA-256) and opens the AES-GCM payload.
func DecryptFlowRequest(req entity.EncryptedFlowRequest, privateKeyPEM, passphrase string) (*FlowEnvelope, error) {
	priv, err := ParsePrivateKey(privateKeyPEM, passphrase)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", entity.ErrDecryption, err)
	}

	wrapped, err := base64.StdEncoding.DecodeString(req.EncryptedAESKey)
	if err != nil {
		return nil, fmt.Errorf("%w: encrypted_aes_key: %v", entity.ErrDecryption, err)
	}
	key, err := rsa.DecryptOAEP(sha256.New(), nil, priv, wrapped, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: aes key: %v", entity.ErrDecryption, err)
	}

	iv, err := base64.StdEncoding.DecodeString(req.InitialVector)
	if err != nil {
		return nil, fmt.Errorf("%w: initial_vector: %v", entity.ErrDecryption, err)
	}
	data, err := base64.StdEncoding.DecodeString(req.EncryptedFlowData)
	if err != nil {
		return nil, fmt.Errorf("%w: encrypted_flow_data: %v", entity.ErrDecryption, err)
	}

	gcm, err := newGCM(key, len(iv))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", entity.ErrDecryption, err)
	}
	body, err := gcm.Open(nil, iv, data, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: flow data: %v", entity.ErrDecryption, err)
	}

	return &FlowEnvelope{Body: body, key: key, iv: iv}, nil
}

// EncryptResponse seals payload with the request key and the bit-flipped IV,
// base64 encoded as the endpoint must answer.
func (e *FlowEnvelope) EncryptResponse(payload []byte) (string, error) {
	flipped := make([]byte, len(e.iv))
	for i, b := range e.iv {
		flipped[i] = ^b
	}

	gcm, err := newGCM(e.key, len(flipped))
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(gcm.Seal(nil, flipped, payload, nil)), nil
}

// EncryptFlowRequest builds a request the way the WhatsApp client does.
// Used by tests and local tooling.
func EncryptFlowRequest(body []byte, pub *rsa.PublicKey) (entity.EncryptedFlowRequest, *FlowEnvelope, error) {
	key := make([]byte, 16)
	iv := make([]byte, 16)
	if _, err := rand.Read(key); err != nil {
		return entity.EncryptedFlowRequest{}, nil, err
	}
	if _, err := rand.Read(iv); err != nil {
		return entity.EncryptedFlowRequest{}, nil, err
	}

	wrapped, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, pub, key, nil)
	if err != nil {
		return entity.EncryptedFlowRequest{}, nil, err
	}
	gcm, err := newGCM(key, len(iv))
	if err != nil {
		return entity.EncryptedFlowRequest{}, nil, err
	}

	req := entity.EncryptedFlowRequest{
		EncryptedAESKey:   base64.StdEncoding.EncodeToString(wrapped),
		EncryptedFlowData: base64.StdEncoding.EncodeToString(gcm.Seal(nil, iv, body, nil)),
		InitialVector:     base64.StdEncoding.EncodeToString(iv),
	}
	return req, &FlowEnvelope{Body: body, key: key, iv: iv}, nil
}

// DecryptResponse is the client side of EncryptResponse.
func (e *FlowEnvelope) DecryptResponse(encoded string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, err
	}
	flipped := make([]byte, len(e.iv))
	for i, b := range e.iv {
		flipped[i] = ^b
	}
	gcm, err := newGCM(e.key, len(flipped))
	if err != nil {
		return nil, err
	}
	return gcm.Open(nil, flipped, data, nil)
}

// WhatsApp uses a 16 byte IV; 12 byte IVs from other clients still work.
func newGCM(key []byte, nonceSize int) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	if nonceSize == 12 {
		return cipher.NewGCM(block)
	}
	return cipher.NewGCMWithNonceSize(block, nonceSize)
}

// ParsePrivateKey reads a PEM RSA key in PKCS#1 or PKCS#8 form. A legacy
// encrypted PEM block is opened with passphrase.
func ParsePrivateKey(privateKeyPEM, passphrase string) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode([]byte(privateKeyPEM))
	if block == nil {
		return nil, fmt.Errorf("private key is not PEM encoded")
	}

	der := block.Bytes
	//nolint:staticcheck
	if x509.IsEncryptedPEMBlock(block) {
		var err error
		der, err = x509.DecryptPEMBlock(block, []byte(passphrase))
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt private key: %w", err)
		}
	}
	if block.Type == "ENCRYPTED PRIVATE KEY" {
		return nil, fmt.Errorf("encrypted PKCS#8 keys are not supported, convert with: openssl rsa -traditional -des3")
	}

	if key, err := x509.ParsePKCS1PrivateKey(der); err == nil {
		return key, nil
	}
	parsed, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}
	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("private key is not RSA")
	}
	return key, nil
}
