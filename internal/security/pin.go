package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
)

var ErrCipherTooShort = errors.New("cipher text too short")

type Argon2Params struct {
	Time    uint32
	Memory  uint32
	Threads uint8
	KeyLen  uint32
}

var defaultParams = Argon2Params{
	Time:    1,
	Memory:  64 * 1024,
	Threads: 4,
	KeyLen:  32,
}

// PinCipher seals vault PINs with AES-256-GCM under a key derived from the
// server secret and the owning user id.
type PinCipher struct {
	secret []byte
	params Argon2Params
}

func NewPinCipher(secret string) *PinCipher {
	return &PinCipher{secret: []byte(secret), params: defaultParams}
}

func NewPinCipherWithParams(secret string, params Argon2Params) *PinCipher {
	return &PinCipher{secret: []byte(secret), params: params}
}

func (p *PinCipher) deriveKey(userID string) []byte {
	return argon2.IDKey(p.secret, []byte("caku-vault:"+userID), p.params.Time, p.params.Memory, p.params.Threads, p.params.KeyLen)
}

// Seal returns nonce||ciphertext.
func (p *PinCipher) Seal(userID string, pin string) ([]byte, error) {
	aead, err := p.aead(userID)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	return aead.Seal(nonce, nonce, []byte(pin), []byte(userID)), nil
}

func (p *PinCipher) Open(userID string, sealed []byte) ([]byte, error) {
	aead, err := p.aead(userID)
	if err != nil {
		return nil, err
	}
	if len(sealed) < aead.NonceSize() {
		return nil, ErrCipherTooShort
	}

	nonce, ciphertext := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]
	plain, err := aead.Open(nil, nonce, ciphertext, []byte(userID))
	if err != nil {
		return nil, fmt.Errorf("open pin: %w", err)
	}
	return plain, nil
}

// Verify decrypts sealed and compares it with pin without early exit.
// Decrypt failures and mismatches are indistinguishable to the caller.
func (p *PinCipher) Verify(userID string, sealed []byte, pin string) bool {
	plain, err := p.Open(userID, sealed)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare(plain, []byte(pin)) == 1
}

func (p *PinCipher) aead(userID string) (cipher.AEAD, error) {
	block, err := aes.NewCipher(p.deriveKey(userID))
	if err != nil {
		return nil, fmt.Errorf("new cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("new gcm: %w", err)
	}
	return aead, nil
}
