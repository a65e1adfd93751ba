package credstore

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"io"

	"github.com/pkg/errors"
)

// Cipher is a reversible AES-CFB obfuscation layer applied uniformly to
// stored values. It is best-effort tamper resistance for credentials at rest,
// not confidentiality: the key lives next to the data, so anyone with access
// to the machine can recover both.
type Cipher struct {
	block cipher.Block
}

// NewCipher builds a cipher from a 16, 24 or 32 byte key.
func NewCipher(key []byte) (*Cipher, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, errors.Wrap(err, "credstore: invalid cipher key")
	}
	return &Cipher{block: block}, nil
}

// Seal obfuscates plaintext into a base64url string with a random IV prefix.
func (c *Cipher) Seal(plaintext string) (string, error) {
	out := make([]byte, aes.BlockSize+len(plaintext))
	iv := out[:aes.BlockSize]
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return "", errors.Wrap(err, "credstore: generate iv")
	}
	stream := cipher.NewCFBEncrypter(c.block, iv)
	stream.XORKeyStream(out[aes.BlockSize:], []byte(plaintext))
	return base64.RawURLEncoding.EncodeToString(out), nil
}

// Open reverses Seal. Callers treat any failure as "value absent" rather
// than an error, so corrupted or foreign values silently disappear.
func (c *Cipher) Open(sealed string) (string, error) {
	data, err := base64.RawURLEncoding.DecodeString(sealed)
	if err != nil {
		return "", errors.Wrap(err, "credstore: decode sealed value")
	}
	if len(data) < aes.BlockSize {
		return "", errors.New("credstore: sealed value too short")
	}
	iv := data[:aes.BlockSize]
	msg := data[aes.BlockSize:]
	stream := cipher.NewCFBDecrypter(c.block, iv)
	stream.XORKeyStream(msg, msg)
	return string(msg), nil
}
