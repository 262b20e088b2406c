// Package tde encrypts and decrypts individual column values carried by
// protocol messages. Values are sealed into a self-describing envelope so
// encrypted and plaintext columns can coexist in the same result set.
package tde

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/hkdf"
)

var (
	ErrNotEncrypted  = errors.New("value is not an encrypted envelope")
	ErrUnknownKey    = errors.New("envelope references an unknown key")
	ErrInvalidKey    = errors.New("invalid key material")
	ErrMalformedSeal = errors.New("malformed envelope")
)

// Envelope layout: magic, 4-byte big-endian key id, nonce, AEAD ciphertext.
var envelopeMagic = []byte("PGE1")

const (
	keySize        = 32
	envelopeHeader = 4 + 4
)

// Codec seals and opens column values under a single data key. The data key
// is derived from the stored key material with HKDF so the raw material never
// touches the cipher directly.
type Codec struct {
	keyID uint32
	aead  cipher.AEAD
}

// NewCodec creates a codec for the key with the given id and material.
func NewCodec(keyID uint32, material []byte) (*Codec, error) {
	if len(material) != keySize {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidKey, len(material), keySize)
	}

	derived := make([]byte, keySize)
	kdf := hkdf.New(newBlake2b, material, nil, []byte("pgproxy column data key"))
	if _, err := io.ReadFull(kdf, derived); err != nil {
		return nil, fmt.Errorf("derive data key: %w", err)
	}

	block, err := aes.NewCipher(derived)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("init aead: %w", err)
	}

	return &Codec{keyID: keyID, aead: aead}, nil
}

// KeyID returns the id of the key the codec seals under.
func (c *Codec) KeyID() uint32 {
	return c.keyID
}

// Seal encrypts plaintext into an envelope with a fresh random nonce.
func (c *Codec) Seal(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	out := make([]byte, 0, envelopeHeader+len(nonce)+len(plaintext)+c.aead.Overhead())
	out = append(out, envelopeMagic...)
	out = binary.BigEndian.AppendUint32(out, c.keyID)
	out = append(out, nonce...)
	return c.aead.Seal(out, nonce, plaintext, nil), nil
}

// Open decrypts an envelope previously produced by Seal with the same key.
func (c *Codec) Open(value []byte) ([]byte, error) {
	keyID, rest, err := parseEnvelope(value)
	if err != nil {
		return nil, err
	}
	if keyID != c.keyID {
		return nil, fmt.Errorf("%w: id %d", ErrUnknownKey, keyID)
	}

	ns := c.aead.NonceSize()
	if len(rest) < ns+c.aead.Overhead() {
		return nil, ErrMalformedSeal
	}
	plaintext, err := c.aead.Open(nil, rest[:ns], rest[ns:], nil)
	if err != nil {
		return nil, fmt.Errorf("open envelope: %w", err)
	}
	return plaintext, nil
}

// IsEncrypted reports whether value carries the envelope magic.
func IsEncrypted(value []byte) bool {
	return len(value) >= envelopeHeader && string(value[:4]) == string(envelopeMagic)
}

// EnvelopeKeyID extracts the key id an encrypted value was sealed under.
func EnvelopeKeyID(value []byte) (uint32, error) {
	keyID, _, err := parseEnvelope(value)
	return keyID, err
}

func parseEnvelope(value []byte) (uint32, []byte, error) {
	if !IsEncrypted(value) {
		return 0, nil, ErrNotEncrypted
	}
	return binary.BigEndian.Uint32(value[4:8]), value[envelopeHeader:], nil
}

// Fingerprint returns the hex BLAKE2b-256 digest of key material, used to
// identify keys without exposing them.
func Fingerprint(material []byte) string {
	digest := blake2b.Sum256(material)
	return hex.EncodeToString(digest[:])
}

func newBlake2b() hash.Hash {
	h, err := blake2b.New256(nil)
	if err != nil {
		// New256 without a key cannot fail.
		panic(err)
	}
	return h
}
