// Package encrypt implements XChaCha20-Poly1305 sealing of whole blobs
// and of fixed-size, independently addressable chunks.
//
// Nonce layout (24 bytes):
//
//	blob:  random[0:23] || 0x01
//	chunk: LE64(index) || 0x00 * 15 || 0x00
//
// The final byte is a domain separator, so a blob nonce can never equal
// a chunk nonce under the same key.
package encrypt

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/binary"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

const (
	// KeySize is the XChaCha20-Poly1305 key length.
	KeySize = chacha20poly1305.KeySize

	// NonceSize is the extended nonce length.
	NonceSize = chacha20poly1305.NonceSizeX

	// TagSize is the Poly1305 authentication tag length.
	TagSize = chacha20poly1305.Overhead

	// MaxChunkIndex is the largest chunk index a single key may seal.
	MaxChunkIndex = 1<<32 - 1

	domainChunk byte = 0x00
	domainBlob  byte = 0x01
)

// GenerateKey returns a fresh random key.
func GenerateKey() ([KeySize]byte, error) {
	var k [KeySize]byte
	if _, err := rand.Read(k[:]); err != nil {
		return k, fmt.Errorf("%w: %w", ErrRandomFailure, err)
	}
	return k, nil
}

func newAEAD(key []byte) (cipher.AEAD, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w: got %d bytes", ErrInvalidKeyLength, len(key))
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidKeyLength, err)
	}
	return aead, nil
}

// ChunkNonce returns the deterministic nonce for chunk index i.
func ChunkNonce(i uint64) ([NonceSize]byte, error) {
	var n [NonceSize]byte
	if i > MaxChunkIndex {
		return n, fmt.Errorf("%w: %d", ErrChunkIndexTooLarge, i)
	}
	binary.LittleEndian.PutUint64(n[:8], i)
	n[NonceSize-1] = domainChunk
	return n, nil
}

// EncryptBlob seals plaintext under a random nonce.
// Output: nonce(24B) || ciphertext || tag(16B).
func EncryptBlob(key, plaintext []byte) ([]byte, error) {
	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}

	out := make([]byte, NonceSize, NonceSize+len(plaintext)+TagSize)
	if _, err := rand.Read(out[:NonceSize-1]); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRandomFailure, err)
	}
	out[NonceSize-1] = domainBlob

	return aead.Seal(out, out[:NonceSize], plaintext, nil), nil
}

// DecryptBlob opens the output of EncryptBlob.
func DecryptBlob(key, data []byte) ([]byte, error) {
	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}
	if len(data) < NonceSize+TagSize {
		return nil, fmt.Errorf("%w: got %d bytes, need at least %d", ErrCiphertextTooShort, len(data), NonceSize+TagSize)
	}
	if data[NonceSize-1] != domainBlob {
		return nil, ErrDecryptionFailed
	}

	plaintext, err := aead.Open(nil, data[:NonceSize], data[NonceSize:], nil)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	return plaintext, nil
}

// EncryptChunk seals one chunk with the nonce derived from its index.
// Output: ciphertext || tag(16B); the nonce is not stored.
func EncryptChunk(key []byte, index uint64, plaintext []byte) ([]byte, error) {
	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}
	return sealChunk(aead, index, plaintext, nil)
}

// DecryptChunk opens a chunk sealed by EncryptChunk at the same index.
func DecryptChunk(key []byte, index uint64, ciphertext []byte) ([]byte, error) {
	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}
	return openChunk(aead, index, ciphertext, nil)
}

func sealChunk(aead cipher.AEAD, index uint64, plaintext, ad []byte) ([]byte, error) {
	nonce, err := ChunkNonce(index)
	if err != nil {
		return nil, err
	}
	return aead.Seal(make([]byte, 0, len(plaintext)+TagSize), nonce[:], plaintext, ad), nil
}

func openChunk(aead cipher.AEAD, index uint64, ciphertext, ad []byte) ([]byte, error) {
	nonce, err := ChunkNonce(index)
	if err != nil {
		return nil, err
	}
	if len(ciphertext) < TagSize {
		return nil, fmt.Errorf("%w: chunk %d has %d bytes", ErrCiphertextTooShort, index, len(ciphertext))
	}
	plaintext, err := aead.Open(nil, nonce[:], ciphertext, ad)
	if err != nil {
		return nil, fmt.Errorf("%w: chunk %d", ErrDecryptionFailed, index)
	}
	return plaintext, nil
}
