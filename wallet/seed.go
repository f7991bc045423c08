// Package wallet turns a BIP39 seed phrase into the s5 key hierarchy.
//
// Key chain (BLAKE3 derive_key, one independent call per purpose):
//
//	phrase --bip39--> seed (64B)
//	seed   --"s5/root"-------------> root_secret
//	root   --"s5/fs/root"----------> fs_root_secret
//	fsRoot --"s5/fs/sync/xchacha20"-> encryption_key
//	fsRoot --"s5/fs/sync/ed25519"---> signing_key -> public_key
//	root   --"s5/iroh/node"---------> transport_key -> node id
package wallet

import (
	"crypto/rand"
	"fmt"
	"strings"

	"github.com/bsv-blockchain/go-sdk/compat/bip39"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

const (
	// Mnemonic entropy sizes.
	Mnemonic12Words = 128 // 12-word mnemonic
	Mnemonic24Words = 256 // 24-word mnemonic

	// Argon2id parameters for sealing a phrase at rest.
	Argon2Time        = 3
	Argon2Memory      = 64 * 1024 // 64 MB
	Argon2Parallelism = 4
	Argon2KeyLen      = 32

	// Sealed phrase format sizes.
	SealVersion = 1
	SaltLen     = 16
	NonceLen    = chacha20poly1305.NonceSizeX
)

// GenerateMnemonic creates a new BIP39 mnemonic with the specified entropy bits.
// Use Mnemonic12Words (128) for 12 words or Mnemonic24Words (256) for 24 words.
func GenerateMnemonic(entropyBits int) (string, error) {
	if entropyBits != Mnemonic12Words && entropyBits != Mnemonic24Words {
		return "", ErrInvalidEntropy
	}

	entropy, err := bip39.NewEntropy(entropyBits)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrRandomFailure, err)
	}

	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrRandomFailure, err)
	}

	return mnemonic, nil
}

// GenerateSeedPhrase returns a fresh 12-word seed phrase.
func GenerateSeedPhrase() (string, error) {
	return GenerateMnemonic(Mnemonic12Words)
}

// ValidateMnemonic checks word-list membership and the BIP39 checksum.
// Invalid input is reported as false, never as a panic.
func ValidateMnemonic(mnemonic string) bool {
	normalized := NormalizeMnemonic(mnemonic)
	if normalized == "" {
		return false
	}
	return bip39.IsMnemonicValid(normalized)
}

// ValidateSeedPhrase is ValidateMnemonic under the client-facing name.
func ValidateSeedPhrase(phrase string) bool {
	return ValidateMnemonic(phrase)
}

// NormalizeMnemonic collapses runs of whitespace to single spaces.
func NormalizeMnemonic(mnemonic string) string {
	return strings.Join(strings.Fields(mnemonic), " ")
}

// SeedFromMnemonic derives a 64-byte BIP39 seed from mnemonic + optional passphrase.
//
//	seed = PBKDF2(mnemonic, "mnemonic"+passphrase, 2048, 64, SHA512)
func SeedFromMnemonic(mnemonic, passphrase string) ([]byte, error) {
	normalized := NormalizeMnemonic(mnemonic)
	if !ValidateMnemonic(normalized) {
		return nil, ErrInvalidMnemonic
	}

	seed, err := bip39.NewSeedWithErrorChecking(normalized, passphrase)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidMnemonic, err)
	}

	return seed, nil
}

// SealPhrase encrypts a seed phrase under a password for storage at rest.
//
// Output format: version(1B) || salt(16B) || nonce(24B) || XChaCha20-Poly1305(argon2id(password,salt), nonce, phrase)
//
// The version byte and salt are bound as associated data.
func SealPhrase(phrase, password string) ([]byte, error) {
	normalized := NormalizeMnemonic(phrase)
	if !ValidateMnemonic(normalized) {
		return nil, ErrInvalidMnemonic
	}

	salt := make([]byte, SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRandomFailure, err)
	}

	aead, err := chacha20poly1305.NewX(passwordKey(password, salt))
	if err != nil {
		return nil, fmt.Errorf("wallet: cipher creation failed: %w", err)
	}

	nonce := make([]byte, NonceLen)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRandomFailure, err)
	}

	header := make([]byte, 0, 1+SaltLen+NonceLen)
	header = append(header, SealVersion)
	header = append(header, salt...)

	out := append(header, nonce...)
	return aead.Seal(out, nonce, []byte(normalized), header[:1+SaltLen]), nil
}

// OpenPhrase reverses SealPhrase and re-validates the recovered phrase.
func OpenPhrase(sealed []byte, password string) (string, error) {
	minLen := 1 + SaltLen + NonceLen + chacha20poly1305.Overhead
	if len(sealed) < minLen {
		return "", ErrDecryptionFailed
	}
	if sealed[0] != SealVersion {
		return "", ErrUnsupportedFormat
	}

	ad := sealed[:1+SaltLen]
	salt := sealed[1 : 1+SaltLen]
	nonce := sealed[1+SaltLen : 1+SaltLen+NonceLen]
	ciphertext := sealed[1+SaltLen+NonceLen:]

	aead, err := chacha20poly1305.NewX(passwordKey(password, salt))
	if err != nil {
		return "", ErrDecryptionFailed
	}

	plaintext, err := aead.Open(nil, nonce, ciphertext, ad)
	if err != nil {
		return "", ErrDecryptionFailed
	}

	phrase := string(plaintext)
	if !ValidateMnemonic(phrase) {
		return "", ErrInvalidMnemonic
	}
	return phrase, nil
}

func passwordKey(password string, salt []byte) []byte {
	return argon2.IDKey(
		[]byte(password),
		salt,
		Argon2Time,
		Argon2Memory,
		Argon2Parallelism,
		Argon2KeyLen,
	)
}
