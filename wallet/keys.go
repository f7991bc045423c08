package wallet

import (
	"crypto/ed25519"
	"crypto/subtle"
	"encoding/hex"
	"fmt"

	"lukechampine.com/blake3"
)

// KDF context labels. Each purpose gets its own label so that no two
// derived keys are related.
const (
	ContextRoot       = "s5/root"
	ContextFSRoot     = "s5/fs/root"
	ContextEncryption = "s5/fs/sync/xchacha20"
	ContextSigning    = "s5/fs/sync/ed25519"
	ContextTransport  = "s5/iroh/node"

	KeyLen           = 32
	rootSecretHexLen = KeyLen * 2
)

// KeyMaterial is the full set of keys derived from one seed phrase.
type KeyMaterial struct {
	RootSecret    [KeyLen]byte
	FSRootSecret  [KeyLen]byte
	EncryptionKey [KeyLen]byte
	SigningKey    [KeyLen]byte // Ed25519 seed
	PublicKey     [KeyLen]byte // Ed25519 public key of SigningKey
	TransportKey  [KeyLen]byte // Ed25519 seed of the node identity
}

// DeriveKeys validates the phrase and derives the complete key hierarchy.
// Identical phrases always yield identical key material.
func DeriveKeys(phrase string) (*KeyMaterial, error) {
	seed, err := SeedFromMnemonic(phrase, "")
	if err != nil {
		return nil, err
	}
	defer zeroBytes(seed)
	return KeysFromSeed(seed)
}

// KeysFromSeed derives the key hierarchy from a 64-byte BIP39 seed.
func KeysFromSeed(seed []byte) (*KeyMaterial, error) {
	if len(seed) == 0 {
		return nil, ErrInvalidSeed
	}

	var root [KeyLen]byte
	blake3.DeriveKey(root[:], ContextRoot, seed)
	km := keysFromRoot(root)
	zeroBytes(root[:])
	return km, nil
}

// KeysFromRootSecret rebuilds key material from a previously exported
// 32-byte root secret.
func KeysFromRootSecret(root []byte) (*KeyMaterial, error) {
	if len(root) != KeyLen {
		return nil, ErrInvalidRootSecret
	}
	var r [KeyLen]byte
	copy(r[:], root)
	km := keysFromRoot(r)
	zeroBytes(r[:])
	return km, nil
}

// RecoverRootSecretHex derives the root secret from a phrase and returns
// it hex encoded.
func RecoverRootSecretHex(phrase string) (string, error) {
	km, err := DeriveKeys(phrase)
	if err != nil {
		return "", err
	}
	defer km.Zero()
	return km.RootSecretHex(), nil
}

// KeysFromRootSecretHex is KeysFromRootSecret for the hex text form.
func KeysFromRootSecretHex(s string) (*KeyMaterial, error) {
	if len(s) != rootSecretHexLen {
		return nil, ErrInvalidRootSecret
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRootSecret, err)
	}
	defer zeroBytes(raw)
	return KeysFromRootSecret(raw)
}

func keysFromRoot(root [KeyLen]byte) *KeyMaterial {
	km := &KeyMaterial{RootSecret: root}
	blake3.DeriveKey(km.FSRootSecret[:], ContextFSRoot, km.RootSecret[:])
	blake3.DeriveKey(km.EncryptionKey[:], ContextEncryption, km.FSRootSecret[:])
	blake3.DeriveKey(km.SigningKey[:], ContextSigning, km.FSRootSecret[:])
	blake3.DeriveKey(km.TransportKey[:], ContextTransport, km.RootSecret[:])

	priv := ed25519.NewKeyFromSeed(km.SigningKey[:])
	copy(km.PublicKey[:], priv.Public().(ed25519.PublicKey))
	zeroBytes(priv)
	return km
}

// RootSecretHex returns the hex form of the root secret.
func (k *KeyMaterial) RootSecretHex() string {
	return hex.EncodeToString(k.RootSecret[:])
}

// PublicKeyHex returns the hex form of the signing public key.
func (k *KeyMaterial) PublicKeyHex() string {
	return hex.EncodeToString(k.PublicKey[:])
}

// NodeID returns the hex encoded Ed25519 public key of the transport key.
func (k *KeyMaterial) NodeID() string {
	priv := ed25519.NewKeyFromSeed(k.TransportKey[:])
	defer zeroBytes(priv)
	return hex.EncodeToString(priv.Public().(ed25519.PublicKey))
}

// SigningPrivateKey expands the signing seed. Callers should zero the
// returned key when done.
func (k *KeyMaterial) SigningPrivateKey() ed25519.PrivateKey {
	return ed25519.NewKeyFromSeed(k.SigningKey[:])
}

// TransportPrivateKey expands the transport seed.
func (k *KeyMaterial) TransportPrivateKey() ed25519.PrivateKey {
	return ed25519.NewKeyFromSeed(k.TransportKey[:])
}

// Sign signs msg with the signing key.
func (k *KeyMaterial) Sign(msg []byte) []byte {
	priv := k.SigningPrivateKey()
	defer zeroBytes(priv)
	return ed25519.Sign(priv, msg)
}

// Verify checks sig over msg against the signing public key.
func (k *KeyMaterial) Verify(msg, sig []byte) bool {
	return Verify(k.PublicKey[:], msg, sig)
}

// Equal reports whether two key sets hold the same root secret.
func (k *KeyMaterial) Equal(other *KeyMaterial) bool {
	if k == nil || other == nil {
		return k == other
	}
	return subtle.ConstantTimeCompare(k.RootSecret[:], other.RootSecret[:]) == 1
}

// Zero wipes every key in place.
func (k *KeyMaterial) Zero() {
	if k == nil {
		return
	}
	zeroBytes(k.RootSecret[:])
	zeroBytes(k.FSRootSecret[:])
	zeroBytes(k.EncryptionKey[:])
	zeroBytes(k.SigningKey[:])
	zeroBytes(k.PublicKey[:])
	zeroBytes(k.TransportKey[:])
}

// Verify checks an Ed25519 signature against a raw public key.
func Verify(pub, msg, sig []byte) bool {
	if len(pub) != ed25519.PublicKeySize || len(sig) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(pub), msg, sig)
}

func zeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
