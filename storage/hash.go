package storage

import (
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"

	"lukechampine.com/blake3"
)

// AddressSize is the length of a content address (BLAKE3-256 output).
const AddressSize = 32

// Address is the BLAKE3-256 digest of the bytes persisted on the network.
// It names the stored ciphertext, never the plaintext.
type Address [AddressSize]byte

// Hash computes the content address of data.
func Hash(data []byte) Address {
	return Address(blake3.Sum256(data))
}

// ParseAddress decodes the 64-char hex form of an address.
func ParseAddress(s string) (Address, error) {
	var a Address
	s = strings.TrimSpace(s)
	if len(s) != AddressSize*2 {
		return a, fmt.Errorf("%w: got %d chars", ErrInvalidAddress, len(s))
	}
	if _, err := hex.Decode(a[:], []byte(s)); err != nil {
		return Address{}, fmt.Errorf("%w: %w", ErrInvalidAddress, err)
	}
	return a, nil
}

// AddressFromBytes copies a raw 32-byte address.
func AddressFromBytes(b []byte) (Address, error) {
	var a Address
	if len(b) != AddressSize {
		return a, fmt.Errorf("%w: got %d bytes", ErrInvalidAddress, len(b))
	}
	copy(a[:], b)
	return a, nil
}

// String returns the lowercase hex form.
func (a Address) String() string {
	return hex.EncodeToString(a[:])
}

// Bytes returns a copy of the raw digest.
func (a Address) Bytes() []byte {
	b := make([]byte, AddressSize)
	copy(b, a[:])
	return b
}

// Equal compares two addresses in constant time.
func (a Address) Equal(b Address) bool {
	return subtle.ConstantTimeCompare(a[:], b[:]) == 1
}

// IsZero reports whether a is the zero address.
func (a Address) IsZero() bool {
	return a == Address{}
}

// MarshalText implements encoding.TextMarshaler.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Verify checks that data hashes to addr.
func Verify(data []byte, addr Address) error {
	if got := Hash(data); !got.Equal(addr) {
		return fmt.Errorf("%w: want %s, got %s", ErrHashMismatch, addr, got)
	}
	return nil
}

// KeyedHash derives a keyed BLAKE3-256 digest of msg. Used to name
// private documents so the address reveals nothing without the key.
func KeyedHash(key [32]byte, msg []byte) Address {
	h := blake3.New(AddressSize, key[:])
	_, _ = h.Write(msg)
	var a Address
	copy(a[:], h.Sum(nil))
	return a
}
