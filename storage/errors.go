package storage

import "github.com/bitfsorg/libs5-go/s5err"

var (
	// ErrNotFound indicates no content exists for the given address.
	ErrNotFound = s5err.New(s5err.KindFileNotFound, "storage: content not found")

	// ErrInvalidAddress indicates an address that is not 32 bytes of hex.
	ErrInvalidAddress = s5err.New(s5err.KindInvalidInput, "storage: address must be 32 bytes (64 hex chars)")

	// ErrIOFailure indicates a backend read/write error.
	ErrIOFailure = s5err.New(s5err.KindStorage, "storage: I/O failure")

	// ErrEmptyContent indicates an attempt to store empty content.
	ErrEmptyContent = s5err.New(s5err.KindInvalidInput, "storage: content is empty")

	// ErrInvalidBaseDir indicates the base directory path is invalid.
	ErrInvalidBaseDir = s5err.New(s5err.KindInvalidInput, "storage: invalid base directory")

	// ErrInvalidBucket indicates an empty bucket name.
	ErrInvalidBucket = s5err.New(s5err.KindInvalidInput, "storage: invalid bucket name")

	// ErrHashMismatch indicates fetched bytes do not hash to their address.
	ErrHashMismatch = s5err.New(s5err.KindCrypto, "storage: content hash mismatch")

	// ErrClosed indicates use of a store after Close.
	ErrClosed = s5err.New(s5err.KindStorage, "storage: store is closed")
)
