package encrypt

import "github.com/bitfsorg/libs5-go/s5err"

var (
	// ErrInvalidKeyLength indicates a key that is not KeySize bytes.
	ErrInvalidKeyLength = s5err.New(s5err.KindCrypto, "encrypt: key must be 32 bytes")

	// ErrCiphertextTooShort indicates ciphertext shorter than nonce + tag.
	ErrCiphertextTooShort = s5err.New(s5err.KindCrypto, "encrypt: ciphertext too short")

	// ErrDecryptionFailed indicates AEAD authentication failure.
	ErrDecryptionFailed = s5err.New(s5err.KindCrypto, "encrypt: decryption failed (wrong key or tampered data)")

	// ErrChunkIndexTooLarge indicates a chunk index above MaxChunkIndex.
	ErrChunkIndexTooLarge = s5err.New(s5err.KindInvalidInput, "encrypt: chunk index exceeds maximum")

	// ErrInvalidChunkSize indicates a chunk size outside [MinChunkSize, MaxChunkSize].
	ErrInvalidChunkSize = s5err.New(s5err.KindInvalidInput, "encrypt: invalid chunk size")

	// ErrInvalidHeader indicates a malformed or inconsistent object header.
	ErrInvalidHeader = s5err.New(s5err.KindCrypto, "encrypt: invalid object header")

	// ErrChunkOutOfRange indicates a chunk index past the last chunk.
	ErrChunkOutOfRange = s5err.New(s5err.KindInvalidInput, "encrypt: chunk index out of range")

	// ErrRangeOutOfBounds indicates a read range past the end of the plaintext.
	ErrRangeOutOfBounds = s5err.New(s5err.KindInvalidInput, "encrypt: range out of bounds")

	// ErrRandomFailure indicates the system random source failed.
	ErrRandomFailure = s5err.New(s5err.KindInternal, "encrypt: random source failure")
)
