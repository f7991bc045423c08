package wallet

import "github.com/bitfsorg/libs5-go/s5err"

var (
	// ErrInvalidMnemonic indicates the mnemonic fails BIP39 validation.
	ErrInvalidMnemonic = s5err.New(s5err.KindInvalidInput, "wallet: invalid BIP39 mnemonic")

	// ErrInvalidEntropy indicates entropy bits is not 128 or 256.
	ErrInvalidEntropy = s5err.New(s5err.KindInvalidInput, "wallet: entropy bits must be 128 or 256")

	// ErrInvalidRootSecret indicates a root secret that is not 32 bytes.
	ErrInvalidRootSecret = s5err.New(s5err.KindInvalidInput, "wallet: root secret must be 32 bytes")

	// ErrInvalidSeed indicates the seed is empty.
	ErrInvalidSeed = s5err.New(s5err.KindInvalidInput, "wallet: invalid seed")

	// ErrDecryptionFailed indicates wrong password or corrupted sealed phrase data.
	ErrDecryptionFailed = s5err.New(s5err.KindCrypto, "wallet: phrase decryption failed (wrong password or corrupted data)")

	// ErrUnsupportedFormat indicates an unknown sealed phrase version byte.
	ErrUnsupportedFormat = s5err.New(s5err.KindInvalidInput, "wallet: unsupported sealed phrase format")

	// ErrRandomFailure indicates the system random source failed.
	ErrRandomFailure = s5err.New(s5err.KindInternal, "wallet: random source failure")
)
