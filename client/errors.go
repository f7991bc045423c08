package client

import "github.com/bitfsorg/libs5-go/s5err"

var (
	// ErrNotConnected indicates an operation that needs a session.
	ErrNotConnected = s5err.New(s5err.KindConnection, "client: not connected")

	// ErrNilTransport indicates a client built without a transport.
	ErrNilTransport = s5err.New(s5err.KindInvalidInput, "client: transport is nil")

	// ErrUnsupportedScheme indicates a content reference with an unknown encryption scheme.
	ErrUnsupportedScheme = s5err.New(s5err.KindCrypto, "client: unsupported encryption scheme")

	// ErrContentMismatch indicates decrypted content that does not match its recorded hash or size.
	ErrContentMismatch = s5err.New(s5err.KindCrypto, "client: decrypted content does not match reference")
)
