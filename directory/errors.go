package directory

import "github.com/bitfsorg/libs5-go/s5err"

var (
	// ErrInvalidName indicates a file or directory name that cannot be stored.
	ErrInvalidName = s5err.New(s5err.KindInvalidInput, "directory: invalid name")

	// ErrInvalidPath indicates a malformed path.
	ErrInvalidPath = s5err.New(s5err.KindInvalidInput, "directory: invalid path")

	// ErrNotFound indicates no directory or file exists at the path.
	ErrNotFound = s5err.New(s5err.KindFileNotFound, "directory: not found")

	// ErrNotDirectory indicates a path component exists as a file.
	ErrNotDirectory = s5err.New(s5err.KindInvalidInput, "directory: path component is a file")

	// ErrIsDirectory indicates a file operation on a directory name.
	ErrIsDirectory = s5err.New(s5err.KindInvalidInput, "directory: name is a directory")

	// ErrNilParam indicates a required parameter is nil.
	ErrNilParam = s5err.New(s5err.KindInvalidInput, "directory: required parameter is nil")

	// ErrInvalidDocument indicates a persisted document that cannot be decoded.
	ErrInvalidDocument = s5err.New(s5err.KindCrypto, "directory: invalid document")

	// ErrBadSignature indicates a document signature that does not verify.
	ErrBadSignature = s5err.New(s5err.KindCrypto, "directory: document signature invalid")
)
