// Package s5err defines the error taxonomy shared by every s5 package.
//
// Each failure carries one of six kinds. Callers branch on the kind with
// errors.Is against the bare sentinels (ErrInvalidInput, ErrCrypto, ...)
// or with KindOf, and may still match package-specific sentinels such as
// encrypt.ErrDecryptionFailed, which are themselves *Error values.
//
// An error matches exactly one bare sentinel: the kind of the outermost
// *Error. A cause re-tagged with another kind by Wrap or Mask keeps its
// message and its package sentinels but stops matching its old kind.
package s5err

import (
	"errors"
	"fmt"
)

// Kind classifies a failure.
type Kind uint8

const (
	// KindInternal is an invariant violation; always a bug.
	KindInternal Kind = iota
	// KindInvalidInput is a malformed argument (bad path, bad seed phrase, chunk index out of range).
	KindInvalidInput
	// KindConnection is a transport or session establishment failure.
	KindConnection
	// KindStorage is a remote storage operation rejected or failed after a valid session.
	KindStorage
	// KindFileNotFound means the referenced path or address does not exist.
	KindFileNotFound
	// KindCrypto is an authentication/decryption failure, wrong key, or corrupted ciphertext.
	KindCrypto
)

// String returns the human-readable kind name used as the message prefix.
func (k Kind) String() string {
	switch k {
	case KindInternal:
		return "internal error"
	case KindInvalidInput:
		return "invalid input"
	case KindConnection:
		return "connection error"
	case KindStorage:
		return "storage error"
	case KindFileNotFound:
		return "file not found"
	case KindCrypto:
		return "crypto error"
	default:
		return "unknown error"
	}
}

// Error is a tagged failure: one Kind plus a message and an optional cause.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

// Sentinels for kind matching with errors.Is. They carry no message.
var (
	ErrInternal     = &Error{Kind: KindInternal}
	ErrInvalidInput = &Error{Kind: KindInvalidInput}
	ErrConnection   = &Error{Kind: KindConnection}
	ErrStorage      = &Error{Kind: KindStorage}
	ErrFileNotFound = &Error{Kind: KindFileNotFound}
	ErrCrypto       = &Error{Kind: KindCrypto}
)

// Error implements the error interface.
func (e *Error) Error() string {
	s := e.Kind.String()
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error { return e.Err }

// Is matches a bare kind sentinel (no message, no cause) of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return isSentinel(t) && t.Kind == e.Kind
}

// New returns an *Error of the given kind.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Newf is New with a format string.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap tags err with kind. A nil err yields nil.
func Wrap(kind Kind, err error, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Msg: msg, Err: Mask(kind, err)}
}

// Mask prepares err to sit under an error of the given kind. If err
// carries a different kind, the result no longer matches bare kind
// sentinels; errors.As and identity matching still reach it.
func Mask(kind Kind, err error) error {
	var e *Error
	if err == nil || !errors.As(err, &e) || e.Kind == kind {
		return err
	}
	return masked{err}
}

type masked struct{ err error }

func (m masked) Error() string { return m.err.Error() }

func (m masked) Is(target error) bool {
	if isSentinel(target) {
		return false
	}
	return errors.Is(m.err, target)
}

func (m masked) As(target any) bool { return errors.As(m.err, target) }

func isSentinel(err error) bool {
	t, ok := err.(*Error)
	return ok && t.Msg == "" && t.Err == nil
}

// KindOf returns the kind of the outermost *Error in err's chain.
// Errors carrying no kind are reported as KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Ensure returns err unchanged when it already carries a kind, and
// otherwise tags it with fallback.
func Ensure(err error, fallback Kind, msg string) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		if msg == "" {
			return err
		}
		return fmt.Errorf("%s: %w", msg, err)
	}
	return Wrap(fallback, err, msg)
}
