package s5err

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindString(t *testing.T) {
	tests := []struct {
		kind Kind
		want string
	}{
		{KindInternal, "internal error"},
		{KindInvalidInput, "invalid input"},
		{KindConnection, "connection error"},
		{KindStorage, "storage error"},
		{KindFileNotFound, "file not found"},
		{KindCrypto, "crypto error"},
		{Kind(99), "unknown error"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.kind.String())
		})
	}
}

func TestErrorMessage(t *testing.T) {
	err := Wrap(KindStorage, errors.New("disk full"), "put blob")
	assert.Equal(t, "storage error: put blob: disk full", err.Error())

	assert.Equal(t, "crypto error: bad tag", New(KindCrypto, "bad tag").Error())
	assert.Equal(t, "invalid input", ErrInvalidInput.Error())
}

func TestIsMatchesKindSentinel(t *testing.T) {
	specific := New(KindCrypto, "encrypt: decryption failed")
	wrapped := fmt.Errorf("download: %w", specific)

	assert.ErrorIs(t, wrapped, ErrCrypto)
	assert.ErrorIs(t, wrapped, specific)
	assert.NotErrorIs(t, wrapped, ErrStorage)

	other := New(KindCrypto, "something else")
	assert.NotErrorIs(t, wrapped, other, "non-sentinel errors match by identity only")
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindFileNotFound, KindOf(fmt.Errorf("x: %w", New(KindFileNotFound, "a.txt"))))
	assert.Equal(t, KindInternal, KindOf(errors.New("plain")))

	outer := Wrap(KindStorage, New(KindCrypto, "inner"), "outer")
	assert.Equal(t, KindStorage, KindOf(outer))
	assert.ErrorIs(t, outer, ErrStorage)
	assert.NotErrorIs(t, outer, ErrCrypto, "the outer kind replaces the inner one")
}

var allKinds = []error{ErrInternal, ErrInvalidInput, ErrConnection, ErrStorage, ErrFileNotFound, ErrCrypto}

func matchingKinds(err error) []Kind {
	var out []Kind
	for _, k := range allKinds {
		if errors.Is(err, k) {
			out = append(out, k.(*Error).Kind)
		}
	}
	return out
}

func TestMask(t *testing.T) {
	inner := New(KindCrypto, "storage: content hash mismatch")
	outer := New(KindStorage, "network: request rejected")

	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"wrap", Wrap(KindConnection, inner, "connect"), KindConnection},
		{"wrap twice", Wrap(KindConnection, Wrap(KindStorage, inner, "get"), "load"), KindConnection},
		{"sentinel pair", fmt.Errorf("%w: %w", outer, Mask(KindStorage, inner)), KindStorage},
		{"same kind", Wrap(KindCrypto, inner, "open"), KindCrypto},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, []Kind{tt.want}, matchingKinds(tt.err))
			assert.Equal(t, tt.want, KindOf(tt.err))
			assert.ErrorIs(t, tt.err, inner, "package sentinels still match by identity")
			assert.Contains(t, tt.err.Error(), "content hash mismatch")

			var e *Error
			require.True(t, errors.As(tt.err, &e))
			assert.Equal(t, tt.want, e.Kind)
		})
	}

	plain := errors.New("eof")
	assert.Same(t, plain, Mask(KindStorage, plain))
	assert.Nil(t, Mask(KindStorage, nil))
}

func TestWrapNil(t *testing.T) {
	assert.NoError(t, Wrap(KindStorage, nil, "noop"))
	assert.NoError(t, Ensure(nil, KindStorage, "noop"))
}

func TestEnsure(t *testing.T) {
	plain := errors.New("socket closed")
	got := Ensure(plain, KindConnection, "dial")
	assert.Equal(t, KindConnection, KindOf(got))
	assert.ErrorIs(t, got, plain)

	tagged := New(KindFileNotFound, "missing")
	got = Ensure(tagged, KindConnection, "")
	assert.Same(t, tagged, got)

	got = Ensure(tagged, KindConnection, "get")
	assert.Equal(t, KindFileNotFound, KindOf(got))
	assert.Equal(t, "get: file not found: missing", got.Error())
}
