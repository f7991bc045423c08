package network

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitfsorg/libs5-go/s5err"
	"github.com/bitfsorg/libs5-go/storage"
)

// newTestNode starts an HTTP node over memory stores.
func newTestNode(t *testing.T, opts HandlerOptions) (*httptest.Server, *storage.MemoryStore, *storage.MemoryStore) {
	t.Helper()
	blobs, docs := storage.NewMemoryStore(), storage.NewMemoryStore()
	srv := httptest.NewServer(NewHandler(blobs, docs, opts))
	t.Cleanup(srv.Close)
	return srv, blobs, docs
}

func testIdentity(t *testing.T) Identity {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	return Identity{
		NodeID:    hex.EncodeToString(pub),
		PublicKey: pub,
		Sign:      func(msg []byte) []byte { return ed25519.Sign(priv, msg) },
	}
}

func TestHTTPTransport_RoundTrip(t *testing.T) {
	ctx := context.Background()
	srv, blobs, docs := newTestNode(t, HandlerOptions{NodeID: "node-A", RequireSignature: true})

	tr := NewHTTPTransport(srv.URL + "/")
	s, err := tr.Connect(ctx, "node-A", testIdentity(t))
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	data := []byte("encrypted object")
	addr := storage.Hash(data)

	ok, err := s.Has(ctx, addr)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Put(ctx, addr, data))
	assert.Equal(t, 1, blobs.Len())

	ok, err = s.Has(ctx, addr)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := s.Get(ctx, addr)
	require.NoError(t, err)
	assert.Equal(t, data, got)

	docID := storage.Hash([]byte("root-doc"))
	require.NoError(t, s.PutDocument(ctx, docID, []byte("sealed tree")))
	assert.Equal(t, 1, docs.Len())

	doc, err := s.GetDocument(ctx, docID)
	require.NoError(t, err)
	assert.Equal(t, []byte("sealed tree"), doc)

	assert.NoError(t, s.Ping(ctx))
}

func TestHTTPTransport_NotFound(t *testing.T) {
	ctx := context.Background()
	srv, _, _ := newTestNode(t, HandlerOptions{})
	s, err := NewHTTPTransport(srv.URL).Connect(ctx, "any", Identity{})
	require.NoError(t, err)

	_, err = s.Get(ctx, storage.Hash([]byte("never uploaded")))
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, s5err.KindFileNotFound, s5err.KindOf(err))

	_, err = s.GetDocument(ctx, storage.Hash([]byte("no doc")))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestHTTPTransport_NodeRejectsBadBlob(t *testing.T) {
	ctx := context.Background()
	srv, blobs, _ := newTestNode(t, HandlerOptions{})
	s, err := NewHTTPTransport(srv.URL).Connect(ctx, "any", Identity{})
	require.NoError(t, err)

	err = s.Put(ctx, storage.Hash([]byte("claimed")), []byte("actual"))
	assert.ErrorIs(t, err, ErrRejected)
	assert.Equal(t, s5err.KindStorage, s5err.KindOf(err))
	assert.Equal(t, 0, blobs.Len())
}

func TestHTTPTransport_ConnectErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("unreachable", func(t *testing.T) {
		_, err := NewHTTPTransport("http://127.0.0.1:1").Connect(ctx, "node-A", Identity{})
		assert.ErrorIs(t, err, ErrConnectionFailed)
		assert.Equal(t, s5err.KindConnection, s5err.KindOf(err))
	})

	t.Run("no url", func(t *testing.T) {
		_, err := (&HTTPTransport{}).Connect(ctx, "node-A", Identity{})
		assert.ErrorIs(t, err, ErrConnectionFailed)
	})

	t.Run("wrong node", func(t *testing.T) {
		srv, _, _ := newTestNode(t, HandlerOptions{NodeID: "node-A"})
		_, err := NewHTTPTransport(srv.URL).Connect(ctx, "node-B", Identity{})
		assert.ErrorIs(t, err, ErrConnectionFailed)
		assert.ErrorIs(t, err, ErrUnknownNode)
	})

	t.Run("unsigned", func(t *testing.T) {
		srv, _, _ := newTestNode(t, HandlerOptions{RequireSignature: true})
		_, err := NewHTTPTransport(srv.URL).Connect(ctx, "node-A", Identity{})
		assert.ErrorIs(t, err, ErrAuthFailed)
		assert.Equal(t, s5err.KindConnection, s5err.KindOf(err))
	})

	t.Run("bad node id", func(t *testing.T) {
		_, err := NewHTTPTransport("http://x").Connect(ctx, "", Identity{})
		assert.ErrorIs(t, err, ErrInvalidNodeID)
	})
}

func TestHTTPTransport_RequestHeaders(t *testing.T) {
	id := testIdentity(t)
	var seen http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Header.Clone()
		assert.True(t, verifyRequest(r))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	_, err := NewHTTPTransport(srv.URL).Connect(context.Background(), "node-A", id)
	require.NoError(t, err)

	assert.Equal(t, "node-A", seen.Get(HeaderRemoteNode))
	assert.Equal(t, id.NodeID, seen.Get(HeaderClientNode))
	assert.Equal(t, hex.EncodeToString(id.PublicKey), seen.Get(HeaderPublicKey))
	assert.Len(t, seen.Get(HeaderRequestID), 36, "uuid request id")
}

func TestHTTPTransport_ServerErrorIsStorageError(t *testing.T) {
	ctx := context.Background()
	var fail atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s, err := NewHTTPTransport(srv.URL).Connect(ctx, "n", Identity{})
	require.NoError(t, err)
	fail.Store(true)

	_, err = s.Get(ctx, storage.Hash([]byte("x")))
	assert.ErrorIs(t, err, ErrRejected)
	assert.Contains(t, err.Error(), "boom")
	assert.Equal(t, s5err.KindStorage, s5err.KindOf(err))

	_, err = s.Has(ctx, storage.Hash([]byte("x")))
	assert.ErrorIs(t, err, ErrRejected)
}

func TestHTTPTransport_TransitFailureAfterConnect(t *testing.T) {
	ctx := context.Background()
	srv, _, _ := newTestNode(t, HandlerOptions{})
	s, err := NewHTTPTransport(srv.URL).Connect(ctx, "n", Identity{})
	require.NoError(t, err)
	srv.Close()

	_, err = s.Get(ctx, storage.Hash([]byte("x")))
	assert.ErrorIs(t, err, ErrRequestFailed)
	assert.Equal(t, s5err.KindStorage, s5err.KindOf(err))
}

func TestHTTPTransport_Cancelled(t *testing.T) {
	srv, _, _ := newTestNode(t, HandlerOptions{})
	s, err := NewHTTPTransport(srv.URL).Connect(context.Background(), "n", Identity{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.Get(ctx, storage.Hash([]byte("x")))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestHTTPSession_Closed(t *testing.T) {
	srv, _, _ := newTestNode(t, HandlerOptions{})
	s, err := NewHTTPTransport(srv.URL).Connect(context.Background(), "n", Identity{})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = s.Get(context.Background(), storage.Address{})
	assert.ErrorIs(t, err, ErrSessionClosed)
	_, err = s.Has(context.Background(), storage.Address{})
	assert.ErrorIs(t, err, ErrSessionClosed)
	assert.ErrorIs(t, s.Ping(context.Background()), ErrSessionClosed)
}

func TestHandler_BadAddress(t *testing.T) {
	srv, _, _ := newTestNode(t, HandlerOptions{})
	resp, err := http.Get(srv.URL + PathBlob + "nothex")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHTTPTransport_OversizedBody(t *testing.T) {
	ctx := context.Background()
	srv, _, docs := newTestNode(t, HandlerOptions{})
	id := storage.Hash([]byte("doc"))
	doc := make([]byte, 100)
	require.NoError(t, docs.Put(ctx, id, doc))

	tests := []struct {
		limit   int64
		wantErr bool
	}{
		{limit: 99, wantErr: true},
		{limit: 100},
		{limit: 0},
	}
	for _, tt := range tests {
		tr := NewHTTPTransport(srv.URL)
		tr.MaxBody = tt.limit
		s, err := tr.Connect(ctx, "n", Identity{})
		require.NoError(t, err)

		got, err := s.GetDocument(ctx, id)
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrInvalidResponse, "limit %d", tt.limit)
			assert.Equal(t, []s5err.Kind{s5err.KindStorage}, kindsOf(err))
			assert.Nil(t, got)
			continue
		}
		require.NoError(t, err, "limit %d", tt.limit)
		assert.Equal(t, doc, got)
	}
}

func TestHTTPTransport_ConnectErrorHasOneKind(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	_, err := NewHTTPTransport(srv.URL).Connect(context.Background(), "n", Identity{})
	assert.ErrorIs(t, err, ErrConnectionFailed)
	assert.ErrorIs(t, err, ErrRejected)
	assert.Equal(t, []s5err.Kind{s5err.KindConnection}, kindsOf(err))
}
