package network

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/bitfsorg/libs5-go/s5err"
	"github.com/bitfsorg/libs5-go/storage"
)

// LocalTransport is an in-process node backed by storage.Store values.
type LocalTransport struct {
	// NodeID, when set, is the only remote id Connect accepts.
	NodeID    string
	Blobs     storage.Store
	Documents storage.Store

	sessions atomic.Int64
}

var _ Transport = (*LocalTransport)(nil)

// NewLocalTransport creates a node over the given stores.
func NewLocalTransport(nodeID string, blobs, docs storage.Store) *LocalTransport {
	return &LocalTransport{NodeID: nodeID, Blobs: blobs, Documents: docs}
}

// NewMemoryTransport creates a node over fresh in-memory stores.
func NewMemoryTransport(nodeID string) *LocalTransport {
	return NewLocalTransport(nodeID, storage.NewMemoryStore(), storage.NewMemoryStore())
}

// Connect opens a session. It fails if the stores are missing or the
// remote id does not match NodeID.
func (t *LocalTransport) Connect(ctx context.Context, remoteNodeID string, id Identity) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}
	if err := ValidateNodeID(remoteNodeID); err != nil {
		return nil, err
	}
	if t.NodeID != "" && t.NodeID != remoteNodeID {
		return nil, fmt.Errorf("%w: %s", ErrUnknownNode, remoteNodeID)
	}
	if t.Blobs == nil || t.Documents == nil {
		return nil, fmt.Errorf("%w: node has no storage", ErrConnectionFailed)
	}
	t.sessions.Add(1)
	return &localSession{node: t, client: id.NodeID}, nil
}

// Sessions returns the number of sessions opened so far.
func (t *LocalTransport) Sessions() int64 { return t.sessions.Load() }

type localSession struct {
	node   *LocalTransport
	client string

	mu     sync.RWMutex
	closed bool
}

func (s *localSession) check() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrSessionClosed
	}
	return nil
}

func (s *localSession) Put(ctx context.Context, addr storage.Address, data []byte) error {
	if err := s.check(); err != nil {
		return err
	}
	if err := storage.Verify(data, addr); err != nil {
		return fmt.Errorf("%w: %w", ErrRejected, s5err.Mask(s5err.KindStorage, err))
	}
	return mapStoreErr(s.node.Blobs.Put(ctx, addr, data))
}

func (s *localSession) Get(ctx context.Context, addr storage.Address) ([]byte, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	data, err := s.node.Blobs.Get(ctx, addr)
	return data, mapStoreErr(err)
}

func (s *localSession) Has(ctx context.Context, addr storage.Address) (bool, error) {
	if err := s.check(); err != nil {
		return false, err
	}
	ok, err := s.node.Blobs.Has(ctx, addr)
	return ok, mapStoreErr(err)
}

func (s *localSession) PutDocument(ctx context.Context, id storage.Address, doc []byte) error {
	if err := s.check(); err != nil {
		return err
	}
	return mapStoreErr(s.node.Documents.Put(ctx, id, doc))
}

func (s *localSession) GetDocument(ctx context.Context, id storage.Address) ([]byte, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	doc, err := s.node.Documents.Get(ctx, id)
	return doc, mapStoreErr(err)
}

func (s *localSession) Ping(ctx context.Context) error {
	if err := s.check(); err != nil {
		return err
	}
	return ctx.Err()
}

func (s *localSession) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

// mapStoreErr converts backend errors to session errors.
func mapStoreErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, storage.ErrNotFound):
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return fmt.Errorf("%w: %w", ErrRejected, s5err.Mask(s5err.KindStorage, err))
	}
}
