package network

import (
	"context"

	"github.com/bitfsorg/libs5-go/storage"
)

// MockTransport is a test double for Transport.
type MockTransport struct {
	ConnectFn func(ctx context.Context, remoteNodeID string, id Identity) (Session, error)
}

func (m *MockTransport) Connect(ctx context.Context, remoteNodeID string, id Identity) (Session, error) {
	return m.ConnectFn(ctx, remoteNodeID, id)
}

// MockSession is a test double for Session.
// All function fields must be set before the corresponding method is
// called, except CloseFn which defaults to a no-op.
type MockSession struct {
	PutFn         func(ctx context.Context, addr storage.Address, data []byte) error
	GetFn         func(ctx context.Context, addr storage.Address) ([]byte, error)
	HasFn         func(ctx context.Context, addr storage.Address) (bool, error)
	PutDocumentFn func(ctx context.Context, id storage.Address, doc []byte) error
	GetDocumentFn func(ctx context.Context, id storage.Address) ([]byte, error)
	PingFn        func(ctx context.Context) error
	CloseFn       func() error
}

func (m *MockSession) Put(ctx context.Context, addr storage.Address, data []byte) error {
	return m.PutFn(ctx, addr, data)
}
func (m *MockSession) Get(ctx context.Context, addr storage.Address) ([]byte, error) {
	return m.GetFn(ctx, addr)
}
func (m *MockSession) Has(ctx context.Context, addr storage.Address) (bool, error) {
	return m.HasFn(ctx, addr)
}
func (m *MockSession) PutDocument(ctx context.Context, id storage.Address, doc []byte) error {
	return m.PutDocumentFn(ctx, id, doc)
}
func (m *MockSession) GetDocument(ctx context.Context, id storage.Address) ([]byte, error) {
	return m.GetDocumentFn(ctx, id)
}
func (m *MockSession) Ping(ctx context.Context) error {
	return m.PingFn(ctx)
}
func (m *MockSession) Close() error {
	if m.CloseFn == nil {
		return nil
	}
	return m.CloseFn()
}
