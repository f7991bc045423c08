// Package network is the boundary between the client and a storage
// node. A Transport dials a node by id and yields a Session carrying
// blob and document operations.
package network

import (
	"context"
	"fmt"
	"strings"

	"github.com/bitfsorg/libs5-go/storage"
)

// Identity is what a client presents to a node.
type Identity struct {
	// NodeID is the hex Ed25519 public key of the client transport key.
	NodeID string
	// PublicKey is the filesystem signing public key.
	PublicKey []byte
	// Sign signs with the transport key; nil disables request signing.
	Sign func(msg []byte) []byte
}

// Transport establishes sessions with remote nodes.
type Transport interface {
	Connect(ctx context.Context, remoteNodeID string, id Identity) (Session, error)
}

// Session is an established connection to one node.
type Session interface {
	// Put stores an immutable blob. The node may verify addr = BLAKE3(data).
	Put(ctx context.Context, addr storage.Address, data []byte) error

	// Get fetches a blob.
	Get(ctx context.Context, addr storage.Address) ([]byte, error)

	// Has reports whether the node holds a blob.
	Has(ctx context.Context, addr storage.Address) (bool, error)

	// PutDocument replaces the mutable document stored under id.
	PutDocument(ctx context.Context, id storage.Address, doc []byte) error

	// GetDocument fetches the document stored under id.
	GetDocument(ctx context.Context, id storage.Address) ([]byte, error)

	// Ping is a read-only liveness probe.
	Ping(ctx context.Context) error

	// Close releases the session. It is safe to call more than once.
	Close() error
}

// ValidateNodeID checks a remote node id: any non-empty token without
// whitespace or slashes.
func ValidateNodeID(id string) error {
	if id == "" {
		return fmt.Errorf("%w: empty", ErrInvalidNodeID)
	}
	if strings.ContainsAny(id, " \t\r\n/") {
		return fmt.Errorf("%w: %q", ErrInvalidNodeID, id)
	}
	return nil
}
