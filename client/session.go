package client

import (
	"context"
	"crypto/ed25519"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/bitfsorg/libs5-go/directory"
	"github.com/bitfsorg/libs5-go/encrypt"
	"github.com/bitfsorg/libs5-go/network"
	"github.com/bitfsorg/libs5-go/storage"
	"github.com/bitfsorg/libs5-go/wallet"
)

// session is the state owned by one successful Connect.
type session struct {
	remote string
	conn   network.Session
	keys   *wallet.KeyMaterial
	nodeK  ed25519.PrivateKey
	docID  storage.Address

	commitMu sync.Mutex // serializes tree commits
	tree     atomic.Pointer[directory.Tree]
}

func newSession(remote string, keys *wallet.KeyMaterial) *session {
	s := &session{
		remote: remote,
		keys:   keys,
		nodeK:  keys.TransportPrivateKey(),
		docID:  storage.KeyedHash(keys.EncryptionKey, []byte(rootDocContext)),
	}
	s.tree.Store(directory.NewTree())
	return s
}

func (s *session) identity() network.Identity {
	return network.Identity{
		NodeID:    s.keys.NodeID(),
		PublicKey: append([]byte(nil), s.keys.PublicKey[:]...),
		Sign:      func(msg []byte) []byte { return ed25519.Sign(s.nodeK, msg) },
	}
}

// wipe zeroes every secret the session holds.
func (s *session) wipe() {
	s.keys.Zero()
	clear(s.nodeK)
}

func (s *session) current() *directory.Tree { return s.tree.Load() }

// load fetches and opens the directory document. A node that has never
// seen this user starts from an empty tree.
func (s *session) load(ctx context.Context) error {
	doc, err := s.conn.GetDocument(ctx, s.docID)
	if errors.Is(err, network.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	tree, err := directory.UnmarshalDocument(doc, s.keys.EncryptionKey[:], s.keys)
	if err != nil {
		return err
	}
	s.tree.Store(tree)
	return nil
}

// commit applies mutate to a copy of the tree, persists the copy and
// only then makes it visible. A failed write leaves the tree unchanged.
func (s *session) commit(ctx context.Context, mutate func(*directory.Tree) error) error {
	s.commitMu.Lock()
	defer s.commitMu.Unlock()

	next := s.current().Clone()
	if err := mutate(next); err != nil {
		return err
	}
	doc, err := next.MarshalDocument(s.keys.EncryptionKey[:], s.keys)
	if err != nil {
		return err
	}
	if err := s.conn.PutDocument(ctx, s.docID, doc); err != nil {
		return storageErr(err, "save directory")
	}
	s.tree.Store(next)
	return nil
}

// fetchObject downloads the object at addr and checks it hashes to addr
// before anything tries to decrypt it.
func (s *session) fetchObject(ctx context.Context, addr storage.Address) ([]byte, error) {
	obj, err := s.conn.Get(ctx, addr)
	if err != nil {
		return nil, storageErr(err, "download")
	}
	if err := storage.Verify(obj, addr); err != nil {
		return nil, err
	}
	return obj, nil
}

// open verifies and decrypts the object behind ref.
func (s *session) open(ctx context.Context, ref directory.ContentRef, workers int) ([]byte, error) {
	if ref.Scheme != directory.SchemeChunkedXChaCha20 {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, ref.Scheme)
	}
	obj, err := s.fetchObject(ctx, ref.EncryptedHash)
	if err != nil {
		return nil, err
	}
	pt, err := encrypt.Open(ref.Key, obj, encrypt.Options{Workers: workers})
	if err != nil {
		return nil, err
	}
	if uint64(len(pt)) != ref.Size || (!ref.Hash.IsZero() && !storage.Hash(pt).Equal(ref.Hash)) {
		return nil, fmt.Errorf("%w: %s", ErrContentMismatch, ref.EncryptedHash)
	}
	return pt, nil
}
