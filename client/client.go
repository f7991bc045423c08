// Package client is the s5 storage client: it derives keys from a seed
// phrase, opens a session with a storage node and exposes an encrypted
// filesystem on top of it. The node only ever sees ciphertext objects
// and an encrypted, signed directory document.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/bitfsorg/libs5-go/directory"
	"github.com/bitfsorg/libs5-go/network"
	"github.com/bitfsorg/libs5-go/s5err"
	"github.com/bitfsorg/libs5-go/storage"
	"github.com/bitfsorg/libs5-go/wallet"
)

// rootDocContext names the keyed hash that addresses the directory
// document, so the node never learns which user owns it.
const rootDocContext = "s5/fs/root-doc"

// Options tunes a Client. The zero value is usable.
type Options struct {
	// ChunkSize is the plaintext bytes per encrypted chunk; 0 means
	// encrypt.DefaultChunkSize.
	ChunkSize int
	// Workers bounds parallel chunk sealing; 0 means one per CPU.
	Workers int
	// Logger receives operation logs; nil discards them.
	Logger logrus.FieldLogger
	// Now stamps uploaded entries; nil means time.Now.
	Now func() time.Time
}

type identity struct {
	nodeID    string
	publicKey string
}

// Client is one user's view of one storage node. Connect and Disconnect
// are serialized; file operations may run concurrently with each other.
type Client struct {
	transport network.Transport
	opts      Options
	log       logrus.FieldLogger

	mu    sync.RWMutex // Lock for Connect/Disconnect, RLock for file ops
	sess  *session
	state atomic.Int32
	ident atomic.Pointer[identity]
}

// New creates a disconnected client over transport.
func New(transport network.Transport, opts Options) (*Client, error) {
	if transport == nil {
		return nil, ErrNilTransport
	}
	log := opts.Logger
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Client{transport: transport, opts: opts, log: log}, nil
}

// State returns the current session state.
func (c *Client) State() State { return State(c.state.Load()) }

// IsConnected reports whether file operations can run.
func (c *Client) IsConnected() bool { return c.State() == StateConnected }

// NodeID returns the hex transport identity derived by the last Connect,
// or "" if no phrase was ever accepted.
func (c *Client) NodeID() string {
	if id := c.ident.Load(); id != nil {
		return id.nodeID
	}
	return ""
}

// PublicKey returns the hex Ed25519 user identity derived by the last
// Connect, or "".
func (c *Client) PublicKey() string {
	if id := c.ident.Load(); id != nil {
		return id.publicKey
	}
	return ""
}

// Connect derives keys from phrase, opens a session with remoteNodeID and
// loads the directory document. Connecting an already connected client
// closes the previous session first.
func (c *Client) Connect(ctx context.Context, phrase, remoteNodeID string) error {
	keys, err := wallet.DeriveKeys(phrase)
	if err != nil {
		return err
	}
	if err := network.ValidateNodeID(remoteNodeID); err != nil {
		keys.Zero()
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sess != nil {
		c.closeLocked()
	}
	c.ident.Store(&identity{nodeID: keys.NodeID(), publicKey: keys.PublicKeyHex()})
	c.state.Store(int32(StateConnecting))
	log := c.log.WithFields(logrus.Fields{"remote": remoteNodeID, "node_id": keys.NodeID()})

	s := newSession(remoteNodeID, keys)
	conn, err := c.transport.Connect(ctx, remoteNodeID, s.identity())
	if err != nil {
		s.wipe()
		c.state.Store(int32(StateDisconnected))
		log.WithError(err).Warn("connect failed")
		return connectErr(err, "open session")
	}
	s.conn = conn

	if err := s.load(ctx); err != nil {
		_ = conn.Close()
		s.wipe()
		c.state.Store(int32(StateDisconnected))
		log.WithError(err).Warn("load directory failed")
		return connectErr(err, "load directory")
	}

	c.sess = s
	c.state.Store(int32(StateConnected))
	log.WithField("revision", s.current().Revision()).Info("connected")
	return nil
}

// Disconnect closes the session and zeroes all key material. It is
// valid in any state and idempotent. Every mutation is persisted before
// it returns, so nothing is pending here.
func (c *Client) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sess == nil {
		c.state.Store(int32(StateDisconnected))
		return nil
	}
	c.closeLocked()
	c.log.Info("disconnected")
	return nil
}

func (c *Client) closeLocked() {
	if err := c.sess.conn.Close(); err != nil {
		c.log.WithError(err).Warn("close session")
	}
	c.sess.wipe()
	c.sess = nil
	c.state.Store(int32(StateDisconnected))
}

// TestConnection probes the node and returns a human-readable status.
// It never changes the client state, even when the node reports the
// session closed; the next file operation observes that.
func (c *Client) TestConnection(ctx context.Context) (string, error) {
	s, done, err := c.active()
	if err != nil {
		return "", err
	}
	defer done()

	if err := s.conn.Ping(ctx); err != nil {
		return "", connectErr(err, "ping")
	}
	// The zero address is never a real object, so this is a read-only
	// round trip through the blob path.
	has, err := s.conn.Has(ctx, storage.Address{})
	if err != nil {
		return "", connectErr(err, "query")
	}
	locations := 0
	if has {
		locations = 1
	}
	return fmt.Sprintf("Connection OK - %d locations", locations), nil
}

// active returns the live session under the read lock. done releases it.
func (c *Client) active() (*session, func(), error) {
	c.mu.RLock()
	if c.sess == nil || c.State() != StateConnected {
		c.mu.RUnlock()
		return nil, nil, ErrNotConnected
	}
	return c.sess, c.mu.RUnlock, nil
}

// observe marks the client disconnected when the transport reports its
// session gone. The session itself is released by the next Disconnect
// or Connect.
func (c *Client) observe(s *session, err error) error {
	if errors.Is(err, network.ErrSessionClosed) {
		c.state.CompareAndSwap(int32(StateConnected), int32(StateDisconnected))
		c.log.WithField("remote", s.remote).Warn("session lost")
	}
	return err
}

// connectErr reports failures while establishing a session as connection
// errors, keeping input and crypto failures as they are.
func connectErr(err error, op string) error {
	switch s5err.KindOf(err) {
	case s5err.KindConnection, s5err.KindInvalidInput, s5err.KindCrypto:
		return err
	default:
		return s5err.Wrap(s5err.KindConnection, err, "client: "+op)
	}
}

// storageErr reports failures after a session is up. Errors without a
// kind, such as cancellation, become storage errors.
func storageErr(err error, op string) error {
	if s5err.KindOf(err) == s5err.KindInternal {
		return s5err.Wrap(s5err.KindStorage, err, "client: "+op)
	}
	return err
}

var _ directory.Signer = (*wallet.KeyMaterial)(nil)
