package network

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bitfsorg/libs5-go/s5err"
	"github.com/bitfsorg/libs5-go/storage"
)

// HTTP node API.
//
//	GET  /s5/ping           liveness; 200 with the node id as body
//	PUT  /s5/blob/{hex}     store blob
//	GET  /s5/blob/{hex}     fetch blob
//	HEAD /s5/blob/{hex}     existence probe
//	PUT  /s5/doc/{hex}      replace document
//	GET  /s5/doc/{hex}      fetch document
const (
	PathPing = "/s5/ping"
	PathBlob = "/s5/blob/"
	PathDoc  = "/s5/doc/"

	HeaderRequestID  = "X-Request-Id"
	HeaderClientNode = "X-S5-Node-Id"
	HeaderRemoteNode = "X-S5-Remote-Node-Id"
	HeaderPublicKey  = "X-S5-Public-Key"
	HeaderSignature  = "X-S5-Signature"

	// MaxResponseSize bounds blob and document bodies (1 GB).
	MaxResponseSize = 1 << 30
)

// HTTPTransport dials nodes over the HTTP node API. BaseURL is the
// node's endpoint, e.g. "http://localhost:5050".
type HTTPTransport struct {
	BaseURL string
	Client  *http.Client
	// MaxBody bounds response bodies; 0 means MaxResponseSize.
	MaxBody int64
}

var _ Transport = (*HTTPTransport)(nil)

// NewHTTPTransport creates a transport with a pooled HTTP client.
func NewHTTPTransport(baseURL string) *HTTPTransport {
	return &HTTPTransport{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				IdleConnTimeout:     90 * time.Second,
				MaxIdleConnsPerHost: 10,
			},
		},
	}
}

// Connect pings the node with the client identity. Any failure here is
// a connection error.
func (t *HTTPTransport) Connect(ctx context.Context, remoteNodeID string, id Identity) (Session, error) {
	if err := ValidateNodeID(remoteNodeID); err != nil {
		return nil, err
	}
	if t.BaseURL == "" {
		return nil, fmt.Errorf("%w: no node URL configured", ErrConnectionFailed)
	}
	client := t.Client
	if client == nil {
		client = http.DefaultClient
	}

	limit := t.MaxBody
	if limit <= 0 {
		limit = MaxResponseSize
	}
	s := &httpSession{base: strings.TrimRight(t.BaseURL, "/"), client: client, remote: remoteNodeID, id: id, limit: limit}
	if _, err := s.ping(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, s5err.Mask(s5err.KindConnection, err))
	}
	return s, nil
}

type httpSession struct {
	base   string
	client *http.Client
	remote string
	id     Identity
	limit  int64

	mu     sync.RWMutex
	closed bool
}

func (s *httpSession) check() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrSessionClosed
	}
	return nil
}

// do sends one request. Request signing covers method, path and
// request id so a captured signature cannot be replayed elsewhere.
func (s *httpSession) do(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, s.base+path, r)
	if err != nil {
		return nil, fmt.Errorf("network: create request: %w", err)
	}

	reqID := uuid.NewString()
	req.Header.Set(HeaderRequestID, reqID)
	req.Header.Set(HeaderRemoteNode, s.remote)
	if s.id.NodeID != "" {
		req.Header.Set(HeaderClientNode, s.id.NodeID)
	}
	if len(s.id.PublicKey) > 0 {
		req.Header.Set(HeaderPublicKey, hex.EncodeToString(s.id.PublicKey))
	}
	if s.id.Sign != nil {
		req.Header.Set(HeaderSignature, hex.EncodeToString(s.id.Sign(SigningMessage(method, path, reqID))))
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/octet-stream")
	}

	return s.client.Do(req)
}

// SigningMessage is the byte string a client signs for one request.
func SigningMessage(method, path, requestID string) []byte {
	return []byte(method + "\n" + path + "\n" + requestID)
}

// statusErr maps non-2xx responses to session errors.
func statusErr(resp *http.Response) error {
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	detail := strings.TrimSpace(string(msg))
	switch resp.StatusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, detail)
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: HTTP %d: %s", ErrAuthFailed, resp.StatusCode, detail)
	case http.StatusMisdirectedRequest:
		return fmt.Errorf("%w: %s", ErrUnknownNode, detail)
	default:
		return fmt.Errorf("%w: HTTP %d: %s", ErrRejected, resp.StatusCode, detail)
	}
}

// transit tags a failure of the HTTP round trip itself. Cancellation
// stays visible through errors.Is.
func transit(err error) error {
	return fmt.Errorf("%w: %w", ErrRequestFailed, err)
}

// ping returns the raw round-trip error untagged so Connect and Ping
// can classify it differently.
func (s *httpSession) ping(ctx context.Context) (sent bool, err error) {
	resp, err := s.do(ctx, http.MethodGet, PathPing, nil)
	if err != nil {
		return false, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return true, statusErr(resp)
	}
	return true, nil
}

func (s *httpSession) put(ctx context.Context, path string, data []byte) error {
	if err := s.check(); err != nil {
		return err
	}
	resp, err := s.do(ctx, http.MethodPut, path, data)
	if err != nil {
		return transit(err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusErr(resp)
	}
	return nil
}

func (s *httpSession) get(ctx context.Context, path string) ([]byte, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	resp, err := s.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, transit(err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, statusErr(resp)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, s.limit+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", ErrInvalidResponse, err)
	}
	if int64(len(data)) > s.limit {
		return nil, fmt.Errorf("%w: body exceeds %d bytes", ErrInvalidResponse, s.limit)
	}
	return data, nil
}

func (s *httpSession) Put(ctx context.Context, addr storage.Address, data []byte) error {
	return s.put(ctx, PathBlob+addr.String(), data)
}

func (s *httpSession) Get(ctx context.Context, addr storage.Address) ([]byte, error) {
	return s.get(ctx, PathBlob+addr.String())
}

func (s *httpSession) Has(ctx context.Context, addr storage.Address) (bool, error) {
	if err := s.check(); err != nil {
		return false, err
	}
	resp, err := s.do(ctx, http.MethodHead, PathBlob+addr.String(), nil)
	if err != nil {
		return false, transit(err)
	}
	defer func() { _ = resp.Body.Close() }()
	switch resp.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, statusErr(resp)
	}
}

func (s *httpSession) PutDocument(ctx context.Context, id storage.Address, doc []byte) error {
	return s.put(ctx, PathDoc+id.String(), doc)
}

func (s *httpSession) GetDocument(ctx context.Context, id storage.Address) ([]byte, error) {
	return s.get(ctx, PathDoc+id.String())
}

func (s *httpSession) Ping(ctx context.Context) error {
	if err := s.check(); err != nil {
		return err
	}
	sent, err := s.ping(ctx)
	if err != nil && !sent {
		return transit(err)
	}
	return err
}

func (s *httpSession) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}
