package network

import (
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"io"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/bitfsorg/libs5-go/storage"
)

// HandlerOptions configures the node side of the HTTP API.
type HandlerOptions struct {
	// NodeID, when set, rejects requests addressed to another node.
	NodeID string
	// RequireSignature rejects requests without a valid client signature.
	RequireSignature bool
	// MaxBodySize bounds uploads; 0 means MaxResponseSize.
	MaxBodySize int64
	Logger      logrus.FieldLogger
}

type handler struct {
	blobs storage.Store
	docs  storage.Store
	opts  HandlerOptions
	log   logrus.FieldLogger
}

// NewHandler serves the HTTP node API over blob and document stores.
func NewHandler(blobs, docs storage.Store, opts HandlerOptions) http.Handler {
	if opts.MaxBodySize <= 0 {
		opts.MaxBodySize = MaxResponseSize
	}
	log := opts.Logger
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	h := &handler{blobs: blobs, docs: docs, opts: opts, log: log}

	mux := http.NewServeMux()
	mux.HandleFunc("GET "+PathPing, h.ping)
	mux.HandleFunc("PUT "+PathBlob+"{addr}", h.putBlob)
	mux.HandleFunc("GET "+PathBlob+"{addr}", h.get(blobs))
	mux.HandleFunc("HEAD "+PathBlob+"{addr}", h.head)
	mux.HandleFunc("PUT "+PathDoc+"{addr}", h.putDoc)
	mux.HandleFunc("GET "+PathDoc+"{addr}", h.get(docs))
	return h.authenticate(mux)
}

func (h *handler) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		entry := h.log.WithFields(logrus.Fields{
			"method":     r.Method,
			"path":       r.URL.Path,
			"request_id": r.Header.Get(HeaderRequestID),
		})

		if h.opts.NodeID != "" && r.Header.Get(HeaderRemoteNode) != h.opts.NodeID {
			entry.Warn("request for another node")
			http.Error(w, "unknown node", http.StatusMisdirectedRequest)
			return
		}
		if h.opts.RequireSignature && !verifyRequest(r) {
			entry.Warn("bad request signature")
			http.Error(w, "bad signature", http.StatusUnauthorized)
			return
		}
		entry.Debug("node request")
		next.ServeHTTP(w, r)
	})
}

// verifyRequest checks the client signature against the client node id,
// which is the hex Ed25519 public key of the client transport key.
func verifyRequest(r *http.Request) bool {
	pub, err := hex.DecodeString(r.Header.Get(HeaderClientNode))
	if err != nil || len(pub) != ed25519.PublicKeySize {
		return false
	}
	sig, err := hex.DecodeString(r.Header.Get(HeaderSignature))
	if err != nil || len(sig) != ed25519.SignatureSize {
		return false
	}
	msg := SigningMessage(r.Method, r.URL.Path, r.Header.Get(HeaderRequestID))
	return ed25519.Verify(ed25519.PublicKey(pub), msg, sig)
}

func (h *handler) addr(w http.ResponseWriter, r *http.Request) (storage.Address, bool) {
	a, err := storage.ParseAddress(r.PathValue("addr"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return a, false
	}
	return a, true
}

func (h *handler) readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.opts.MaxBodySize))
	if err != nil {
		http.Error(w, err.Error(), http.StatusRequestEntityTooLarge)
		return nil, false
	}
	return data, true
}

func (h *handler) writeErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, storage.ErrEmptyContent):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, context.Canceled):
		// Client went away; nothing useful to send.
	default:
		h.log.WithError(err).Warn("node storage failure")
		http.Error(w, "storage failure", http.StatusInternalServerError)
	}
}

func (h *handler) ping(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = io.WriteString(w, h.opts.NodeID)
}

func (h *handler) putBlob(w http.ResponseWriter, r *http.Request) {
	addr, ok := h.addr(w, r)
	if !ok {
		return
	}
	data, ok := h.readBody(w, r)
	if !ok {
		return
	}
	if err := storage.Verify(data, addr); err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	if err := h.blobs.Put(r.Context(), addr, data); err != nil {
		h.writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (h *handler) putDoc(w http.ResponseWriter, r *http.Request) {
	id, ok := h.addr(w, r)
	if !ok {
		return
	}
	data, ok := h.readBody(w, r)
	if !ok {
		return
	}
	if err := h.docs.Put(r.Context(), id, data); err != nil {
		h.writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) get(store storage.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		addr, ok := h.addr(w, r)
		if !ok {
			return
		}
		data, err := store.Get(r.Context(), addr)
		if err != nil {
			h.writeErr(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = w.Write(data)
	}
}

func (h *handler) head(w http.ResponseWriter, r *http.Request) {
	addr, ok := h.addr(w, r)
	if !ok {
		return
	}
	found, err := h.blobs.Has(r.Context(), addr)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	if !found {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusOK)
}
