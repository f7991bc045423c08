// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/bitfsorg/libs5-go/network"
	"github.com/bitfsorg/libs5-go/storage"
)

// Node is the transport a client connects through, plus whatever local
// storage backs it.
type Node struct {
	Transport network.Transport
	// Local is set for the local transport.
	Local *network.LocalTransport

	closers []io.Closer
}

// Close releases the node's storage handles.
func (n *Node) Close() error {
	var errs []error
	for i := len(n.closers) - 1; i >= 0; i-- {
		errs = append(errs, n.closers[i].Close())
	}
	n.closers = nil
	return errors.Join(errs...)
}

// OpenNode builds the transport described by cfg. For the local transport
// it opens the configured store backend under DataDir.
func OpenNode(ctx context.Context, cfg Config) (*Node, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	if cfg.Transport == TransportHTTP {
		return &Node{Transport: network.NewHTTPTransport(cfg.NodeURL)}, nil
	}

	n := &Node{}
	blobs, docs, err := n.openStores(ctx, cfg)
	if err != nil {
		_ = n.Close()
		return nil, err
	}
	n.Local = network.NewLocalTransport(cfg.NodeID, blobs, docs)
	n.Transport = n.Local
	return n, nil
}

func (n *Node) openStores(ctx context.Context, cfg Config) (storage.Store, storage.Store, error) {
	switch cfg.Store {
	case StoreMemory:
		return storage.NewMemoryStore(), storage.NewMemoryStore(), nil

	case StoreFile:
		blobs, err := storage.NewFileStore(filepath.Join(cfg.DataDir, "blobs"))
		if err != nil {
			return nil, nil, err
		}
		docs, err := storage.NewFileStore(filepath.Join(cfg.DataDir, "docs"))
		if err != nil {
			return nil, nil, err
		}
		return blobs, docs, nil

	case StoreBolt:
		if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
			return nil, nil, fmt.Errorf("config: create data dir: %w", err)
		}
		db, err := storage.OpenBoltDB(filepath.Join(cfg.DataDir, "s5.db"))
		if err != nil {
			return nil, nil, err
		}
		n.closers = append(n.closers, db)
		return db.Blobs(), db.Documents(), nil

	case StoreMinio:
		remote, err := storage.NewMinioStore(ctx, storage.MinioOptions{
			Endpoint:  cfg.Minio.Endpoint,
			AccessKey: cfg.Minio.AccessKey,
			SecretKey: cfg.Minio.SecretKey,
			Bucket:    cfg.Minio.Bucket,
			Prefix:    cfg.Minio.Prefix + "blobs/",
			UseSSL:    cfg.Minio.UseSSL,
		})
		if err != nil {
			return nil, nil, err
		}
		// Blobs are immutable, so a local cache in front of the bucket
		// is always consistent. Documents are not cached.
		cache, err := storage.NewFileStore(filepath.Join(cfg.DataDir, "cache"))
		if err != nil {
			return nil, nil, err
		}
		return storage.NewResolver(cache, remote), remote.WithPrefix(cfg.Minio.Prefix + "docs/"), nil
	}
	return nil, nil, ErrInvalidStore
}

// NewLogger builds a logrus logger for cfg. Output goes to LogFile when
// set, otherwise stderr. The returned closer is never nil.
func NewLogger(cfg Config) (*logrus.Logger, io.Closer, error) {
	level, err := ParseLogLevel(cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	log := logrus.New()
	log.SetLevel(level)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	if cfg.LogFile == "" {
		return log, io.NopCloser(nil), nil
	}
	f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, nil, fmt.Errorf("config: open log file: %w", err)
	}
	log.SetOutput(f)
	return log, f, nil
}
