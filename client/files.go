package client

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/bitfsorg/libs5-go/directory"
	"github.com/bitfsorg/libs5-go/encrypt"
	"github.com/bitfsorg/libs5-go/storage"
)

// UploadFile encrypts content under a fresh key, stores the object at
// the hash of its ciphertext and records it as dir/filename. An existing
// file of that name is replaced.
func (c *Client) UploadFile(ctx context.Context, dir, filename string, content []byte, mediaType string) (*directory.FileEntry, error) {
	s, done, err := c.active()
	if err != nil {
		return nil, err
	}
	defer done()

	if err := s.current().CheckPut(dir, filename); err != nil {
		return nil, err
	}

	key, err := encrypt.GenerateKey()
	if err != nil {
		return nil, err
	}
	obj, err := encrypt.Seal(key[:], content, encrypt.Options{ChunkSize: c.opts.ChunkSize, Workers: c.opts.Workers})
	if err != nil {
		return nil, err
	}
	header, err := encrypt.ParseHeader(obj)
	if err != nil {
		return nil, err
	}
	addr := storage.Hash(obj)

	log := c.log.WithFields(logrus.Fields{"dir": dir, "name": filename, "addr": addr.String(), "size": len(content)})
	if err := s.conn.Put(ctx, addr, obj); err != nil {
		log.WithError(err).Warn("upload failed")
		return nil, storageErr(c.observe(s, err), "upload")
	}

	ts := uint32(c.opts.Now().Unix())
	entry := directory.FileEntry{
		Name: filename,
		Ref: directory.ContentRef{
			Hash:          storage.Hash(content),
			EncryptedHash: addr,
			Key:           key[:],
			ChunkSize:     header.ChunkSize,
			Size:          header.Size,
			Scheme:        directory.SchemeChunkedXChaCha20,
		},
		Size:      uint64(len(content)),
		MediaType: mediaType,
		Timestamp: &ts,
	}
	err = s.commit(ctx, func(t *directory.Tree) error {
		_, err := t.PutFile(dir, entry)
		return err
	})
	if err != nil {
		log.WithError(err).Warn("record upload failed")
		return nil, c.observe(s, err)
	}
	log.Info("uploaded")
	return &entry, nil
}

// DownloadFile returns the plaintext of the file at path.
func (c *Client) DownloadFile(ctx context.Context, path string) ([]byte, error) {
	s, done, err := c.active()
	if err != nil {
		return nil, err
	}
	defer done()

	entry, err := s.current().GetFile(path)
	if err != nil {
		return nil, err
	}
	pt, err := s.open(ctx, entry.Ref, c.opts.Workers)
	if err != nil {
		c.log.WithError(err).WithField("path", path).Warn("download failed")
		return nil, c.observe(s, err)
	}
	c.log.WithFields(logrus.Fields{"path": path, "size": len(pt)}).Debug("downloaded")
	return pt, nil
}

// DownloadRange returns length plaintext bytes of the file at path
// starting at offset. Only the chunks overlapping the range are
// decrypted; the whole object is still fetched and verified.
func (c *Client) DownloadRange(ctx context.Context, path string, offset, length uint64) ([]byte, error) {
	s, done, err := c.active()
	if err != nil {
		return nil, err
	}
	defer done()

	entry, err := s.current().GetFile(path)
	if err != nil {
		return nil, err
	}
	if entry.Ref.Scheme != directory.SchemeChunkedXChaCha20 {
		return nil, ErrUnsupportedScheme
	}
	obj, err := s.fetchObject(ctx, entry.Ref.EncryptedHash)
	if err != nil {
		return nil, c.observe(s, err)
	}
	return encrypt.OpenRange(entry.Ref.Key, obj, offset, length)
}

// DownloadBlob fetches the object at a hex content address. When a file
// in the tree references the address, by object or plaintext hash, the
// decrypted content is returned. Otherwise the verified object bytes are
// returned as stored.
func (c *Client) DownloadBlob(ctx context.Context, hashHex string) ([]byte, error) {
	addr, err := storage.ParseAddress(hashHex)
	if err != nil {
		return nil, err
	}
	s, done, err := c.active()
	if err != nil {
		return nil, err
	}
	defer done()

	if _, entry, ok := s.current().FindByAddress(addr); ok {
		pt, err := s.open(ctx, entry.Ref, c.opts.Workers)
		return pt, c.observe(s, err)
	}
	obj, err := s.fetchObject(ctx, addr)
	if err != nil {
		return nil, c.observe(s, err)
	}
	return obj, nil
}

// DeleteFile removes the file at path from the tree. The object stays
// on the node; other entries may share it.
func (c *Client) DeleteFile(ctx context.Context, path string) error {
	s, done, err := c.active()
	if err != nil {
		return err
	}
	defer done()

	if _, err := s.current().GetFile(path); err != nil {
		return err
	}
	err = s.commit(ctx, func(t *directory.Tree) error {
		_, err := t.RemoveFile(path)
		return err
	})
	if err != nil {
		return c.observe(s, err)
	}
	c.log.WithField("path", path).Info("deleted")
	return nil
}

// FileExists reports whether a file exists at path. Absence is not an
// error; a malformed path is.
func (c *Client) FileExists(ctx context.Context, path string) (bool, error) {
	entry, err := c.FileGet(ctx, path)
	return entry != nil, err
}

// FileGet returns the metadata of the file at path, or nil if there is
// none.
func (c *Client) FileGet(_ context.Context, path string) (*directory.FileEntry, error) {
	s, done, err := c.active()
	if err != nil {
		return nil, err
	}
	defer done()

	entry, err := s.current().GetFile(path)
	if errors.Is(err, directory.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// FileGetJSON returns the content reference of the file at path as
// JSON, or "" if there is none.
func (c *Client) FileGetJSON(ctx context.Context, path string) (string, error) {
	entry, err := c.FileGet(ctx, path)
	if err != nil || entry == nil {
		return "", err
	}
	b, err := entry.RefJSON()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ListDirectory returns a snapshot of the listing at path.
func (c *Client) ListDirectory(_ context.Context, path string) (*directory.Listing, error) {
	s, done, err := c.active()
	if err != nil {
		return nil, err
	}
	defer done()
	return s.current().List(path)
}

// CreateDirectory creates path and its missing ancestors. An existing
// directory is left as is and no write is made.
func (c *Client) CreateDirectory(ctx context.Context, path string) error {
	s, done, err := c.active()
	if err != nil {
		return err
	}
	defer done()

	if _, err := directory.SplitPath(path); err != nil {
		return err
	}
	if s.current().HasDirectory(path) {
		return nil
	}
	err = s.commit(ctx, func(t *directory.Tree) error {
		_, err := t.CreateDirectory(path)
		return err
	})
	if err != nil {
		return c.observe(s, err)
	}
	c.log.WithField("path", path).Info("directory created")
	return nil
}
