// Package directory models the encrypted filesystem namespace: flat
// listings keyed by canonical path, file entries that reference stored
// objects, and the signed, encrypted document the tree persists as.
package directory

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/bitfsorg/libs5-go/storage"
)

// SchemeChunkedXChaCha20 identifies objects sealed by encrypt.Seal.
const SchemeChunkedXChaCha20 = "s5ec-xchacha20-poly1305"

// ContentRef locates and unlocks a stored object.
type ContentRef struct {
	// Hash is the BLAKE3 digest of the plaintext.
	Hash storage.Address `json:"hash"`
	// EncryptedHash is the content address of the persisted object.
	EncryptedHash storage.Address `json:"encrypted_hash"`
	// Key is the random per-file encryption key.
	Key       []byte `json:"key"`
	ChunkSize uint32 `json:"chunk_size"`
	Size      uint64 `json:"size"`
	Scheme    string `json:"scheme"`
}

// FileEntry is one immutable file record. Replacing a file stores a
// new entry under the same name.
type FileEntry struct {
	Name      string     `json:"name"`
	Ref       ContentRef `json:"ref"`
	Size      uint64     `json:"size"`
	MediaType string     `json:"media_type"`
	Timestamp *uint32    `json:"timestamp,omitempty"`
}

// RefJSON serializes the content reference.
func (e FileEntry) RefJSON() ([]byte, error) {
	return json.Marshal(e.Ref)
}

// JSON serializes the whole entry.
func (e FileEntry) JSON() ([]byte, error) {
	return json.Marshal(e)
}

func (e FileEntry) clone() FileEntry {
	c := e
	c.Ref.Key = append([]byte(nil), e.Ref.Key...)
	if e.Timestamp != nil {
		ts := *e.Timestamp
		c.Timestamp = &ts
	}
	return c
}

// Listing is the content of one directory.
type Listing struct {
	Files       map[string]FileEntry `json:"files"`
	Directories map[string]struct{}  `json:"directories"`
}

// NewListing returns an empty listing.
func NewListing() *Listing {
	return &Listing{
		Files:       make(map[string]FileEntry),
		Directories: make(map[string]struct{}),
	}
}

// Clone returns a deep copy.
func (l *Listing) Clone() *Listing {
	c := NewListing()
	for name, e := range l.Files {
		c.Files[name] = e.clone()
	}
	for name := range l.Directories {
		c.Directories[name] = struct{}{}
	}
	return c
}

// File returns the entry named name.
func (l *Listing) File(name string) (FileEntry, bool) {
	e, ok := l.Files[name]
	return e, ok
}

// HasDirectory reports whether name is a subdirectory.
func (l *Listing) HasDirectory(name string) bool {
	_, ok := l.Directories[name]
	return ok
}

// FileNames returns the file names in lexical order.
func (l *Listing) FileNames() []string {
	return sortedKeys(l.Files)
}

// DirectoryNames returns the subdirectory names in lexical order.
func (l *Listing) DirectoryNames() []string {
	return sortedKeys(l.Directories)
}

// Len returns the number of files plus subdirectories.
func (l *Listing) Len() int {
	return len(l.Files) + len(l.Directories)
}

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// AddFileEntry inserts entry, overwriting any file of the same name.
// A subdirectory of the same name is a conflict.
func AddFileEntry(l *Listing, entry FileEntry) error {
	if l == nil {
		return fmt.Errorf("%w: listing", ErrNilParam)
	}
	if err := ValidateName(entry.Name); err != nil {
		return err
	}
	if l.HasDirectory(entry.Name) {
		return fmt.Errorf("%w: %q", ErrIsDirectory, entry.Name)
	}
	if l.Files == nil {
		l.Files = make(map[string]FileEntry)
	}
	l.Files[entry.Name] = entry.clone()
	return nil
}

// RemoveFileEntry deletes the named file and reports whether it existed.
func RemoveFileEntry(l *Listing, name string) bool {
	if l == nil {
		return false
	}
	if _, ok := l.Files[name]; !ok {
		return false
	}
	delete(l.Files, name)
	return true
}
