package directory

import (
	"fmt"
	"sort"
	"sync"

	"github.com/bitfsorg/libs5-go/storage"
)

// Tree is the whole namespace as a flat map from canonical directory
// path to listing. The root always exists.
type Tree struct {
	mu       sync.RWMutex
	dirs     map[string]*Listing
	revision uint64
}

// NewTree returns a tree holding only an empty root.
func NewTree() *Tree {
	return &Tree{dirs: map[string]*Listing{Root: NewListing()}}
}

// Clone returns an independent deep copy, including the revision.
func (t *Tree) Clone() *Tree {
	t.mu.RLock()
	defer t.mu.RUnlock()
	c := &Tree{dirs: make(map[string]*Listing, len(t.dirs)), revision: t.revision}
	for p, l := range t.dirs {
		c.dirs[p] = l.Clone()
	}
	return c
}

// Revision counts successful mutations. It is persisted with the
// document so a reloaded tree continues the sequence.
func (t *Tree) Revision() uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.revision
}

// List returns a snapshot of the listing at path.
func (t *Tree) List(path string) (*Listing, error) {
	p, err := CleanPath(path)
	if err != nil {
		return nil, err
	}
	t.mu.RLock()
	defer t.mu.RUnlock()

	l, ok := t.dirs[p]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, p)
	}
	return l.Clone(), nil
}

// HasDirectory reports whether path names an existing directory.
func (t *Tree) HasDirectory(path string) bool {
	p, err := CleanPath(path)
	if err != nil {
		return false
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.dirs[p]
	return ok
}

// Directories returns every directory path in lexical order.
func (t *Tree) Directories() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]string, 0, len(t.dirs))
	for p := range t.dirs {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// CreateDirectory creates path and any missing ancestors. It reports
// whether anything was created; an existing directory is not an error.
func (t *Tree) CreateDirectory(path string) (bool, error) {
	parts, err := SplitPath(path)
	if err != nil {
		return false, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	created, err := t.mkdirAllLocked(parts)
	if err != nil {
		return false, err
	}
	if created {
		t.revision++
	}
	return created, nil
}

// checkDirLocked reports whether parts could be created as directories.
func (t *Tree) checkDirLocked(parts []string) error {
	for i := range parts {
		parent := t.dirs[JoinPath(parts[:i]...)]
		if parent == nil {
			break
		}
		if _, isFile := parent.Files[parts[i]]; isFile {
			return fmt.Errorf("%w: %s", ErrNotDirectory, JoinPath(parts[:i+1]...))
		}
	}
	return nil
}

func (t *Tree) mkdirAllLocked(parts []string) (bool, error) {
	// Check every component before mutating anything.
	if err := t.checkDirLocked(parts); err != nil {
		return false, err
	}

	created := false
	for i := range parts {
		p := JoinPath(parts[:i+1]...)
		if _, ok := t.dirs[p]; ok {
			continue
		}
		t.dirs[JoinPath(parts[:i]...)].Directories[parts[i]] = struct{}{}
		t.dirs[p] = NewListing()
		created = true
	}
	return created, nil
}

// CheckPut reports the error PutFile would return for a file named
// name in dir, without changing the tree.
func (t *Tree) CheckPut(dir, name string) error {
	parts, err := SplitPath(dir)
	if err != nil {
		return err
	}
	if err := ValidateName(name); err != nil {
		return err
	}
	t.mu.RLock()
	defer t.mu.RUnlock()

	if err := t.checkDirLocked(parts); err != nil {
		return err
	}
	if l, ok := t.dirs[JoinPath(parts...)]; ok && l.HasDirectory(name) {
		return fmt.Errorf("%w: %q", ErrIsDirectory, name)
	}
	return nil
}

// PutFile records entry in directory dir, creating dir if needed. It
// returns the entry it replaced, if any.
func (t *Tree) PutFile(dir string, entry FileEntry) (*FileEntry, error) {
	parts, err := SplitPath(dir)
	if err != nil {
		return nil, err
	}
	if err := ValidateName(entry.Name); err != nil {
		return nil, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, err := t.mkdirAllLocked(parts); err != nil {
		return nil, err
	}
	l := t.dirs[JoinPath(parts...)]

	var prev *FileEntry
	if old, ok := l.Files[entry.Name]; ok {
		prev = &old
	}
	if err := AddFileEntry(l, entry); err != nil {
		return nil, err
	}
	t.revision++
	return prev, nil
}

// GetFile returns the entry at a file path.
func (t *Tree) GetFile(path string) (FileEntry, error) {
	dir, name, err := SplitFilePath(path)
	if err != nil {
		return FileEntry{}, err
	}
	t.mu.RLock()
	defer t.mu.RUnlock()

	l, ok := t.dirs[dir]
	if !ok {
		return FileEntry{}, fmt.Errorf("%w: %s/%s", ErrNotFound, trimRoot(dir), name)
	}
	e, ok := l.Files[name]
	if !ok {
		return FileEntry{}, fmt.Errorf("%w: %s/%s", ErrNotFound, trimRoot(dir), name)
	}
	return e.clone(), nil
}

// RemoveFile deletes the entry at a file path and returns it.
func (t *Tree) RemoveFile(path string) (FileEntry, error) {
	dir, name, err := SplitFilePath(path)
	if err != nil {
		return FileEntry{}, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	l, ok := t.dirs[dir]
	if !ok {
		return FileEntry{}, fmt.Errorf("%w: %s/%s", ErrNotFound, trimRoot(dir), name)
	}
	e, ok := l.Files[name]
	if !ok {
		if l.HasDirectory(name) {
			return FileEntry{}, fmt.Errorf("%w: %s/%s", ErrIsDirectory, trimRoot(dir), name)
		}
		return FileEntry{}, fmt.Errorf("%w: %s/%s", ErrNotFound, trimRoot(dir), name)
	}
	RemoveFileEntry(l, name)
	t.revision++
	return e, nil
}

// Files returns every file entry keyed by full path.
func (t *Tree) Files() map[string]FileEntry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[string]FileEntry)
	for dir, l := range t.dirs {
		for name, e := range l.Files {
			out[trimRoot(dir)+"/"+name] = e.clone()
		}
	}
	return out
}

// FindByAddress returns a file whose object or plaintext hash is addr.
// When several files share content, the first by path wins.
func (t *Tree) FindByAddress(addr storage.Address) (string, FileEntry, bool) {
	files := t.Files()
	paths := make([]string, 0, len(files))
	for p := range files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, p := range paths {
		e := files[p]
		if e.Ref.EncryptedHash == addr || e.Ref.Hash == addr {
			return p, e, true
		}
	}
	return "", FileEntry{}, false
}

func trimRoot(dir string) string {
	if dir == Root {
		return ""
	}
	return dir
}
