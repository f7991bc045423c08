package directory

import (
	"encoding/json"
	"fmt"

	"github.com/bitfsorg/libs5-go/encrypt"
)

// DocumentVersion is the current tree document format.
const DocumentVersion = 1

// Signer signs and verifies document payloads. *wallet.KeyMaterial
// satisfies it.
type Signer interface {
	Sign(msg []byte) []byte
	Verify(msg, sig []byte) bool
}

type treePayload struct {
	Version     int                 `json:"version"`
	Revision    uint64              `json:"revision"`
	Directories map[string]*Listing `json:"directories"`
}

type signedEnvelope struct {
	Payload   json.RawMessage `json:"payload"`
	Signature []byte          `json:"signature"`
}

// MarshalDocument serializes the tree, signs the payload and seals the
// envelope under encKey with encrypt.EncryptBlob.
func (t *Tree) MarshalDocument(encKey []byte, signer Signer) ([]byte, error) {
	if signer == nil {
		return nil, fmt.Errorf("%w: signer", ErrNilParam)
	}
	t.mu.RLock()
	payload, err := json.Marshal(treePayload{
		Version:     DocumentVersion,
		Revision:    t.revision,
		Directories: t.dirs,
	})
	t.mu.RUnlock()
	if err != nil {
		return nil, fmt.Errorf("directory: marshal tree: %w", err)
	}

	env, err := json.Marshal(signedEnvelope{Payload: payload, Signature: signer.Sign(payload)})
	if err != nil {
		return nil, fmt.Errorf("directory: marshal envelope: %w", err)
	}
	return encrypt.EncryptBlob(encKey, env)
}

// UnmarshalDocument reverses MarshalDocument, rejecting documents whose
// signature does not verify or whose structure is inconsistent.
func UnmarshalDocument(data, encKey []byte, signer Signer) (*Tree, error) {
	if signer == nil {
		return nil, fmt.Errorf("%w: signer", ErrNilParam)
	}
	raw, err := encrypt.DecryptBlob(encKey, data)
	if err != nil {
		return nil, err
	}

	var env signedEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: envelope: %w", ErrInvalidDocument, err)
	}
	if !signer.Verify(env.Payload, env.Signature) {
		return nil, ErrBadSignature
	}

	var p treePayload
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		return nil, fmt.Errorf("%w: payload: %w", ErrInvalidDocument, err)
	}
	if p.Version != DocumentVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrInvalidDocument, p.Version)
	}

	t := &Tree{dirs: make(map[string]*Listing, len(p.Directories)), revision: p.Revision}
	for path, l := range p.Directories {
		clean, err := CleanPath(path)
		if err != nil || clean != path || l == nil {
			return nil, fmt.Errorf("%w: directory %q", ErrInvalidDocument, path)
		}
		if l.Files == nil {
			l.Files = make(map[string]FileEntry)
		}
		if l.Directories == nil {
			l.Directories = make(map[string]struct{})
		}
		t.dirs[path] = l
	}
	if err := t.checkLinks(); err != nil {
		return nil, err
	}
	return t, nil
}

// checkLinks verifies that every listing is reachable from its parent
// and every subdirectory name has a listing.
func (t *Tree) checkLinks() error {
	if _, ok := t.dirs[Root]; !ok {
		return fmt.Errorf("%w: missing root", ErrInvalidDocument)
	}
	for path, l := range t.dirs {
		for name := range l.Directories {
			if _, ok := t.dirs[JoinPath(append(mustSplit(path), name)...)]; !ok {
				return fmt.Errorf("%w: dangling directory %s/%s", ErrInvalidDocument, trimRoot(path), name)
			}
		}
		for name, e := range l.Files {
			if name != e.Name {
				return fmt.Errorf("%w: entry %q stored as %q", ErrInvalidDocument, e.Name, name)
			}
		}
		if path == Root {
			continue
		}
		dir, name, _ := SplitFilePath(path)
		parent, ok := t.dirs[dir]
		if !ok || !parent.HasDirectory(name) {
			return fmt.Errorf("%w: orphan directory %s", ErrInvalidDocument, path)
		}
	}
	return nil
}

func mustSplit(p string) []string {
	parts, _ := SplitPath(p)
	return parts
}
