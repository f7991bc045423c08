package directory

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitfsorg/libs5-go/encrypt"
	"github.com/bitfsorg/libs5-go/s5err"
	"github.com/bitfsorg/libs5-go/storage"
)

// testSigner is an in-test Ed25519 signer.
type testSigner struct {
	priv ed25519.PrivateKey
}

func newTestSigner(t *testing.T) *testSigner {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	return &testSigner{priv: priv}
}

func (s *testSigner) Sign(msg []byte) []byte { return ed25519.Sign(s.priv, msg) }
func (s *testSigner) Verify(msg, sig []byte) bool {
	return ed25519.Verify(s.priv.Public().(ed25519.PublicKey), msg, sig)
}

func testEntry(name string) FileEntry {
	ts := uint32(1700000000)
	return FileEntry{
		Name: name,
		Ref: ContentRef{
			Hash:          storage.Hash([]byte(name)),
			EncryptedHash: storage.Hash([]byte("ct:" + name)),
			Key:           []byte(strings.Repeat("k", 32)),
			ChunkSize:     encrypt.DefaultChunkSize,
			Size:          5,
			Scheme:        SchemeChunkedXChaCha20,
		},
		Size:      5,
		MediaType: "text/plain",
		Timestamp: &ts,
	}
}

// --- Names and paths ---

func TestValidateName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"simple", "a.txt", false},
		{"unicode", "日本語.md", false},
		{"max length", strings.Repeat("x", MaxNameLen), false},
		{"empty", "", true},
		{"too long", strings.Repeat("x", MaxNameLen+1), true},
		{"slash", "a/b", true},
		{"dot", ".", true},
		{"dotdot", "..", true},
		{"null byte", "a\x00b", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateName(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidName)
				assert.Equal(t, s5err.KindInvalidInput, s5err.KindOf(err))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCleanPath(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{"", "/", false},
		{"/", "/", false},
		{"docs", "/docs", false},
		{"/docs/", "/docs", false},
		{"//docs///notes", "/docs/notes", false},
		{"/docs/./x", "", true},
		{"/docs/../x", "", true},
		{"/a\x00", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := CleanPath(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidPath)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSplitFilePath(t *testing.T) {
	dir, name, err := SplitFilePath("/docs/a.txt")
	require.NoError(t, err)
	assert.Equal(t, "/docs", dir)
	assert.Equal(t, "a.txt", name)

	dir, name, err = SplitFilePath("top.bin")
	require.NoError(t, err)
	assert.Equal(t, "/", dir)
	assert.Equal(t, "top.bin", name)

	_, _, err = SplitFilePath("/")
	assert.ErrorIs(t, err, ErrInvalidPath)
}

// --- Listing operations ---

func TestAddFileEntry_Overwrites(t *testing.T) {
	l := NewListing()
	first := testEntry("a.txt")
	require.NoError(t, AddFileEntry(l, first))

	second := testEntry("a.txt")
	second.Size = 99
	require.NoError(t, AddFileEntry(l, second))

	assert.Len(t, l.Files, 1)
	got, ok := l.File("a.txt")
	require.True(t, ok)
	assert.Equal(t, uint64(99), got.Size)
}

func TestAddFileEntry_Errors(t *testing.T) {
	assert.ErrorIs(t, AddFileEntry(nil, testEntry("a")), ErrNilParam)

	l := NewListing()
	assert.ErrorIs(t, AddFileEntry(l, testEntry("..")), ErrInvalidName)

	l.Directories["sub"] = struct{}{}
	assert.ErrorIs(t, AddFileEntry(l, testEntry("sub")), ErrIsDirectory)
}

func TestAddFileEntry_CopiesKey(t *testing.T) {
	l := NewListing()
	e := testEntry("a")
	require.NoError(t, AddFileEntry(l, e))
	e.Ref.Key[0] = 'X'

	got, _ := l.File("a")
	assert.Equal(t, byte('k'), got.Ref.Key[0])
}

func TestRemoveFileEntry(t *testing.T) {
	l := NewListing()
	require.NoError(t, AddFileEntry(l, testEntry("a")))

	assert.True(t, RemoveFileEntry(l, "a"))
	assert.False(t, RemoveFileEntry(l, "a"))
	assert.False(t, RemoveFileEntry(nil, "a"))
	assert.Equal(t, 0, l.Len())
}

func TestListing_SortedNames(t *testing.T) {
	l := NewListing()
	for _, n := range []string{"c", "a", "b"} {
		require.NoError(t, AddFileEntry(l, testEntry(n)))
		l.Directories["d"+n] = struct{}{}
	}
	assert.Equal(t, []string{"a", "b", "c"}, l.FileNames())
	assert.Equal(t, []string{"da", "db", "dc"}, l.DirectoryNames())
	assert.Equal(t, 6, l.Len())
}

func TestFileEntry_JSON(t *testing.T) {
	e := testEntry("a.txt")
	raw, err := e.RefJSON()
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(raw, &fields))
	for _, k := range []string{"hash", "encrypted_hash", "key", "chunk_size", "size", "scheme"} {
		assert.Contains(t, fields, k)
	}
	assert.Equal(t, e.Ref.EncryptedHash.String(), fields["encrypted_hash"])

	full, err := e.JSON()
	require.NoError(t, err)
	var back FileEntry
	require.NoError(t, json.Unmarshal(full, &back))
	assert.Equal(t, e, back)

	e.Timestamp = nil
	full, err = e.JSON()
	require.NoError(t, err)
	assert.NotContains(t, string(full), "timestamp")
}

// --- Tree ---

func TestTree_RootExists(t *testing.T) {
	tree := NewTree()
	l, err := tree.List("/")
	require.NoError(t, err)
	assert.Equal(t, 0, l.Len())
	assert.Equal(t, uint64(0), tree.Revision())
}

func TestTree_CreateDirectory(t *testing.T) {
	tree := NewTree()

	created, err := tree.CreateDirectory("/a/b/c")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, []string{"/", "/a", "/a/b", "/a/b/c"}, tree.Directories())

	root, err := tree.List("/")
	require.NoError(t, err)
	assert.True(t, root.HasDirectory("a"))

	// Idempotent.
	created, err = tree.CreateDirectory("a/b/c/")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, uint64(1), tree.Revision())
}

func TestTree_CreateDirectory_ThroughFile(t *testing.T) {
	tree := NewTree()
	_, err := tree.PutFile("/docs", testEntry("a.txt"))
	require.NoError(t, err)

	_, err = tree.CreateDirectory("/docs/a.txt/sub")
	assert.ErrorIs(t, err, ErrNotDirectory)
	assert.Equal(t, s5err.KindInvalidInput, s5err.KindOf(err))

	_, err = tree.CreateDirectory("/docs/a.txt")
	assert.ErrorIs(t, err, ErrNotDirectory)

	assert.False(t, tree.HasDirectory("/docs/a.txt"))
}

func TestTree_CreateDirectory_Malformed(t *testing.T) {
	_, err := NewTree().CreateDirectory("/a/../b")
	assert.ErrorIs(t, err, ErrInvalidPath)
	assert.Equal(t, s5err.KindInvalidInput, s5err.KindOf(err))
}

func TestTree_List_Snapshot(t *testing.T) {
	tree := NewTree()
	_, err := tree.PutFile("/docs", testEntry("a.txt"))
	require.NoError(t, err)

	snap, err := tree.List("/docs")
	require.NoError(t, err)

	_, err = tree.PutFile("/docs", testEntry("b.txt"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt"}, snap.FileNames(), "snapshot does not follow later mutations")

	snap.Files["zzz"] = testEntry("zzz")
	fresh, err := tree.List("/docs")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt", "b.txt"}, fresh.FileNames())
}

func TestTree_List_Missing(t *testing.T) {
	_, err := NewTree().List("/nope")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, s5err.KindFileNotFound, s5err.KindOf(err))
}

func TestTree_PutGetRemoveFile(t *testing.T) {
	tree := NewTree()

	prev, err := tree.PutFile("/docs", testEntry("a.txt"))
	require.NoError(t, err)
	assert.Nil(t, prev)

	replacement := testEntry("a.txt")
	replacement.Size = 42
	prev, err = tree.PutFile("docs/", replacement)
	require.NoError(t, err)
	require.NotNil(t, prev)
	assert.Equal(t, uint64(5), prev.Size)

	got, err := tree.GetFile("/docs/a.txt")
	require.NoError(t, err)
	assert.Equal(t, uint64(42), got.Size)

	assert.Equal(t, map[string]FileEntry{"/docs/a.txt": replacement}, tree.Files())

	removed, err := tree.RemoveFile("/docs/a.txt")
	require.NoError(t, err)
	assert.Equal(t, replacement, removed)

	_, err = tree.GetFile("/docs/a.txt")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = tree.RemoveFile("/docs/a.txt")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = tree.RemoveFile("/missing/a.txt")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, uint64(3), tree.Revision())
}

func TestTree_PutFile_Conflicts(t *testing.T) {
	tree := NewTree()
	_, err := tree.CreateDirectory("/docs/sub")
	require.NoError(t, err)

	_, err = tree.PutFile("/docs", testEntry("sub"))
	assert.ErrorIs(t, err, ErrIsDirectory)

	_, err = tree.RemoveFile("/docs/sub")
	assert.ErrorIs(t, err, ErrIsDirectory)

	_, err = tree.PutFile("/docs", testEntry(""))
	assert.ErrorIs(t, err, ErrInvalidName)
}

func TestTree_CheckPut(t *testing.T) {
	tree := NewTree()
	_, err := tree.PutFile("/docs", testEntry("a.txt"))
	require.NoError(t, err)
	_, err = tree.CreateDirectory("/docs/sub")
	require.NoError(t, err)

	tests := []struct {
		dir, name string
		wantErr   error
	}{
		{"/docs", "b.txt", nil},
		{"/docs", "a.txt", nil},
		{"/new/deeper", "x", nil},
		{"/docs", "sub", ErrIsDirectory},
		{"/docs/a.txt", "x", ErrNotDirectory},
		{"/docs/a.txt/more", "x", ErrNotDirectory},
		{"/docs", "", ErrInvalidName},
		{"/docs/..", "x", ErrInvalidPath},
	}
	for _, tt := range tests {
		t.Run(tt.dir+"|"+tt.name, func(t *testing.T) {
			err := tree.CheckPut(tt.dir, tt.name)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, s5err.KindInvalidInput, s5err.KindOf(err))
		})
	}
	assert.Equal(t, uint64(2), tree.Revision(), "CheckPut never mutates")
}

func TestTree_ConcurrentPuts(t *testing.T) {
	tree := NewTree()
	const goroutines = 16

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func(idx int) {
			defer wg.Done()
			name := string(rune('a' + idx))
			_, err := tree.PutFile("/dir/"+name, testEntry("f"))
			assert.NoError(t, err)
			_, err = tree.List("/dir")
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	l, err := tree.List("/dir")
	require.NoError(t, err)
	assert.Len(t, l.Directories, goroutines)
	assert.Len(t, tree.Files(), goroutines)
}

func TestTree_Clone(t *testing.T) {
	tree := NewTree()
	_, err := tree.PutFile("/docs", testEntry("a.txt"))
	require.NoError(t, err)

	c := tree.Clone()
	assert.Equal(t, tree.Revision(), c.Revision())
	assert.Equal(t, tree.Files(), c.Files())

	_, err = c.PutFile("/docs", testEntry("b.txt"))
	require.NoError(t, err)
	_, err = c.RemoveFile("/docs/a.txt")
	require.NoError(t, err)

	assert.Len(t, tree.Files(), 1, "original untouched")
	_, err = tree.GetFile("/docs/a.txt")
	assert.NoError(t, err)
	assert.Equal(t, uint64(1), tree.Revision())
	assert.Equal(t, uint64(3), c.Revision())
}

func TestTree_FindByAddress(t *testing.T) {
	tree := NewTree()
	e := testEntry("a.txt")
	_, err := tree.PutFile("/z", e)
	require.NoError(t, err)
	_, err = tree.PutFile("/b", e)
	require.NoError(t, err)

	for _, addr := range []storage.Address{e.Ref.EncryptedHash, e.Ref.Hash} {
		p, got, ok := tree.FindByAddress(addr)
		require.True(t, ok)
		assert.Equal(t, "/b/a.txt", p)
		assert.Equal(t, e.Name, got.Name)
	}

	_, _, ok := tree.FindByAddress(storage.Hash([]byte("other")))
	assert.False(t, ok)
}

// --- Document ---

func TestDocument_RoundTrip(t *testing.T) {
	signer := newTestSigner(t)
	key, err := encrypt.GenerateKey()
	require.NoError(t, err)

	tree := NewTree()
	_, err = tree.PutFile("/docs", testEntry("a.txt"))
	require.NoError(t, err)
	_, err = tree.CreateDirectory("/empty/nested")
	require.NoError(t, err)

	doc, err := tree.MarshalDocument(key[:], signer)
	require.NoError(t, err)
	assert.NotContains(t, string(doc), "a.txt", "document is encrypted")

	back, err := UnmarshalDocument(doc, key[:], signer)
	require.NoError(t, err)
	assert.Equal(t, tree.Directories(), back.Directories())
	assert.Equal(t, tree.Files(), back.Files())
	assert.Equal(t, tree.Revision(), back.Revision())

	l, err := back.List("/empty/nested")
	require.NoError(t, err)
	assert.NotNil(t, l.Files)
}

func TestDocument_Rejects(t *testing.T) {
	signer := newTestSigner(t)
	key, err := encrypt.GenerateKey()
	require.NoError(t, err)
	doc, err := NewTree().MarshalDocument(key[:], signer)
	require.NoError(t, err)

	t.Run("wrong key", func(t *testing.T) {
		other, err := encrypt.GenerateKey()
		require.NoError(t, err)
		_, err = UnmarshalDocument(doc, other[:], signer)
		assert.Equal(t, s5err.KindCrypto, s5err.KindOf(err))
	})

	t.Run("wrong signer", func(t *testing.T) {
		_, err := UnmarshalDocument(doc, key[:], newTestSigner(t))
		assert.ErrorIs(t, err, ErrBadSignature)
		assert.Equal(t, s5err.KindCrypto, s5err.KindOf(err))
	})

	t.Run("nil signer", func(t *testing.T) {
		_, err := UnmarshalDocument(doc, key[:], nil)
		assert.ErrorIs(t, err, ErrNilParam)
		_, err = NewTree().MarshalDocument(key[:], nil)
		assert.ErrorIs(t, err, ErrNilParam)
	})

	seal := func(t *testing.T, payload string) []byte {
		t.Helper()
		env, err := json.Marshal(signedEnvelope{Payload: json.RawMessage(payload), Signature: signer.Sign([]byte(payload))})
		require.NoError(t, err)
		out, err := encrypt.EncryptBlob(key[:], env)
		require.NoError(t, err)
		return out
	}

	bad := []struct {
		name    string
		payload string
	}{
		{"bad version", `{"version":2,"directories":{"/":{"files":{},"directories":{}}}}`},
		{"missing root", `{"version":1,"directories":{}}`},
		{"non canonical path", `{"version":1,"directories":{"/":{"files":{},"directories":{}},"/a/":{}}}`},
		{"dangling subdir", `{"version":1,"directories":{"/":{"files":{},"directories":{"x":{}}}}}`},
		{"orphan dir", `{"version":1,"directories":{"/":{"files":{},"directories":{}},"/x":{}}}`},
		{"null listing", `{"version":1,"directories":{"/":null}}`},
		{"name mismatch", `{"version":1,"directories":{"/":{"files":{"a":{"name":"b"}},"directories":{}}}}`},
	}
	for _, tt := range bad {
		t.Run(tt.name, func(t *testing.T) {
			_, err := UnmarshalDocument(seal(t, tt.payload), key[:], signer)
			assert.ErrorIs(t, err, ErrInvalidDocument)
		})
	}
}
