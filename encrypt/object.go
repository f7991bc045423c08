package encrypt

import (
	"bytes"
	"crypto/cipher"
	"encoding/binary"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Chunked object layout:
//
//	offset  size  field
//	     0     4  magic "S5EC"
//	     4     1  version (1)
//	     5     3  reserved (zero)
//	     8     4  chunk_size, u32 LE
//	    12     8  total plaintext length, u64 LE
//	    20     -  chunk 0 ct||tag, chunk 1 ct||tag, ... in index order
//
// The 20-byte header is associated data for every chunk, so editing it
// breaks authentication of all of them.
const (
	HeaderSize    = 20
	ObjectVersion = 1

	DefaultChunkSize = 256 * 1024
	MinChunkSize     = 1
	MaxChunkSize     = 64 * 1024 * 1024

	// Below this many chunks, sealing runs on the calling goroutine.
	minChunksForParallel = 4
)

var objectMagic = [4]byte{'S', '5', 'E', 'C'}

// ObjectHeader describes a chunked object.
type ObjectHeader struct {
	Version   uint8
	ChunkSize uint32
	Size      uint64 // total plaintext length
}

// ChunkCount returns ceil(Size / ChunkSize). An empty object has none.
func (h ObjectHeader) ChunkCount() uint64 {
	if h.Size == 0 || h.ChunkSize == 0 {
		return 0
	}
	cs := uint64(h.ChunkSize)
	return (h.Size + cs - 1) / cs
}

// ChunkPlainLen returns the plaintext length of chunk i.
func (h ObjectHeader) ChunkPlainLen(i uint64) int {
	cs := uint64(h.ChunkSize)
	start := i * cs
	if start >= h.Size {
		return 0
	}
	if rest := h.Size - start; rest < cs {
		return int(rest)
	}
	return int(cs)
}

// EncodedLen returns the full object length in bytes.
func (h ObjectHeader) EncodedLen() uint64 {
	return HeaderSize + h.Size + h.ChunkCount()*TagSize
}

// chunkOffset returns the byte offset of chunk i within the object.
func (h ObjectHeader) chunkOffset(i uint64) uint64 {
	return HeaderSize + i*(uint64(h.ChunkSize)+TagSize)
}

// MarshalBinary encodes the 20-byte header.
func (h ObjectHeader) MarshalBinary() ([]byte, error) {
	buf := make([]byte, HeaderSize)
	copy(buf[0:4], objectMagic[:])
	buf[4] = h.Version
	binary.LittleEndian.PutUint32(buf[8:12], h.ChunkSize)
	binary.LittleEndian.PutUint64(buf[12:20], h.Size)
	return buf, nil
}

// ParseHeader decodes and validates the header at the start of object.
func ParseHeader(object []byte) (ObjectHeader, error) {
	var h ObjectHeader
	if len(object) < HeaderSize {
		return h, fmt.Errorf("%w: object is %d bytes", ErrInvalidHeader, len(object))
	}
	if !bytes.Equal(object[0:4], objectMagic[:]) {
		return h, fmt.Errorf("%w: bad magic", ErrInvalidHeader)
	}
	h.Version = object[4]
	if h.Version != ObjectVersion {
		return h, fmt.Errorf("%w: unsupported version %d", ErrInvalidHeader, h.Version)
	}
	if object[5] != 0 || object[6] != 0 || object[7] != 0 {
		return h, fmt.Errorf("%w: reserved bytes set", ErrInvalidHeader)
	}
	h.ChunkSize = binary.LittleEndian.Uint32(object[8:12])
	h.Size = binary.LittleEndian.Uint64(object[12:20])
	if h.ChunkSize < MinChunkSize || h.ChunkSize > MaxChunkSize {
		return h, fmt.Errorf("%w: chunk size %d", ErrInvalidHeader, h.ChunkSize)
	}
	if h.ChunkCount() > MaxChunkIndex+1 {
		return h, fmt.Errorf("%w: too many chunks", ErrInvalidHeader)
	}
	return h, nil
}

// Options tunes Seal and Open.
type Options struct {
	ChunkSize int // plaintext bytes per chunk; 0 means DefaultChunkSize
	Workers   int // parallel workers; 0 means runtime.NumCPU()
}

func (o Options) chunkSize() (uint32, error) {
	if o.ChunkSize == 0 {
		return DefaultChunkSize, nil
	}
	if o.ChunkSize < MinChunkSize || o.ChunkSize > MaxChunkSize {
		return 0, fmt.Errorf("%w: %d", ErrInvalidChunkSize, o.ChunkSize)
	}
	return uint32(o.ChunkSize), nil
}

func (o Options) workers() int {
	if o.Workers > 0 {
		return o.Workers
	}
	return runtime.NumCPU()
}

// Seal encrypts plaintext into a chunked object.
func Seal(key, plaintext []byte, opts Options) ([]byte, error) {
	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}
	cs, err := opts.chunkSize()
	if err != nil {
		return nil, err
	}

	h := ObjectHeader{Version: ObjectVersion, ChunkSize: cs, Size: uint64(len(plaintext))}
	n := h.ChunkCount()
	if n > MaxChunkIndex+1 {
		return nil, fmt.Errorf("%w: %d chunks", ErrChunkIndexTooLarge, n)
	}

	header, _ := h.MarshalBinary()
	out := make([]byte, h.EncodedLen())
	copy(out, header)

	err = forEachChunk(n, opts.workers(), func(i uint64) error {
		start := i * uint64(cs)
		end := start + uint64(h.ChunkPlainLen(i))
		ct, err := sealChunk(aead, i, plaintext[start:end], header)
		if err != nil {
			return err
		}
		copy(out[h.chunkOffset(i):], ct)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Open decrypts a whole chunked object. Any failing chunk fails the
// whole call; no partial plaintext is returned.
func Open(key, object []byte, opts Options) ([]byte, error) {
	aead, h, err := prepare(key, object)
	if err != nil {
		return nil, err
	}

	out := make([]byte, h.Size)
	header := object[:HeaderSize]
	err = forEachChunk(h.ChunkCount(), opts.workers(), func(i uint64) error {
		pt, err := openChunk(aead, i, chunkCiphertext(h, object, i), header)
		if err != nil {
			return err
		}
		copy(out[i*uint64(h.ChunkSize):], pt)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// OpenChunk decrypts chunk i alone.
func OpenChunk(key, object []byte, i uint64) ([]byte, error) {
	aead, h, err := prepare(key, object)
	if err != nil {
		return nil, err
	}
	if i >= h.ChunkCount() {
		return nil, fmt.Errorf("%w: %d of %d", ErrChunkOutOfRange, i, h.ChunkCount())
	}
	return openChunk(aead, i, chunkCiphertext(h, object, i), object[:HeaderSize])
}

// OpenRange decrypts plaintext bytes [offset, offset+length), touching
// only the chunks that overlap the range.
func OpenRange(key, object []byte, offset, length uint64) ([]byte, error) {
	aead, h, err := prepare(key, object)
	if err != nil {
		return nil, err
	}
	if offset > h.Size || length > h.Size-offset {
		return nil, fmt.Errorf("%w: [%d, +%d) of %d", ErrRangeOutOfBounds, offset, length, h.Size)
	}
	if length == 0 {
		return []byte{}, nil
	}

	cs := uint64(h.ChunkSize)
	first, last := offset/cs, (offset+length-1)/cs
	out := make([]byte, 0, length)
	for i := first; i <= last; i++ {
		pt, err := openChunk(aead, i, chunkCiphertext(h, object, i), object[:HeaderSize])
		if err != nil {
			return nil, err
		}
		lo, hi := uint64(0), uint64(len(pt))
		if i == first {
			lo = offset - i*cs
		}
		if i == last {
			hi = offset + length - i*cs
		}
		out = append(out, pt[lo:hi]...)
	}
	return out, nil
}

func prepare(key, object []byte) (cipher.AEAD, ObjectHeader, error) {
	aead, err := newAEAD(key)
	if err != nil {
		return nil, ObjectHeader{}, err
	}
	h, err := ParseHeader(object)
	if err != nil {
		return nil, h, err
	}
	if uint64(len(object)) != h.EncodedLen() {
		return nil, h, fmt.Errorf("%w: object is %d bytes, header implies %d", ErrInvalidHeader, len(object), h.EncodedLen())
	}
	return aead, h, nil
}

func chunkCiphertext(h ObjectHeader, object []byte, i uint64) []byte {
	off := h.chunkOffset(i)
	return object[off : off+uint64(h.ChunkPlainLen(i))+TagSize]
}

// forEachChunk runs fn for chunk indices [0, n) on up to workers
// goroutines. Each fn writes a disjoint region, so order is irrelevant.
func forEachChunk(n uint64, workers int, fn func(i uint64) error) error {
	if n < minChunksForParallel || workers <= 1 {
		for i := uint64(0); i < n; i++ {
			if err := fn(i); err != nil {
				return err
			}
		}
		return nil
	}

	var g errgroup.Group
	g.SetLimit(workers)
	for i := uint64(0); i < n; i++ {
		g.Go(func() error { return fn(i) })
	}
	return g.Wait()
}
