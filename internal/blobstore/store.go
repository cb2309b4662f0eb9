// Package blobstore is the content-addressed store backing External
// entries: large payloads are kept out of the polyglot artifact itself
// and instead referenced by a content hash that resolves here. Blobs are
// persisted in a pebble KV store, optionally xz-compressed at rest, with
// a small hot-blob cache in front to avoid repeated decompression.
package blobstore

import (
	"bytes"
	"fmt"
	"hash/maphash"
	"io"

	"github.com/cespare/xxhash/v2"
	"github.com/cockroachdb/pebble/v2"
	"github.com/dgryski/go-tinylfu"
	"github.com/therootcompany/xz"
)

const (
	hotCacheSize    = 256
	hotCacheSamples = hotCacheSize * 10
)

const (
	flagRaw       byte = 0
	flagXZ        byte = 1
	xzDictMaxSize      = 1 << 26
)

// Store is a content-addressed blob store: Put returns the hash that
// names the content, Get resolves a hash back to bytes.
type Store struct {
	db  *pebble.DB
	hot *tinylfu.T[string, []byte]
}

// Open opens (creating if absent) a pebble store rooted at dir.
func Open(dir string) (*Store, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("blobstore: open %s: %w", dir, err)
	}
	seed := maphash.MakeSeed()
	hashFn := func(k string) uint64 {
		var h maphash.Hash
		h.SetSeed(seed)
		h.WriteString(k)
		return h.Sum64()
	}
	return &Store{
		db:  db,
		hot: tinylfu.New[string, []byte](hotCacheSize, hotCacheSamples, hashFn),
	}, nil
}

// Close flushes and closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// Hash computes the content-addressed key Put/Get use for data.
func Hash(data []byte) string {
	return fmt.Sprintf("%016x", xxhash.Sum64(data))
}

// Put stores data raw, keyed by its content hash, and returns that hash.
func (s *Store) Put(data []byte) (string, error) {
	return s.put(data, flagRaw)
}

// PutCompressed stores xz-compressed bytes produced elsewhere (e.g. an
// already-packaged external blob) under decompressedHash, the hash of its
// decompressed content, so Get transparently decompresses on read.
func (s *Store) PutCompressed(decompressedHash string, xzData []byte) error {
	key := []byte(decompressedHash)
	val := append([]byte{flagXZ}, xzData...)
	if err := s.db.Set(key, val, pebble.Sync); err != nil {
		return fmt.Errorf("blobstore: put compressed %s: %w", decompressedHash, err)
	}
	return nil
}

func (s *Store) put(data []byte, flag byte) (string, error) {
	hash := Hash(data)
	val := append([]byte{flag}, data...)
	if err := s.db.Set([]byte(hash), val, pebble.Sync); err != nil {
		return "", fmt.Errorf("blobstore: put %s: %w", hash, err)
	}
	s.hot.Add(hash, data)
	return hash, nil
}

// Get resolves hash back to its original bytes, transparently
// decompressing if the stored blob is xz-compressed. The hot cache is
// checked first to avoid repeated pebble reads and xz decompression.
func (s *Store) Get(hash string) ([]byte, error) {
	if data, ok := s.hot.Get(hash); ok {
		return data, nil
	}

	val, closer, err := s.db.Get([]byte(hash))
	if err != nil {
		return nil, fmt.Errorf("blobstore: get %s: %w", hash, err)
	}
	defer closer.Close()

	if len(val) == 0 {
		return nil, fmt.Errorf("blobstore: get %s: empty record", hash)
	}
	flag, body := val[0], val[1:]

	var data []byte
	switch flag {
	case flagRaw:
		data = append([]byte(nil), body...)
	case flagXZ:
		r, err := xz.NewReader(bytes.NewReader(body), xzDictMaxSize)
		if err != nil {
			return nil, fmt.Errorf("blobstore: xz decode %s: %w", hash, err)
		}
		data, err = io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("blobstore: xz decode %s: %w", hash, err)
		}
	default:
		return nil, fmt.Errorf("blobstore: get %s: unknown storage flag %d", hash, flag)
	}

	s.hot.Add(hash, data)
	return data, nil
}

// Ingest accepts content in arbitrary, possibly out-of-order byte ranges
// — e.g. a resumed or multipart ingestion of a large external blob — and
// commits it once every byte of [0, size) has arrived.
type Ingest struct {
	size   int64
	ranges byteRangeList
}

// NewIngest starts an ingestion of a blob of the given total size.
func NewIngest(size int64) *Ingest { return &Ingest{size: size} }

// Write records one chunk of the blob at the given offset.
func (in *Ingest) Write(p []byte, off int64) {
	buf := append([]byte(nil), p...)
	in.ranges.Set(buf, off)
}

// Done reports whether every byte of the blob has arrived, returning the
// coalesced content when it has.
func (in *Ingest) Done() ([]byte, bool) {
	return in.ranges.Contiguous(in.size)
}

// Commit finishes the ingestion, storing the coalesced blob if complete.
func (in *Ingest) Commit(s *Store) (string, error) {
	data, ok := in.Done()
	if !ok {
		return "", fmt.Errorf("blobstore: ingest incomplete: have %s, want size %d", in.ranges.String(), in.size)
	}
	return s.Put(data)
}
