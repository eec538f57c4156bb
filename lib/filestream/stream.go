// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package filestream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/bureau-foundation/buildpatch/lib/chunkstore"
	"github.com/bureau-foundation/buildpatch/lib/manifest"
)

// writeToBufferSize is the read granularity of WriteTo.
const writeToBufferSize = 256 << 10

// part is one chunk part placed in the file.
type part struct {
	chunk       *manifest.ChunkInfo
	chunkOffset int
	size        int

	// offset is the part's first byte within the file.
	offset int64
}

func (p part) end() int64 { return p.offset + int64(p.size) }

// Stream reads one manifest file. ReadAt, ReadAtContext and the Save
// methods are safe for concurrent use; Read, Seek and SetPosition
// share a cursor and serialize on it.
type Stream struct {
	store *chunkstore.Store
	file  *manifest.File
	mode  manifest.CacheMode
	parts []part
	size  int64

	// last is the index of the most recently located part, which
	// makes sequential reads skip the search.
	last atomic.Int32

	mu       sync.Mutex
	position int64
}

// Open returns a stream over file using the cache mode selected by
// the manifest options.
func Open(store *chunkstore.Store, file *manifest.File) (*Stream, error) {
	if store == nil {
		return nil, fmt.Errorf("opening %s: no chunk store: %w", fileName(file), manifest.ErrConfiguration)
	}
	return OpenMode(store, file, store.DefaultMode())
}

// OpenMode returns a stream over file that caches chunks in mode.
// The store must belong to the file's manifest, whose options must
// name a chunk base URL. File-data manifests have no chunks to
// stream and are ErrUnsupported.
func OpenMode(store *chunkstore.Store, file *manifest.File, mode manifest.CacheMode) (*Stream, error) {
	if file == nil {
		return nil, fmt.Errorf("opening stream: no file: %w", manifest.ErrConfiguration)
	}
	m := file.Manifest()
	if store == nil || m == nil || store.Manifest() != m {
		return nil, fmt.Errorf("opening %s: chunk store does not belong to the file's manifest: %w", file.Name, manifest.ErrConfiguration)
	}
	if m.Options().ChunkBaseURL == "" {
		return nil, fmt.Errorf("opening %s: manifest has no chunk base URL: %w", file.Name, manifest.ErrConfiguration)
	}
	if m.Meta.IsFileData {
		return nil, fmt.Errorf("opening %s: file-data manifests cannot be streamed: %w", file.Name, manifest.ErrUnsupported)
	}

	s := &Stream{
		store: store,
		file:  file,
		mode:  mode,
		parts: make([]part, len(file.ChunkParts)),
	}
	for i, chunkPart := range file.ChunkParts {
		chunk, ok := m.ChunkByGUID(chunkPart.GUID)
		if !ok {
			return nil, fmt.Errorf("%w: %s part %d references unknown chunk %s", manifest.ErrMalformed, file.Name, i, chunkPart.GUID)
		}
		s.parts[i] = part{
			chunk:       chunk,
			chunkOffset: int(chunkPart.Offset),
			size:        int(chunkPart.Size),
			offset:      s.size,
		}
		s.size += int64(chunkPart.Size)
	}
	return s, nil
}

func fileName(file *manifest.File) string {
	if file == nil {
		return "stream"
	}
	return file.Name
}

// Len returns the file size.
func (s *Stream) Len() int64 { return s.size }

// Name returns the file's build-relative path.
func (s *Stream) Name() string { return s.file.Name }

// File returns the manifest file being streamed.
func (s *Stream) File() *manifest.File { return s.file }

// Mode returns the cache mode chunk reads use.
func (s *Stream) Mode() manifest.CacheMode { return s.mode }

// Position returns the cursor used by Read.
func (s *Stream) Position() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.position
}

// SetPosition moves the cursor. Positions outside [0, Len()] are
// rejected.
func (s *Stream) SetPosition(position int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setPosition(position)
}

func (s *Stream) setPosition(position int64) error {
	if position < 0 || position > s.size {
		return fmt.Errorf("position %d outside %s (%d bytes)", position, s.file.Name, s.size)
	}
	s.position = position
	return nil
}

// Seek implements io.Seeker. Unlike a file, seeking past the end is
// an error.
func (s *Stream) Seek(offset int64, whence int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var base int64
	switch whence {
	case io.SeekStart:
	case io.SeekCurrent:
		base = s.position
	case io.SeekEnd:
		base = s.size
	default:
		return s.position, fmt.Errorf("seek %s: invalid whence %d", s.file.Name, whence)
	}
	if err := s.setPosition(base + offset); err != nil {
		return s.position, err
	}
	return s.position, nil
}

// Read implements io.Reader.
func (s *Stream) Read(p []byte) (int, error) {
	return s.ReadContext(context.Background(), p)
}

// ReadContext reads from the cursor and advances it by the bytes
// read.
func (s *Stream) ReadContext(ctx context.Context, p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.position >= s.size {
		if len(p) == 0 {
			return 0, nil
		}
		return 0, io.EOF
	}
	n, err := s.ReadAtContext(ctx, p, s.position)
	s.position += int64(n)
	if errors.Is(err, io.EOF) && n > 0 {
		err = nil
	}
	return n, err
}

// ReadAt implements io.ReaderAt.
func (s *Stream) ReadAt(p []byte, offset int64) (int, error) {
	return s.ReadAtContext(context.Background(), p, offset)
}

// ReadAtContext fills p from the file starting at offset, fetching
// each spanned chunk through the store. Like io.ReaderAt, a read that
// reaches the end of the file before filling p returns io.EOF with
// the bytes it did read.
func (s *Stream) ReadAtContext(ctx context.Context, p []byte, offset int64) (int, error) {
	if offset < 0 {
		return 0, fmt.Errorf("read %s: negative offset %d", s.file.Name, offset)
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if offset >= s.size {
		if len(p) == 0 {
			return 0, nil
		}
		return 0, io.EOF
	}

	want := len(p)
	if remaining := s.size - offset; int64(want) > remaining {
		want = int(remaining)
	}

	read := 0
	index := s.findPart(offset)
	for read < want {
		current := s.parts[index]
		within := int(offset + int64(read) - current.offset)
		count := min(current.size-within, want-read)
		if count == 0 {
			index++
			continue
		}

		if _, err := s.store.ReadPart(ctx, s.mode, current.chunk, p[read:read+count], current.chunkOffset+within); err != nil {
			return read, fmt.Errorf("reading %s at offset %d: %w", s.file.Name, offset+int64(read), err)
		}
		read += count
		s.last.Store(int32(index))
		index++
	}

	if read < len(p) {
		return read, io.EOF
	}
	return read, nil
}

// findPart returns the index of the part containing offset, which
// must be within the file.
func (s *Stream) findPart(offset int64) int {
	last := int(s.last.Load())
	for _, candidate := range []int{last, last + 1} {
		if candidate < len(s.parts) && s.parts[candidate].offset <= offset && offset < s.parts[candidate].end() {
			return candidate
		}
	}
	// Zero-size parts never contain an offset, so the search lands on
	// the first non-empty part at or after it.
	return sort.Search(len(s.parts), func(i int) bool {
		return s.parts[i].end() > offset
	})
}

// WriteTo implements io.WriterTo, copying from the cursor to the end
// of the file.
func (s *Stream) WriteTo(w io.Writer) (int64, error) {
	buffer := make([]byte, min(int64(writeToBufferSize), max(s.size, 1)))
	var written int64
	for {
		n, err := s.Read(buffer)
		if n > 0 {
			m, writeErr := w.Write(buffer[:n])
			written += int64(m)
			if writeErr != nil {
				return written, writeErr
			}
			if m < n {
				return written, io.ErrShortWrite
			}
		}
		if errors.Is(err, io.EOF) {
			return written, nil
		}
		if err != nil {
			return written, err
		}
	}
}
