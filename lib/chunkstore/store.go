// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chunkstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/arc/v2"

	"github.com/bureau-foundation/buildpatch/lib/manifest"
)

// DefaultMemoryCacheSize is the number of uncompressed windows the
// memory tier holds when Options.MemoryCacheSize is zero.
const DefaultMemoryCacheSize = 32

// Options configures a Store. The zero value is usable.
type Options struct {
	// MemoryCacheSize bounds the memory tier in windows. Zero means
	// DefaultMemoryCacheSize; negative disables the tier.
	MemoryCacheSize int

	// Metrics receives counters. Nil records nothing.
	Metrics *Metrics

	// Logger overrides the manifest options' logger.
	Logger *slog.Logger

	// SkipHashVerification disables checking downloaded windows
	// against ChunkInfo.SHA.
	SkipHashVerification bool
}

// Store resolves chunks of one manifest. It is safe for concurrent
// use.
type Store struct {
	manifest *manifest.Manifest
	options  manifest.Options
	client   *http.Client
	logger   *slog.Logger
	metrics  *Metrics
	memory   *arc.ARCCache[manifest.GUID, []byte]

	skipHashVerification bool

	mu      sync.Mutex
	pending map[manifest.GUID]*pending
}

// pending is shared by every caller resolving the same chunk at the
// same time. The caller that resolves the window leaves it here for
// the callers queued behind it on the chunk lock, so they need no
// cache tier to avoid downloading it again.
type pending struct {
	callers int
	window  []byte
}

// New returns a store for m, fetching from m's ChunkBaseURL with m's
// HTTP client and caching under m's ChunkCacheDirectory.
func New(m *manifest.Manifest, options Options) (*Store, error) {
	if m == nil {
		return nil, fmt.Errorf("chunk store needs a manifest: %w", manifest.ErrConfiguration)
	}
	manifestOptions := m.Options()
	if manifestOptions.ChunkBaseURL == "" {
		return nil, fmt.Errorf("manifest has no chunk base URL: %w", manifest.ErrConfiguration)
	}

	s := &Store{
		manifest:             m,
		options:              manifestOptions,
		client:               manifestOptions.Client,
		logger:               options.Logger,
		metrics:              options.Metrics,
		skipHashVerification: options.SkipHashVerification,
		pending:              make(map[manifest.GUID]*pending),
	}
	if s.client == nil {
		s.client = &http.Client{Timeout: manifest.DefaultHTTPTimeout}
	}
	if s.logger == nil {
		s.logger = manifestOptions.Logger
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}

	size := options.MemoryCacheSize
	if size == 0 {
		size = DefaultMemoryCacheSize
	}
	if size > 0 {
		memory, err := arc.NewARC[manifest.GUID, []byte](size)
		if err != nil {
			return nil, fmt.Errorf("creating memory tier: %w", err)
		}
		s.memory = memory
	}
	return s, nil
}

// Manifest returns the manifest whose chunks the store resolves.
func (s *Store) Manifest() *manifest.Manifest { return s.manifest }

// DefaultMode is the cache mode selected by the manifest options.
func (s *Store) DefaultMode() manifest.CacheMode { return s.options.CacheMode() }

// ReadPart copies the window bytes starting at chunkOffset into dst
// and returns len(dst). A range that runs past the end of the window
// is ErrMalformed, since manifest chunk parts always fit their chunk.
func (s *Store) ReadPart(ctx context.Context, mode manifest.CacheMode, chunk *manifest.ChunkInfo, dst []byte, chunkOffset int) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if chunkOffset < 0 {
		return 0, fmt.Errorf("negative offset %d into chunk %s", chunkOffset, chunk.GUID)
	}

	if window, ok := s.fromMemory(chunk); ok {
		return copyRange(dst, window, chunkOffset, chunk)
	}

	// A decompressed cache file holds the window itself, so a part is
	// a single positioned read.
	if mode == manifest.CacheDecompressed {
		if path := chunk.CachePath(mode); path != "" {
			n, err := readFileAt(path, dst, int64(chunkOffset))
			if err == nil {
				s.metrics.hit(TierDisk)
				return n, nil
			}
			if !errors.Is(err, os.ErrNotExist) {
				s.discardCached(chunk, path, err)
			}
			// The file vanished (pruned by another process) or is
			// unreadable; Window resolves it again under the chunk lock.
		}
	}

	window, err := s.Window(ctx, mode, chunk)
	if err != nil {
		return 0, err
	}
	return copyRange(dst, window, chunkOffset, chunk)
}

// Window returns the whole uncompressed window of chunk. The returned
// slice is shared with the memory tier and must not be modified.
func (s *Store) Window(ctx context.Context, mode manifest.CacheMode, chunk *manifest.ChunkInfo) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if window, ok := s.fromMemory(chunk); ok {
		return window, nil
	}

	if path := chunk.CachePath(mode); path != "" {
		window, err := s.loadCached(path, mode, chunk)
		if err == nil {
			s.metrics.hit(TierDisk)
			s.remember(chunk, window)
			return window, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			s.discardCached(chunk, path, err)
		}
	}

	shared := s.join(chunk.GUID)
	defer s.leave(chunk.GUID, shared)

	unlock, err := s.manifest.ChunkLocks().Lock(ctx, chunk.GUID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	// Another holder may have resolved the chunk while we waited.
	if window := s.sharedWindow(shared); window != nil {
		return window, nil
	}
	if window, ok := s.fromMemory(chunk); ok {
		return window, nil
	}

	directory := s.options.ChunkCacheDirectory
	if directory != "" {
		path := CachePath(directory, mode, chunk)
		window, err := s.loadCached(path, mode, chunk)
		if err == nil {
			chunk.SetCachePath(mode, path)
			s.metrics.hit(TierDisk)
			s.remember(chunk, window)
			s.share(shared, window)
			return window, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			// A corrupt cache file is replaced by a fresh download.
			s.discardCached(chunk, path, err)
		}
	}

	window, err := s.resolve(ctx, mode, chunk)
	if err != nil {
		return nil, s.fail(err)
	}
	s.remember(chunk, window)
	s.share(shared, window)
	return window, nil
}

func (s *Store) discardCached(chunk *manifest.ChunkInfo, path string, err error) {
	s.logger.Warn("discarding unreadable cached chunk",
		"guid", chunk.GUID.String(),
		"path", path,
		"error", err,
	)
}

// join registers a caller on guid's pending entry, creating it if
// this is the first caller.
func (s *Store) join(guid manifest.GUID) *pending {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.pending[guid]
	if !ok {
		entry = &pending{}
		s.pending[guid] = entry
	}
	entry.callers++
	return entry
}

// leave drops the entry once its last caller is done, so a later
// resolve after eviction goes back through the tiers.
func (s *Store) leave(guid manifest.GUID, entry *pending) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry.callers--
	if entry.callers == 0 {
		delete(s.pending, guid)
	}
}

func (s *Store) share(entry *pending, window []byte) {
	s.mu.Lock()
	entry.window = window
	s.mu.Unlock()
}

func (s *Store) sharedWindow(entry *pending) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return entry.window
}

// resolve downloads chunk, decodes its window and persists it in the
// layout for mode. The caller holds the chunk's lock.
func (s *Store) resolve(ctx context.Context, mode manifest.CacheMode, chunk *manifest.ChunkInfo) ([]byte, error) {
	blob, err := s.download(ctx, chunk)
	if err != nil {
		return nil, err
	}
	window, err := s.decode(blob, chunk)
	if err != nil {
		return nil, err
	}
	if !s.skipHashVerification && !chunk.SHA.IsZero() {
		if actual := manifest.ComputeSHA1(window); actual != chunk.SHA {
			return nil, &manifest.IntegrityError{
				What:     "chunk " + chunk.GUID.String() + " SHA1",
				Expected: chunk.SHA.String(),
				Actual:   actual.String(),
			}
		}
	}

	directory := s.options.ChunkCacheDirectory
	if directory == "" {
		return window, nil
	}
	persisted := window
	if mode == manifest.CacheAsIs {
		persisted = blob
	}
	path := CachePath(directory, mode, chunk)
	if err := writeCacheFile(directory, path, persisted); err != nil {
		return nil, fmt.Errorf("caching chunk %s: %w", chunk.GUID, err)
	}
	chunk.SetCachePath(mode, path)
	return window, nil
}

// download fetches the chunk container from the CDN.
func (s *Store) download(ctx context.Context, chunk *manifest.ChunkInfo) ([]byte, error) {
	url := s.manifest.ChunkURL(chunk)
	transportError := func(status int, err error) error {
		return &manifest.TransportError{GUID: chunk.GUID, URL: url, StatusCode: status, Err: err}
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, transportError(0, err)
	}

	started := time.Now()
	s.metrics.downloadStarted()
	received := -1
	defer func() { s.metrics.downloadFinished(received) }()

	response, err := s.client.Do(request)
	if err != nil {
		return nil, transportError(0, err)
	}
	defer response.Body.Close()
	if response.StatusCode < 200 || response.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(response.Body, 4096))
		return nil, transportError(response.StatusCode, errors.New(response.Status))
	}

	capacity := initialBufferSize(response.ContentLength, s.options.ChunkDownloadBufferSize, chunk.FileSize)
	buffer := bytes.NewBuffer(make([]byte, 0, capacity))
	if _, err := buffer.ReadFrom(response.Body); err != nil {
		return nil, transportError(response.StatusCode, err)
	}
	received = buffer.Len()

	s.logger.Info("downloaded chunk",
		"guid", chunk.GUID.String(),
		"url", url,
		"bytes", received,
		"elapsed", time.Since(started),
	)
	return buffer.Bytes(), nil
}

// initialBufferSize picks the starting capacity of a download buffer.
// Content-Length is trusted only up to the larger of the configured
// buffer size and the chunk's declared file size; a bigger body grows
// the buffer as it arrives.
func initialBufferSize(contentLength int64, configured int, fileSize int64) int {
	if configured <= 0 {
		configured = manifest.DefaultChunkDownloadBufferSize
	}
	if contentLength < 0 {
		return configured
	}
	return int(min(contentLength, max(int64(configured), fileSize)))
}

// decode parses a chunk container and returns its window.
func (s *Store) decode(blob []byte, chunk *manifest.ChunkInfo) ([]byte, error) {
	header, err := ParseHeader(blob)
	if err != nil {
		return nil, fmt.Errorf("chunk %s: %w", chunk.GUID, err)
	}
	if header.GUID.IsValid() && header.GUID != chunk.GUID {
		return nil, &manifest.IntegrityError{
			What:     "chunk container GUID",
			Expected: chunk.GUID.String(),
			Actual:   header.GUID.String(),
		}
	}
	window, err := header.Window(blob, s.options)
	if err != nil {
		return nil, fmt.Errorf("chunk %s: %w", chunk.GUID, err)
	}
	return window, checkWindowSize(chunk, window)
}

// loadCached reads a cache file in the layout for mode.
func (s *Store) loadCached(path string, mode manifest.CacheMode, chunk *manifest.ChunkInfo) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if mode == manifest.CacheAsIs {
		return s.decode(data, chunk)
	}
	return data, checkWindowSize(chunk, data)
}

// checkWindowSize compares a window against the manifest's window
// size. JSON manifests carry no window size and are not checked.
func checkWindowSize(chunk *manifest.ChunkInfo, window []byte) error {
	if chunk.WindowSize == 0 || len(window) == int(chunk.WindowSize) {
		return nil
	}
	return &manifest.IntegrityError{
		What:     "chunk " + chunk.GUID.String() + " window size",
		Expected: strconv.FormatUint(uint64(chunk.WindowSize), 10),
		Actual:   strconv.Itoa(len(window)),
	}
}

func (s *Store) fromMemory(chunk *manifest.ChunkInfo) ([]byte, bool) {
	if s.memory == nil {
		return nil, false
	}
	window, ok := s.memory.Get(chunk.GUID)
	if ok {
		s.metrics.hit(TierMemory)
	}
	return window, ok
}

func (s *Store) remember(chunk *manifest.ChunkInfo, window []byte) {
	if s.memory != nil {
		s.memory.Add(chunk.GUID, window)
	}
}

// fail counts err under its class and returns it unchanged.
func (s *Store) fail(err error) error {
	if s.metrics != nil && err != nil {
		s.metrics.failure(errorClass(err))
	}
	return err
}

func errorClass(err error) string {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	case errors.Is(err, manifest.ErrTransport):
		return "transport"
	case errors.Is(err, manifest.ErrIntegrity):
		return "integrity"
	case errors.Is(err, manifest.ErrMalformed):
		return "malformed"
	case errors.Is(err, manifest.ErrUnsupported):
		return "unsupported"
	case errors.Is(err, manifest.ErrConfiguration):
		return "configuration"
	default:
		return "io"
	}
}

// copyRange copies window[offset:offset+len(dst)] into dst.
func copyRange(dst, window []byte, offset int, chunk *manifest.ChunkInfo) (int, error) {
	if offset+len(dst) > len(window) {
		return 0, fmt.Errorf("%w: range [%d, %d) exceeds the %d-byte window of chunk %s",
			manifest.ErrMalformed, offset, offset+len(dst), len(window), chunk.GUID)
	}
	return copy(dst, window[offset:]), nil
}
