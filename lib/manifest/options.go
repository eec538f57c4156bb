// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package manifest

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/bureau-foundation/buildpatch/lib/decompress"
)

const (
	// DefaultChunkDownloadBufferSize is the initial buffer size for a
	// chunk download whose response carries no Content-Length.
	DefaultChunkDownloadBufferSize = 2 << 20

	// DefaultHTTPTimeout bounds a whole chunk request when the caller
	// supplies no client of its own.
	DefaultHTTPTimeout = 30 * time.Second

	// LegacyChunkSize is the fixed chunk size assumed by manifests
	// that predate per-chunk size tracking, and the uncompressed
	// window assumed by chunk headers that predate an explicit size.
	LegacyChunkSize = 1 << 20
)

// Options configures parsing and the chunk fetch engine. The zero
// value parses uncompressed manifests only; [DefaultOptions] adds the
// zlib decompressor.
type Options struct {
	// ChunkBaseURL is the absolute URL prefix that chunk
	// subdirectories are appended to, normally ending in "/".
	// Streaming requires it.
	ChunkBaseURL string

	// Client performs chunk downloads. Nil means a client with
	// DefaultHTTPTimeout. Retries, proxies and user agents belong to
	// the client.
	Client *http.Client

	// ChunkDownloadBufferSize is the initial download buffer when the
	// response length is unknown. Zero means
	// DefaultChunkDownloadBufferSize.
	ChunkDownloadBufferSize int

	// ChunkCacheDirectory enables the on-disk chunk cache. Empty
	// disables it.
	ChunkCacheDirectory string

	// CacheChunksAsIs selects CacheAsIs instead of CacheDecompressed
	// for streams opened without an explicit mode.
	CacheChunksAsIs bool

	// ManifestCacheDirectory is used by lib/manifestinfo to keep
	// downloaded manifest files. The parser itself ignores it.
	ManifestCacheDirectory string

	// Decompressor inflates compressed manifest and chunk payloads.
	// Nil makes any compressed payload a configuration error.
	Decompressor decompress.Func

	// DecompressorState is passed through to Decompressor unchanged.
	DecompressorState any

	// Logger receives fetch-engine diagnostics. Nil discards them.
	Logger *slog.Logger
}

// DefaultOptions returns options with the zlib decompressor and the
// default download buffer size.
func DefaultOptions() Options {
	return Options{
		ChunkDownloadBufferSize: DefaultChunkDownloadBufferSize,
		Decompressor:            decompress.Zlib,
	}
}

// CacheMode returns the cache mode selected by CacheChunksAsIs.
func (o Options) CacheMode() CacheMode {
	if o.CacheChunksAsIs {
		return CacheAsIs
	}
	return CacheDecompressed
}

// withDefaults fills zero-valued fields that have a default.
func (o Options) withDefaults() Options {
	if o.ChunkDownloadBufferSize <= 0 {
		o.ChunkDownloadBufferSize = DefaultChunkDownloadBufferSize
	}
	if o.Client == nil {
		o.Client = &http.Client{Timeout: DefaultHTTPTimeout}
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
	return o
}

// Decompress runs the configured decompressor over src into a buffer
// of exactly uncompressedSize bytes. what names the payload for
// errors. A missing decompressor is ErrConfiguration; a wrong output
// size is an *IntegrityError.
func (o Options) Decompress(what string, src []byte, uncompressedSize int) ([]byte, error) {
	if o.Decompressor == nil {
		return nil, fmt.Errorf("%s is compressed and no decompressor is configured: %w", what, ErrConfiguration)
	}
	if uncompressedSize < 0 {
		return nil, fmt.Errorf("%w: %s declares negative uncompressed size %d", ErrMalformed, what, uncompressedSize)
	}
	dst := make([]byte, uncompressedSize)
	n, err := o.Decompressor(o.DecompressorState, dst, src)
	if errors.Is(err, io.ErrShortBuffer) {
		return nil, &IntegrityError{
			What:     what + " uncompressed size",
			Expected: strconv.Itoa(uncompressedSize),
			Actual:   "more than " + strconv.Itoa(uncompressedSize),
		}
	}
	if err != nil {
		return nil, fmt.Errorf("%w: decompressing %s: %w", ErrMalformed, what, err)
	}
	if n != uncompressedSize {
		return nil, &IntegrityError{
			What:     what + " uncompressed size",
			Expected: strconv.Itoa(uncompressedSize),
			Actual:   strconv.Itoa(n),
		}
	}
	return dst, nil
}
