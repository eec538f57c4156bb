// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package filestream_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/bureau-foundation/buildpatch/lib/chunkstore"
	"github.com/bureau-foundation/buildpatch/lib/filestream"
	"github.com/bureau-foundation/buildpatch/lib/manifest"
	"github.com/bureau-foundation/buildpatch/lib/manifesttest"
)

func patternedContent(size int, seed byte) []byte {
	content := make([]byte, size)
	for i := range content {
		content[i] = seed + byte(i*7) + byte(i>>8)
	}
	return content
}

func testBuild() manifesttest.Build {
	return manifesttest.Build{
		AppName: "StreamTest",
		Files: []manifesttest.File{
			{Name: "Game/first.pak", Content: patternedContent(180, 1)},
			{Name: "Game/second.pak", Content: patternedContent(1000, 90)},
			{Name: "Game/empty.txt"},
			{Name: "Game/tail.bin", Content: patternedContent(7, 200)},
		},
	}
}

type harness struct {
	fixture  *manifesttest.Fixture
	server   *manifesttest.Server
	manifest *manifest.Manifest
	store    *chunkstore.Store
}

func newHarness(t *testing.T, build manifesttest.Build, configure func(*manifest.Options)) *harness {
	t.Helper()
	fixture := manifesttest.New(build)
	server := manifesttest.NewServer(t, fixture)

	options := manifest.DefaultOptions()
	options.ChunkBaseURL = server.BaseURL()
	options.ChunkCacheDirectory = t.TempDir()
	if configure != nil {
		configure(&options)
	}
	m, err := manifest.Deserialize(fixture.Binary(true), options)
	if err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	store, err := chunkstore.New(m, chunkstore.Options{})
	if err != nil {
		t.Fatalf("chunkstore.New: %v", err)
	}
	return &harness{fixture: fixture, server: server, manifest: m, store: store}
}

func (h *harness) open(t *testing.T, name string) *filestream.Stream {
	t.Helper()
	file, ok := h.manifest.FileByName(name)
	if !ok {
		t.Fatalf("manifest has no file %q", name)
	}
	stream, err := filestream.Open(h.store, file)
	if err != nil {
		t.Fatalf("Open(%s): %v", name, err)
	}
	return stream
}

func TestReconstructedFilesMatchFileHash(t *testing.T) {
	for _, mode := range []manifest.CacheMode{manifest.CacheDecompressed, manifest.CacheAsIs} {
		t.Run(mode.String(), func(t *testing.T) {
			h := newHarness(t, testBuild(), nil)
			for _, file := range h.manifest.Files {
				stream, err := filestream.OpenMode(h.store, file, mode)
				if err != nil {
					t.Fatalf("OpenMode: %v", err)
				}
				if stream.Len() != file.Size() {
					t.Errorf("%s: Len = %d, want %d", file.Name, stream.Len(), file.Size())
				}
				content, err := stream.Bytes(context.Background(), filestream.SaveOptions{MaxConcurrency: 3})
				if err != nil {
					t.Fatalf("%s: Bytes: %v", file.Name, err)
				}
				if manifest.ComputeSHA1(content) != file.Hash {
					t.Errorf("%s: SHA1 of reconstructed bytes does not match FileHash", file.Name)
				}
				if !bytes.Equal(content, h.fixture.Content(file.Name)) {
					t.Errorf("%s: content differs", file.Name)
				}
			}
		})
	}
}

func TestWarmReadIsFasterAndIdentical(t *testing.T) {
	h := newHarness(t, testBuild(), nil)
	h.server.SetDelay(100 * time.Millisecond)
	stream := h.open(t, "Game/first.pak")

	cold := make([]byte, 40)
	start := time.Now()
	if _, err := stream.ReadAt(cold, 10); err != nil {
		t.Fatalf("cold ReadAt: %v", err)
	}
	coldDuration := time.Since(start)

	warm := make([]byte, 40)
	start = time.Now()
	if _, err := stream.ReadAt(warm, 10); err != nil {
		t.Fatalf("warm ReadAt: %v", err)
	}
	warmDuration := time.Since(start)

	if !bytes.Equal(cold, warm) || !bytes.Equal(cold, h.fixture.Content("Game/first.pak")[10:50]) {
		t.Fatal("cold and warm reads differ")
	}
	if warmDuration >= coldDuration {
		t.Errorf("warm read took %v, cold read %v", warmDuration, coldDuration)
	}
}

func TestReadAcrossChunkBoundary(t *testing.T) {
	h := newHarness(t, testBuild(), nil)
	stream := h.open(t, "Game/first.pak")
	content := h.fixture.Content("Game/first.pak")

	// The default fixture chunk size is 64 bytes, so [60, 68) takes
	// four bytes from each of the first two chunks.
	got := make([]byte, 8)
	n, err := stream.ReadAt(got, 60)
	if err != nil || n != 8 {
		t.Fatalf("ReadAt = %d, %v", n, err)
	}
	if !bytes.Equal(got, content[60:68]) {
		t.Errorf("stitched bytes = %x, want %x", got, content[60:68])
	}
	if h.server.TotalRequests() != 2 {
		t.Errorf("boundary read made %d requests, want 2", h.server.TotalRequests())
	}
	first, second := h.manifest.Chunks[0], h.manifest.Chunks[1]
	if h.server.Requests(first.Filename()) != 1 || h.server.Requests(second.Filename()) != 1 {
		t.Error("boundary read did not fetch the two adjacent chunks")
	}
}

func TestFileStartingMidChunk(t *testing.T) {
	h := newHarness(t, testBuild(), nil)
	stream := h.open(t, "Game/second.pak")
	content := h.fixture.Content("Game/second.pak")

	for _, offset := range []int64{0, 1, 11, 12, 75, 500, 999} {
		got := make([]byte, min(33, int(stream.Len()-offset)))
		if _, err := stream.ReadAt(got, offset); err != nil {
			t.Fatalf("ReadAt(%d): %v", offset, err)
		}
		if !bytes.Equal(got, content[offset:offset+int64(len(got))]) {
			t.Errorf("ReadAt(%d) differs", offset)
		}
	}
}

func TestReadAtEnd(t *testing.T) {
	h := newHarness(t, testBuild(), nil)
	stream := h.open(t, "Game/tail.bin")

	buffer := make([]byte, 8)
	n, err := stream.ReadAt(buffer, stream.Len()-3)
	if n != 3 || !errors.Is(err, io.EOF) {
		t.Errorf("ReadAt near end = %d, %v; want 3, io.EOF", n, err)
	}
	if !bytes.Equal(buffer[:3], h.fixture.Content("Game/tail.bin")[4:]) {
		t.Errorf("tail bytes = %x", buffer[:3])
	}
	if n, err := stream.ReadAt(buffer, stream.Len()); n != 0 || !errors.Is(err, io.EOF) {
		t.Errorf("ReadAt at end = %d, %v", n, err)
	}
	if _, err := stream.ReadAt(buffer, -1); err == nil {
		t.Error("ReadAt with negative offset succeeded")
	}
}

func TestSequentialReadAndSeek(t *testing.T) {
	h := newHarness(t, testBuild(), nil)
	stream := h.open(t, "Game/second.pak")
	content := h.fixture.Content("Game/second.pak")

	all, err := io.ReadAll(io.LimitReader(stream, stream.Len()+10))
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if !bytes.Equal(all, content) {
		t.Fatal("sequential read differs")
	}
	if stream.Position() != stream.Len() {
		t.Errorf("Position after ReadAll = %d", stream.Position())
	}

	position, err := stream.Seek(-10, io.SeekEnd)
	if err != nil || position != stream.Len()-10 {
		t.Fatalf("Seek(-10, End) = %d, %v", position, err)
	}
	position, err = stream.Seek(4, io.SeekCurrent)
	if err != nil || position != stream.Len()-6 {
		t.Fatalf("Seek(4, Current) = %d, %v", position, err)
	}
	rest, err := io.ReadAll(stream)
	if err != nil || !bytes.Equal(rest, content[len(content)-6:]) {
		t.Errorf("read after seek = %x, %v", rest, err)
	}

	for _, bad := range []struct {
		offset int64
		whence int
	}{
		{-1, io.SeekStart},
		{stream.Len() + 1, io.SeekStart},
		{1, io.SeekEnd},
		{0, 42},
	} {
		if _, err := stream.Seek(bad.offset, bad.whence); err == nil {
			t.Errorf("Seek(%d, %d) succeeded", bad.offset, bad.whence)
		}
	}
	if err := stream.SetPosition(stream.Len() + 1); err == nil {
		t.Error("SetPosition past the end succeeded")
	}
	if err := stream.SetPosition(stream.Len()); err != nil {
		t.Errorf("SetPosition(Len) = %v", err)
	}
}

func TestWriteTo(t *testing.T) {
	h := newHarness(t, testBuild(), nil)
	stream := h.open(t, "Game/second.pak")
	if err := stream.SetPosition(100); err != nil {
		t.Fatal(err)
	}

	var buffer bytes.Buffer
	n, err := io.Copy(&buffer, stream)
	if err != nil {
		t.Fatalf("Copy: %v", err)
	}
	if n != stream.Len()-100 || !bytes.Equal(buffer.Bytes(), h.fixture.Content("Game/second.pak")[100:]) {
		t.Errorf("WriteTo copied %d bytes", n)
	}
}

func TestEmptyFile(t *testing.T) {
	h := newHarness(t, testBuild(), nil)
	stream := h.open(t, "Game/empty.txt")
	if stream.Len() != 0 {
		t.Fatalf("Len = %d", stream.Len())
	}
	content, err := stream.Bytes(context.Background(), filestream.SaveOptions{})
	if err != nil || len(content) != 0 {
		t.Errorf("Bytes = %d bytes, %v", len(content), err)
	}
	if n, err := stream.Read(make([]byte, 4)); n != 0 || !errors.Is(err, io.EOF) {
		t.Errorf("Read = %d, %v", n, err)
	}
	if h.server.TotalRequests() != 0 {
		t.Errorf("empty file made %d requests", h.server.TotalRequests())
	}
}

func TestStreamSurvivesTransportFailure(t *testing.T) {
	h := newHarness(t, testBuild(), nil)
	stream := h.open(t, "Game/first.pak")

	h.server.FailNext(1)
	buffer := make([]byte, 16)
	if _, err := stream.ReadAt(buffer, 0); !errors.Is(err, manifest.ErrTransport) {
		t.Fatalf("ReadAt = %v, want ErrTransport", err)
	}
	if _, err := stream.ReadAt(buffer, 0); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if !bytes.Equal(buffer, h.fixture.Content("Game/first.pak")[:16]) {
		t.Error("retry returned wrong bytes")
	}
}

func TestOpenErrors(t *testing.T) {
	h := newHarness(t, testBuild(), nil)
	file := h.manifest.Files[0]

	if _, err := filestream.Open(nil, file); !errors.Is(err, manifest.ErrConfiguration) {
		t.Errorf("Open(nil store) = %v, want ErrConfiguration", err)
	}
	if _, err := filestream.Open(h.store, nil); !errors.Is(err, manifest.ErrConfiguration) {
		t.Errorf("Open(nil file) = %v, want ErrConfiguration", err)
	}

	other := newHarness(t, testBuild(), nil)
	if _, err := filestream.Open(other.store, file); !errors.Is(err, manifest.ErrConfiguration) {
		t.Errorf("Open with another manifest's store = %v, want ErrConfiguration", err)
	}

	document := `{"FileManifestList": [{"Filename": "legacy.dat", "FileHash": "000000000000000000000000000000000000000000000000000000000000", "FileChunkParts": []}]}`
	legacy, err := manifest.DeserializeJSON([]byte(document), manifest.Options{ChunkBaseURL: h.server.BaseURL()})
	if err != nil {
		t.Fatalf("DeserializeJSON: %v", err)
	}
	if !legacy.Meta.IsFileData {
		t.Fatal("manifest without ChunkHashList is not file data")
	}
	store, err := chunkstore.New(legacy, chunkstore.Options{})
	if err != nil {
		t.Fatalf("chunkstore.New: %v", err)
	}
	if _, err := filestream.Open(store, legacy.Files[0]); !errors.Is(err, manifest.ErrUnsupported) {
		t.Errorf("Open(file data) = %v, want ErrUnsupported", err)
	}
}
