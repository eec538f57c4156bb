// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package manifesttest

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/klauspost/compress/zlib"

	"github.com/bureau-foundation/buildpatch/lib/manifest"
)

// ChunkMagic opens every chunk container blob.
const ChunkMagic uint32 = 0xB1FE3AA2

// File describes one file of a synthetic build.
type File struct {
	Name    string
	Content []byte

	SymlinkTarget string
	Flags         manifest.FileMetaFlags
	InstallTags   []string
	MimeType      string
}

// Build describes a synthetic build.
type Build struct {
	// FeatureLevel defaults to FeatureLevelUsesBuildTimeGeneratedBuildID.
	FeatureLevel manifest.FeatureLevel

	AppID        uint32
	AppName      string
	BuildVersion string
	LaunchExe    string
	BuildID      string
	PrereqIDs    []string
	CustomFields []manifest.CustomField

	Files []File

	// ChunkSize is the window size. Defaults to 64 bytes so that
	// small test files span several chunks.
	ChunkSize int

	// StoreChunksRaw writes chunk blobs uncompressed.
	StoreChunksRaw bool

	// ChunkHeaderVersion selects the chunk container header layout
	// (1, 2 or 3). Defaults to 3.
	ChunkHeaderVersion uint32

	// SectionPadding appends that many unknown bytes to every binary
	// sub-section.
	SectionPadding int

	// FileListTail writes file directory version 2 with the per-file
	// tail (unknown records, mime type, trailer).
	FileListTail bool

	// OmitChunkFilesizes drops ChunkFilesizeList from the JSON form.
	OmitChunkFilesizes bool
}

// Chunk is one generated chunk.
type Chunk struct {
	Info *manifest.ChunkInfo

	// Window is the uncompressed chunk data.
	Window []byte

	// Blob is the downloadable container: header plus payload.
	Blob []byte
}

// Fixture is a rendered synthetic build.
type Fixture struct {
	Build  Build
	Chunks []*Chunk
	Parts  map[string][]manifest.ChunkPart

	byFilename map[string]*Chunk
}

// New chunks the build's files and renders every chunk blob.
func New(build Build) *Fixture {
	if build.FeatureLevel == 0 {
		build.FeatureLevel = manifest.FeatureLevelUsesBuildTimeGeneratedBuildID
	}
	if build.ChunkSize <= 0 {
		build.ChunkSize = 64
	}
	if build.ChunkHeaderVersion == 0 {
		build.ChunkHeaderVersion = 3
	}

	var stream []byte
	for _, file := range build.Files {
		stream = append(stream, file.Content...)
	}

	f := &Fixture{
		Build:      build,
		Parts:      make(map[string][]manifest.ChunkPart),
		byFilename: make(map[string]*Chunk),
	}
	for start := 0; start < len(stream); start += build.ChunkSize {
		window := stream[start:min(start+build.ChunkSize, len(stream))]
		f.addChunk(bytes.Clone(window), len(f.Chunks))
	}

	offset := 0
	for _, file := range build.Files {
		remaining := len(file.Content)
		parts := []manifest.ChunkPart{}
		for remaining > 0 {
			chunk := f.Chunks[offset/build.ChunkSize]
			within := offset % build.ChunkSize
			size := min(remaining, len(chunk.Window)-within)
			parts = append(parts, manifest.ChunkPart{
				GUID:   chunk.Info.GUID,
				Offset: uint32(within),
				Size:   uint32(size),
			})
			offset += size
			remaining -= size
		}
		f.Parts[file.Name] = parts
	}
	return f
}

func (f *Fixture) addChunk(window []byte, index int) {
	sha := manifest.ComputeSHA1(window)
	info := &manifest.ChunkInfo{
		GUID:        manifest.RandomGUID(),
		Hash:        binary.LittleEndian.Uint64(sha[:8]),
		SHA:         sha,
		GroupNumber: uint8(index % 100),
		WindowSize:  uint32(len(window)),
	}
	chunk := &Chunk{Info: info, Window: window}
	chunk.Blob = f.chunkBlob(info, window)
	info.FileSize = int64(len(chunk.Blob))

	f.Chunks = append(f.Chunks, chunk)
	f.byFilename[info.Filename()] = chunk
}

// chunkBlob renders a chunk container with the configured header
// version.
func (f *Fixture) chunkBlob(info *manifest.ChunkInfo, window []byte) []byte {
	payload := window
	storedAs := manifest.StorageNone
	if !f.Build.StoreChunksRaw {
		payload = Compress(window)
		storedAs = manifest.StorageCompressed
	}
	return ChunkBlob(f.Build.ChunkHeaderVersion, info, storedAs, payload, len(window))
}

// ChunkBlob renders a chunk container header of the given version
// followed by payload.
func ChunkBlob(version uint32, info *manifest.ChunkInfo, storedAs manifest.StorageFlags, payload []byte, uncompressedSize int) []byte {
	headerSize := map[uint32]int32{1: 41, 2: 62, 3: 66}[version]
	w := &writer{}
	w.uint32(ChunkMagic)
	w.uint32(version)
	w.int32(headerSize)
	w.int32(int32(len(payload)))
	guid := info.GUID.Bytes()
	w.bytes(guid[:])
	w.uint64(info.Hash)
	w.uint8(uint8(storedAs))
	if version >= 2 {
		w.bytes(info.SHA[:])
		w.uint8(1)
	}
	if version >= 3 {
		w.int32(int32(uncompressedSize))
	}
	w.bytes(payload)
	return w.buffer
}

// Compress zlib-compresses data.
func Compress(data []byte) []byte {
	var buffer bytes.Buffer
	zw := zlib.NewWriter(&buffer)
	zw.Write(data)
	zw.Close()
	return buffer.Bytes()
}

// Content returns the concatenated expected bytes of the named file.
func (f *Fixture) Content(name string) []byte {
	for _, file := range f.Build.Files {
		if file.Name == name {
			return file.Content
		}
	}
	return nil
}

// ChunkByFilename returns the chunk whose CDN object name is name.
func (f *Fixture) ChunkByFilename(name string) (*Chunk, bool) {
	chunk, ok := f.byFilename[name]
	return chunk, ok
}

// Binary renders the build as a binary manifest.
func (f *Fixture) Binary(compressed bool) []byte {
	payload := f.binaryPayload()

	stored := payload
	storedAs := manifest.StorageNone
	if compressed {
		stored = Compress(payload)
		storedAs = manifest.StorageCompressed
	}
	sha := manifest.ComputeSHA1(payload)

	w := &writer{}
	w.uint32(manifest.HeaderMagic)
	w.int32(41)
	w.int32(int32(len(payload)))
	w.int32(int32(len(stored)))
	w.bytes(sha[:])
	w.uint8(uint8(storedAs))
	w.int32(int32(f.Build.FeatureLevel))
	w.bytes(stored)
	return w.buffer
}

func (f *Fixture) binaryPayload() []byte {
	build := f.Build
	w := &writer{}

	w.section(1, build.SectionPadding, func() {
		w.int32(int32(build.FeatureLevel))
		w.uint8(0)
		w.uint32(build.AppID)
		w.fstring(build.AppName)
		w.fstring(build.BuildVersion)
		w.fstring(build.LaunchExe)
		w.fstring("")
		w.fstrings(build.PrereqIDs)
		w.fstring("")
		w.fstring("")
		w.fstring("")
		w.fstring(build.BuildID)
		if build.FeatureLevel > manifest.FeatureLevelUsesBuildTimeGeneratedBuildID {
			w.fstring("uninstall.exe")
			w.fstring("-silent")
		}
	})

	w.section(0, build.SectionPadding, func() {
		w.int32(int32(len(f.Chunks)))
		for _, chunk := range f.Chunks {
			guid := chunk.Info.GUID.Bytes()
			w.bytes(guid[:])
		}
		for _, chunk := range f.Chunks {
			w.uint64(chunk.Info.Hash)
		}
		for _, chunk := range f.Chunks {
			w.bytes(chunk.Info.SHA[:])
		}
		for _, chunk := range f.Chunks {
			w.uint8(chunk.Info.GroupNumber)
		}
		for _, chunk := range f.Chunks {
			w.uint32(chunk.Info.WindowSize)
		}
		for _, chunk := range f.Chunks {
			w.int64(chunk.Info.FileSize)
		}
	})

	fileListVersion := uint8(0)
	if build.FileListTail {
		fileListVersion = 2
	}
	w.section(fileListVersion, build.SectionPadding, func() {
		w.int32(int32(len(build.Files)))
		for _, file := range build.Files {
			w.fstring(file.Name)
		}
		for _, file := range build.Files {
			w.fstring(file.SymlinkTarget)
		}
		for _, file := range build.Files {
			sha := manifest.ComputeSHA1(file.Content)
			w.bytes(sha[:])
		}
		for _, file := range build.Files {
			w.uint8(uint8(file.Flags))
		}
		for _, file := range build.Files {
			w.fstrings(file.InstallTags)
		}
		for _, file := range build.Files {
			parts := f.Parts[file.Name]
			w.int32(int32(len(parts)))
			for _, part := range parts {
				w.int32(28)
				guid := part.GUID.Bytes()
				w.bytes(guid[:])
				w.uint32(part.Offset)
				w.uint32(part.Size)
			}
		}
		if build.FileListTail {
			for range build.Files {
				w.int32(1)
				w.bytes(make([]byte, 16))
			}
			for _, file := range build.Files {
				w.fstring(file.MimeType)
			}
			for range build.Files {
				w.bytes(make([]byte, 32))
			}
		}
	})

	w.section(0, build.SectionPadding, func() {
		w.int32(int32(len(build.CustomFields)))
		for _, field := range build.CustomFields {
			w.fstring(field.Name)
		}
		for _, field := range build.CustomFields {
			w.fstring(field.Value)
		}
	})

	return w.buffer
}

// JSON renders the build as a JSON manifest.
func (f *Fixture) JSON() []byte {
	build := f.Build
	document := map[string]any{
		"ManifestFileVersion": manifest.EncodeBlobUint32(uint32(build.FeatureLevel)),
		"bIsFileData":         false,
		"AppID":               manifest.EncodeBlobUint32(build.AppID),
		"AppNameString":       build.AppName,
		"BuildVersionString":  build.BuildVersion,
		"LaunchExeString":     build.LaunchExe,
		"LaunchCommand":       "",
		"PrereqIds":           build.PrereqIDs,
		"PrereqName":          "",
		"PrereqPath":          "",
		"PrereqArgs":          "",
	}

	var files []map[string]any
	for _, file := range build.Files {
		var parts []map[string]any
		for _, part := range f.Parts[file.Name] {
			parts = append(parts, map[string]any{
				"Guid":   part.GUID.String(),
				"Offset": manifest.EncodeBlobUint32(part.Offset),
				"Size":   manifest.EncodeBlobUint32(part.Size),
			})
		}
		entry := map[string]any{
			"Filename":       file.Name,
			"FileHash":       manifest.EncodeBlobSHA1(manifest.ComputeSHA1(file.Content)),
			"FileChunkParts": parts,
		}
		if len(file.InstallTags) > 0 {
			entry["InstallTags"] = file.InstallTags
		}
		if file.SymlinkTarget != "" {
			entry["SymlinkTarget"] = file.SymlinkTarget
		}
		if file.Flags&manifest.FileUnixExecutable != 0 {
			entry["bIsUnixExecutable"] = true
		}
		if file.Flags&manifest.FileReadOnly != 0 {
			entry["bIsReadOnly"] = true
		}
		if file.Flags&manifest.FileCompressed != 0 {
			entry["bIsCompressed"] = true
		}
		files = append(files, entry)
	}
	document["FileManifestList"] = files

	hashes := map[string]string{}
	shas := map[string]string{}
	groups := map[string]string{}
	sizes := map[string]string{}
	for _, chunk := range f.Chunks {
		key := chunk.Info.GUID.String()
		hashes[key] = manifest.EncodeBlobUint64(chunk.Info.Hash)
		shas[key] = chunk.Info.SHA.String()
		groups[key] = manifest.EncodeBlobUint8(chunk.Info.GroupNumber)
		sizes[key] = manifest.EncodeBlobUint64(uint64(chunk.Info.FileSize))
	}
	document["ChunkHashList"] = hashes
	document["ChunkShaList"] = shas
	document["DataGroupList"] = groups
	if !build.OmitChunkFilesizes {
		document["ChunkFilesizeList"] = sizes
	}

	custom := map[string]string{}
	for _, field := range build.CustomFields {
		custom[field.Name] = field.Value
	}
	document["CustomFields"] = custom

	data, err := json.MarshalIndent(document, "", "\t")
	if err != nil {
		panic(fmt.Sprintf("marshaling fixture manifest: %v", err))
	}
	return data
}
