// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package manifest_test

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bureau-foundation/buildpatch/lib/manifest"
	"github.com/bureau-foundation/buildpatch/lib/manifesttest"
)

func sampleBuild() manifesttest.Build {
	return manifesttest.Build{
		AppID:        7,
		AppName:      "Sample",
		BuildVersion: "++Sample+Release-1.4-CL-900-Windows",
		LaunchExe:    "Bin/Sample.exe",
		BuildID:      "build-id-123",
		PrereqIDs:    []string{"vcredist"},
		CustomFields: []manifest.CustomField{
			{Name: "BaseUrl", Value: "https://cdn.example/"},
			{Name: "Channel", Value: "live"},
		},
		Files: []manifesttest.File{
			{Name: "Content/Paks/data.pak", Content: bytes.Repeat([]byte("pakdata-"), 40), InstallTags: []string{"core"}},
			{Name: "Bin/Sample.exe", Content: []byte("MZ executable bytes"), Flags: manifest.FileUnixExecutable},
			{Name: "README.txt", Content: []byte("read me"), Flags: manifest.FileReadOnly},
			{Name: "Empty.marker", Content: nil},
			{Name: "Bin/Überkonfig.ini", Content: []byte("[section]\nkey=value\n")},
		},
	}
}

func checkInvariants(t *testing.T, m *manifest.Manifest) {
	t.Helper()

	seen := make(map[manifest.GUID]bool)
	for _, chunk := range m.Chunks {
		if seen[chunk.GUID] {
			t.Errorf("chunk %s appears twice in the chunk directory", chunk.GUID)
		}
		seen[chunk.GUID] = true
		if byGUID, ok := m.ChunkByGUID(chunk.GUID); !ok || byGUID != chunk {
			t.Errorf("ChunkByGUID(%s) does not return the listed record", chunk.GUID)
		}
		if chunk.FileSize == 0 {
			t.Errorf("chunk %s has zero file size", chunk.GUID)
		}
	}

	for i, file := range m.Files {
		if i > 0 && m.Files[i-1].Name >= file.Name {
			t.Errorf("files not sorted: %q before %q", m.Files[i-1].Name, file.Name)
		}
		var sum int64
		for _, part := range file.ChunkParts {
			sum += int64(part.Size)
			if _, ok := m.ChunkByGUID(part.GUID); !ok {
				t.Errorf("file %q references unknown chunk %s", file.Name, part.GUID)
			}
		}
		if file.Size() != sum {
			t.Errorf("file %q size %d, sum of parts %d", file.Name, file.Size(), sum)
		}
		if file.Manifest() != m {
			t.Errorf("file %q back-reference is wrong", file.Name)
		}
	}

	var buildSize, downloadSize int64
	for _, file := range m.Files {
		buildSize += file.Size()
	}
	for _, chunk := range m.Chunks {
		downloadSize += chunk.FileSize
	}
	if m.TotalBuildSize() != buildSize || m.TotalDownloadSize() != downloadSize {
		t.Errorf("totals = %d/%d, want %d/%d", m.TotalBuildSize(), m.TotalDownloadSize(), buildSize, downloadSize)
	}
}

func TestDeserializeCompressedBinary(t *testing.T) {
	fixture := manifesttest.New(sampleBuild())
	data := fixture.Binary(true)

	if binary.LittleEndian.Uint32(data) != manifest.HeaderMagic {
		t.Fatal("fixture does not start with the manifest magic")
	}
	m, err := manifest.Deserialize(data, manifest.DefaultOptions())
	if err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	checkInvariants(t, m)

	if len(m.Files) != 5 || len(m.Chunks) != len(fixture.Chunks) {
		t.Fatalf("files/chunks = %d/%d, want 5/%d", len(m.Files), len(m.Chunks), len(fixture.Chunks))
	}
	if m.Meta.AppName != "Sample" || m.Meta.AppID != 7 || m.Meta.BuildID != "build-id-123" {
		t.Errorf("meta = %+v", m.Meta)
	}
	if m.Meta.FeatureLevel != manifest.FeatureLevelUsesBuildTimeGeneratedBuildID {
		t.Errorf("FeatureLevel = %s", m.Meta.FeatureLevel)
	}
	if len(m.Meta.PrereqIDs) != 1 || m.Meta.PrereqIDs[0] != "vcredist" {
		t.Errorf("PrereqIDs = %q", m.Meta.PrereqIDs)
	}
	if value, ok := m.CustomField("Channel"); !ok || value != "live" {
		t.Errorf("CustomField(Channel) = %q, %v", value, ok)
	}

	exe, ok := m.FileByName("Bin/Sample.exe")
	if !ok {
		t.Fatal("FileByName(Bin/Sample.exe) not found")
	}
	if !exe.IsExecutable() || exe.IsReadOnly() {
		t.Errorf("exe flags = %s", exe.Flags)
	}
	if exe.Hash != manifest.ComputeSHA1([]byte("MZ executable bytes")) {
		t.Error("exe hash does not match its content")
	}
	if _, ok := m.FileByName("bin/sample.exe"); ok {
		t.Error("FileByName matched with different case")
	}
	if unicode, ok := m.FileByName("Bin/Überkonfig.ini"); !ok || unicode.Size() != 20 {
		t.Errorf("UTF-16 file name lookup = %v, %v", unicode, ok)
	}
}

func TestDeserializeRawBinaryWithoutDecompressor(t *testing.T) {
	fixture := manifesttest.New(sampleBuild())
	m, err := manifest.Deserialize(fixture.Binary(false), manifest.Options{})
	if err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	checkInvariants(t, m)
}

func TestDeserializeCompressedWithoutDecompressor(t *testing.T) {
	fixture := manifesttest.New(sampleBuild())
	_, err := manifest.Deserialize(fixture.Binary(true), manifest.Options{})
	if !errors.Is(err, manifest.ErrConfiguration) {
		t.Fatalf("Deserialize = %v, want ErrConfiguration", err)
	}
}

// shape reduces a manifest to the fields both encodings carry.
type shape struct {
	files  map[string]string
	chunks map[manifest.GUID]string
}

func shapeOf(m *manifest.Manifest) shape {
	s := shape{files: map[string]string{}, chunks: map[manifest.GUID]string{}}
	for _, file := range m.Files {
		s.files[file.Name] = fmt.Sprintf("%s %s %v %v", file.Hash, file.Flags, file.InstallTags, file.ChunkParts)
	}
	for _, chunk := range m.Chunks {
		s.chunks[chunk.GUID] = fmt.Sprintf("%s %s %d %d", chunk.SHA, chunk.Filename(), chunk.GroupNumber, chunk.FileSize)
	}
	return s
}

func TestJSONAndBinaryAgree(t *testing.T) {
	fixture := manifesttest.New(sampleBuild())

	fromBinary, err := manifest.Deserialize(fixture.Binary(true), manifest.DefaultOptions())
	if err != nil {
		t.Fatalf("binary: %v", err)
	}
	fromJSON, err := manifest.Deserialize(fixture.JSON(), manifest.DefaultOptions())
	if err != nil {
		t.Fatalf("JSON: %v", err)
	}
	checkInvariants(t, fromJSON)

	binaryShape, jsonShape := shapeOf(fromBinary), shapeOf(fromJSON)
	if len(binaryShape.files) != len(jsonShape.files) {
		t.Fatalf("file counts differ: %d vs %d", len(binaryShape.files), len(jsonShape.files))
	}
	for name, want := range binaryShape.files {
		if jsonShape.files[name] != want {
			t.Errorf("file %q differs between encodings", name)
		}
	}
	if len(binaryShape.chunks) != len(jsonShape.chunks) {
		t.Fatalf("chunk counts differ: %d vs %d", len(binaryShape.chunks), len(jsonShape.chunks))
	}
	for guid, want := range binaryShape.chunks {
		if jsonShape.chunks[guid] != want {
			t.Errorf("chunk %s differs between encodings", guid)
		}
	}
	if fromJSON.Meta.AppID != 7 || fromJSON.Meta.AppName != "Sample" || fromJSON.Meta.IsFileData {
		t.Errorf("JSON meta = %+v", fromJSON.Meta)
	}
	if fromJSON.Meta.BuildID != "" {
		t.Errorf("JSON BuildID = %q, want empty", fromJSON.Meta.BuildID)
	}
	if fromBinary.TotalBuildSize() != fromJSON.TotalBuildSize() {
		t.Errorf("TotalBuildSize differs: %d vs %d", fromBinary.TotalBuildSize(), fromJSON.TotalBuildSize())
	}
}

func TestJSONWithoutChunkFilesizesUsesLegacySize(t *testing.T) {
	build := sampleBuild()
	build.OmitChunkFilesizes = true
	m, err := manifest.DeserializeJSON(manifesttest.New(build).JSON(), manifest.Options{})
	if err != nil {
		t.Fatalf("DeserializeJSON: %v", err)
	}
	for _, chunk := range m.Chunks {
		if chunk.FileSize != manifest.LegacyChunkSize {
			t.Errorf("chunk %s FileSize = %d, want %d", chunk.GUID, chunk.FileSize, manifest.LegacyChunkSize)
		}
	}
	if m.TotalDownloadSize() != int64(len(m.Chunks))*manifest.LegacyChunkSize {
		t.Errorf("TotalDownloadSize = %d", m.TotalDownloadSize())
	}
}

func TestJSONDefaultsAndBrokenVersion(t *testing.T) {
	tests := []struct {
		name     string
		document string
		level    manifest.FeatureLevel
		fileData bool
	}{
		{
			name:     "absent version defaults to CustomFields",
			document: `{"FileManifestList": []}`,
			level:    manifest.FeatureLevelCustomFields,
			fileData: true,
		},
		{
			name:     "broken version 255 is remapped",
			document: `{"ManifestFileVersion": "255000000000", "ChunkHashList": {}, "FileManifestList": []}`,
			level:    manifest.FeatureLevelStoresChunkFileSizes,
			fileData: false,
		},
		{
			name:     "explicit bIsFileData wins",
			document: "\uFEFF" + `{"ManifestFileVersion": "013000000000", "bIsFileData": true, "ChunkHashList": {}, "FileManifestList": []}`,
			level:    manifest.FeatureLevelStoresPrerequisiteIDs,
			fileData: true,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			data := []byte(test.document)
			if !manifest.IsJSON(data) {
				t.Fatal("IsJSON = false")
			}
			m, err := manifest.Deserialize(data, manifest.Options{})
			if err != nil {
				t.Fatalf("Deserialize: %v", err)
			}
			if m.Meta.FeatureLevel != test.level {
				t.Errorf("FeatureLevel = %s, want %s", m.Meta.FeatureLevel, test.level)
			}
			if m.Meta.IsFileData != test.fileData {
				t.Errorf("IsFileData = %v, want %v", m.Meta.IsFileData, test.fileData)
			}
		})
	}
}

func TestJSONMalformed(t *testing.T) {
	for _, document := range []string{
		`{"FileManifestList": [{"Filename": "a", "FileChunkParts": [{"Guid": "nothex", "Offset": "", "Size": ""}]}]}`,
		`{"FileManifestList": [{"Filename": "a", "FileHash": "12"}]}`,
		`{"AppID": "1", "FileManifestList": []}`,
		`{"ManifestFileVersion": "018000000000"}`,
		`{ not json`,
	} {
		if _, err := manifest.DeserializeJSON([]byte(document), manifest.Options{}); !errors.Is(err, manifest.ErrMalformed) {
			t.Errorf("DeserializeJSON(%s) = %v, want ErrMalformed", document, err)
		}
	}
}

func TestIsJSONDetection(t *testing.T) {
	tests := []struct {
		data []byte
		want bool
	}{
		{[]byte("{}"), true},
		{[]byte("\xEF\xBB\xBF{"), true},
		{[]byte("   {"), true},
		{[]byte("    {"), false},
		{[]byte{0x0C, 0xC0, 0xBE, 0x44, '{'}, false},
		{nil, false},
	}
	for _, test := range tests {
		if got := manifest.IsJSON(test.data); got != test.want {
			t.Errorf("IsJSON(%q) = %v, want %v", test.data, got, test.want)
		}
	}
}

func TestBinaryForwardCompatibility(t *testing.T) {
	build := sampleBuild()
	build.SectionPadding = 13
	build.FileListTail = true
	build.FeatureLevel = manifest.FeatureLevelUnknown2
	build.Files[0].MimeType = "application/octet-stream"

	m, err := manifest.Deserialize(manifesttest.New(build).Binary(true), manifest.DefaultOptions())
	if err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	checkInvariants(t, m)

	pak, ok := m.FileByName("Content/Paks/data.pak")
	if !ok || pak.MimeType != "application/octet-stream" {
		t.Errorf("mime type from file list tail = %+v", pak)
	}
	if m.Meta.UninstallExe != "uninstall.exe" || m.Meta.UninstallCommand != "-silent" {
		t.Errorf("uninstall fields = %q %q", m.Meta.UninstallExe, m.Meta.UninstallCommand)
	}
	if value, ok := m.CustomField("BaseUrl"); !ok || value != "https://cdn.example/" {
		t.Errorf("custom field after padded sections = %q, %v", value, ok)
	}
}

func TestBinaryUnsupported(t *testing.T) {
	t.Run("old feature level", func(t *testing.T) {
		build := sampleBuild()
		build.FeatureLevel = manifest.FeatureLevelStoresPrerequisiteIDs
		_, err := manifest.Deserialize(manifesttest.New(build).Binary(false), manifest.Options{})
		if !errors.Is(err, manifest.ErrUnsupported) {
			t.Fatalf("Deserialize = %v, want ErrUnsupported", err)
		}
	})
	t.Run("encrypted", func(t *testing.T) {
		data := manifesttest.New(sampleBuild()).Binary(false)
		data[36] = byte(manifest.StorageEncrypted)
		_, err := manifest.Deserialize(data, manifest.DefaultOptions())
		if !errors.Is(err, manifest.ErrUnsupported) {
			t.Fatalf("Deserialize = %v, want ErrUnsupported", err)
		}
	})
}

func TestBinaryPayloadHashMismatch(t *testing.T) {
	data := manifesttest.New(sampleBuild()).Binary(false)
	data[len(data)-1] ^= 0x01

	_, err := manifest.Deserialize(data, manifest.Options{})
	var integrity *manifest.IntegrityError
	if !errors.As(err, &integrity) {
		t.Fatalf("Deserialize = %v, want *IntegrityError", err)
	}
	if !errors.Is(err, manifest.ErrIntegrity) {
		t.Error("IntegrityError does not match ErrIntegrity")
	}
	if integrity.Expected == integrity.Actual || integrity.Expected == "" {
		t.Errorf("integrity detail = %+v", integrity)
	}
}

func TestBinaryTruncatedPayload(t *testing.T) {
	data := manifesttest.New(sampleBuild()).Binary(false)
	_, err := manifest.Deserialize(data[:len(data)-10], manifest.Options{})
	if !errors.Is(err, manifest.ErrMalformed) {
		t.Fatalf("Deserialize = %v, want ErrMalformed", err)
	}
}

func TestChunkURL(t *testing.T) {
	fixture := manifesttest.New(sampleBuild())
	options := manifest.DefaultOptions()
	options.ChunkBaseURL = "https://cdn.example/Builds/Org/app/"
	m, err := manifest.Deserialize(fixture.Binary(true), options)
	if err != nil {
		t.Fatalf("Deserialize: %v", err)
	}

	chunk := m.Chunks[3]
	want := "https://cdn.example/Builds/Org/app/ChunksV4/03/" + chunk.Filename()
	if got := m.ChunkURL(chunk); got != want {
		t.Errorf("ChunkURL = %s, want %s", got, want)
	}
	if !strings.HasPrefix(chunk.Filename(), strings.ToUpper(chunk.Filename()[:16])) || len(chunk.Filename()) != 16+1+32+6 {
		t.Errorf("Filename = %s", chunk.Filename())
	}
}

func TestCachePathIsWriteOnce(t *testing.T) {
	chunk := &manifest.ChunkInfo{}
	if chunk.CachePath(manifest.CacheDecompressed) != "" {
		t.Fatal("fresh chunk has a cache path")
	}
	if !chunk.SetCachePath(manifest.CacheDecompressed, "/cache/a") {
		t.Fatal("first SetCachePath did not take effect")
	}
	if chunk.SetCachePath(manifest.CacheDecompressed, "/cache/b") {
		t.Error("second SetCachePath took effect")
	}
	if got := chunk.CachePath(manifest.CacheDecompressed); got != "/cache/a" {
		t.Errorf("CachePath = %s", got)
	}
	if chunk.CachePath(manifest.CacheAsIs) != "" {
		t.Error("cache modes share the memo")
	}
}

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "build.manifest")
	if err := os.WriteFile(path, manifesttest.New(sampleBuild()).Binary(true), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := manifest.ReadFile(path, manifest.DefaultOptions()); err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if _, err := manifest.ReadFile(filepath.Join(t.TempDir(), "missing"), manifest.Options{}); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("ReadFile(missing) = %v, want os.ErrNotExist", err)
	}
}
