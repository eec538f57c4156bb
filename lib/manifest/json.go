// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// jsonManifest mirrors the JSON manifest document. Integers and
// hashes are blob strings; chunk-keyed maps use the 32-character GUID
// hex form as key.
type jsonManifest struct {
	ManifestFileVersion *string  `json:"ManifestFileVersion"`
	IsFileData          *bool    `json:"bIsFileData"`
	AppID               string   `json:"AppID"`
	AppNameString       string   `json:"AppNameString"`
	BuildVersionString  string   `json:"BuildVersionString"`
	LaunchExeString     string   `json:"LaunchExeString"`
	LaunchCommand       string   `json:"LaunchCommand"`
	PrereqIDs           []string `json:"PrereqIds"`
	PrereqName          string   `json:"PrereqName"`
	PrereqPath          string   `json:"PrereqPath"`
	PrereqArgs          string   `json:"PrereqArgs"`

	FileManifestList []jsonFile `json:"FileManifestList"`

	ChunkHashList     map[string]string `json:"ChunkHashList"`
	ChunkShaList      map[string]string `json:"ChunkShaList"`
	DataGroupList     map[string]string `json:"DataGroupList"`
	ChunkFilesizeList map[string]string `json:"ChunkFilesizeList"`
	CustomFields      map[string]string `json:"CustomFields"`
}

type jsonFile struct {
	Filename         string          `json:"Filename"`
	FileHash         string          `json:"FileHash"`
	InstallTags      []string        `json:"InstallTags"`
	SymlinkTarget    string          `json:"SymlinkTarget"`
	FileChunkParts   []jsonChunkPart `json:"FileChunkParts"`
	IsUnixExecutable bool            `json:"bIsUnixExecutable"`
	IsReadOnly       bool            `json:"bIsReadOnly"`
	IsCompressed     bool            `json:"bIsCompressed"`
}

type jsonChunkPart struct {
	GUID   string `json:"Guid"`
	Offset string `json:"Offset"`
	Size   string `json:"Size"`
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// DeserializeJSON parses a JSON manifest. The chunk directory is
// built from the chunk parts the files reference, in order of first
// reference, then enriched from the chunk-keyed maps.
func DeserializeJSON(data []byte, options Options) (*Manifest, error) {
	var document jsonManifest
	if err := json.Unmarshal(bytes.TrimPrefix(data, utf8BOM), &document); err != nil {
		return nil, fmt.Errorf("%w: JSON manifest: %w", ErrMalformed, err)
	}
	if document.FileManifestList == nil {
		return nil, fmt.Errorf("%w: JSON manifest has no FileManifestList", ErrMalformed)
	}

	meta, err := document.meta()
	if err != nil {
		return nil, err
	}

	chunks, chunksByGUID, files, err := document.files()
	if err != nil {
		return nil, err
	}
	if err := document.enrichChunks(chunks, chunksByGUID); err != nil {
		return nil, err
	}

	if document.IsFileData != nil {
		meta.IsFileData = *document.IsFileData
	} else {
		meta.IsFileData = document.ChunkHashList == nil
	}

	customFields := make([]CustomField, 0, len(document.CustomFields))
	for name, value := range document.CustomFields {
		customFields = append(customFields, CustomField{Name: name, Value: value})
	}
	sort.Slice(customFields, func(i, j int) bool {
		return customFields[i].Name < customFields[j].Name
	})

	return newManifest(meta, chunks, files, customFields, options)
}

func (d *jsonManifest) meta() (*Meta, error) {
	meta := &Meta{
		FeatureLevel:  FeatureLevelCustomFields,
		AppName:       d.AppNameString,
		BuildVersion:  d.BuildVersionString,
		LaunchExe:     d.LaunchExeString,
		LaunchCommand: d.LaunchCommand,
		PrereqIDs:     d.PrereqIDs,
		PrereqName:    d.PrereqName,
		PrereqPath:    d.PrereqPath,
		PrereqArgs:    d.PrereqArgs,
	}
	if meta.PrereqIDs == nil {
		meta.PrereqIDs = []string{}
	}

	if d.ManifestFileVersion != nil && *d.ManifestFileVersion != "" {
		level, err := blobUint32(*d.ManifestFileVersion)
		if err != nil {
			return nil, fmt.Errorf("ManifestFileVersion: %w", err)
		}
		meta.FeatureLevel = FeatureLevel(int32(level))
	}
	if meta.FeatureLevel == FeatureLevelBrokenJSONVersion {
		meta.FeatureLevel = FeatureLevelStoresChunkFileSizes
	}

	appID, err := blobUint32(d.AppID)
	if err != nil {
		return nil, fmt.Errorf("AppID: %w", err)
	}
	meta.AppID = appID
	meta.BuildID = backwardsCompatibleBuildID(meta)
	return meta, nil
}

func (d *jsonManifest) files() ([]*ChunkInfo, map[GUID]*ChunkInfo, []*File, error) {
	var chunks []*ChunkInfo
	chunksByGUID := make(map[GUID]*ChunkInfo)
	files := make([]*File, len(d.FileManifestList))

	for i, entry := range d.FileManifestList {
		file := &File{
			Name:          entry.Filename,
			SymlinkTarget: entry.SymlinkTarget,
			InstallTags:   entry.InstallTags,
			ChunkParts:    make([]ChunkPart, len(entry.FileChunkParts)),
		}
		if file.InstallTags == nil {
			file.InstallTags = []string{}
		}

		var err error
		if file.Hash, err = blobSHA1(entry.FileHash); err != nil {
			return nil, nil, nil, fmt.Errorf("FileHash of %q: %w", entry.Filename, err)
		}

		for j, jsonPart := range entry.FileChunkParts {
			part, err := jsonPart.parse()
			if err != nil {
				return nil, nil, nil, fmt.Errorf("chunk part %d of %q: %w", j, entry.Filename, err)
			}
			file.ChunkParts[j] = part
			if _, exists := chunksByGUID[part.GUID]; !exists {
				chunk := &ChunkInfo{GUID: part.GUID}
				chunksByGUID[part.GUID] = chunk
				chunks = append(chunks, chunk)
			}
		}

		if entry.IsUnixExecutable {
			file.Flags |= FileUnixExecutable
		}
		if entry.IsReadOnly {
			file.Flags |= FileReadOnly
		}
		if entry.IsCompressed {
			file.Flags |= FileCompressed
		}
		files[i] = file
	}
	return chunks, chunksByGUID, files, nil
}

func (p jsonChunkPart) parse() (ChunkPart, error) {
	var part ChunkPart
	var err error
	if part.GUID, err = ParseGUID(p.GUID); err != nil {
		return part, err
	}
	if part.Offset, err = blobUint32(p.Offset); err != nil {
		return part, fmt.Errorf("Offset: %w", err)
	}
	if part.Size, err = blobUint32(p.Size); err != nil {
		return part, fmt.Errorf("Size: %w", err)
	}
	return part, nil
}

// enrichChunks applies the chunk-keyed maps. Keys naming chunks that
// no file references are ignored. Without a ChunkFilesizeList every
// chunk is LegacyChunkSize bytes.
func (d *jsonManifest) enrichChunks(chunks []*ChunkInfo, chunksByGUID map[GUID]*ChunkInfo) error {
	apply := func(list string, entries map[string]string, set func(*ChunkInfo, string) error) error {
		for key, value := range entries {
			guid, err := ParseGUID(key)
			if err != nil {
				return fmt.Errorf("%s key: %w", list, err)
			}
			chunk, ok := chunksByGUID[guid]
			if !ok {
				continue
			}
			if err := set(chunk, value); err != nil {
				return fmt.Errorf("%s[%s]: %w", list, key, err)
			}
		}
		return nil
	}

	err := apply("ChunkHashList", d.ChunkHashList, func(chunk *ChunkInfo, value string) (err error) {
		chunk.Hash, err = blobUint64(value)
		return err
	})
	if err != nil {
		return err
	}
	err = apply("ChunkShaList", d.ChunkShaList, func(chunk *ChunkInfo, value string) (err error) {
		chunk.SHA, err = ParseSHA1(value)
		return err
	})
	if err != nil {
		return err
	}
	err = apply("DataGroupList", d.DataGroupList, func(chunk *ChunkInfo, value string) (err error) {
		chunk.GroupNumber, err = blobUint8(value)
		return err
	})
	if err != nil {
		return err
	}

	if d.ChunkFilesizeList == nil {
		for _, chunk := range chunks {
			chunk.FileSize = LegacyChunkSize
		}
		return nil
	}
	return apply("ChunkFilesizeList", d.ChunkFilesizeList, func(chunk *ChunkInfo, value string) error {
		size, err := blobUint64(value)
		chunk.FileSize = int64(size)
		return err
	})
}
