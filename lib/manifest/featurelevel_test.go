// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package manifest

import "testing"

func TestChunkSubdirThresholds(t *testing.T) {
	tests := []struct {
		level FeatureLevel
		want  string
	}{
		{FeatureLevelOriginal, "Chunks"},
		{FeatureLevelStartStoringVersion, "Chunks"},
		{FeatureLevelDataFileRenames, "ChunksV2"},
		{FeatureLevelStoresDataGroupNumbers, "ChunksV2"},
		{FeatureLevelChunkCompressionSupport, "ChunksV3"},
		{FeatureLevelStoredAsBinaryData, "ChunksV3"},
		{FeatureLevelVariableSizeChunksWithoutWindowSizeChunkInfo, "ChunksV4"},
		{FeatureLevelLatest, "ChunksV4"},
	}
	for _, test := range tests {
		if got := test.level.ChunkSubdir(); got != test.want {
			t.Errorf("%s.ChunkSubdir() = %s, want %s", test.level, got, test.want)
		}
	}
}

func TestFeatureLevelString(t *testing.T) {
	tests := []struct {
		level FeatureLevel
		want  string
	}{
		{FeatureLevelStoredAsBinaryData, "StoredAsBinaryData"},
		{FeatureLevelInvalid, "Invalid"},
		{FeatureLevelBrokenJSONVersion, "BrokenJsonVersion"},
		{FeatureLevel(99), "FeatureLevel(99)"},
	}
	for _, test := range tests {
		if got := test.level.String(); got != test.want {
			t.Errorf("String() = %s, want %s", got, test.want)
		}
	}
}

func TestStorageFlagsCheck(t *testing.T) {
	if err := StorageNone.Check("payload"); err != nil {
		t.Errorf("none: %v", err)
	}
	if err := StorageCompressed.Check("payload"); err != nil {
		t.Errorf("compressed: %v", err)
	}
	if err := StorageEncrypted.Check("payload"); !errorsIs(err, ErrUnsupported) {
		t.Errorf("encrypted = %v, want ErrUnsupported", err)
	}
	if err := StorageFlags(0x80).Check("payload"); !errorsIs(err, ErrMalformed) {
		t.Errorf("unknown bit = %v, want ErrMalformed", err)
	}
}
