// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package manifest

import "fmt"

// FeatureLevel identifies the structural generation of the tool that
// produced a manifest. It gates header layout, sub-section contents
// and the chunk subdirectory on the CDN.
type FeatureLevel int32

const (
	FeatureLevelInvalid FeatureLevel = -1

	FeatureLevelOriginal                                     FeatureLevel = 0
	FeatureLevelCustomFields                                 FeatureLevel = 1
	FeatureLevelStartStoringVersion                          FeatureLevel = 2
	FeatureLevelDataFileRenames                              FeatureLevel = 3
	FeatureLevelStoresIfChunkOrFileData                      FeatureLevel = 4
	FeatureLevelStoresDataGroupNumbers                       FeatureLevel = 5
	FeatureLevelChunkCompressionSupport                      FeatureLevel = 6
	FeatureLevelStoresPrerequisitesInfo                      FeatureLevel = 7
	FeatureLevelStoresChunkFileSizes                         FeatureLevel = 8
	FeatureLevelStoredAsCompressedUClass                     FeatureLevel = 9
	FeatureLevelUnused0                                      FeatureLevel = 10
	FeatureLevelUnused1                                      FeatureLevel = 11
	FeatureLevelStoresChunkDataShaHashes                     FeatureLevel = 12
	FeatureLevelStoresPrerequisiteIDs                        FeatureLevel = 13
	FeatureLevelStoredAsBinaryData                           FeatureLevel = 14
	FeatureLevelVariableSizeChunksWithoutWindowSizeChunkInfo FeatureLevel = 15
	FeatureLevelVariableSizeChunks                           FeatureLevel = 16
	FeatureLevelUsesRuntimeGeneratedBuildID                  FeatureLevel = 17
	FeatureLevelUsesBuildTimeGeneratedBuildID                FeatureLevel = 18
	FeatureLevelUnknown1                                     FeatureLevel = 19
	FeatureLevelUnknown2                                     FeatureLevel = 20
	FeatureLevelUnknown3                                     FeatureLevel = 21

	// FeatureLevelLatest is the newest level this package knows.
	FeatureLevelLatest = FeatureLevelUnknown3

	// FeatureLevelLatestNoChunks is the newest level that could
	// produce chunk-less file-data builds.
	FeatureLevelLatestNoChunks = FeatureLevelStoresChunkFileSizes

	// FeatureLevelLatestJSON is the newest level written as JSON.
	FeatureLevelLatestJSON = FeatureLevelStoresPrerequisiteIDs

	// FeatureLevelBrokenJSONVersion is a value some JSON manifests
	// carry in ManifestFileVersion. It is read as
	// FeatureLevelStoresChunkFileSizes.
	FeatureLevelBrokenJSONVersion FeatureLevel = 255
)

var featureLevelNames = [...]string{
	"Original",
	"CustomFields",
	"StartStoringVersion",
	"DataFileRenames",
	"StoresIfChunkOrFileData",
	"StoresDataGroupNumbers",
	"ChunkCompressionSupport",
	"StoresPrerequisitesInfo",
	"StoresChunkFileSizes",
	"StoredAsCompressedUClass",
	"Unused0",
	"Unused1",
	"StoresChunkDataShaHashes",
	"StoresPrerequisiteIds",
	"StoredAsBinaryData",
	"VariableSizeChunksWithoutWindowSizeChunkInfo",
	"VariableSizeChunks",
	"UsesRuntimeGeneratedBuildId",
	"UsesBuildTimeGeneratedBuildId",
	"Unknown1",
	"Unknown2",
	"Unknown3",
}

// String returns the level's name, or its number when unknown.
func (level FeatureLevel) String() string {
	switch {
	case level == FeatureLevelInvalid:
		return "Invalid"
	case level == FeatureLevelBrokenJSONVersion:
		return "BrokenJsonVersion"
	case level >= 0 && int(level) < len(featureLevelNames):
		return featureLevelNames[level]
	default:
		return fmt.Sprintf("FeatureLevel(%d)", int32(level))
	}
}

// ChunkSubdir returns the CDN subdirectory that holds chunks for
// manifests of this level.
func (level FeatureLevel) ChunkSubdir() string {
	switch {
	case level > FeatureLevelStoredAsBinaryData:
		return "ChunksV4"
	case level > FeatureLevelStoresDataGroupNumbers:
		return "ChunksV3"
	case level > FeatureLevelStartStoringVersion:
		return "ChunksV2"
	default:
		return "Chunks"
	}
}
