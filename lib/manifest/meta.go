// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package manifest

import (
	"github.com/bureau-foundation/buildpatch/lib/binreader"
)

// Meta sub-section versions.
const (
	metaVersionOriginal          = 0
	metaVersionSerialisesBuildID = 1
)

// Meta is the scalar metadata of a build.
type Meta struct {
	// FeatureLevel is the level the build was created with,
	// independent of the encoding it was serialized in.
	FeatureLevel FeatureLevel

	// IsFileData marks a legacy build whose "chunks" are whole files.
	// Such builds cannot be streamed.
	IsFileData bool

	AppID         uint32
	AppName       string
	BuildVersion  string
	LaunchExe     string
	LaunchCommand string

	PrereqIDs  []string
	PrereqName string
	PrereqPath string
	PrereqArgs string

	// BuildID identifies the exact build. Manifests that predate the
	// field report an empty string.
	BuildID string

	// UninstallExe and UninstallCommand are only present in builds
	// newer than FeatureLevelUsesBuildTimeGeneratedBuildID.
	UninstallExe     string
	UninstallCommand string
}

// VersionAndChangelist parses BuildVersion with ParseBuildVersion.
func (m *Meta) VersionAndChangelist() (version string, changelist int, ok bool) {
	return ParseBuildVersion(m.BuildVersion)
}

// backwardsCompatibleBuildID stands in for the build id of manifests
// serialized before the field existed. The producer derives it from
// a checksum this package does not reproduce, so it is empty.
func backwardsCompatibleBuildID(*Meta) string {
	return ""
}

func readMeta(r *binreader.Reader) (*Meta, error) {
	start := r.Position()
	size, err := r.Int32()
	if err != nil {
		return nil, malformed("meta size", err)
	}
	version, err := r.Uint8()
	if err != nil {
		return nil, malformed("meta version", err)
	}
	end := start + int64(size)

	meta := &Meta{FeatureLevel: FeatureLevelInvalid}
	if version >= metaVersionOriginal {
		if err := meta.readOriginal(r); err != nil {
			return nil, malformed("meta", err)
		}
	}

	if version >= metaVersionSerialisesBuildID {
		if meta.BuildID, err = r.FString(); err != nil {
			return nil, malformed("meta build id", err)
		}
	} else {
		meta.BuildID = backwardsCompatibleBuildID(meta)
	}

	// Fields beyond the documented layout; read only if the section
	// actually has room for them.
	if meta.FeatureLevel > FeatureLevelUsesBuildTimeGeneratedBuildID && r.Position() < end {
		if meta.UninstallExe, err = r.FString(); err != nil {
			return nil, malformed("meta uninstall executable", err)
		}
		if meta.UninstallCommand, err = r.FString(); err != nil {
			return nil, malformed("meta uninstall command", err)
		}
	}

	if err := r.SetPosition(end); err != nil {
		return nil, malformed("meta size", err)
	}
	return meta, nil
}

func (m *Meta) readOriginal(r *binreader.Reader) error {
	level, err := r.Int32()
	if err != nil {
		return err
	}
	m.FeatureLevel = FeatureLevel(level)
	if m.IsFileData, err = r.Bool8(); err != nil {
		return err
	}
	if m.AppID, err = r.Uint32(); err != nil {
		return err
	}
	for _, field := range []*string{&m.AppName, &m.BuildVersion, &m.LaunchExe, &m.LaunchCommand} {
		if *field, err = r.FString(); err != nil {
			return err
		}
	}
	if m.PrereqIDs, err = r.FStringArray(); err != nil {
		return err
	}
	for _, field := range []*string{&m.PrereqName, &m.PrereqPath, &m.PrereqArgs} {
		if *field, err = r.FString(); err != nil {
			return err
		}
	}
	return nil
}
