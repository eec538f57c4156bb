// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/bureau-foundation/buildpatch/cmd/buildpatch/cli"
	"github.com/bureau-foundation/buildpatch/lib/manifest"
)

type inspectParams struct {
	BuildSource
	cli.StructuredOutput
}

// buildSummary is the inspect output.
type buildSummary struct {
	AppID            uint32            `json:"app_id"`
	AppName          string            `json:"app_name"`
	BuildVersion     string            `json:"build_version"`
	Version          string            `json:"version,omitempty"`
	Changelist       int               `json:"changelist,omitempty"`
	FeatureLevel     string            `json:"feature_level"`
	IsFileData       bool              `json:"is_file_data"`
	BuildID          string            `json:"build_id,omitempty"`
	LaunchExe        string            `json:"launch_exe,omitempty"`
	LaunchCommand    string            `json:"launch_command,omitempty"`
	PrereqIDs        []string          `json:"prereq_ids,omitempty"`
	PrereqName       string            `json:"prereq_name,omitempty"`
	UninstallExe     string            `json:"uninstall_exe,omitempty"`
	UninstallCommand string            `json:"uninstall_command,omitempty"`
	ChunkSubdir      string            `json:"chunk_subdir"`
	Files            int               `json:"files"`
	Chunks           int               `json:"chunks"`
	BuildSize        int64             `json:"build_size"`
	DownloadSize     int64             `json:"download_size"`
	CustomFields     map[string]string `json:"custom_fields,omitempty"`
}

func summarize(m *manifest.Manifest) buildSummary {
	meta := m.Meta
	summary := buildSummary{
		AppID:            meta.AppID,
		AppName:          meta.AppName,
		BuildVersion:     meta.BuildVersion,
		FeatureLevel:     meta.FeatureLevel.String(),
		IsFileData:       meta.IsFileData,
		BuildID:          meta.BuildID,
		LaunchExe:        meta.LaunchExe,
		LaunchCommand:    meta.LaunchCommand,
		PrereqIDs:        meta.PrereqIDs,
		PrereqName:       meta.PrereqName,
		UninstallExe:     meta.UninstallExe,
		UninstallCommand: meta.UninstallCommand,
		ChunkSubdir:      m.ChunkSubdir(),
		Files:            len(m.Files),
		Chunks:           len(m.Chunks),
		BuildSize:        m.TotalBuildSize(),
		DownloadSize:     m.TotalDownloadSize(),
	}
	if version, changelist, ok := meta.VersionAndChangelist(); ok {
		summary.Version = version
		summary.Changelist = changelist
	}
	if len(m.CustomFields) > 0 {
		summary.CustomFields = make(map[string]string, len(m.CustomFields))
		for _, field := range m.CustomFields {
			summary.CustomFields[field.Name] = field.Value
		}
	}
	return summary
}

func inspectCommand(env *environment) *cli.Command {
	var params inspectParams

	return &cli.Command{
		Name:    "inspect",
		Summary: "Show build metadata and totals",
		Usage:   "buildpatch inspect -m <manifest> [flags]",
		Description: `Parse a manifest and print its metadata: app, build version,
feature level, launch and prerequisite information, custom fields, and
the total build and download sizes.

Only the manifest is read; no chunks are downloaded.`,
		Examples: []cli.Example{
			{
				Description: "Summarize a local manifest",
				Command:     "buildpatch inspect -m Game.manifest",
			},
			{
				Description: "Deterministic CBOR for hashing or diffing",
				Command:     "buildpatch inspect -m Game.manifest --cbor > game.cbor",
			},
		},
		Params: func() any { return &params },
		Run: func(ctx context.Context, args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("unexpected arguments: %s", strings.Join(args, " "))
			}
			b, err := params.open(ctx, env, "inspect")
			if err != nil {
				return err
			}

			summary := summarize(b.manifest)
			if done, err := params.Emit(env.stdout, summary); done {
				return err
			}

			tw := tabwriter.NewWriter(env.stdout, 2, 0, 2, ' ', 0)
			fmt.Fprintf(tw, "App:\t%s (id %d)\n", summary.AppName, summary.AppID)
			fmt.Fprintf(tw, "Build version:\t%s\n", summary.BuildVersion)
			if summary.Version != "" {
				fmt.Fprintf(tw, "Version:\t%s (CL %d)\n", summary.Version, summary.Changelist)
			}
			fmt.Fprintf(tw, "Feature level:\t%s\n", summary.FeatureLevel)
			if summary.BuildID != "" {
				fmt.Fprintf(tw, "Build ID:\t%s\n", summary.BuildID)
			}
			if summary.LaunchExe != "" {
				fmt.Fprintf(tw, "Launch:\t%s %s\n", summary.LaunchExe, summary.LaunchCommand)
			}
			if len(summary.PrereqIDs) > 0 {
				fmt.Fprintf(tw, "Prerequisites:\t%s (%s)\n", summary.PrereqName, strings.Join(summary.PrereqIDs, ", "))
			}
			if summary.UninstallExe != "" {
				fmt.Fprintf(tw, "Uninstall:\t%s %s\n", summary.UninstallExe, summary.UninstallCommand)
			}
			fmt.Fprintf(tw, "Files:\t%d (%s)\n", summary.Files, formatSize(summary.BuildSize))
			fmt.Fprintf(tw, "Chunks:\t%d (%s to download, %s/)\n", summary.Chunks, formatSize(summary.DownloadSize), summary.ChunkSubdir)
			for _, field := range b.manifest.CustomFields {
				fmt.Fprintf(tw, "Custom field %s:\t%s\n", field.Name, field.Value)
			}
			return tw.Flush()
		},
	}
}

// formatSize returns a human-readable size.
func formatSize(bytes int64) string {
	switch {
	case bytes >= 1<<30:
		return fmt.Sprintf("%.1f GiB", float64(bytes)/float64(1<<30))
	case bytes >= 1<<20:
		return fmt.Sprintf("%.1f MiB", float64(bytes)/float64(1<<20))
	case bytes >= 1<<10:
		return fmt.Sprintf("%.1f KiB", float64(bytes)/float64(1<<10))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
