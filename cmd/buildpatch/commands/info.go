// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/bureau-foundation/buildpatch/cmd/buildpatch/cli"
	"github.com/bureau-foundation/buildpatch/lib/manifestinfo"
)

type infoParams struct {
	cli.StructuredOutput
}

type elementEntry struct {
	AppName      string   `json:"app_name"`
	LabelName    string   `json:"label_name"`
	BuildVersion string   `json:"build_version"`
	Version      string   `json:"version,omitempty"`
	Changelist   int      `json:"changelist,omitempty"`
	Hash         string   `json:"hash"`
	UseSignedURL bool     `json:"use_signed_url"`
	URLs         []string `json:"urls"`
}

func infoCommand(env *environment) *cli.Command {
	var params infoParams

	return &cli.Command{
		Name:    "info",
		Summary: "List the builds in a manifest-info document",
		Usage:   "buildpatch info <manifest-info.json> [flags]",
		Description: `Parse a launcher manifest-info document (JSON; comments and trailing
commas are accepted) and list each element with its manifest URLs.
Use the app and label shown here with --app and --label on the other
commands.`,
		Params: func() any { return &params },
		Run: func(ctx context.Context, args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("usage: buildpatch info <manifest-info.json>")
			}
			info, err := manifestinfo.ReadFile(args[0])
			if err != nil {
				return err
			}

			entries := make([]elementEntry, 0, len(info.Elements))
			for _, element := range info.Elements {
				entry := elementEntry{
					AppName:      element.AppName,
					LabelName:    element.LabelName,
					BuildVersion: element.BuildVersion,
					Hash:         element.Hash.String(),
					UseSignedURL: element.UseSignedURL,
					URLs:         make([]string, 0, len(element.Manifests)),
				}
				if version, changelist, ok := element.VersionAndChangelist(); ok {
					entry.Version, entry.Changelist = version, changelist
				}
				for _, location := range element.Manifests {
					entry.URLs = append(entry.URLs, location.URL())
				}
				entries = append(entries, entry)
			}
			if done, err := params.Emit(env.stdout, entries); done {
				return err
			}

			tw := tabwriter.NewWriter(env.stdout, 2, 0, 2, ' ', 0)
			fmt.Fprintf(tw, "APP\tLABEL\tBUILD VERSION\tMANIFESTS\n")
			for _, entry := range entries {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", entry.AppName, entry.LabelName, entry.BuildVersion, len(entry.URLs))
			}
			return tw.Flush()
		},
	}
}
