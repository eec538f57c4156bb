// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package manifestfs

import (
	"slices"
	"testing"

	"github.com/bureau-foundation/buildpatch/lib/manifest"
)

func TestBuildTree(t *testing.T) {
	files := []*manifest.File{
		{Name: "Engine/Binaries/Game"},
		{Name: "Engine/Config/Base.ini"},
		{Name: "Readme.txt"},
		{Name: `Legacy\Windows\Path.dll`},
		{Name: "./Dotted/./file"},
	}
	root, skipped := buildTree(files)
	if len(skipped) != 0 {
		t.Fatalf("skipped = %v", skipped)
	}

	if got, want := root.names(), []string{"Dotted", "Engine", "Legacy", "Readme.txt"}; !slices.Equal(got, want) {
		t.Errorf("root names = %v, want %v", got, want)
	}
	engine := root.directories["Engine"]
	if got, want := engine.names(), []string{"Binaries", "Config"}; !slices.Equal(got, want) {
		t.Errorf("Engine names = %v, want %v", got, want)
	}
	if engine.directories["Binaries"].files["Game"] != files[0] {
		t.Error("Engine/Binaries/Game not placed")
	}
	if root.directories["Legacy"].directories["Windows"].files["Path.dll"] != files[3] {
		t.Error("backslash-separated name not placed")
	}
	if root.directories["Dotted"].files["file"] != files[4] {
		t.Error("dot components not dropped")
	}
}

func TestBuildTreeSkipsConflicts(t *testing.T) {
	files := []*manifest.File{
		{Name: "a/b"},
		{Name: "a"},
		{Name: "a/b/c"},
		{Name: "../escape"},
		{Name: "/"},
		{Name: "a//b"},
		{Name: "kept"},
	}
	root, skipped := buildTree(files)
	if len(skipped) != 5 {
		t.Errorf("skipped %d files, want 5: %v", len(skipped), skipped)
	}
	if got, want := root.names(), []string{"a", "kept"}; !slices.Equal(got, want) {
		t.Errorf("root names = %v, want %v", got, want)
	}
	if root.directories["a"].files["b"] != files[0] {
		t.Error("first declaration of a/b lost")
	}
}
