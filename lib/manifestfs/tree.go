// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package manifestfs

import (
	"fmt"
	"slices"
	"strings"

	"github.com/bureau-foundation/buildpatch/lib/manifest"
)

// directory is one level of the namespace built from manifest file
// names. Names use '/' separators; a backslash is treated as one too.
type directory struct {
	directories map[string]*directory
	files       map[string]*manifest.File
}

func newDirectory() *directory {
	return &directory{
		directories: make(map[string]*directory),
		files:       make(map[string]*manifest.File),
	}
}

// buildTree arranges files into directories. Files whose names are
// empty, escape the root, or collide with a directory (or with an
// earlier file) are returned as skipped with the reason.
func buildTree(files []*manifest.File) (root *directory, skipped []error) {
	root = newDirectory()
	for _, file := range files {
		if err := root.insert(file); err != nil {
			skipped = append(skipped, err)
		}
	}
	return root, skipped
}

func (d *directory) insert(file *manifest.File) error {
	components, err := splitName(file.Name)
	if err != nil {
		return err
	}

	current := d
	for _, component := range components[:len(components)-1] {
		if _, isFile := current.files[component]; isFile {
			return fmt.Errorf("%q: %q is both a file and a directory", file.Name, component)
		}
		child, ok := current.directories[component]
		if !ok {
			child = newDirectory()
			current.directories[component] = child
		}
		current = child
	}

	leaf := components[len(components)-1]
	if _, isDirectory := current.directories[leaf]; isDirectory {
		return fmt.Errorf("%q: is both a file and a directory", file.Name)
	}
	if _, exists := current.files[leaf]; exists {
		return fmt.Errorf("%q: duplicate file name", file.Name)
	}
	current.files[leaf] = file
	return nil
}

func splitName(name string) ([]string, error) {
	var components []string
	for component := range strings.FieldsFuncSeq(name, func(r rune) bool { return r == '/' || r == '\\' }) {
		switch component {
		case ".":
			continue
		case "..":
			return nil, fmt.Errorf("%q: path escapes the build root", name)
		}
		components = append(components, component)
	}
	if len(components) == 0 {
		return nil, fmt.Errorf("%q: empty path", name)
	}
	return components, nil
}

// names returns the sorted child names, directories and files mixed.
func (d *directory) names() []string {
	names := make([]string, 0, len(d.directories)+len(d.files))
	for name := range d.directories {
		names = append(names, name)
	}
	for name := range d.files {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
