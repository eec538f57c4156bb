// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package manifestinfo reads launcher manifest-info documents, which
// list the builds of an application and the URLs their manifests can
// be downloaded from, and turns a selected entry into a parsed
// manifest.
//
// The typical flow:
//
//  1. Parse or ReadFile: JSON (comments and trailing commas allowed) → Info
//  2. Select: pick an element and one of its manifest locations
//  3. DownloadAndParse: fetch (or reuse a cached copy of) the manifest
//     and deserialize it with the caller's manifest.Options
package manifestinfo

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/tidwall/jsonc"

	"github.com/bureau-foundation/buildpatch/lib/manifest"
)

// ErrNoMatch is returned when no element or manifest location
// satisfies a selection.
var ErrNoMatch = errors.New("manifestinfo: no matching entry")

// Info is a manifest-info document.
type Info struct {
	Elements []Element `json:"elements"`
}

// Element describes one build of one application.
type Element struct {
	AppName      string         `json:"appName"`
	LabelName    string         `json:"labelName"`
	BuildVersion string         `json:"buildVersion"`
	Hash         manifest.SHA1  `json:"hash"`
	UseSignedURL bool           `json:"useSignedUrl"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	Manifests    []Location     `json:"manifests"`
}

// Location is one place an element's manifest can be downloaded
// from.
type Location struct {
	URI         string       `json:"uri"`
	QueryParams []QueryParam `json:"queryParams,omitempty"`
}

// QueryParam is appended to a Location URI. Values are already
// URL-encoded and are appended verbatim.
type QueryParam struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Parse strips comments and trailing commas from data, then decodes
// the manifest-info document. Property names match case-insensitively.
func Parse(data []byte) (*Info, error) {
	var info Info
	if err := json.Unmarshal(jsonc.ToJSON(data), &info); err != nil {
		return nil, fmt.Errorf("%w: manifest info: %w", manifest.ErrMalformed, err)
	}
	return &info, nil
}

// ReadFile reads and parses a manifest-info document from disk.
func ReadFile(path string) (*Info, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	info, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return info, nil
}

// Selection picks an element and one of its locations. A nil
// predicate selects the first entry.
type Selection struct {
	Element  func(*Element) bool
	Location func(*Location) bool
}

// Select applies selection to the document.
func (i *Info) Select(selection Selection) (*Element, *Location, error) {
	element, ok := first(i.Elements, selection.Element)
	if !ok {
		return nil, nil, fmt.Errorf("selecting element among %d: %w", len(i.Elements), ErrNoMatch)
	}
	location, ok := first(element.Manifests, selection.Location)
	if !ok {
		return nil, nil, fmt.Errorf("selecting manifest location of %s among %d: %w",
			element.AppName, len(element.Manifests), ErrNoMatch)
	}
	return element, location, nil
}

func first[T any](items []T, match func(*T) bool) (*T, bool) {
	for index := range items {
		if match == nil || match(&items[index]) {
			return &items[index], true
		}
	}
	return nil, false
}

// VersionAndChangelist parses the element's build version, as
// manifest.ParseBuildVersion does.
func (e *Element) VersionAndChangelist() (version string, changelist int, ok bool) {
	return manifest.ParseBuildVersion(e.BuildVersion)
}

// URL returns the location URI with its query parameters appended.
func (l *Location) URL() string {
	if len(l.QueryParams) == 0 {
		return l.URI
	}
	var builder strings.Builder
	builder.WriteString(l.URI)
	separator := "?"
	if strings.Contains(l.URI, "?") {
		separator = "&"
	}
	for _, param := range l.QueryParams {
		builder.WriteString(separator)
		builder.WriteString(param.Name)
		builder.WriteByte('=')
		builder.WriteString(param.Value)
		separator = "&"
	}
	return builder.String()
}

// CacheName returns the file name a downloaded copy is cached under:
// the final path segment of the URI, without any query string.
func (l *Location) CacheName() string {
	uri := l.URI
	if index := strings.IndexAny(uri, "?#"); index >= 0 {
		uri = uri[:index]
	}
	return uri[strings.LastIndexByte(uri, '/')+1:]
}
