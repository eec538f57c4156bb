// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package manifestinfo_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/bureau-foundation/buildpatch/lib/manifest"
	"github.com/bureau-foundation/buildpatch/lib/manifestinfo"
	"github.com/bureau-foundation/buildpatch/lib/manifesttest"
	"github.com/bureau-foundation/buildpatch/lib/testutil"
)

const sampleInfo = `{
	// Two builds of the same app.
	"elements": [
		{
			"appName": "Sandbox",
			"labelName": "Live-Windows",
			"buildVersion": "++Sandbox+Release-30.10-CL-33408016-Windows",
			"hash": "00112233445566778899AABBCCDDEEFF00112233",
			"useSignedUrl": true,
			"metadata": {"installationPoolId": "pool-1"},
			"manifests": [
				{"uri": "https://cdn-a.example/Builds/Sandbox.manifest", "queryParams": [
					{"name": "token", "value": "a%2Fb"},
					{"name": "expires", "value": "123"},
				]},
				{"uri": "https://cdn-b.example/Builds/Sandbox.manifest?sig=1"},
			],
		},
		{
			"AppName": "Other",
			"BuildVersion": "1.0",
			"Manifests": [{"Uri": "https://cdn-a.example/Other.manifest"}],
		},
	],
}`

func TestParseAndSelect(t *testing.T) {
	info, err := manifestinfo.Parse([]byte(sampleInfo))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(info.Elements) != 2 {
		t.Fatalf("elements = %d, want 2", len(info.Elements))
	}

	element, location, err := info.Select(manifestinfo.Selection{})
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if element.AppName != "Sandbox" || !element.UseSignedURL {
		t.Errorf("first element = %+v", element)
	}
	if element.Hash.String() != "00112233445566778899AABBCCDDEEFF00112233" {
		t.Errorf("hash = %s", element.Hash)
	}
	if element.Metadata["installationPoolId"] != "pool-1" {
		t.Errorf("metadata = %v", element.Metadata)
	}
	version, changelist, ok := element.VersionAndChangelist()
	if !ok || version != "30.10" || changelist != 33408016 {
		t.Errorf("VersionAndChangelist = %q, %d, %v", version, changelist, ok)
	}

	if got, want := location.URL(), "https://cdn-a.example/Builds/Sandbox.manifest?token=a%2Fb&expires=123"; got != want {
		t.Errorf("URL = %q, want %q", got, want)
	}
	if got := location.CacheName(); got != "Sandbox.manifest" {
		t.Errorf("CacheName = %q", got)
	}
	if got := element.Manifests[1].CacheName(); got != "Sandbox.manifest" {
		t.Errorf("CacheName with query = %q", got)
	}

	_, location, err = info.Select(manifestinfo.Selection{
		Location: func(l *manifestinfo.Location) bool { return l.URI != element.Manifests[0].URI },
	})
	if err != nil {
		t.Fatalf("Select second location: %v", err)
	}
	if got := location.URL(); got != "https://cdn-b.example/Builds/Sandbox.manifest?sig=1" {
		t.Errorf("URL without params = %q", got)
	}

	other, _, err := info.Select(manifestinfo.Selection{
		Element: func(e *manifestinfo.Element) bool { return e.AppName == "Other" },
	})
	if err != nil {
		t.Fatalf("Select Other: %v", err)
	}
	if other.Manifests[0].URI != "https://cdn-a.example/Other.manifest" {
		t.Errorf("case-insensitive keys not decoded: %+v", other)
	}
	if _, _, ok := other.VersionAndChangelist(); ok {
		t.Error("VersionAndChangelist succeeded without a changelist")
	}

	_, _, err = info.Select(manifestinfo.Selection{
		Element: func(e *manifestinfo.Element) bool { return e.AppName == "Missing" },
	})
	if !errors.Is(err, manifestinfo.ErrNoMatch) {
		t.Errorf("Select missing = %v, want ErrNoMatch", err)
	}
}

func TestParseMalformed(t *testing.T) {
	for _, input := range []string{`{"elements": 3}`, `{"elements": [{"hash": "xyz"}]}`, `[`} {
		if _, err := manifestinfo.Parse([]byte(input)); !errors.Is(err, manifest.ErrMalformed) {
			t.Errorf("Parse(%s) = %v, want ErrMalformed", input, err)
		}
	}
}

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "info.json")
	if err := os.WriteFile(path, []byte(sampleInfo), 0o644); err != nil {
		t.Fatal(err)
	}
	info, err := manifestinfo.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(info.Elements) != 2 {
		t.Errorf("elements = %d", len(info.Elements))
	}
	if _, err := manifestinfo.ReadFile(filepath.Join(t.TempDir(), "missing.json")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("ReadFile missing = %v", err)
	}
}

type manifestServer struct {
	*httptest.Server
	requests atomic.Int32
	query    atomic.Value
}

func newManifestServer(t *testing.T, body []byte) *manifestServer {
	t.Helper()
	server := &manifestServer{}
	server.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		server.requests.Add(1)
		server.query.Store(r.URL.RawQuery)
		if r.URL.Path != "/Builds/Test.manifest" {
			http.NotFound(w, r)
			return
		}
		w.Write(body)
	}))
	t.Cleanup(server.Close)
	return server
}

func infoFor(uri string) *manifestinfo.Info {
	return &manifestinfo.Info{Elements: []manifestinfo.Element{{
		AppName:      "Test",
		BuildVersion: "1.2-CL-3",
		Manifests: []manifestinfo.Location{{
			URI:         uri,
			QueryParams: []manifestinfo.QueryParam{{Name: "t", Value: "1"}},
		}},
	}}}
}

func TestDownloadAndParseCaches(t *testing.T) {
	fixture := manifesttest.New(manifesttest.Build{
		AppName:      "Test",
		BuildVersion: "1.2-CL-3",
		Files:        []manifesttest.File{{Name: "a.txt", Content: []byte("hello world")}},
	})
	server := newManifestServer(t, fixture.Binary(true))
	info := infoFor(server.URL + "/Builds/Test.manifest")

	options := manifest.DefaultOptions()
	options.ManifestCacheDirectory = t.TempDir()

	for attempt := range 2 {
		m, element, err := info.DownloadAndParse(context.Background(), options, manifestinfo.Selection{})
		if err != nil {
			t.Fatalf("attempt %d: DownloadAndParse: %v", attempt, err)
		}
		if element.AppName != "Test" || m.Meta.AppName != "Test" {
			t.Errorf("attempt %d: element %q, manifest %q", attempt, element.AppName, m.Meta.AppName)
		}
		if _, ok := m.FileByName("a.txt"); !ok {
			t.Errorf("attempt %d: a.txt missing", attempt)
		}
	}
	if got := server.requests.Load(); got != 1 {
		t.Errorf("requests = %d, want 1 (second call served from cache)", got)
	}
	if got := server.query.Load(); got != "t=1" {
		t.Errorf("query = %v, want t=1", got)
	}
	if files := testutil.ListFiles(t, options.ManifestCacheDirectory); len(files) != 1 || files[0] != "Test.manifest" {
		t.Errorf("cache directory = %v", files)
	}
}

func TestDownloadAndParseWithoutCacheDirectory(t *testing.T) {
	fixture := manifesttest.New(manifesttest.Build{
		AppName: "Test",
		Files:   []manifesttest.File{{Name: "a.txt", Content: []byte("x")}},
	})
	server := newManifestServer(t, fixture.JSON())
	info := infoFor(server.URL + "/Builds/Test.manifest")

	for range 2 {
		if _, _, err := info.DownloadAndParse(context.Background(), manifest.DefaultOptions(), manifestinfo.Selection{}); err != nil {
			t.Fatalf("DownloadAndParse: %v", err)
		}
	}
	if got := server.requests.Load(); got != 2 {
		t.Errorf("requests = %d, want 2", got)
	}
}

func TestDownloadAndParseFailures(t *testing.T) {
	server := newManifestServer(t, []byte("not a manifest"))
	options := manifest.DefaultOptions()
	options.ManifestCacheDirectory = t.TempDir()

	_, _, err := infoFor(server.URL+"/Builds/Missing.manifest").DownloadAndParse(context.Background(), options, manifestinfo.Selection{})
	var transportError *manifest.TransportError
	if !errors.As(err, &transportError) || transportError.StatusCode != http.StatusNotFound {
		t.Errorf("404 = %v, want TransportError with status 404", err)
	}
	if !errors.Is(err, manifest.ErrTransport) {
		t.Errorf("404 does not match ErrTransport: %v", err)
	}

	_, _, err = infoFor(server.URL+"/Builds/Test.manifest").DownloadAndParse(context.Background(), options, manifestinfo.Selection{})
	if !errors.Is(err, manifest.ErrMalformed) {
		t.Errorf("garbage body = %v, want ErrMalformed", err)
	}
	if files := testutil.ListFiles(t, options.ManifestCacheDirectory); len(files) != 0 {
		t.Errorf("unparseable manifest was cached: %v", files)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	before := server.requests.Load()
	_, _, err = infoFor(server.URL+"/Builds/Test.manifest").DownloadAndParse(ctx, options, manifestinfo.Selection{})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("canceled = %v, want context.Canceled", err)
	}
	if server.requests.Load() != before {
		t.Error("canceled call issued a request")
	}
}
