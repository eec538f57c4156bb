// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package manifestinfo

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/bureau-foundation/buildpatch/lib/manifest"
)

// DownloadAndParse selects an element and location, then returns the
// parsed manifest. When options.ManifestCacheDirectory is set, a
// cached copy named by Location.CacheName is used if present and a
// fresh download is stored there after it parses successfully.
func (i *Info) DownloadAndParse(ctx context.Context, options manifest.Options, selection Selection) (*manifest.Manifest, *Element, error) {
	element, location, err := i.Select(selection)
	if err != nil {
		return nil, nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	var cachePath string
	if options.ManifestCacheDirectory != "" && location.CacheName() != "" {
		cachePath = filepath.Join(options.ManifestCacheDirectory, location.CacheName())
		data, err := os.ReadFile(cachePath)
		if err == nil {
			m, err := manifest.Deserialize(data, options)
			if err != nil {
				return nil, nil, fmt.Errorf("cached manifest %s: %w", cachePath, err)
			}
			return m, element, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return nil, nil, fmt.Errorf("reading cached manifest: %w", err)
		}
	}

	data, err := Download(ctx, options.Client, location.URL())
	if err != nil {
		return nil, nil, fmt.Errorf("downloading manifest of %s %s: %w", element.AppName, element.BuildVersion, err)
	}
	m, err := manifest.Deserialize(data, options)
	if err != nil {
		return nil, nil, fmt.Errorf("manifest of %s %s: %w", element.AppName, element.BuildVersion, err)
	}

	if cachePath != "" {
		if err := writeFileAtomic(cachePath, data); err != nil {
			return nil, nil, fmt.Errorf("caching manifest: %w", err)
		}
	}
	return m, element, nil
}

// Download GETs url with client, or with a client using
// manifest.DefaultHTTPTimeout when client is nil. Failures are
// *manifest.TransportError.
func Download(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	if client == nil {
		client = &http.Client{Timeout: manifest.DefaultHTTPTimeout}
	}
	transportError := func(status int, err error) error {
		return &manifest.TransportError{URL: url, StatusCode: status, Err: err}
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, transportError(0, err)
	}
	response, err := client.Do(request)
	if err != nil {
		return nil, transportError(0, err)
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(response.Body, 4096))
		return nil, transportError(response.StatusCode, nil)
	}

	var buffer bytes.Buffer
	if response.ContentLength > 0 {
		buffer.Grow(int(response.ContentLength))
	}
	if _, err := buffer.ReadFrom(response.Body); err != nil {
		return nil, transportError(response.StatusCode, err)
	}
	return buffer.Bytes(), nil
}

// writeFileAtomic replaces path with data via a temporary file in the
// same directory.
func writeFileAtomic(path string, data []byte) error {
	directory := filepath.Dir(path)
	if err := os.MkdirAll(directory, 0o755); err != nil {
		return err
	}
	temporary, err := os.CreateTemp(directory, ".manifest-*.tmp")
	if err != nil {
		return err
	}
	temporaryPath := temporary.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(temporaryPath)
		}
	}()

	if _, err := temporary.Write(data); err != nil {
		temporary.Close()
		return err
	}
	if err := temporary.Close(); err != nil {
		return err
	}
	if err := os.Rename(temporaryPath, path); err != nil {
		return err
	}
	success = true
	return nil
}
