// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package manifest

import (
	"fmt"

	"github.com/bureau-foundation/buildpatch/lib/binreader"
)

// DeserializeBinary parses a binary manifest. Manifests older than
// FeatureLevelStoredAsBinaryData and encrypted manifests are
// ErrUnsupported. The payload SHA1 is always verified.
func DeserializeBinary(data []byte, options Options) (*Manifest, error) {
	r := binreader.New(data)
	header, err := ParseHeader(r)
	if err != nil {
		return nil, err
	}

	if header.Version < FeatureLevelStoredAsBinaryData {
		return nil, fmt.Errorf("manifest feature level %s is below %s: %w", header.Version, FeatureLevelStoredAsBinaryData, ErrUnsupported)
	}
	if err := header.StoredAs.Check("manifest"); err != nil {
		return nil, err
	}

	payload, err := readPayload(r, header, options)
	if err != nil {
		return nil, err
	}

	if actual := ComputeSHA1(payload); actual != header.SHA {
		return nil, &IntegrityError{
			What:     "manifest payload SHA1",
			Expected: header.SHA.String(),
			Actual:   actual.String(),
		}
	}

	body := binreader.New(payload)
	meta, err := readMeta(body)
	if err != nil {
		return nil, err
	}
	chunks, err := readChunkList(body)
	if err != nil {
		return nil, err
	}
	files, err := readFileList(body)
	if err != nil {
		return nil, err
	}
	customFields, err := readCustomFields(body)
	if err != nil {
		return nil, err
	}

	return newManifest(meta, chunks, files, customFields, options)
}

// readPayload returns the uncompressed payload following the header.
func readPayload(r *binreader.Reader, header *Header, options Options) ([]byte, error) {
	if header.DataSizeCompressed < 0 || header.DataSizeUncompressed < 0 {
		return nil, fmt.Errorf("%w: manifest declares negative payload sizes (%d compressed, %d uncompressed)",
			ErrMalformed, header.DataSizeCompressed, header.DataSizeUncompressed)
	}

	if !header.StoredAs.Compressed() {
		payload, err := r.Bytes(int(header.DataSizeCompressed))
		if err != nil {
			return nil, malformed("manifest payload", err)
		}
		return payload, nil
	}

	if options.Decompressor == nil {
		return nil, fmt.Errorf("manifest is compressed and no decompressor is configured: %w", ErrConfiguration)
	}
	compressed, err := r.Bytes(int(header.DataSizeCompressed))
	if err != nil {
		return nil, malformed("compressed manifest payload", err)
	}
	return options.Decompress("manifest payload", compressed, int(header.DataSizeUncompressed))
}
