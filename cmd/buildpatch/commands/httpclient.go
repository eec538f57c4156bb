// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"log/slog"
	"net/http"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/hashicorp/go-retryablehttp"

	"github.com/bureau-foundation/buildpatch/lib/config"
	"github.com/bureau-foundation/buildpatch/lib/version"
)

// newHTTPClient returns the client used for manifest and chunk
// downloads. Retries live here, in the client, so the chunk store
// itself never retries.
func newHTTPClient(cfg config.HTTPConfig, logger *slog.Logger) (*http.Client, error) {
	timeout, err := cfg.TimeoutDuration()
	if err != nil {
		return nil, err
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = version.UserAgent()
	}

	retrying := retryablehttp.NewClient()
	retrying.RetryMax = cfg.RetryMax
	retrying.Logger = logger.With("component", "http")
	retrying.HTTPClient = &http.Client{
		Timeout: timeout,
		Transport: &userAgentTransport{
			base:      cleanhttp.DefaultPooledTransport(),
			userAgent: userAgent,
		},
	}
	return retrying.StandardClient(), nil
}

type userAgentTransport struct {
	base      http.RoundTripper
	userAgent string
}

func (t *userAgentTransport) RoundTrip(request *http.Request) (*http.Response, error) {
	if request.Header.Get("User-Agent") == "" {
		request = request.Clone(request.Context())
		request.Header.Set("User-Agent", t.userAgent)
	}
	return t.base.RoundTrip(request)
}
