// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/buildpatch/cmd/buildpatch/cli"
	"github.com/bureau-foundation/buildpatch/lib/chunkstore"
	"github.com/bureau-foundation/buildpatch/lib/config"
	"github.com/bureau-foundation/buildpatch/lib/manifest"
	"github.com/bureau-foundation/buildpatch/lib/manifestinfo"
)

// BuildSource holds the flags that locate a build and its chunks.
// Implements [cli.FlagBinder]; exported so reflection in
// [cli.FlagsFromParams] sees it when embedded.
type BuildSource struct {
	ConfigPath   string
	Manifest     string
	ManifestInfo string
	App          string
	Label        string
	BaseURL      string
	CacheDir     string
	AsIs         bool
	NoCache      bool
	Verbose      bool
}

// AddFlags registers the build location flags.
func (s *BuildSource) AddFlags(flagSet *pflag.FlagSet) {
	flagSet.StringVar(&s.ConfigPath, "config", "", "config file (default $"+config.EnvironmentVariable+")")
	flagSet.StringVarP(&s.Manifest, "manifest", "m", "", "manifest file path or http(s) URL")
	flagSet.StringVar(&s.ManifestInfo, "manifest-info", "", "manifest-info document to select the manifest from")
	flagSet.StringVar(&s.App, "app", "", "app name to select from --manifest-info (default: first element)")
	flagSet.StringVar(&s.Label, "label", "", "label name to select from --manifest-info")
	flagSet.StringVar(&s.BaseURL, "base-url", "", "chunk base URL (overrides chunk_base_url)")
	flagSet.StringVar(&s.CacheDir, "cache-dir", "", "chunk cache directory (overrides chunk_cache_dir)")
	flagSet.BoolVar(&s.AsIs, "as-is", false, "cache chunk files exactly as downloaded")
	flagSet.BoolVar(&s.NoCache, "no-cache", false, "keep chunks in memory only")
	flagSet.BoolVarP(&s.Verbose, "verbose", "v", false, "log at debug level")
}

// build is a parsed manifest with everything needed to fetch its
// chunks.
type build struct {
	config   *config.Config
	logger   *slog.Logger
	client   *http.Client
	options  manifest.Options
	manifest *manifest.Manifest
}

// loadConfig resolves the config file and applies flag overrides.
func (s *BuildSource) loadConfig() (*config.Config, error) {
	cfg, err := config.Resolve(s.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if s.BaseURL != "" {
		cfg.ChunkBaseURL = s.BaseURL
	}
	if s.CacheDir != "" {
		cfg.ChunkCacheDir = s.CacheDir
	}
	if s.NoCache {
		cfg.ChunkCacheDir = ""
	}
	if s.AsIs {
		cfg.CacheChunksAsIs = true
	}
	if s.Verbose {
		cfg.LogLevel = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// open loads the config and parses the manifest.
func (s *BuildSource) open(ctx context.Context, env *environment, command string) (*build, error) {
	cfg, err := s.loadConfig()
	if err != nil {
		return nil, err
	}
	level, _ := cfg.Level()
	logger := cli.NewCommandLogger(env.stderr, level).With("command", command)

	client, err := newHTTPClient(cfg.HTTP, logger)
	if err != nil {
		return nil, err
	}

	options := manifest.DefaultOptions()
	options.ChunkBaseURL = cfg.ChunkBaseURL
	options.Client = client
	options.ChunkCacheDirectory = cfg.ChunkCacheDir
	options.CacheChunksAsIs = cfg.CacheChunksAsIs
	options.ManifestCacheDirectory = cfg.ManifestCacheDir
	options.Logger = logger
	if cfg.ChunkDownloadBufferSize > 0 {
		options.ChunkDownloadBufferSize = cfg.ChunkDownloadBufferSize
	}

	m, err := s.parseManifest(ctx, options)
	if err != nil {
		return nil, err
	}
	logger.Debug("manifest loaded",
		"app", m.Meta.AppName,
		"version", m.Meta.BuildVersion,
		"files", len(m.Files),
		"chunks", len(m.Chunks),
	)
	return &build{config: cfg, logger: logger, client: client, options: options, manifest: m}, nil
}

func (s *BuildSource) parseManifest(ctx context.Context, options manifest.Options) (*manifest.Manifest, error) {
	switch {
	case s.Manifest != "" && s.ManifestInfo != "":
		return nil, errors.New("--manifest and --manifest-info are mutually exclusive")

	case s.ManifestInfo != "":
		info, err := manifestinfo.ReadFile(s.ManifestInfo)
		if err != nil {
			return nil, err
		}
		m, _, err := info.DownloadAndParse(ctx, options, s.selection())
		return m, err

	case isURL(s.Manifest):
		// A single-location document shares the manifest cache logic.
		info := &manifestinfo.Info{Elements: []manifestinfo.Element{{
			Manifests: []manifestinfo.Location{{URI: s.Manifest}},
		}}}
		m, _, err := info.DownloadAndParse(ctx, options, manifestinfo.Selection{})
		return m, err

	case s.Manifest != "":
		return manifest.ReadFile(s.Manifest, options)
	}
	return nil, errors.New("one of --manifest or --manifest-info is required")
}

func (s *BuildSource) selection() manifestinfo.Selection {
	if s.App == "" && s.Label == "" {
		return manifestinfo.Selection{}
	}
	return manifestinfo.Selection{
		Element: func(element *manifestinfo.Element) bool {
			return (s.App == "" || strings.EqualFold(element.AppName, s.App)) &&
				(s.Label == "" || strings.EqualFold(element.LabelName, s.Label))
		},
	}
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// store creates the chunk store for the build.
func (b *build) store(metrics *chunkstore.Metrics) (*chunkstore.Store, error) {
	memory := b.config.MemoryCacheChunks
	if memory == 0 {
		memory = -1
	}
	store, err := chunkstore.New(b.manifest, chunkstore.Options{
		MemoryCacheSize: memory,
		Metrics:         metrics,
		Logger:          b.logger,
	})
	if err != nil {
		if errors.Is(err, manifest.ErrConfiguration) && b.options.ChunkBaseURL == "" {
			return nil, fmt.Errorf("%w (set --base-url or chunk_base_url)", err)
		}
		return nil, err
	}
	return store, nil
}

// selectFiles returns the named files, or every file when names is
// empty, keeping those that carry any of tags.
func (b *build) selectFiles(names []string, tags []string) ([]*manifest.File, error) {
	files := b.manifest.Files
	if len(names) > 0 {
		files = make([]*manifest.File, 0, len(names))
		for _, name := range names {
			file, ok := b.manifest.FileByName(name)
			if !ok {
				return nil, fmt.Errorf("no file named %q in %s %s", name, b.manifest.Meta.AppName, b.manifest.Meta.BuildVersion)
			}
			files = append(files, file)
		}
	}
	if len(tags) == 0 {
		return files, nil
	}

	var selected []*manifest.File
	for _, file := range files {
		for _, tag := range tags {
			if file.HasTag(tag) {
				selected = append(selected, file)
				break
			}
		}
	}
	return selected, nil
}

// concurrency returns the flag value when set, else the config value.
func (b *build) concurrency(flagValue int) int {
	if flagValue > 0 {
		return flagValue
	}
	return b.config.MaxConcurrency
}
