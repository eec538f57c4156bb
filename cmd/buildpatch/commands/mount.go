// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bureau-foundation/buildpatch/cmd/buildpatch/cli"
	"github.com/bureau-foundation/buildpatch/lib/chunkstore"
	"github.com/bureau-foundation/buildpatch/lib/manifestfs"
)

type mountParams struct {
	BuildSource
	AllowOther    bool   `flag:"allow-other"    desc:"allow other users to access the mount (needs user_allow_other in /etc/fuse.conf)"`
	Prefetch      int    `flag:"prefetch"       desc:"chunks prefetched on first read of a file (0 = default, negative disables)"`
	MetricsListen string `flag:"metrics-listen" desc:"serve Prometheus metrics on this address (e.g. 127.0.0.1:9464)"`
}

func mountCommand(env *environment) *cli.Command {
	var params mountParams

	return &cli.Command{
		Name:    "mount",
		Summary: "Mount a build as a read-only FUSE filesystem",
		Usage:   "buildpatch mount -m <manifest> <mountpoint> [flags]",
		Description: `Expose the files of a build under mountpoint without extracting
it. Reads download only the chunks they touch, through the chunk cache.
The command runs until interrupted, then unmounts.

With --metrics-listen, chunk store counters (downloads, bytes, cache
hits per tier, failures) are served at /metrics.`,
		Examples: []cli.Example{
			{
				Description: "Mount a build and serve metrics",
				Command:     "buildpatch mount -m Game.manifest /mnt/game --metrics-listen 127.0.0.1:9464",
			},
		},
		Params: func() any { return &params },
		Run: func(ctx context.Context, args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("usage: buildpatch mount <mountpoint>")
			}
			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			b, err := params.open(ctx, env, "mount")
			if err != nil {
				return err
			}

			var metrics *chunkstore.Metrics
			if params.MetricsListen != "" {
				registry := prometheus.NewRegistry()
				registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
				metrics = chunkstore.NewMetrics(registry)
				shutdown, err := serveMetrics(params.MetricsListen, registry, b.logger)
				if err != nil {
					return err
				}
				defer shutdown()
				b.logger.Info("serving metrics", "address", params.MetricsListen)
			}

			store, err := b.store(metrics)
			if err != nil {
				return err
			}
			server, err := manifestfs.Mount(manifestfs.Options{
				Mountpoint:     args[0],
				Store:          store,
				PrefetchChunks: params.Prefetch,
				AllowOther:     params.AllowOther,
				Logger:         b.logger,
			})
			if err != nil {
				return err
			}

			unmounted := make(chan struct{})
			go func() {
				server.Wait()
				close(unmounted)
			}()

			select {
			case <-ctx.Done():
				b.logger.Info("unmounting", "mountpoint", args[0])
				if err := server.Unmount(); err != nil {
					return fmt.Errorf("unmounting %s: %w", args[0], err)
				}
				<-unmounted
			case <-unmounted:
				b.logger.Info("unmounted externally", "mountpoint", args[0])
			}
			return nil
		},
	}
}

// serveMetrics starts a Prometheus endpoint on address and returns a
// function that stops it.
func serveMetrics(address string, gatherer prometheus.Gatherer, logger *slog.Logger) (func(), error) {
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return nil, fmt.Errorf("listening for metrics on %s: %w", address, err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	server := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", err)
		}
	}()
	return func() {
		shutdownContext, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownContext)
	}, nil
}
