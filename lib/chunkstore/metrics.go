// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chunkstore

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricsNamespace = "buildpatch"
	metricsSubsystem = "chunkstore"
)

// Cache tiers reported in the cache_hits_total "tier" label.
const (
	TierMemory = "memory"
	TierDisk   = "disk"
)

// Metrics are the Prometheus collectors a Store updates. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	Downloads       prometheus.Counter
	DownloadedBytes prometheus.Counter
	CacheHits       *prometheus.CounterVec
	Failures        *prometheus.CounterVec
	InFlight        prometheus.Gauge
}

// NewMetrics creates the chunk store collectors and registers them
// with registerer. A nil registerer leaves them unregistered, which
// suits tests that read the collectors directly.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		Downloads: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "downloads_total",
			Help:      "Chunk containers downloaded from the CDN.",
		}),
		DownloadedBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "downloaded_bytes_total",
			Help:      "Bytes of chunk containers downloaded from the CDN.",
		}),
		CacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "cache_hits_total",
			Help:      "Chunk resolutions served without a download. Broken down by cache tier.",
		}, []string{"tier"}),
		Failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "failures_total",
			Help:      "Chunk resolutions that failed. Broken down by error class.",
		}, []string{"class"}),
		InFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "downloads_in_flight",
			Help:      "Chunk downloads currently in progress.",
		}),
	}
	if registerer != nil {
		registerer.MustRegister(m.Downloads, m.DownloadedBytes, m.CacheHits, m.Failures, m.InFlight)
	}
	return m
}

func (m *Metrics) hit(tier string) {
	if m != nil {
		m.CacheHits.WithLabelValues(tier).Inc()
	}
}

func (m *Metrics) downloadStarted() {
	if m != nil {
		m.InFlight.Inc()
	}
}

func (m *Metrics) downloadFinished(bytes int) {
	if m == nil {
		return
	}
	m.InFlight.Dec()
	if bytes >= 0 {
		m.Downloads.Inc()
		m.DownloadedBytes.Add(float64(bytes))
	}
}

func (m *Metrics) failure(class string) {
	if m != nil {
		m.Failures.WithLabelValues(class).Inc()
	}
}
