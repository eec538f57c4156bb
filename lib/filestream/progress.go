// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package filestream

import "sync"

// Progress reports a save in flight.
type Progress struct {
	BytesSaved int64
	TotalBytes int64

	// Percent is the whole percentage saved, truncated.
	Percent int
}

// progressTracker accumulates saved bytes and calls the callback when
// the whole percentage changes. Calls are serialized, so a callback
// never observes progress going backwards.
type progressTracker struct {
	callback func(Progress)
	total    int64

	mu      sync.Mutex
	saved   int64
	percent int
}

func newProgressTracker(total int64, callback func(Progress)) *progressTracker {
	return &progressTracker{callback: callback, total: total}
}

func (p *progressTracker) add(bytes int) {
	if p.callback == nil || p.total <= 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	p.saved += int64(bytes)
	percent := int(p.saved * 100 / p.total)
	if percent == p.percent {
		return
	}
	p.percent = percent
	p.callback(Progress{BytesSaved: p.saved, TotalBytes: p.total, Percent: percent})
}
