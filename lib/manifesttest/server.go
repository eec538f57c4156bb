// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package manifesttest

import (
	"net/http"
	"net/http/httptest"
	"path"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// Server is a chunk CDN for a fixture. Chunks are served from
// "/{subdir}/{group:02}/{hash}_{guid}.chunk" regardless of subdir;
// the request path is recorded so tests can assert which URLs were
// derived.
type Server struct {
	*httptest.Server

	fixture *Fixture

	mu       sync.Mutex
	requests map[string]int
	paths    []string

	failNext atomic.Int32
	delay    atomic.Int64
}

// NewServer starts a server for fixture and closes it when the test
// ends.
func NewServer(t testing.TB, fixture *Fixture) *Server {
	t.Helper()
	s := &Server{fixture: fixture, requests: make(map[string]int)}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.Close)
	return s
}

// BaseURL is the chunk base URL to configure, with trailing slash.
func (s *Server) BaseURL() string { return s.URL + "/" }

// FailNext makes the next n requests answer 503.
func (s *Server) FailNext(n int) { s.failNext.Store(int32(n)) }

// SetDelay holds every response for d before writing it.
func (s *Server) SetDelay(d time.Duration) { s.delay.Store(int64(d)) }

// Requests returns how many requests named the chunk object filename.
func (s *Server) Requests(filename string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[filename]
}

// TotalRequests returns the number of requests served so far,
// including failed ones.
func (s *Server) TotalRequests() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.paths)
}

// Paths returns every request path in arrival order.
func (s *Server) Paths() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.paths...)
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	filename := path.Base(r.URL.Path)

	s.mu.Lock()
	s.requests[filename]++
	s.paths = append(s.paths, r.URL.Path)
	s.mu.Unlock()

	if delay := time.Duration(s.delay.Load()); delay > 0 {
		select {
		case <-time.After(delay): //nolint:realclock simulated network latency
		case <-r.Context().Done():
			return
		}
	}

	for {
		remaining := s.failNext.Load()
		if remaining <= 0 {
			break
		}
		if s.failNext.CompareAndSwap(remaining, remaining-1) {
			http.Error(w, "injected failure", http.StatusServiceUnavailable)
			return
		}
	}

	if !strings.HasSuffix(filename, ".chunk") {
		http.NotFound(w, r)
		return
	}
	chunk, ok := s.fixture.ChunkByFilename(filename)
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Write(chunk.Blob)
}
