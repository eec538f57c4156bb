// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package keylock provides a table of mutexes keyed by an arbitrary
// comparable value. Locks are created when first requested and
// removed as soon as no holder or waiter references them, so the
// table stays proportional to the number of keys in active use
// rather than the number of keys ever seen.
//
// Waiting honors context cancellation: a waiter whose context ends
// gives up its place without ever holding the lock. Locks for
// different keys are fully independent.
package keylock

import (
	"context"
	"sync"
)

// Table is a set of per-key exclusive locks. The zero value is not
// usable; create tables with [New].
type Table[K comparable] struct {
	mu    sync.Mutex
	locks map[K]*entry
}

// entry is one key's lock. The buffered channel is the lock itself:
// a successful send acquires it, a receive releases it. references
// counts the holder plus every waiter and is guarded by Table.mu.
type entry struct {
	token      chan struct{}
	references int
}

// New returns an empty table. sizeHint pre-sizes the key map for the
// expected number of concurrently locked keys.
func New[K comparable](sizeHint int) *Table[K] {
	if sizeHint < 0 {
		sizeHint = 0
	}
	return &Table[K]{locks: make(map[K]*entry, sizeHint)}
}

// Lock acquires the lock for key, blocking until it is available or
// ctx is done. On success it returns a function that releases the
// lock; the function must be called exactly once. An already-done
// context fails immediately without touching the table.
func (t *Table[K]) Lock(ctx context.Context, key K) (unlock func(), err error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	t.mu.Lock()
	lock, ok := t.locks[key]
	if !ok {
		lock = &entry{token: make(chan struct{}, 1)}
		t.locks[key] = lock
	}
	lock.references++
	t.mu.Unlock()

	select {
	case lock.token <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() {
				<-lock.token
				t.drop(key, lock)
			})
		}, nil
	case <-ctx.Done():
		t.drop(key, lock)
		return nil, ctx.Err()
	}
}

// drop removes one reference and deletes the entry when it was the
// last.
func (t *Table[K]) drop(key K, lock *entry) {
	t.mu.Lock()
	lock.references--
	if lock.references == 0 {
		delete(t.locks, key)
	}
	t.mu.Unlock()
}

// Len returns the number of keys that currently have a holder or a
// waiter.
func (t *Table[K]) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.locks)
}
