// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"fmt"
	"testing"
	"time"
)

// RequireReceive returns the next value sent on ch. The test fails if
// nothing arrives within timeout or ch is closed first. The optional
// message is a format string and its arguments.
//
//	window := testutil.RequireReceive(t, results, 5*time.Second, "fetch %d", i)
func RequireReceive[T any](t testing.TB, ch <-chan T, timeout time.Duration, message ...any) T {
	t.Helper()
	timer := time.NewTimer(timeout) //nolint:realclock test hang prevention
	defer timer.Stop()
	select {
	case value, ok := <-ch:
		if !ok {
			t.Fatalf("%s: channel closed before a value was sent", describe(message))
		}
		return value
	case <-timer.C:
		t.Fatalf("%s: nothing received within %v", describe(message), timeout)
	}
	panic("unreachable")
}

// RequireClosed waits for ch to be closed or to deliver a value. The
// test fails after timeout.
//
//	testutil.RequireClosed(t, acquired, 5*time.Second, "lock for another key")
func RequireClosed(t testing.TB, ch <-chan struct{}, timeout time.Duration, message ...any) {
	t.Helper()
	timer := time.NewTimer(timeout) //nolint:realclock test hang prevention
	defer timer.Stop()
	select {
	case <-ch:
	case <-timer.C:
		t.Fatalf("%s: channel still open after %v", describe(message), timeout)
	}
}

func describe(message []any) string {
	if len(message) == 0 {
		return "waiting on channel"
	}
	format, ok := message[0].(string)
	if !ok {
		return fmt.Sprint(message...)
	}
	return fmt.Sprintf(format, message[1:]...)
}
