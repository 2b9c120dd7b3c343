// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package testutil holds channel helpers shared by tests that wait on
// asynchronous delivery
package testutil

import (
	"testing"
	"time"
)

// RequireReceive returns the next value from ch, failing the test if none
// arrives within timeout
func RequireReceive[T any](
	t *testing.T,
	ch <-chan T,
	timeout time.Duration,
	msg string,
) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(timeout):
		t.Fatalf("nothing received within %s: %s", timeout, msg)
	}
	var zero T
	return zero
}

// RequireNoReceive fails the test if ch yields a value within wait
func RequireNoReceive[T any](
	t *testing.T,
	ch <-chan T,
	wait time.Duration,
	msg string,
) {
	t.Helper()
	select {
	case v := <-ch:
		t.Fatalf("unexpected value %v: %s", v, msg)
	case <-time.After(wait):
	}
}

// RequireClosed waits for ch to be closed or yield a value
func RequireClosed(
	t *testing.T,
	ch <-chan struct{},
	timeout time.Duration,
	msg string,
) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(timeout):
		t.Fatalf("not closed within %s: %s", timeout, msg)
	}
}
