// SPDX-License-Identifier: Apache-2.0

// Package mirtest provides the test fixtures the mirror test suite builds
// on: a tempfile-backed SQLite store per test and a fake GraphQL transport
// that replays canned responses in call order. It replaces pgroll's
// testcontainers-postgres fixture (pkg/testutils/db.go's SharedTestMain) —
// there is no server to containerize for an embedded, single-writer store,
// so a tempfile plays the role the container played there.
package mirtest

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/xataio/gqlmirror/pkg/store"
)

// OpenStore opens a fresh SQLite store backed by a tempfile, registering
// cleanup to close and remove it when t completes. Mirrors the shape of
// pgroll's per-test database-name allocation in pkg/testutils/db.go, minus
// the container.
func OpenStore(t *testing.T) *store.SQLite {
	t.Helper()

	f, err := os.CreateTemp(t.TempDir(), "mirror-*.sqlite")
	if err != nil {
		t.Fatalf("creating temp sqlite file: %v", err)
	}
	path := f.Name()
	if err := f.Close(); err != nil {
		t.Fatalf("closing temp sqlite file: %v", err)
	}

	db, err := store.Open(path)
	if err != nil {
		t.Fatalf("opening sqlite store: %v", err)
	}
	t.Cleanup(func() {
		db.Close()
	})

	return db
}

// FakeTransport is a hand-rolled postQuery double: a queue of canned
// responses returned in order, one per call, recording every body it was
// asked to post (variables are not recorded). Mirrors pkg/db/fake.go's FakeDB:
// a minimal recording stand-in rather than a real network client.
type FakeTransport struct {
	responses []map[string]any
	errs      []error
	calls     int

	// Requests records every body posted, in call order.
	Requests []string
}

// NewFakeTransport builds a transport that returns responses in order, one
// per call to PostQuery. Calling PostQuery more times than there are queued
// responses is a test bug and panics.
func NewFakeTransport(responses ...map[string]any) *FakeTransport {
	return &FakeTransport{responses: responses}
}

// QueueError arranges for the call-th invocation (0-indexed) to fail with
// err instead of returning a response.
func (f *FakeTransport) QueueError(call int, err error) {
	for len(f.errs) <= call {
		f.errs = append(f.errs, nil)
	}
	f.errs[call] = err
}

// PostQuery implements mirror.PostQuery.
func (f *FakeTransport) PostQuery(ctx context.Context, body string, variables map[string]any) (map[string]any, error) {
	f.Requests = append(f.Requests, body)
	call := f.calls
	f.calls++

	if call < len(f.errs) && f.errs[call] != nil {
		return nil, f.errs[call]
	}
	if call >= len(f.responses) {
		panic(fmt.Sprintf("mirtest: FakeTransport.PostQuery called %d times, only %d responses queued", call+1, len(f.responses)))
	}
	return f.responses[call], nil
}

// Calls reports how many times PostQuery has been invoked so far.
func (f *FakeTransport) Calls() int { return f.calls }
