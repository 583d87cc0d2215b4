/*
Copyright 2026 ATFT Contributors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package audit

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

type fakePuller struct {
	calls   int
	content []byte
	err     error
}

func (f *fakePuller) PullAudit(ctx context.Context, applianceSerial string) ([]byte, error) {
	f.calls++
	return f.content, f.err
}

func TestOnKeysLeftPullsWhenUnknown(t *testing.T) {
	dir := t.TempDir()
	puller := &fakePuller{content: []byte("audit data")}
	r := NewRotator(dir, 10, 5, puller)

	if err := r.OnKeysLeft(context.Background(), "ATFA0001", 50); err != nil {
		t.Fatalf("OnKeysLeft() error = %v", err)
	}
	if puller.calls != 1 {
		t.Fatalf("PullAudit calls = %d, want 1", puller.calls)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Fatalf("len(entries) = %d, want 1", len(entries))
	}
}

func TestOnKeysLeftSkipsBelowThreshold(t *testing.T) {
	dir := t.TempDir()
	puller := &fakePuller{content: []byte("audit data")}
	r := NewRotator(dir, 10, 5, puller)

	r.OnKeysLeft(context.Background(), "ATFA0001", 50)
	if err := r.OnKeysLeft(context.Background(), "ATFA0001", 45); err != nil {
		t.Fatalf("OnKeysLeft() error = %v", err)
	}
	if puller.calls != 1 {
		t.Fatalf("PullAudit calls = %d, want 1 (delta below download_interval)", puller.calls)
	}
}

func TestOnKeysLeftPullsAgainAfterDelta(t *testing.T) {
	dir := t.TempDir()
	puller := &fakePuller{content: []byte("audit data")}
	r := NewRotator(dir, 10, 5, puller)

	r.OnKeysLeft(context.Background(), "ATFA0001", 50)
	if err := r.OnKeysLeft(context.Background(), "ATFA0001", 39); err != nil {
		t.Fatalf("OnKeysLeft() error = %v", err)
	}
	if puller.calls != 2 {
		t.Fatalf("PullAudit calls = %d, want 2", puller.calls)
	}
}

func TestOnKeysLeftFailureRetainsFiles(t *testing.T) {
	dir := t.TempDir()
	puller := &fakePuller{err: errPullFailed}
	r := NewRotator(dir, 10, 5, puller)

	if err := r.OnKeysLeft(context.Background(), "ATFA0001", 50); err != nil {
		t.Fatalf("OnKeysLeft() error = %v, want nil (failure is swallowed)", err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Fatalf("len(entries) = %d, want 0", len(entries))
	}

	// last_keys_at_pull must remain unknown so the very next call retries.
	puller.err = nil
	puller.content = []byte("ok now")
	if err := r.OnKeysLeft(context.Background(), "ATFA0001", 50); err != nil {
		t.Fatalf("OnKeysLeft() retry error = %v", err)
	}
	if puller.calls != 2 {
		t.Fatalf("PullAudit calls = %d, want 2 (retry after failure)", puller.calls)
	}
}

func TestResetForcesUnconditionalPull(t *testing.T) {
	dir := t.TempDir()
	puller := &fakePuller{content: []byte("audit data")}
	r := NewRotator(dir, 10, 5, puller)

	r.OnKeysLeft(context.Background(), "ATFA0001", 50)
	r.Reset("ATFA0001")
	if err := r.OnKeysLeft(context.Background(), "ATFA0001", 49); err != nil {
		t.Fatalf("OnKeysLeft() error = %v", err)
	}
	if puller.calls != 2 {
		t.Fatalf("PullAudit calls = %d, want 2 (reset forces a pull despite small delta)", puller.calls)
	}
}

func TestRotateDeletesOldestBeyondMaxFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{
		"ATFA0001_20260101000000.audit",
		"ATFA0001_20260102000000.audit",
		"ATFA0001_20260103000000.audit",
		"ATFA0002_20260101000000.audit", // different appliance, must survive
	} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0600); err != nil {
			t.Fatal(err)
		}
	}

	r := NewRotator(dir, 10, 2, &fakePuller{content: []byte("new")})
	if err := r.rotate("ATFA0001"); err != nil {
		t.Fatalf("rotate() error = %v", err)
	}

	entries, _ := os.ReadDir(dir)
	var remaining []string
	for _, e := range entries {
		remaining = append(remaining, e.Name())
	}
	if len(remaining) != 3 {
		t.Fatalf("remaining = %v, want 3 files (2 newest ATFA0001 + the ATFA0002 one)", remaining)
	}
	for _, n := range remaining {
		if n == "ATFA0001_20260101000000.audit" {
			t.Errorf("oldest ATFA0001 file should have been rotated out, found %q", n)
		}
	}
}

var errPullFailed = &pullError{}

type pullError struct{}

func (*pullError) Error() string { return "simulated pull failure" }
