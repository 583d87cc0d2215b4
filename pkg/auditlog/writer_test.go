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

package auditlog

import (
	"os"
	"testing"
)

func TestWriterRollsOverPastMaxBytes(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir, 20, 10)
	if err != nil {
		t.Fatalf("NewWriter() error = %v", err)
	}

	for i := 0; i < 5; i++ {
		if _, err := w.Write([]byte("0123456789\n")); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
	}

	names, err := logFileNames(dir)
	if err != nil {
		t.Fatalf("logFileNames() error = %v", err)
	}
	if len(names) < 2 {
		t.Fatalf("len(names) = %d, want at least 2 (11 bytes/line, max 20 bytes/file)", len(names))
	}
}

func TestWriterEnforcesMaxFiles(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir, 1, 2) // max_bytes=1 forces a new file every write
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		if _, err := w.Write([]byte("x\n")); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
	}

	names, err := logFileNames(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(names) > 2 {
		t.Fatalf("len(names) = %d, want at most 2", len(names))
	}
}

func TestCreateFileAvoidsCollisionWithinSameSecond(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir, 1, 10)
	if err != nil {
		t.Fatal(err)
	}

	f1, err := w.createFile()
	if err != nil {
		t.Fatalf("createFile() error = %v", err)
	}
	f1.Close()
	f2, err := w.createFile()
	if err != nil {
		t.Fatalf("createFile() second call error = %v", err)
	}
	f2.Close()

	if f1.Name() == f2.Name() {
		t.Fatalf("expected distinct names, got %q twice", f1.Name())
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 2 {
		t.Fatalf("len(entries) = %d, want 2", len(entries))
	}
}
