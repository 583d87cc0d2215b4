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
	"path/filepath"
	"strconv"
	"testing"
)

func writeProc(t *testing.T, root string, pid int, comm string, ppid int) {
	t.Helper()
	dir := filepath.Join(root, strconv.Itoa(pid))
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "comm"), []byte(comm+"\n"), 0644); err != nil {
		t.Fatal(err)
	}
	stat := strconv.Itoa(pid) + " (" + comm + ") S " + strconv.Itoa(ppid) + " 0 0\n"
	if err := os.WriteFile(filepath.Join(dir, "stat"), []byte(stat), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestCheckSingleInstanceDetectsAnotherRunningCopy(t *testing.T) {
	root := t.TempDir()
	orig := procRoot
	procRoot = root
	defer func() { procRoot = orig }()

	writeProc(t, root, 100, "atft", 1)
	writeProc(t, root, 200, "atft", 1)

	running, err := checkSingleInstance("atft", 200)
	if err != nil {
		t.Fatalf("checkSingleInstance() error = %v", err)
	}
	if !running {
		t.Fatal("running = false, want true (pid 100 is another atft instance)")
	}
}

func TestCheckSingleInstanceIgnoresOwnChildOfAnotherInstance(t *testing.T) {
	root := t.TempDir()
	orig := procRoot
	procRoot = root
	defer func() { procRoot = orig }()

	writeProc(t, root, 100, "atft", 1)
	writeProc(t, root, 101, "atft", 100) // child of pid 100, e.g. a re-exec wrapper

	running, err := checkSingleInstance("atft", 101)
	if err != nil {
		t.Fatalf("checkSingleInstance() error = %v", err)
	}
	if running {
		t.Fatal("running = true, want false (100 is a parent, not a sibling instance)")
	}
}

func TestCheckSingleInstanceFalseWhenAlone(t *testing.T) {
	root := t.TempDir()
	orig := procRoot
	procRoot = root
	defer func() { procRoot = orig }()

	writeProc(t, root, 100, "atft", 1)
	writeProc(t, root, 999, "other-program", 1)

	running, err := checkSingleInstance("atft", 100)
	if err != nil {
		t.Fatalf("checkSingleInstance() error = %v", err)
	}
	if running {
		t.Fatal("running = true, want false (no other atft process)")
	}
}
