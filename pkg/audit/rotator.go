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

// Package audit implements the audit-pull rotation policy (spec §4.9, C9):
// decide when a keys-left change warrants pulling a fresh audit file off
// the appliance, and keep only the newest MaxFiles of them on disk.
package audit

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/google/atft/pkg/clock"
)

// Puller fetches the appliance's current audit file contents (spec §4.8
// prepare_file("audit") + upload, wrapped by the appliance manager).
type Puller interface {
	PullAudit(ctx context.Context, applianceSerial string) ([]byte, error)
}

// Rotator tracks last_keys_at_pull per appliance and enforces the audit
// directory's retention policy.
type Rotator struct {
	mu sync.Mutex

	dir              string
	downloadInterval int
	maxFiles         int
	puller           Puller

	lastKeysAtPull map[string]int // absent entry == the "unknown" sentinel
}

// NewRotator returns a Rotator writing into dir. downloadInterval is the
// minimum keys-left delta that triggers a pull; maxFiles bounds how many
// `<serial>_*.audit` files are retained per appliance.
func NewRotator(dir string, downloadInterval, maxFiles int, puller Puller) *Rotator {
	return &Rotator{
		dir:              dir,
		downloadInterval: downloadInterval,
		maxFiles:         maxFiles,
		puller:           puller,
		lastKeysAtPull:   map[string]int{},
	}
}

// Reset forces the next OnKeysLeft call for applianceSerial to pull
// unconditionally (spec §4.9: called when a new appliance becomes current
// or a new product/SoM descriptor is selected).
func (r *Rotator) Reset(applianceSerial string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.lastKeysAtPull, applianceSerial)
}

// OnKeysLeft is the appliance manager's keys-left hook (spec §4.9
// on_keys_left). It pulls a fresh audit file when last_keys_at_pull is
// unknown or has dropped by at least downloadInterval since the last pull,
// then enforces retention. A pull failure retains all existing files and
// leaves last_keys_at_pull unchanged so the next call retries.
func (r *Rotator) OnKeysLeft(ctx context.Context, applianceSerial string, keysLeft int) error {
	r.mu.Lock()
	last, known := r.lastKeysAtPull[applianceSerial]
	shouldPull := !known || last-keysLeft >= r.downloadInterval
	r.mu.Unlock()

	if !shouldPull {
		return nil
	}

	content, err := r.puller.PullAudit(ctx, applianceSerial)
	if err != nil {
		return nil
	}

	name := applianceSerial + "_" + clock.Now().UTC().Format("20060102150405") + ".audit"
	if err := os.WriteFile(filepath.Join(r.dir, name), content, 0600); err != nil {
		return err
	}

	r.mu.Lock()
	r.lastKeysAtPull[applianceSerial] = keysLeft
	r.mu.Unlock()

	return r.rotate(applianceSerial)
}

// rotate deletes the oldest `<serial>_*.audit` files beyond maxFiles,
// ordered by filename (which sorts chronologically since the timestamp is
// fixed-width and zero-padded).
func (r *Rotator) rotate(applianceSerial string) error {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return err
	}

	var names []string
	prefix := applianceSerial + "_"
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		n := e.Name()
		if strings.HasPrefix(n, prefix) && strings.HasSuffix(n, ".audit") {
			names = append(names, n)
		}
	}
	sort.Strings(names)

	for len(names) > r.maxFiles {
		if err := os.Remove(filepath.Join(r.dir, names[0])); err != nil {
			return err
		}
		names = names[1:]
	}
	return nil
}
