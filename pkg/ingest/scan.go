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

package ingest

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/atft/pkg/fastboot"
	"golang.org/x/sync/errgroup"
)

// Scan runs one pass over the staging directory (spec §4.10 steps 1-7). It
// is exported so callers (tests, or a manual "ingest now" command) can drive
// a pass without waiting on the ticker.
func (s *Scanner) Scan(ctx context.Context) error {
	a := s.registry.Appliance()
	if a == nil {
		return nil
	}
	serial := a.Serial

	candidates, err := s.candidates(serial)
	if err != nil {
		return err
	}
	if len(candidates) == 0 {
		return nil
	}

	eg, egCtx := errgroup.WithContext(ctx)
	for _, name := range candidates {
		name := name
		eg.Go(func() error {
			path := filepath.Join(s.stagingDir, name)
			if err := a.Token.Acquire(egCtx); err != nil {
				return err
			}
			defer a.Token.Release()
			err := s.manager.ProcessKey(egCtx, a, path)
			switch {
			case err == nil:
				return s.markProcessed(serial, name)
			case isAlreadyProcessed(err):
				return s.markProcessed(serial, name)
			case isDeviceNotFound(err):
				return nil // skip, retry later
			default:
				return nil // any other TransportFailure: don't record, retry next tick
			}
		})
	}
	return eg.Wait()
}

// candidates lists staging-directory files not yet in the dedup set whose
// basename starts with serial and whose extension matches s.extension.
func (s *Scanner) candidates(serial string) ([]string, error) {
	entries, err := os.ReadDir(s.stagingDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	seen := s.processed[serial]
	s.mu.Unlock()

	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasPrefix(name, serial) || !strings.HasSuffix(name, s.extension) {
			continue
		}
		if seen[name] {
			continue
		}
		out = append(out, name)
	}
	return out, nil
}

// markProcessed records name as handled for serial: appends it to
// <serial>.log (creating the log directory/file as needed) and adds it to
// the in-memory set, guarded against two goroutines racing on the same
// appliance's log file within one scan pass.
func (s *Scanner) markProcessed(serial, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.logDir, 0755); err != nil {
		return err
	}
	f, err := os.OpenFile(filepath.Join(s.logDir, serial+".log"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.WriteString(name + "\n"); err != nil {
		return err
	}

	set := s.processed[serial]
	if set == nil {
		set = map[string]bool{}
		s.processed[serial] = set
	}
	set[name] = true
	return nil
}

func isAlreadyProcessed(err error) bool {
	tf, ok := err.(*fastboot.TransportFailure)
	return ok && strings.Contains(tf.Message, "Keybundle was previously processed")
}

func isDeviceNotFound(err error) bool {
	_, ok := err.(*fastboot.DeviceNotFound)
	return ok
}
