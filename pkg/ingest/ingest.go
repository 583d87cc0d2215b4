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

// Package ingest implements the key-bundle ingest scanner (spec §4.10, C10):
// a periodic task that watches a staging directory for key-bundle files
// named for the current appliance and hands each unprocessed one to the
// appliance manager, persisting a per-appliance dedup log so a restart
// doesn't reprocess files already consumed.
package ingest

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/atft/pkg/device"
)

const defaultScanInterval = 300 * time.Second

// Registry exposes just enough of the device registry for the scanner to
// find the current appliance and respect its exclusivity token.
type Registry interface {
	Appliance() *device.Appliance
}

// Manager is the subset of the appliance manager the scanner drives.
type Manager interface {
	ProcessKey(ctx context.Context, a *device.Appliance, localPath string) error
}

// Scanner implements the periodic staging-directory scan.
type Scanner struct {
	registry   Registry
	manager    Manager
	stagingDir string
	logDir     string
	extension  string
	interval   time.Duration

	mu        sync.Mutex
	processed map[string]map[string]bool // appliance serial -> basenames already handled

	stop    chan struct{}
	stopped chan struct{}
}

// Config bundles the scanner's directory and filtering parameters.
type Config struct {
	StagingDir string
	LogDir     string
	Extension  string // e.g. ".atak", compared case-sensitively against the file's suffix

	// Interval defaults to 300s (spec §4.10) when zero.
	Interval time.Duration
}

// New returns a Scanner and rebuilds its in-memory dedup set from every
// `<serial>.log` already in cfg.LogDir (spec §4.10 "on startup, rebuild").
func New(registry Registry, manager Manager, cfg Config) (*Scanner, error) {
	interval := cfg.Interval
	if interval == 0 {
		interval = defaultScanInterval
	}
	s := &Scanner{
		registry:   registry,
		manager:    manager,
		stagingDir: cfg.StagingDir,
		logDir:     cfg.LogDir,
		extension:  cfg.Extension,
		interval:   interval,
		processed:  map[string]map[string]bool{},
		stop:       make(chan struct{}),
		stopped:    make(chan struct{}),
	}
	if err := s.loadLogs(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Scanner) loadLogs() error {
	entries, err := os.ReadDir(s.logDir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".log") {
			continue
		}
		serial := strings.TrimSuffix(e.Name(), ".log")
		set, err := readLogSet(filepath.Join(s.logDir, e.Name()))
		if err != nil {
			return err
		}
		s.processed[serial] = set
	}
	return nil
}

func readLogSet(path string) (map[string]bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	set := map[string]bool{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		name := strings.TrimSpace(scanner.Text())
		if name != "" {
			set[name] = true
		}
	}
	return set, scanner.Err()
}
