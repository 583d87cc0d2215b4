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

package registry

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/atft/pkg/clock"
	"github.com/google/atft/pkg/device"
	"github.com/google/atft/pkg/fastboot"
	"github.com/google/atft/pkg/location"
	"github.com/google/atft/pkg/provision"
	"github.com/hashicorp/go-version"
)

const appliancePrefix = "ATFA"

// Registry holds the live, debounced view of attached devices (spec §4.4).
type Registry struct {
	mu sync.RWMutex

	transport      fastboot.Transport
	location       location.Oracle
	prober         provision.SomProber
	compatVersion  *version.Version

	targets   map[string]*device.Target
	appliance *device.Appliance

	prevSeen map[string]bool // raw serials observed on the previous tick

	pause pauseCounter

	interval time.Duration
	events   chan Event
	stop     chan struct{}
	stopped  chan struct{}
}

// New constructs a Registry. compatibleVersion is the minimum ATFA firmware
// version string (spec's COMPATIBLE_ATFA_VERSION config key).
func New(transport fastboot.Transport, oracle location.Oracle, prober provision.SomProber, compatibleVersion string, interval time.Duration) (*Registry, error) {
	v, err := version.NewVersion(compatibleVersion)
	if err != nil {
		return nil, err
	}
	return &Registry{
		transport:     transport,
		location:      oracle,
		prober:        prober,
		compatVersion: v,
		targets:       map[string]*device.Target{},
		prevSeen:      map[string]bool{},
		interval:      interval,
		events:        make(chan Event, 16),
		stop:          make(chan struct{}),
		stopped:       make(chan struct{}),
	}, nil
}

// Events exposes the lifecycle event stream.
func (r *Registry) Events() <-chan Event { return r.events }

// Start runs the poll loop until Stop is called.
func (r *Registry) Start(ctx context.Context) {
	ticker := clock.NewTicker(r.interval)
	defer ticker.Stop()
	defer close(r.stopped)

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.stop:
			return
		case <-ticker.C:
			if r.pause.paused() {
				continue
			}
			r.tick(ctx)
		}
	}
}

// Stop cancels the poll loop and waits for it to exit.
func (r *Registry) Stop() {
	close(r.stop)
	<-r.stopped
}

// Snapshot returns all target records sorted by USB location (spec §4.4
// "Ordering guarantee").
func (r *Registry) Snapshot() []*device.Target {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*device.Target, 0, len(r.targets))
	for _, t := range r.targets {
		out = append(out, t)
	}
	sortByLocation(out)
	return out
}

// Appliance returns the current appliance record, or nil if absent.
func (r *Registry) Appliance() *device.Appliance {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.appliance
}

// Target looks up a target by serial.
func (r *Registry) Target(serial string) (*device.Target, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.targets[serial]
	return t, ok
}

func sortByLocation(targets []*device.Target) {
	for i := 1; i < len(targets); i++ {
		for j := i; j > 0 && strings.Compare(targets[j-1].Location, targets[j].Location) > 0; j-- {
			targets[j-1], targets[j] = targets[j], targets[j-1]
		}
	}
}
