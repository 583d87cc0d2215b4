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

// Package reboot implements the reboot tracker (spec §4.7, C7): issuing a
// target's reboot, marking its registry record as rebooting so the record is
// kept while the device is down, and waiting for the registry's own poller
// to re-adopt it once it comes back, or failing the wait on a timeout.
package reboot

import (
	"context"
	"time"

	"github.com/google/atft/pkg/clock"
	"github.com/google/atft/pkg/device"
)

// Registry is the narrow slice of *registry.Registry the tracker needs: flag
// a serial as rebooting so the poller retains its placeholder, and look up
// the current record for that serial.
type Registry interface {
	MarkRebooting(serial string, rebooting bool)
	Target(serial string) (*device.Target, bool)
}

const defaultPollInterval = 500 * time.Millisecond

// Tracker implements provision.Rebooter against a live Registry.
type Tracker struct {
	registry     Registry
	pollInterval time.Duration
}

// NewTracker returns a Tracker that polls the registry every pollInterval
// while waiting for a rebooted target to reappear. A zero pollInterval uses
// defaultPollInterval.
func NewTracker(r Registry, pollInterval time.Duration) *Tracker {
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}
	return &Tracker{registry: r, pollInterval: pollInterval}
}

// RebootAndWait issues the device reset, marks the target as rebooting so
// the registry keeps its record alive across the outage, and blocks until
// the registry's poller replaces the placeholder with a freshly-adopted
// record (spec §4.7's "single-fire completion" design note: exactly one of
// success or timeout ever resolves the wait).
func (tr *Tracker) RebootAndWait(ctx context.Context, t *device.Target, timeout time.Duration) (*device.Target, error) {
	serial := t.Serial

	tr.registry.MarkRebooting(serial, true)
	if err := t.Handle.Reboot(ctx); err != nil {
		tr.registry.MarkRebooting(serial, false)
		return nil, err
	}

	ticker := clock.NewTicker(tr.pollInterval)
	defer ticker.Stop()
	deadline := clock.After(timeout)

	for {
		select {
		case <-ctx.Done():
			tr.registry.MarkRebooting(serial, false)
			return nil, ctx.Err()
		case <-deadline:
			tr.registry.MarkRebooting(serial, false)
			return nil, &Timeout{Serial: serial}
		case <-ticker.C:
			fresh, ok := tr.registry.Target(serial)
			if ok && !fresh.Rebooting {
				return fresh, nil
			}
		}
	}
}
