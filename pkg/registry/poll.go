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

	"github.com/google/atft/pkg/device"
	"github.com/google/atft/pkg/provision"
	"github.com/hashicorp/go-version"
)

// tick runs one debounced poll cycle (spec §4.4): a serial must appear in
// two consecutive ticks before a record is created for it, so a device that
// is mid-enumeration (briefly visible, then gone) never produces a
// flickering target. A serial with a REBOOT_IN_PROGRESS placeholder is kept
// regardless of whether fastboot currently reports it.
func (r *Registry) tick(ctx context.Context) {
	if err := r.location.Refresh(); err != nil {
		r.emit(Event{Kind: EventDeviceCreationFailed, Err: err})
	}

	seen, err := r.transport.ListDevices(ctx)
	if err != nil {
		r.emit(Event{Kind: EventDeviceCreationFailed, Err: err})
		return
	}
	current := map[string]bool{}
	for _, s := range seen {
		current[s] = true
	}

	var newlyStable []string
	for s := range current {
		if r.prevSeen[s] {
			newlyStable = append(newlyStable, s)
		}
	}

	r.mu.Lock()
	var created, removed, reappeared []string
	for _, serial := range newlyStable {
		if _, exists := r.targets[serial]; exists {
			continue
		}
		if r.appliance != nil && r.appliance.Serial == serial {
			continue
		}
		created = append(created, serial)
	}

	for serial, t := range r.targets {
		if current[serial] {
			// A placeholder left by pkg/reboot doesn't wait for a second
			// stable tick: the serial's return is itself the signal, so
			// refresh it immediately rather than debouncing it again.
			if t.Rebooting {
				reappeared = append(reappeared, serial)
			}
			continue
		}
		if t.Rebooting {
			continue
		}
		delete(r.targets, serial)
		removed = append(removed, serial)
	}
	if r.appliance != nil && !current[r.appliance.Serial] {
		removed = append(removed, r.appliance.Serial)
		r.appliance = nil
	}
	r.mu.Unlock()

	for _, serial := range created {
		r.adopt(ctx, serial)
	}
	for _, serial := range reappeared {
		r.adopt(ctx, serial)
	}

	r.prevSeen = current

	if len(created) > 0 || len(removed) > 0 || len(reappeared) > 0 {
		r.emit(Event{Kind: EventDeviceListRefreshed})
	}
}

// adopt builds the record for a newly-stable serial: an "ATFA"-prefixed
// serial becomes the appliance record (subject to a version-compatibility
// probe); any other serial becomes a target record refreshed against its
// current provisioning state.
func (r *Registry) adopt(ctx context.Context, serial string) {
	handle := r.transport.Device(serial)

	if strings.HasPrefix(serial, appliancePrefix) {
		a := device.NewAppliance(serial, handle)
		osVersion, err := handle.GetVar(ctx, "os-version")
		if err == nil {
			a.OsVersion = osVersion
		}
		rawVersion, err := handle.GetVar(ctx, "version")
		if err == nil {
			if v, verr := version.NewVersion(rawVersion); verr == nil && v.LessThan(r.compatVersion) {
				a.Incompatible = true
				r.emit(Event{Kind: EventApplianceIncompatible, Serials: []string{serial}})
			}
		}

		r.mu.Lock()
		r.appliance = a
		r.mu.Unlock()
		return
	}

	loc, _ := r.location.LocationOf(serial)
	t := device.NewTarget(serial, loc, handle)
	if err := provision.RefreshProvisionStatus(ctx, t, r.prober); err != nil {
		r.emit(Event{Kind: EventDeviceCreationFailed, Serials: []string{serial}, Err: err})
	}

	r.mu.Lock()
	r.targets[serial] = t
	r.mu.Unlock()
}

func (r *Registry) emit(e Event) {
	select {
	case r.events <- e:
	default:
	}
}

// MarkRebooting flags a target as having a reboot in progress so tick
// retains its placeholder record across cycles where fastboot no longer
// reports the serial (spec §4.7); pkg/reboot calls this before issuing the
// reboot command.
func (r *Registry) MarkRebooting(serial string, rebooting bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.targets[serial]; ok {
		t.WithLock(func() { t.Rebooting = rebooting })
	}
}
