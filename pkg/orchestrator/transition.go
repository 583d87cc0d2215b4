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

package orchestrator

import (
	"context"

	"github.com/google/atft/pkg/device"
	"github.com/google/atft/pkg/provision"
)

// run implements handle_state_transition (spec §4.6): iterate the
// configured sequence under the global auto-provision mutex, re-fetching
// the live target by serial on every step since the registry may have
// re-created it across a reboot. The mutex is released only while waiting
// out a reboot, per spec §5.
func (o *Orchestrator) run(ctx context.Context, serial string) {
	defer o.release(serial)

	o.autoMu.Lock()
	locked := true
	unlock := func() {
		if locked {
			o.autoMu.Unlock()
			locked = false
		}
	}
	relock := func() {
		if !locked {
			o.autoMu.Lock()
			locked = true
		}
	}
	defer unlock()

	for _, step := range o.cfg.Sequence {
		t, ok := o.registry.Target(serial)
		if !ok {
			o.emit(Event{Kind: EventStepFailed, Serial: serial, Err: errTargetGone})
			return
		}
		if provision.IsComplete(t.GetState(), o.cfg.Sequence) {
			return
		}

		var err error
		switch step {
		case provision.StepFuseVbootKey:
			if err = provision.FuseVbootKey(ctx, t, o.cfg.VbootKey); err == nil {
				unlock()
				t, err = provision.RebootAndWait(ctx, t, o.rebooter, o.cfg.RebootTimeout, o.prober)
				relock()
			}
		case provision.StepFusePermAttr:
			err = provision.FusePermAttr(ctx, t, o.cfg.PermAttr, o.prober, o.cfg.TestMode)
		case provision.StepLockAvb:
			err = provision.LockAvb(ctx, t, o.prober, o.cfg.TestMode)
		case provision.StepUnlockAvb:
			err = provision.UnlockAvb(ctx, t, o.cfg.UnlockCredential, o.prober)
		case provision.StepProvisionProduct:
			if a := o.registry.Appliance(); a != nil {
				err = provision.ProvisionProduct(ctx, t, a, o.clock, o.prober, !o.cfg.TestMode, o.cfg.TestMode)
				if err == nil {
					o.afterProvision(ctx, a, false)
				}
			} else {
				err = errApplianceGone
			}
		case provision.StepProvisionSom:
			if a := o.registry.Appliance(); a != nil {
				err = provision.ProvisionSom(ctx, t, a, o.clock, o.prober, o.cfg.TestMode)
				if err == nil {
					o.afterProvision(ctx, a, true)
				}
			} else {
				err = errApplianceGone
			}
		}

		if err != nil {
			o.emit(Event{Kind: EventStepFailed, Serial: serial, Err: err})
			return
		}
	}
}

// afterProvision refreshes keys_left and fires threshold alerts (spec
// §4.6, §4.8). Each threshold fires at most once per run; crossing
// keys_left == 0 exits auto mode entirely.
func (o *Orchestrator) afterProvision(ctx context.Context, a *device.Appliance, isSom bool) {
	if o.keys == nil {
		return
	}
	if err := o.keys.UpdateKeysLeft(ctx, a, isSom, o.cfg.DescriptorID); err != nil {
		return
	}
	keysLeft := a.GetKeysLeft()
	if isSom {
		keysLeft = a.GetSomKeysLeft()
	}
	if keysLeft == nil {
		return
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if *keysLeft == 0 {
		o.emit(Event{Kind: EventAutoModeExited})
		o.requestStop()
		return
	}
	if !o.warned.second && o.cfg.SecondWarning > 0 && *keysLeft <= o.cfg.SecondWarning {
		o.warned.second = true
		o.emit(Event{Kind: EventAlertLowKeys, Serial: a.Serial, KeysLeft: *keysLeft})
	} else if !o.warned.first && o.cfg.FirstWarning > 0 && *keysLeft <= o.cfg.FirstWarning {
		o.warned.first = true
		o.emit(Event{Kind: EventAlertLowKeys, Serial: a.Serial, KeysLeft: *keysLeft})
	}
}
