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
	"sync"
	"testing"
	"time"

	"github.com/google/atft/pkg/device"
	"github.com/google/atft/pkg/fastboot/fastboottest"
	"github.com/google/atft/pkg/provision"
)

type fakeRegistry struct {
	mu        sync.Mutex
	targets   map[string]*device.Target
	appliance *device.Appliance
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{targets: map[string]*device.Target{}}
}

func (f *fakeRegistry) Snapshot() []*device.Target {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*device.Target, 0, len(f.targets))
	for _, t := range f.targets {
		out = append(out, t)
	}
	return out
}

func (f *fakeRegistry) Appliance() *device.Appliance {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.appliance
}

func (f *fakeRegistry) Target(serial string) (*device.Target, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.targets[serial]
	return t, ok
}

func (f *fakeRegistry) set(t *device.Target) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.targets[t.Serial] = t
}

type noopRebooter struct{}

func (noopRebooter) RebootAndWait(ctx context.Context, t *device.Target, timeout time.Duration) (*device.Target, error) {
	t.SetState(func() device.State { s := t.GetState(); s.BootloaderLocked = true; return s }())
	return t, nil
}

type noopTimeSetter struct{}

func (noopTimeSetter) SetTime(ctx context.Context, a *device.Appliance) error { return nil }

type noopKeysManager struct{ keysLeft int }

func (n noopKeysManager) UpdateKeysLeft(ctx context.Context, a *device.Appliance, isSom bool, id string) error {
	a.SetKeysLeft(n.keysLeft)
	return nil
}

func TestRunDrivesFullProductSequence(t *testing.T) {
	fake := fastboottest.New()
	targetDev := fake.Add("TARGET1")
	targetDev.SetVar("at-attest-dh", "2:x25519")
	targetDev.SetVar("at-attest-uuid", "uuid-1")
	targetDev.SetVar("at-vboot-state", "bootloader-locked: true\navb-perm-attr-set: true\navb-locked: true")
	target := device.NewTarget("TARGET1", "1-1", targetDev)

	applianceDev := fake.Add("ATFA0001")
	appliance := device.NewAppliance("ATFA0001", applianceDev)

	reg := newFakeRegistry()
	reg.set(target)
	reg.appliance = appliance

	cfg := Config{
		Sequence:      provision.DefaultProductSequence,
		VbootKey:      []byte("vboot-key"),
		PermAttr:      make([]byte, 1052),
		RebootTimeout: time.Second,
		TestMode:      true,
	}
	o, err := New(reg, nil, noopRebooter{}, noopTimeSetter{}, noopKeysManager{keysLeft: 5}, cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	o.run(context.Background(), "TARGET1")

	state := target.GetState()
	if !state.BootloaderLocked || !state.AvbPermAttrSet || !state.AvbLocked || !state.ProductProvisioned {
		t.Fatalf("state = %+v, want all facets set", state)
	}
}

func TestAdmitSkipsInFlightAndFailed(t *testing.T) {
	reg := newFakeRegistry()
	o, err := New(reg, nil, noopRebooter{}, noopTimeSetter{}, nil, Config{Sequence: provision.DefaultProductSequence, TestMode: true})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	failed := device.NewTarget("FAILED1", "1-1", nil)
	failed.SetStatus(device.Failed(device.StageFuseVboot, "boom"))
	if o.admit(failed) {
		t.Error("admit() accepted a terminally failed target")
	}

	pending := device.NewTarget("PENDING1", "1-1", nil)
	if !o.admit(pending) {
		t.Fatal("admit() rejected a fresh idle target")
	}
	if o.admit(pending) {
		t.Error("admit() accepted an already in-flight target twice")
	}
}

func TestAfterProvisionExitsAutoModeAtZeroKeys(t *testing.T) {
	reg := newFakeRegistry()
	o, err := New(reg, nil, noopRebooter{}, noopTimeSetter{}, noopKeysManager{keysLeft: 0}, Config{Sequence: provision.DefaultProductSequence, TestMode: true})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	appliance := device.NewAppliance("ATFA0001", nil)
	o.afterProvision(context.Background(), appliance, false)

	select {
	case <-o.stop:
	default:
		t.Fatal("expected stop channel to be closed when keys_left hits zero")
	}
}

func TestAfterProvisionWarnsOnceAtThreshold(t *testing.T) {
	reg := newFakeRegistry()
	cfg := Config{Sequence: provision.DefaultProductSequence, TestMode: true, FirstWarning: 10}
	o, err := New(reg, nil, noopRebooter{}, noopTimeSetter{}, noopKeysManager{keysLeft: 5}, cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	appliance := device.NewAppliance("ATFA0001", nil)
	o.afterProvision(context.Background(), appliance, false)
	o.afterProvision(context.Background(), appliance, false)

	var alerts int
	for {
		select {
		case e := <-o.events:
			if e.Kind == EventAlertLowKeys {
				alerts++
			}
			continue
		default:
		}
		break
	}
	if alerts != 1 {
		t.Errorf("alerts = %d, want exactly 1 (fire-once-per-run)", alerts)
	}
}
