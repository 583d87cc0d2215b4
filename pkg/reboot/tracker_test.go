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

package reboot

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/atft/pkg/clock"
	"github.com/google/atft/pkg/device"
	"github.com/google/atft/pkg/fastboot/fastboottest"
)

type fakeRegistry struct {
	mu        sync.Mutex
	rebooting map[string]bool
	targets   map[string]*device.Target
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{rebooting: map[string]bool{}, targets: map[string]*device.Target{}}
}

func (f *fakeRegistry) MarkRebooting(serial string, rebooting bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rebooting[serial] = rebooting
	if t, ok := f.targets[serial]; ok {
		t.WithLock(func() { t.Rebooting = rebooting })
	}
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

func TestRebootAndWaitSucceedsWhenPollerReadopts(t *testing.T) {
	fake := fastboottest.New()
	dev := fake.Add("TARGET1")
	original := device.NewTarget("TARGET1", "1-1", dev)

	reg := newFakeRegistry()
	reg.set(original)

	tr := NewTracker(reg, time.Millisecond)

	go func() {
		time.Sleep(5 * time.Millisecond)
		fresh := device.NewTarget("TARGET1", "1-1", dev)
		reg.set(fresh)
	}()

	got, err := tr.RebootAndWait(context.Background(), original, time.Hour)
	if err != nil {
		t.Fatalf("RebootAndWait() error = %v", err)
	}
	if got.Rebooting {
		t.Error("returned target still marked Rebooting")
	}
	if dev.Rebooted != 1 {
		t.Errorf("Rebooted = %d, want 1", dev.Rebooted)
	}
}

func TestRebootAndWaitTimesOut(t *testing.T) {
	orig := clock.After
	clock.After = func(time.Duration) <-chan time.Time {
		c := make(chan time.Time, 1)
		c <- time.Now()
		return c
	}
	defer func() { clock.After = orig }()

	fake := fastboottest.New()
	dev := fake.Add("TARGET1")
	original := device.NewTarget("TARGET1", "1-1", dev)

	reg := newFakeRegistry()
	reg.set(original)

	tr := NewTracker(reg, time.Millisecond)

	_, err := tr.RebootAndWait(context.Background(), original, time.Millisecond)
	if _, ok := err.(*Timeout); !ok {
		t.Fatalf("err = %v, want *Timeout", err)
	}
	if reg.rebooting["TARGET1"] {
		t.Error("target still marked rebooting after timeout")
	}
}

func TestRebootAndWaitPropagatesRebootFailure(t *testing.T) {
	fake := fastboottest.New()
	fake.Add("TARGET1")
	failing := &failingDevice{FakeDevice: fake.Devices["TARGET1"]}
	original := device.NewTarget("TARGET1", "1-1", failing)

	reg := newFakeRegistry()
	reg.set(original)

	tr := NewTracker(reg, time.Millisecond)
	_, err := tr.RebootAndWait(context.Background(), original, time.Second)
	if err == nil {
		t.Fatal("expected error from failing Reboot")
	}
	if reg.rebooting["TARGET1"] {
		t.Error("target still marked rebooting after reboot failure")
	}
}

type failingDevice struct {
	*fastboottest.FakeDevice
}

func (f *failingDevice) Reboot(ctx context.Context) error {
	return errRebootFailed
}

var errRebootFailed = errors.New("simulated reboot failure")
