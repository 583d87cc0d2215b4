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
	"testing"
	"time"

	"github.com/google/atft/pkg/fastboot/fastboottest"
)

type stubOracle struct{ locations map[string]string }

func (s *stubOracle) Refresh() error { return nil }
func (s *stubOracle) LocationOf(serial string) (string, bool) {
	l, ok := s.locations[serial]
	return l, ok
}
func (s *stubOracle) Snapshot() map[string]string { return s.locations }

func newTestRegistry(t *testing.T, fake *fastboottest.Fake, oracle *stubOracle) *Registry {
	t.Helper()
	r, err := New(fake, oracle, nil, "1.0.0", time.Second)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return r
}

func TestTickRequiresTwoConsecutiveSightingsBeforeCreatingTarget(t *testing.T) {
	fake := fastboottest.New()
	fake.Add("TARGET1")
	oracle := &stubOracle{locations: map[string]string{"TARGET1": "1-1"}}
	r := newTestRegistry(t, fake, oracle)

	r.tick(context.Background())
	if _, ok := r.Target("TARGET1"); ok {
		t.Fatal("target created after a single sighting, want debounced")
	}

	r.tick(context.Background())
	if _, ok := r.Target("TARGET1"); !ok {
		t.Fatal("target not created after two consecutive sightings")
	}
}

func TestTickCreatesApplianceRecord(t *testing.T) {
	fake := fastboottest.New()
	dev := fake.Add("ATFA0001")
	dev.SetVar("version", "2.0.0")
	dev.SetVar("os-version", "4.1")
	oracle := &stubOracle{locations: map[string]string{}}
	r := newTestRegistry(t, fake, oracle)

	r.tick(context.Background())
	r.tick(context.Background())

	a := r.Appliance()
	if a == nil {
		t.Fatal("appliance not created")
	}
	if a.Incompatible {
		t.Error("appliance marked incompatible, want compatible (2.0.0 >= 1.0.0)")
	}
	if a.OsVersion != "4.1" {
		t.Errorf("OsVersion = %q, want 4.1", a.OsVersion)
	}
}

func TestTickFlagsIncompatibleAppliance(t *testing.T) {
	fake := fastboottest.New()
	dev := fake.Add("ATFA0002")
	dev.SetVar("version", "0.5.0")
	oracle := &stubOracle{locations: map[string]string{}}
	r := newTestRegistry(t, fake, oracle)

	r.tick(context.Background())
	r.tick(context.Background())

	a := r.Appliance()
	if a == nil || !a.Incompatible {
		t.Fatalf("appliance = %+v, want Incompatible true", a)
	}
}

func TestTickRemovesDisappearedTarget(t *testing.T) {
	fake := fastboottest.New()
	fake.Add("TARGET1")
	oracle := &stubOracle{locations: map[string]string{"TARGET1": "1-1"}}
	r := newTestRegistry(t, fake, oracle)

	r.tick(context.Background())
	r.tick(context.Background())
	if _, ok := r.Target("TARGET1"); !ok {
		t.Fatal("setup: target not created")
	}

	fake.Remove("TARGET1")
	r.tick(context.Background())
	if _, ok := r.Target("TARGET1"); ok {
		t.Fatal("target still present after disappearing")
	}
}

func TestTickRetainsRebootingPlaceholder(t *testing.T) {
	fake := fastboottest.New()
	fake.Add("TARGET1")
	oracle := &stubOracle{locations: map[string]string{"TARGET1": "1-1"}}
	r := newTestRegistry(t, fake, oracle)

	r.tick(context.Background())
	r.tick(context.Background())

	r.MarkRebooting("TARGET1", true)
	fake.Remove("TARGET1")
	r.tick(context.Background())

	if _, ok := r.Target("TARGET1"); !ok {
		t.Fatal("rebooting placeholder removed, want retained across tick")
	}
}

func TestSnapshotSortedByLocation(t *testing.T) {
	fake := fastboottest.New()
	fake.Add("TARGETB")
	fake.Add("TARGETA")
	oracle := &stubOracle{locations: map[string]string{"TARGETB": "2-1", "TARGETA": "1-1"}}
	r := newTestRegistry(t, fake, oracle)

	r.tick(context.Background())
	r.tick(context.Background())

	snap := r.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("len(snap) = %d, want 2", len(snap))
	}
	if snap[0].Location != "1-1" || snap[1].Location != "2-1" {
		t.Errorf("snapshot order = [%s, %s], want [1-1, 2-1]", snap[0].Location, snap[1].Location)
	}
}
