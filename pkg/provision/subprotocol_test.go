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

package provision

import (
	"context"
	"testing"

	"github.com/google/atft/pkg/device"
	"github.com/google/atft/pkg/fastboot/fastboottest"
)

type stubClock struct{ calls int }

func (s *stubClock) SetTime(ctx context.Context, a *device.Appliance) error {
	s.calls++
	return nil
}

func TestProvisionProductHappyPath(t *testing.T) {
	fake := fastboottest.New()
	targetDev := fake.Add("TARGET1")
	targetDev.SetVar("at-attest-dh", "2:x25519,1:p256")
	targetDev.SetVar("at-attest-uuid", "deadbeef-attested-uuid")
	target := device.NewTarget("TARGET1", "1-1", targetDev)
	target.SetState(device.State{BootloaderLocked: true, AvbPermAttrSet: true, AvbLocked: true})

	applianceDev := fake.Add("ATFA0001")
	appliance := device.NewAppliance("ATFA0001", applianceDev)

	clock := &stubClock{}
	err := ProvisionProduct(context.Background(), target, appliance, clock, nil, true, false)
	if err != nil {
		t.Fatalf("ProvisionProduct() error = %v", err)
	}
	if clock.calls != 1 {
		t.Errorf("SetTime calls = %d, want 1", clock.calls)
	}
	if !target.GetState().ProductProvisioned {
		t.Error("expected ProductProvisioned true")
	}
	if !target.GetStatus().IsSuccess() {
		t.Errorf("status = %v, want success", target.GetStatus())
	}
}

func TestProvisionProductRejectsWhenAlreadyProvisioned(t *testing.T) {
	fake := fastboottest.New()
	targetDev := fake.Add("TARGET1")
	target := device.NewTarget("TARGET1", "1-1", targetDev)
	target.SetState(device.State{ProductProvisioned: true})
	appliance := device.NewAppliance("ATFA0001", fake.Add("ATFA0001"))

	err := ProvisionProduct(context.Background(), target, appliance, &stubClock{}, nil, true, false)
	if _, ok := err.(*PreconditionFailed); !ok {
		t.Fatalf("err = %v, want *PreconditionFailed", err)
	}
}

func TestProvisionSomRequiresBootloaderLocked(t *testing.T) {
	fake := fastboottest.New()
	targetDev := fake.Add("TARGET1")
	target := device.NewTarget("TARGET1", "1-1", targetDev)
	appliance := device.NewAppliance("ATFA0001", fake.Add("ATFA0001"))

	err := ProvisionSom(context.Background(), target, appliance, &stubClock{}, nil, false)
	if _, ok := err.(*PreconditionFailed); !ok {
		t.Fatalf("err = %v, want *PreconditionFailed", err)
	}
}

func TestProvisionProductFailsWithoutAlgorithm(t *testing.T) {
	fake := fastboottest.New()
	targetDev := fake.Add("TARGET1")
	// no at-attest-dh set -> GetVar fails -> NoAlgorithm is never reached,
	// TransportFailure propagates first; either way the step must fail.
	target := device.NewTarget("TARGET1", "1-1", targetDev)
	target.SetState(device.State{BootloaderLocked: true, AvbPermAttrSet: true, AvbLocked: true})
	appliance := device.NewAppliance("ATFA0001", fake.Add("ATFA0001"))

	err := ProvisionProduct(context.Background(), target, appliance, &stubClock{}, nil, true, false)
	if err == nil {
		t.Fatal("expected error when at-attest-dh is unavailable")
	}
	if !target.GetStatus().IsFailed() {
		t.Errorf("status = %v, want failed", target.GetStatus())
	}
}
