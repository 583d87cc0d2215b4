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
	"fmt"

	"github.com/google/atft/pkg/atap"
	"github.com/google/atft/pkg/device"
	"github.com/google/atft/pkg/token"
)

// ApplianceTimeSetter issues oem set-date against the appliance; split out
// so callers can share one appliance-manager implementation (C8) across
// every appliance-touching operation.
type ApplianceTimeSetter interface {
	SetTime(ctx context.Context, a *device.Appliance) error
}

// ProvisionProduct runs the product-key provision sub-protocol (spec
// §4.5.1) with is_som=false. It requires product_provisioned == false.
func ProvisionProduct(ctx context.Context, t *device.Target, a *device.Appliance, clock ApplianceTimeSetter, prober SomProber, strict, testMode bool) error {
	state := t.GetState()
	if !testMode && strict {
		if state.ProductProvisioned {
			return &PreconditionFailed{Step: "ProvisionProduct", Reason: "already provisioned"}
		}
		if !(state.BootloaderLocked && state.AvbPermAttrSet && state.AvbLocked) {
			return &PreconditionFailed{Step: "ProvisionProduct", Reason: "prior facets not all satisfied"}
		}
	}
	return runProvisionSubprotocol(ctx, t, a, clock, prober, device.StageProvision, false, 0)
}

// ProvisionSom runs the SoM-key provision sub-protocol with is_som=true. It
// requires bootloader_locked && !som_provisioned.
func ProvisionSom(ctx context.Context, t *device.Target, a *device.Appliance, clock ApplianceTimeSetter, prober SomProber, testMode bool) error {
	state := t.GetState()
	if !testMode {
		if !state.BootloaderLocked {
			return &PreconditionFailed{Step: "ProvisionSom", Reason: "bootloader not locked"}
		}
		if state.SomProvisioned {
			return &PreconditionFailed{Step: "ProvisionSom", Reason: "already som-provisioned"}
		}
	}
	return runProvisionSubprotocol(ctx, t, a, clock, prober, device.StageSomProvision, true, int(atap.OperationIssueSom))
}

// runProvisionSubprotocol implements spec §4.5.1 steps 1-9.
func runProvisionSubprotocol(ctx context.Context, t *device.Target, a *device.Appliance, clock ApplianceTimeSetter, prober SomProber, stage device.Stage, isSom bool, opCode int) error {
	release, err := token.Pair(ctx, t.Token, a.Token)
	if err != nil {
		return err
	}
	defer release()

	t.SetStatus(device.InProgress(stage))

	fail := func(err error) error {
		t.SetStatus(device.Failed(stage, err.Error()))
		return err
	}

	// Step 2: inject time into the appliance.
	if err := clock.SetTime(ctx, a); err != nil {
		return fail(err)
	}

	// Step 3: pick an ECDH algorithm the target offers.
	dh, err := t.Handle.GetVar(ctx, "at-attest-dh")
	if err != nil {
		return fail(err)
	}
	algoID, ok := parseAttestDHAlgorithmID(dh)
	if !ok {
		return fail(&NoAlgorithm{})
	}

	// Step 4: instruct the appliance to start.
	startCmd := fmt.Sprintf("start-provisioning %d", algoID)
	if isSom {
		startCmd = fmt.Sprintf("start-provisioning %d %d", algoID, opCode)
	}
	if _, err := a.Handle.Oem(ctx, startCmd, true); err != nil {
		return fail(err)
	}

	// Step 5: mirror the appliance's staged Operation-Start blob to target.
	if err := transferContent(ctx, a.Handle, t.Handle); err != nil {
		return fail(err)
	}

	// Step 6: target builds its CA-Request; mirror it to the appliance.
	if _, err := t.Handle.Oem(ctx, "at-get-ca-request", true); err != nil {
		return fail(err)
	}
	if err := transferContent(ctx, t.Handle, a.Handle); err != nil {
		return fail(err)
	}

	// Step 7: appliance finishes, producing a CA-Response; mirror to target.
	if _, err := a.Handle.Oem(ctx, "finish-provisioning", true); err != nil {
		return fail(err)
	}
	if err := transferContent(ctx, a.Handle, t.Handle); err != nil {
		return fail(err)
	}

	// Step 8: target consumes the CA-Response.
	if _, err := t.Handle.Oem(ctx, "at-set-ca-response", true); err != nil {
		return fail(err)
	}

	// Step 9: refresh and assert.
	if err := RefreshProvisionStatus(ctx, t, prober); err != nil {
		return fail(err)
	}
	ok = t.GetState().ProductProvisioned
	if isSom {
		ok = t.GetState().SomProvisioned
	}
	if !ok {
		return fail(fmt.Errorf("Status not updated"))
	}

	t.SetStatus(device.Success(stage))
	return nil
}
