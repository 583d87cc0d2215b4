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

// Package appliance implements the appliance manager (spec §4.8, C8): the
// set of opaque commands issued against the single ATFA appliance device,
// distinct from the per-target provisioning steps in pkg/provision.
package appliance

import (
	"context"
	"strconv"
	"strings"

	"github.com/google/atft/pkg/clock"
	"github.com/google/atft/pkg/device"
	"github.com/google/atft/pkg/provision"
)

// AuditHook lets the audit rotator (C9) react to keys-left changes without
// pkg/appliance importing pkg/audit; *audit.Rotator satisfies this
// structurally.
type AuditHook interface {
	OnKeysLeft(ctx context.Context, applianceSerial string, keysLeft int) error
	Reset(applianceSerial string)
}

// Manager issues appliance-only OEM commands. It implements
// provision.ApplianceTimeSetter so the provision sub-protocol can share the
// same SetTime behavior used by ProcessKey/Update.
type Manager struct {
	// Audit is optional; when set, UpdateKeysLeft/PurgeKey feed it the
	// fresh count (spec §4.8 "side-effect: invoke the audit rotation") and
	// ProcessKey resets it to force a fresh pull.
	Audit AuditHook
}

// NewManager returns a Manager. audit may be nil to skip audit-rotation
// wiring (e.g. in tests that don't care about it).
func NewManager(audit AuditHook) *Manager { return &Manager{Audit: audit} }

// SetTime injects the host's UTC time into the appliance so certificate
// validation against its embedded clock succeeds (spec §4.5.1 step 2,
// §4.8); ProcessKey and Update both call it first for the same reason the
// original tool does.
func (m *Manager) SetTime(ctx context.Context, a *device.Appliance) error {
	ts := provision.FormatSetDate(clock.Now())
	_, err := a.Handle.Oem(ctx, "set-date "+ts, false)
	return err
}

// ProcessKey downloads a staged key bundle to the appliance and asks it to
// process it. On success it resets the audit rotator so the next keys-left
// change forces a fresh audit pull (the key bundle likely changed what's
// available), matching the ingest log's dedup semantics in pkg/ingest: the
// permanent "Keybundle was previously processed" failure is returned
// unchanged for the caller to treat as a benign duplicate.
func (m *Manager) ProcessKey(ctx context.Context, a *device.Appliance, localPath string) error {
	if err := m.SetTime(ctx, a); err != nil {
		return err
	}
	if err := a.Handle.Download(ctx, localPath); err != nil {
		return err
	}
	if _, err := a.Handle.Oem(ctx, "keybundle", true); err != nil {
		return err
	}
	if m.Audit != nil {
		m.Audit.Reset(a.Serial)
	}
	return nil
}

// Update downloads a staged firmware image to the appliance and applies it.
func (m *Manager) Update(ctx context.Context, a *device.Appliance, localPath string) error {
	if err := m.SetTime(ctx, a); err != nil {
		return err
	}
	if err := a.Handle.Download(ctx, localPath); err != nil {
		return err
	}
	_, err := a.Handle.Oem(ctx, "update", false)
	return err
}

// Reboot resets the appliance.
func (m *Manager) Reboot(ctx context.Context, a *device.Appliance) error {
	_, err := a.Handle.Oem(ctx, "reboot", false)
	return err
}

// Shutdown powers the appliance off.
func (m *Manager) Shutdown(ctx context.Context, a *device.Appliance) error {
	_, err := a.Handle.Oem(ctx, "shutdown", false)
	return err
}

// GetSerial reads the appliance's own reported serial number.
func (m *Manager) GetSerial(ctx context.Context, a *device.Appliance) (string, error) {
	return a.Handle.GetVar(ctx, "serial")
}

// UpdateKeysLeft queries the number of AT keys remaining for the currently
// loaded product or SoM descriptor and caches it on a. A "no matching
// product/SoM" response is treated as zero keys left rather than an error;
// any other failure leaves the cached count at -1 (spec §4.8 "unknown on
// error" convention).
func (m *Manager) UpdateKeysLeft(ctx context.Context, a *device.Appliance, isSom bool, descriptorID string) error {
	if descriptorID == "" {
		return &ProductNotSpecified{IsSom: isSom}
	}
	cmd := "num-keys " + descriptorID
	if isSom {
		cmd = "num-som-keys " + descriptorID
	}

	out, err := a.Handle.Oem(ctx, cmd, true)
	if err != nil {
		if isNoMatchError(err) {
			m.commitKeysLeft(ctx, a, isSom, 0)
			return nil
		}
		setKeysLeft(a, isSom, -1)
		return err
	}

	for _, line := range strings.Split(string(out), "\n") {
		line = strings.TrimRight(line, "\r")
		if !strings.HasPrefix(line, "(bootloader) ") {
			continue
		}
		n, convErr := strconv.Atoi(strings.TrimPrefix(line, "(bootloader) "))
		if convErr != nil {
			setKeysLeft(a, isSom, -1)
			return &BadResponse{Command: cmd, Raw: string(out)}
		}
		m.commitKeysLeft(ctx, a, isSom, n)
		return nil
	}
	setKeysLeft(a, isSom, -1)
	return &BadResponse{Command: cmd, Raw: string(out)}
}

// commitKeysLeft caches the fresh count and, for product keys, feeds the
// audit rotator (spec §4.8 "side-effect: invoke the audit rotation"). The
// audit log only tracks product-key pulls, matching the original tool's
// single `last_keys_at_pull` counter.
func (m *Manager) commitKeysLeft(ctx context.Context, a *device.Appliance, isSom bool, n int) {
	setKeysLeft(a, isSom, n)
	if !isSom && m.Audit != nil {
		_ = m.Audit.OnKeysLeft(ctx, a.Serial, n)
	}
}

// PurgeKey discards all cached keys for the given descriptor, then
// refreshes keys-left (spec §4.8 expects it to read back as 0).
func (m *Manager) PurgeKey(ctx context.Context, a *device.Appliance, isSom bool, descriptorID string) error {
	if descriptorID == "" {
		return &ProductNotSpecified{IsSom: isSom}
	}
	cmd := "purge " + descriptorID
	if isSom {
		cmd = "purge-som " + descriptorID
	}
	if _, err := a.Handle.Oem(ctx, cmd, false); err != nil {
		return err
	}
	return m.UpdateKeysLeft(ctx, a, isSom, descriptorID)
}

// PrepareFile asks the appliance to stage a file of the given type
// ("reg"/"audit") for a subsequent Upload.
func (m *Manager) PrepareFile(ctx context.Context, a *device.Appliance, fileType string) error {
	_, err := a.Handle.Oem(ctx, fileType, false)
	return err
}

func setKeysLeft(a *device.Appliance, isSom bool, n int) {
	if isSom {
		a.SetSomKeysLeft(n)
		return
	}
	a.SetKeysLeft(n)
}

func isNoMatchError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "No matching available products") ||
		strings.Contains(msg, "No matching available SoMs")
}
