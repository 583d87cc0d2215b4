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
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/atft/pkg/device"
	"github.com/google/uuid"
)

// Rebooter delegates reboot_and_wait to the reboot tracker (C7) and returns
// the fresh target record the poller created once the device came back.
type Rebooter interface {
	RebootAndWait(ctx context.Context, t *device.Target, timeout time.Duration) (*device.Target, error)
}

func writeTempFile(content []byte) (string, error) {
	path := filepath.Join(os.TempDir(), uuid.NewString())
	if err := os.WriteFile(path, content, 0600); err != nil {
		return "", err
	}
	return path, nil
}

// FuseVbootKey writes the vboot public key to a temp file, downloads it, and
// invokes the bootloader-vboot-key fuse command. The device is expected to
// reset afterward; callers follow with RebootAndWait (spec §4.5).
func FuseVbootKey(ctx context.Context, t *device.Target, vbootKey []byte) error {
	t.SetStatus(device.InProgress(device.StageFuseVboot))

	path, err := writeTempFile(vbootKey)
	if err != nil {
		t.SetStatus(device.Failed(device.StageFuseVboot, err.Error()))
		return err
	}
	defer os.Remove(path)

	if err := t.Handle.Download(ctx, path); err != nil {
		t.SetStatus(device.Failed(device.StageFuseVboot, err.Error()))
		return err
	}
	if _, err := t.Handle.Oem(ctx, "fuse at-bootloader-vboot-key", true); err != nil {
		t.SetStatus(device.Failed(device.StageFuseVboot, err.Error()))
		return err
	}

	t.SetStatus(device.Success(device.StageFuseVboot))
	return nil
}

// FusePermAttr requires bootloader_locked && !avb_perm_attr_set (spec §4.5
// pre-conditions) unless testMode disables the check.
func FusePermAttr(ctx context.Context, t *device.Target, permAttr []byte, prober SomProber, testMode bool) error {
	state := t.GetState()
	if !testMode {
		if !state.BootloaderLocked {
			return &PreconditionFailed{Step: "FusePermAttr", Reason: "bootloader not locked"}
		}
		if state.AvbPermAttrSet {
			return &PreconditionFailed{Step: "FusePermAttr", Reason: "permanent attribute already set"}
		}
	}

	t.SetStatus(device.InProgress(device.StageFuseAttr))

	path, err := writeTempFile(permAttr)
	if err != nil {
		t.SetStatus(device.Failed(device.StageFuseAttr, err.Error()))
		return err
	}
	defer os.Remove(path)

	if err := t.Handle.Download(ctx, path); err != nil {
		t.SetStatus(device.Failed(device.StageFuseAttr, err.Error()))
		return err
	}
	if _, err := t.Handle.Oem(ctx, "fuse at-perm-attr", true); err != nil {
		t.SetStatus(device.Failed(device.StageFuseAttr, err.Error()))
		return err
	}

	if err := RefreshProvisionStatus(ctx, t, prober); err != nil {
		t.SetStatus(device.Failed(device.StageFuseAttr, err.Error()))
		return err
	}
	if !t.GetState().AvbPermAttrSet {
		err := fmt.Errorf("avb_perm_attr_set not set after fuse")
		t.SetStatus(device.Failed(device.StageFuseAttr, err.Error()))
		return err
	}

	t.SetStatus(device.Success(device.StageFuseAttr))
	return nil
}

// LockAvb requires bootloader_locked && avb_perm_attr_set && !avb_locked.
func LockAvb(ctx context.Context, t *device.Target, prober SomProber, testMode bool) error {
	state := t.GetState()
	if !testMode {
		if !(state.BootloaderLocked && state.AvbPermAttrSet) {
			return &PreconditionFailed{Step: "LockAvb", Reason: "bootloader or attribute fuse incomplete"}
		}
		if state.AvbLocked {
			return &PreconditionFailed{Step: "LockAvb", Reason: "already locked"}
		}
	}

	t.SetStatus(device.InProgress(device.StageLockAvb))

	if _, err := t.Handle.Oem(ctx, "at-lock-vboot", true); err != nil {
		t.SetStatus(device.Failed(device.StageLockAvb, err.Error()))
		return err
	}
	if err := RefreshProvisionStatus(ctx, t, prober); err != nil {
		t.SetStatus(device.Failed(device.StageLockAvb, err.Error()))
		return err
	}
	if !t.GetState().AvbLocked {
		err := fmt.Errorf("avb_locked not set after lock")
		t.SetStatus(device.Failed(device.StageLockAvb, err.Error()))
		return err
	}

	t.SetStatus(device.Success(device.StageLockAvb))
	return nil
}

// UnlockAvb is always permitted (spec §4.5.2); credential is an optional
// configuration-supplied unlock token.
func UnlockAvb(ctx context.Context, t *device.Target, credential string, prober SomProber) error {
	t.SetStatus(device.InProgress(device.StageUnlockAvb))

	cmd := "at-unlock-vboot"
	if credential != "" {
		cmd = "at-unlock-vboot " + credential
	}
	if _, err := t.Handle.Oem(ctx, cmd, true); err != nil {
		t.SetStatus(device.Failed(device.StageUnlockAvb, err.Error()))
		return err
	}
	if err := RefreshProvisionStatus(ctx, t, prober); err != nil {
		t.SetStatus(device.Failed(device.StageUnlockAvb, err.Error()))
		return err
	}
	if t.GetState().AvbLocked {
		err := fmt.Errorf("avb_locked still set after unlock")
		t.SetStatus(device.Failed(device.StageUnlockAvb, err.Error()))
		return err
	}

	t.SetStatus(device.Success(device.StageUnlockAvb))
	return nil
}

// RebootAndWait delegates to the reboot tracker and, on success, refreshes
// status and asserts bootloader_locked == true (spec §4.5).
func RebootAndWait(ctx context.Context, t *device.Target, rebooter Rebooter, timeout time.Duration, prober SomProber) (*device.Target, error) {
	t.SetStatus(device.InProgress(device.StageReboot))

	fresh, err := rebooter.RebootAndWait(ctx, t, timeout)
	if err != nil {
		t.SetStatus(device.Failed(device.StageReboot, err.Error()))
		return nil, err
	}

	if err := RefreshProvisionStatus(ctx, fresh, prober); err != nil {
		fresh.SetStatus(device.Failed(device.StageReboot, err.Error()))
		return fresh, err
	}
	if !fresh.GetState().BootloaderLocked {
		err := fmt.Errorf("bootloader_locked not set after reboot")
		fresh.SetStatus(device.Failed(device.StageReboot, err.Error()))
		return fresh, err
	}

	fresh.SetStatus(device.Success(device.StageReboot))
	return fresh, nil
}

// FormatSetDate renders the UTC timestamp the way oem set-date expects:
// "%Y-%m-%d %H:%M:%S" (spec §4.5.1 step 2; shared with pkg/appliance's
// ApplianceTimeSetter implementation).
func FormatSetDate(now time.Time) string {
	return now.UTC().Format("2006-01-02 15:04:05")
}

// parseAttestDHAlgorithmID parses a comma-separated "id:name" list and returns the
// numeric id of the preferred algorithm (X25519 over P256), matching
// preferredAlgorithm's preference order but returning the bare id.
func parseAttestDHAlgorithmID(dh string) (int, bool) {
	id, ok := preferredAlgorithm(dh)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(id)
	if err != nil {
		return 0, false
	}
	return n, true
}
