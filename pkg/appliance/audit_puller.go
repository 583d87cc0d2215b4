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

package appliance

import (
	"context"
	"os"

	"github.com/google/atft/pkg/device"
	"github.com/google/uuid"
)

// Registry looks up the current appliance by serial so an AuditPuller can
// be constructed once and still always act on the live record.
type Registry interface {
	Appliance() *device.Appliance
}

// AuditPuller implements audit.Puller against the live appliance: stage the
// audit file (oem audit), pull it into a scratch file, read it back, and
// always clean the scratch file up. It satisfies audit.Puller structurally
// so pkg/audit never needs to import pkg/appliance.
type AuditPuller struct {
	Registry Registry
	Manager  *Manager
	TempDir  string
}

func (p *AuditPuller) PullAudit(ctx context.Context, applianceSerial string) ([]byte, error) {
	a := p.Registry.Appliance()
	if a == nil || a.Serial != applianceSerial {
		return nil, &NotCurrent{Serial: applianceSerial}
	}

	if err := p.Manager.PrepareFile(ctx, a, "audit"); err != nil {
		return nil, err
	}

	dir := p.TempDir
	if dir == "" {
		dir = os.TempDir()
	}
	path := dir + string(os.PathSeparator) + uuid.NewString() + ".audit"
	defer os.Remove(path)

	if err := a.Handle.Upload(ctx, path); err != nil {
		return nil, err
	}
	return os.ReadFile(path)
}
