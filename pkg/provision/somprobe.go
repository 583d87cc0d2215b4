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
	"os"
	"strconv"
	"strings"

	"github.com/google/atft/pkg/atap"
	"github.com/google/atft/pkg/device"
)

// minProductCARequestLen is the smallest possible product-flow CA-request
// size (spec §4.5 "SoM status probe"): 8 + 33 + 12 + 4 + 8 + 4 + 4 + 32 + 4 +
// 4 + 4 + 16 = 133 bytes.
const minProductCARequestLen = 133

// SomProber probes a target for SoM-key presence via the fixed
// operation-start/CA-request size heuristic.
type SomProber interface {
	ProbeSom(ctx context.Context, t *device.Target) (bool, error)
}

// DeviceSomProber is the real, fastboot-backed SomProber.
type DeviceSomProber struct {
	// OperationStartBlob selects and returns the fixed test Operation-Start
	// payload for the given algorithm id string (spec: built from the
	// device's offered at-attest-dh list, "2:x25519" preferred over
	// "1:p256"). Injectable so tests can avoid real device files.
	OperationStartBlob func(algorithmID string) ([]byte, error)
}

// ProbeSom implements the heuristic: prefer X25519 if offered via
// at-attest-dh, download the matching fixed Operation-Start blob, issue
// at-get-ca-request, upload the result to a scratch file, and treat a file
// larger than minProductCARequestLen as "SoM provisioned". Any transport
// failure is treated as a negative result. The scratch file is always
// removed.
func (p DeviceSomProber) ProbeSom(ctx context.Context, t *device.Target) (bool, error) {
	dh, err := t.Handle.GetVar(ctx, "at-attest-dh")
	if err != nil {
		return false, nil
	}
	algoID, ok := preferredAlgorithm(dh)
	if !ok {
		return false, nil
	}

	blob, err := p.OperationStartBlob(algoID)
	if err != nil {
		return false, nil
	}

	scratch, err := os.CreateTemp("", "atft-ca-request-*.bin")
	if err != nil {
		return false, nil
	}
	scratchPath := scratch.Name()
	scratch.Close()
	defer os.Remove(scratchPath)

	if err := os.WriteFile(scratchPath, blob, 0600); err != nil {
		return false, nil
	}
	if err := t.Handle.Download(ctx, scratchPath); err != nil {
		return false, nil
	}
	if _, err := t.Handle.Oem(ctx, "at-get-ca-request", false); err != nil {
		return false, nil
	}
	if err := t.Handle.Upload(ctx, scratchPath); err != nil {
		return false, nil
	}

	info, err := os.Stat(scratchPath)
	if err != nil {
		return false, nil
	}
	return info.Size() > minProductCARequestLen, nil
}

// preferredAlgorithm parses a comma-separated "id:name" list (e.g.
// "2:x25519,1:p256") and prefers X25519 (id 2) over P256 (id 1).
func preferredAlgorithm(dh string) (string, bool) {
	var sawP256 bool
	for _, entry := range strings.Split(dh, ",") {
		entry = strings.TrimSpace(entry)
		idx := strings.Index(entry, ":")
		if idx < 0 {
			continue
		}
		id, err := strconv.Atoi(strings.TrimSpace(entry[:idx]))
		if err != nil {
			continue
		}
		switch atap.Algorithm(id) {
		case atap.AlgorithmX25519:
			return entry[:idx], true
		case atap.AlgorithmP256:
			sawP256 = true
		}
	}
	if sawP256 {
		return strconv.Itoa(int(atap.AlgorithmP256)), true
	}
	return "", false
}
