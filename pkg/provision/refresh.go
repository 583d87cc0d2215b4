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
	"strings"

	"github.com/google/atft/pkg/device"
)

const notProvisionedSentinel = "NOT_PROVISIONED"

// RefreshProvisionStatus issues getvar at-attest-uuid and getvar
// at-vboot-state, updates t's facets, probes the SoM heuristic, and
// recomputes the display status (spec §4.5).
func RefreshProvisionStatus(ctx context.Context, t *device.Target, prober SomProber) error {
	uuid, err := t.Handle.GetVar(ctx, "at-attest-uuid")
	if err != nil {
		uuid = ""
	}
	vbootState, err := t.Handle.GetVar(ctx, "at-vboot-state")
	if err != nil {
		vbootState = ""
	}

	state := t.GetState()
	for key, value := range parseVbootState(vbootState) {
		switch key {
		case "bootloader-locked":
			state.BootloaderLocked = parseBool(value)
		case "avb-perm-attr-set":
			state.AvbPermAttrSet = parseBool(value)
		case "avb-locked":
			state.AvbLocked = parseBool(value)
		}
	}
	state.ProductProvisioned = uuid != "" && uuid != notProvisionedSentinel
	if uuid != "" && uuid != notProvisionedSentinel {
		t.AttestUUID = uuid
	}

	if prober != nil {
		somProvisioned, _ := prober.ProbeSom(ctx, t)
		state.SomProvisioned = state.SomProvisioned || somProvisioned
	}

	t.SetState(state)
	t.SetStatus(state.DisplayStatus())
	return nil
}

// parseVbootState parses "(bootloader) key: value" or "key=value" lines.
func parseVbootState(raw string) map[string]string {
	fields := map[string]string{}
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(strings.TrimRight(line, "\r"))
		line = strings.TrimPrefix(line, "(bootloader) ")
		if line == "" {
			continue
		}
		idx := strings.IndexAny(line, ":=")
		if idx < 0 {
			continue
		}
		key := strings.TrimSpace(line[:idx])
		value := strings.TrimSpace(line[idx+1:])
		fields[key] = value
	}
	return fields
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "1", "yes":
		return true
	default:
		return false
	}
}
