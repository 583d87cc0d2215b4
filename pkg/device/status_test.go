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

package device

import "testing"

func TestDisplayStatusPriorityOrder(t *testing.T) {
	cases := []struct {
		name  string
		state State
		want  Stage
	}{
		{"none set", State{}, StageIdle},
		{"only bootloader", State{BootloaderLocked: true}, StageFuseVboot},
		{"attr over bootloader", State{BootloaderLocked: true, AvbPermAttrSet: true}, StageFuseAttr},
		{"som over attr", State{AvbPermAttrSet: true, SomProvisioned: true}, StageSomProvision},
		{"avb locked over som", State{SomProvisioned: true, AvbLocked: true}, StageLockAvb},
		{"product over everything", State{AvbLocked: true, ProductProvisioned: true}, StageProvision},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := c.state.DisplayStatus()
			if got.Stage != c.want {
				t.Errorf("DisplayStatus().Stage = %v, want %v", got.Stage, c.want)
			}
			if !got.IsSuccess() {
				t.Errorf("DisplayStatus().Phase = %v, want success", got.Phase)
			}
		})
	}
}

func TestStatusString(t *testing.T) {
	if got := Idle().String(); got != "IDLE" {
		t.Errorf("Idle().String() = %q, want IDLE", got)
	}
	if got := InProgress(StageProvision).String(); got != "PROVISION_IN_PROGRESS" {
		t.Errorf("InProgress(StageProvision).String() = %q, want PROVISION_IN_PROGRESS", got)
	}
	if got := Failed(StageLockAvb, "x").String(); got != "LOCKAVB_FAILED" {
		t.Errorf("Failed(StageLockAvb, ...).String() = %q, want LOCKAVB_FAILED", got)
	}
}
