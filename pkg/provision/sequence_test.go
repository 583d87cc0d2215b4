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
	"testing"

	"github.com/kylelemons/godebug/pretty"

	"github.com/google/atft/pkg/device"
)

func TestValidateSequenceAcceptsDefaults(t *testing.T) {
	if err := ValidateSequence(DefaultProductSequence); err != nil {
		t.Errorf("DefaultProductSequence rejected: %v", err)
	}
	if err := ValidateSequence(DefaultSomSequence); err != nil {
		t.Errorf("DefaultSomSequence rejected: %v", err)
	}
}

func TestValidateSequenceRejectsOutOfOrder(t *testing.T) {
	cases := [][]StepName{
		{StepFusePermAttr, StepFuseVbootKey},
		{StepFuseVbootKey, StepFusePermAttr, StepFusePermAttr},
		{StepLockAvb, StepFuseVbootKey, StepFusePermAttr},
		{StepProvisionProduct, StepFuseVbootKey, StepFusePermAttr},
		{StepFuseVbootKey, StepProvisionSom, StepProvisionSom},
	}
	for _, seq := range cases {
		if err := ValidateSequence(seq); err == nil {
			t.Errorf("ValidateSequence(%v) accepted, want rejection", seq)
		}
	}
}

func TestValidateSequenceRejectsUnknownStepAsSyntax(t *testing.T) {
	err := ValidateSequence([]StepName{"NotAStep"})
	se, ok := err.(*SequenceError)
	if !ok || !se.Syntax {
		t.Fatalf("err = %v, want syntax SequenceError", err)
	}
}

func TestIsCompleteSkipsSatisfiedSteps(t *testing.T) {
	current := device.State{BootloaderLocked: true, AvbPermAttrSet: true, AvbLocked: true, ProductProvisioned: true}
	if !IsComplete(current, DefaultProductSequence) {
		t.Error("expected sequence already satisfied to report complete")
	}

	partial := device.State{BootloaderLocked: true}
	if IsComplete(partial, DefaultProductSequence) {
		t.Error("expected partial facets to report incomplete")
	}
}

func TestProjectFinalStateMatchesExpectedFacets(t *testing.T) {
	got := ProjectFinalState(device.State{}, DefaultProductSequence)
	want := device.State{BootloaderLocked: true, AvbPermAttrSet: true, AvbLocked: true, ProductProvisioned: true}
	if diff := pretty.Compare(got, want); diff != "" {
		t.Errorf("ProjectFinalState(DefaultProductSequence) mismatch (-got +want):\n%s", diff)
	}

	got = ProjectFinalState(device.State{}, DefaultSomSequence)
	want = device.State{BootloaderLocked: true, SomProvisioned: true}
	if diff := pretty.Compare(got, want); diff != "" {
		t.Errorf("ProjectFinalState(DefaultSomSequence) mismatch (-got +want):\n%s", diff)
	}
}
