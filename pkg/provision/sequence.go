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
	"fmt"

	"github.com/google/atft/pkg/device"
)

// StepName is a token in a configurable auto-provision sequence (spec
// §4.5.2).
type StepName string

const (
	StepFuseVbootKey    StepName = "FuseVbootKey"
	StepFusePermAttr    StepName = "FusePermAttr"
	StepLockAvb         StepName = "LockAvb"
	StepUnlockAvb       StepName = "UnlockAvb"
	StepProvisionProduct StepName = "ProvisionProduct"
	StepProvisionSom    StepName = "ProvisionSom"
)

// DefaultProductSequence and DefaultSomSequence are the two built-in
// sequences (spec §4.5.2).
var (
	DefaultProductSequence = []StepName{StepFuseVbootKey, StepFusePermAttr, StepLockAvb, StepProvisionProduct}
	DefaultSomSequence     = []StepName{StepFuseVbootKey, StepProvisionSom}
)

// SequenceError distinguishes a syntax failure (unknown token / not a list)
// from a semantic ordering failure.
type SequenceError struct {
	Syntax bool
	Reason string
}

func (e *SequenceError) Error() string {
	kind := "semantic"
	if e.Syntax {
		kind = "syntax"
	}
	return fmt.Sprintf("provision: sequence %s error: %s", kind, e.Reason)
}

func isKnownStep(s StepName) bool {
	switch s {
	case StepFuseVbootKey, StepFusePermAttr, StepLockAvb, StepUnlockAvb, StepProvisionProduct, StepProvisionSom:
		return true
	default:
		return false
	}
}

// ValidateSequence simulates seq on a fresh empty state and rejects any
// ordering violation (spec §4.5.2). It is always run unless testMode is set.
func ValidateSequence(seq []StepName) error {
	state := device.State{}
	seenFusePermAttr := false
	seenProvisionProduct := false
	seenProvisionSom := false

	for _, step := range seq {
		if !isKnownStep(step) {
			return &SequenceError{Syntax: true, Reason: fmt.Sprintf("unknown step %q", step)}
		}

		switch step {
		case StepFuseVbootKey:
			state.BootloaderLocked = true
		case StepFusePermAttr:
			if !state.BootloaderLocked {
				return &SequenceError{Reason: "FusePermAttr before FuseVbootKey"}
			}
			if seenFusePermAttr {
				return &SequenceError{Reason: "FusePermAttr repeated"}
			}
			seenFusePermAttr = true
			state.AvbPermAttrSet = true
		case StepLockAvb:
			if !(state.BootloaderLocked && state.AvbPermAttrSet) {
				return &SequenceError{Reason: "LockAvb before FuseVbootKey and FusePermAttr"}
			}
			state.AvbLocked = true
		case StepUnlockAvb:
			state.AvbLocked = false
		case StepProvisionProduct:
			if !(state.BootloaderLocked && state.AvbPermAttrSet) {
				return &SequenceError{Reason: "ProvisionProduct before FuseVbootKey and FusePermAttr"}
			}
			if seenProvisionProduct {
				return &SequenceError{Reason: "ProvisionProduct repeated"}
			}
			seenProvisionProduct = true
			state.ProductProvisioned = true
		case StepProvisionSom:
			if !state.BootloaderLocked {
				return &SequenceError{Reason: "ProvisionSom before FuseVbootKey"}
			}
			if seenProvisionSom {
				return &SequenceError{Reason: "ProvisionSom repeated"}
			}
			seenProvisionSom = true
			state.SomProvisioned = true
		}
	}
	return nil
}

// ProjectFinalState applies seq step-by-step starting from initial,
// following the same transitions ValidateSequence simulates.
func ProjectFinalState(initial device.State, seq []StepName) device.State {
	state := initial
	for _, step := range seq {
		switch step {
		case StepFuseVbootKey:
			state.BootloaderLocked = true
		case StepFusePermAttr:
			state.AvbPermAttrSet = true
		case StepLockAvb:
			state.AvbLocked = true
		case StepUnlockAvb:
			state.AvbLocked = false
		case StepProvisionProduct:
			state.ProductProvisioned = true
		case StepProvisionSom:
			state.SomProvisioned = true
		}
	}
	return state
}

// IsComplete implements the completion predicate (spec §4.5.2): a target is
// done when projecting seq from its current facets reproduces its observed
// facets exactly.
func IsComplete(current device.State, seq []StepName) bool {
	return ProjectFinalState(current, seq) == current
}
