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

// Package device holds the shared data model for target and appliance
// records (spec §3): the registry (C4) creates and destroys them, the
// provisioning state machine (C5) mutates them, and the orchestrator (C6)
// and appliance manager (C8) read and act on them.
package device

import "fmt"

// Stage is the provisioning pipeline position (spec §4.5).
type Stage int

const (
	StageIdle Stage = iota
	StageWaiting
	StageFuseVboot
	StageReboot
	StageFuseAttr
	StageLockAvb
	StageProvision
	StageUnlockAvb
	StageSomProvision
)

func (s Stage) String() string {
	switch s {
	case StageIdle:
		return "IDLE"
	case StageWaiting:
		return "WAITING"
	case StageFuseVboot:
		return "FUSEVBOOT"
	case StageReboot:
		return "REBOOT"
	case StageFuseAttr:
		return "FUSEATTR"
	case StageLockAvb:
		return "LOCKAVB"
	case StageProvision:
		return "PROVISION"
	case StageUnlockAvb:
		return "UNLOCKAVB"
	case StageSomProvision:
		return "SOM_PROVISION"
	default:
		return "UNKNOWN"
	}
}

// Phase is the outcome of a stage. PhaseNone applies only to the bare IDLE
// and WAITING statuses, which have no in-progress/success/failed variants.
type Phase int

const (
	PhaseNone Phase = iota
	PhaseInProgress
	PhaseSuccess
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseInProgress:
		return "IN_PROGRESS"
	case PhaseSuccess:
		return "SUCCESS"
	case PhaseFailed:
		return "FAILED"
	default:
		return ""
	}
}

// Status is the product of Stage x Phase (spec §4.5), e.g.
// PROVISION_IN_PROGRESS, REBOOT_FAILED, plus the bare IDLE/WAITING values.
type Status struct {
	Stage  Stage
	Phase  Phase
	Reason string
}

func Idle() Status    { return Status{Stage: StageIdle, Phase: PhaseNone} }
func Waiting() Status { return Status{Stage: StageWaiting, Phase: PhaseNone} }

func InProgress(stage Stage) Status { return Status{Stage: stage, Phase: PhaseInProgress} }
func Success(stage Stage) Status    { return Status{Stage: stage, Phase: PhaseSuccess} }
func Failed(stage Stage, reason string) Status {
	return Status{Stage: stage, Phase: PhaseFailed, Reason: reason}
}

func (s Status) IsSuccess() bool    { return s.Phase == PhaseSuccess }
func (s Status) IsProcessing() bool { return s.Phase == PhaseInProgress }
func (s Status) IsFailed() bool     { return s.Phase == PhaseFailed }

func (s Status) String() string {
	if s.Phase == PhaseNone {
		return s.Stage.String()
	}
	return fmt.Sprintf("%s_%s", s.Stage, s.Phase)
}

// State is the five independent provisioning facets (spec §3).
type State struct {
	BootloaderLocked   bool
	AvbPermAttrSet     bool
	AvbLocked          bool
	ProductProvisioned bool
	SomProvisioned     bool
}

// DisplayStatus computes a Status from the highest true facet, in the
// priority order defined by spec §4.5: product_provisioned > avb_locked >
// som_provisioned > avb_perm_attr_set > bootloader_locked > IDLE.
func (s State) DisplayStatus() Status {
	switch {
	case s.ProductProvisioned:
		return Success(StageProvision)
	case s.AvbLocked:
		return Success(StageLockAvb)
	case s.SomProvisioned:
		return Success(StageSomProvision)
	case s.AvbPermAttrSet:
		return Success(StageFuseAttr)
	case s.BootloaderLocked:
		return Success(StageFuseVboot)
	default:
		return Idle()
	}
}
