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

// Package provision implements the per-target provisioning state machine
// (spec §4.5, C5): status refresh, the SoM-presence probe, the individual
// fuse/lock/provision step operations and their pre-conditions, and the
// auto-sequencing validator and completion predicate (spec §4.5.2).
package provision

import "fmt"

// NoAlgorithm is returned when a target offers no ECDH algorithm the host
// recognizes during the provision sub-protocol (spec §4.5.1 step 3).
type NoAlgorithm struct{}

func (e *NoAlgorithm) Error() string { return "provision: no compatible ECDH algorithm offered" }

// PreconditionFailed is returned when a step is asked to run against a
// target whose facets would make the step a regression (spec §4.5
// "Pre-conditions").
type PreconditionFailed struct {
	Step   string
	Reason string
}

func (e *PreconditionFailed) Error() string {
	return fmt.Sprintf("provision: precondition failed for %s: %s", e.Step, e.Reason)
}
