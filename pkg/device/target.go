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

import (
	"sync"

	"github.com/google/atft/pkg/fastboot"
	"github.com/google/atft/pkg/token"
)

// Target is a target device record (spec §3). The registry creates one when
// a serial appears in two consecutive fastboot enumerations and destroys it
// when the serial disappears with no reboot in progress.
type Target struct {
	mu sync.Mutex

	Serial   string
	Location string
	Handle   fastboot.Device
	Token    *token.Token

	Status        Status
	State         State
	AttestUUID    string
	OperationName string

	// Rebooting is true while a placeholder record stands in for a target
	// that has been asked to reset (spec §4.7).
	Rebooting bool
}

// NewTarget creates a fresh record for a newly-stable serial.
func NewTarget(serial, location string, handle fastboot.Device) *Target {
	return &Target{
		Serial:   serial,
		Location: location,
		Handle:   handle,
		Token:    token.New(),
		Status:   Idle(),
	}
}

// WithLock runs fn while holding the target's internal bookkeeping mutex
// (distinct from Token, which is the operation-exclusivity token described
// in spec §5 — this mutex only protects the Go struct fields themselves
// from concurrent reads/writes by the poller vs a running step).
func (t *Target) WithLock(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fn()
}

func (t *Target) SetStatus(s Status) {
	t.mu.Lock()
	t.Status = s
	t.mu.Unlock()
}

func (t *Target) GetStatus() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.Status
}

func (t *Target) SetState(s State) {
	t.mu.Lock()
	t.State = s
	t.mu.Unlock()
}

func (t *Target) GetState() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.State
}
