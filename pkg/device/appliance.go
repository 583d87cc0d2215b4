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

// Appliance is the at-most-one ATFA record (spec §3). KeysLeft is nullable:
// nil means unknown, a value of -1 means the last query errored, >= 0 is the
// last-known count.
type Appliance struct {
	mu sync.Mutex

	Serial string
	Handle fastboot.Device
	Token  *token.Token

	OsVersion     string
	Incompatible  bool
	KeysLeft      *int
	SomKeysLeft   *int
}

// NewAppliance creates a record for a newly-stable "ATFA"-prefixed serial.
func NewAppliance(serial string, handle fastboot.Device) *Appliance {
	return &Appliance{
		Serial: serial,
		Handle: handle,
		Token:  token.New(),
	}
}

func (a *Appliance) SetKeysLeft(n int) {
	a.mu.Lock()
	a.KeysLeft = &n
	a.mu.Unlock()
}

func (a *Appliance) GetKeysLeft() *int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.KeysLeft
}

func (a *Appliance) SetSomKeysLeft(n int) {
	a.mu.Lock()
	a.SomKeysLeft = &n
	a.mu.Unlock()
}

func (a *Appliance) GetSomKeysLeft() *int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.SomKeysLeft
}
