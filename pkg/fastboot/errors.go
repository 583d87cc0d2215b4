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

package fastboot

import "fmt"

// TransportFailure is the single failure variant the fastboot transport can
// produce (spec §4.1, §7). It carries whatever output the underlying
// fastboot invocation produced, merged or separated per the call site.
type TransportFailure struct {
	Op      string
	Serial  string
	Message string
}

func (e *TransportFailure) Error() string {
	if e.Serial != "" {
		return fmt.Sprintf("fastboot %s (%s): %s", e.Op, e.Serial, e.Message)
	}
	return fmt.Sprintf("fastboot %s: %s", e.Op, e.Message)
}

// DeviceNotFound is returned when an operation targets a serial the caller
// no longer has a handle for (spec §7).
type DeviceNotFound struct {
	Serial string
}

func (e *DeviceNotFound) Error() string {
	return fmt.Sprintf("device %s not found", e.Serial)
}
