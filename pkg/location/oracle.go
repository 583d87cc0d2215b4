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

// Package location maps fastboot serial numbers to the physical USB location
// a device is plugged into (spec §4.2, C2). Physical location is what the
// operator console uses to keep target slots visually stable across reboots,
// since a serial alone doesn't tell an operator which socket a device sits
// in.
package location

// Oracle answers "what USB location is this serial plugged into right now".
// It is a pure observation: nothing in this package mutates device state.
type Oracle interface {
	// Refresh re-reads the current serial-to-location mapping.
	Refresh() error

	// LocationOf returns the USB location for serial, case-insensitively,
	// and false if the serial isn't currently present.
	LocationOf(serial string) (string, bool)

	// Snapshot returns a copy of the full serial->location map as of the
	// last Refresh.
	Snapshot() map[string]string
}
