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

// Package registry implements the device registry and poller (spec §4.4,
// C4): a two-tick debounced view of attached fastboot devices, split into
// target records and an at-most-one appliance record.
package registry

// EventKind tags the variant carried by an Event (spec §9 "Event dispatch to
// UI": {alert, print, device_list_refreshed, low_key, exception,
// select_file, save_file, mapping_updated}; this package only emits the
// device-lifecycle-relevant subset).
type EventKind int

const (
	EventDeviceListRefreshed EventKind = iota
	EventDeviceCreationFailed
	EventApplianceIncompatible
)

// Event is posted to Events() after each tick that changed anything.
type Event struct {
	Kind    EventKind
	Serials []string // affected serials, for EventDeviceCreationFailed
	Err     error
}
