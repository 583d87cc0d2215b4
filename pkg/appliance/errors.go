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

package appliance

// ProductNotSpecified is returned by UpdateKeysLeft/PurgeKey when no
// descriptor has been loaded for the requested key kind (spec §4.8).
type ProductNotSpecified struct {
	IsSom bool
}

func (e *ProductNotSpecified) Error() string {
	if e.IsSom {
		return "no SoM descriptor loaded"
	}
	return "no product descriptor loaded"
}

// BadResponse is returned when the appliance's OEM response doesn't match
// the expected "(bootloader) <int>" format.
type BadResponse struct {
	Command string
	Raw     string
}

func (e *BadResponse) Error() string {
	return "appliance: unexpected response to " + e.Command + ": " + e.Raw
}

// NotCurrent is returned when an operation targets a serial that is no
// longer the registry's live appliance.
type NotCurrent struct {
	Serial string
}

func (e *NotCurrent) Error() string {
	return "appliance " + e.Serial + " is not the current appliance"
}
