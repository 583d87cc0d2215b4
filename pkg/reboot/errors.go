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

package reboot

import "fmt"

// Timeout is returned when a target doesn't reappear within the configured
// reboot wait window (spec §4.7).
type Timeout struct {
	Serial string
}

func (e *Timeout) Error() string {
	return fmt.Sprintf("reboot: %s did not reappear before the timeout", e.Serial)
}
