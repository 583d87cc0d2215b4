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

// Package clock provides a seam over the stdlib time package so timer-driven
// code (reboot timeouts, the device poller's tick, the key-bundle ingest
// scanner) can be driven deterministically from tests instead of sleeping in
// real time.
package clock

import "time"

// After is a function variable for swapping during tests, allowing variable
// behavior and call tracking depending on what the test needs. Production
// code should always call clock.After instead of time.After directly.
var After = time.After

// Now is a function variable wrapping time.Now for the same reason; it backs
// the audit log's timestamped entries and the reboot tracker's deadlines.
var Now = time.Now

// NewTicker is a function variable wrapping time.NewTicker, used by the
// device poller and the key-bundle ingest scanner.
var NewTicker = time.NewTicker
