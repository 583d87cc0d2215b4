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

// Package clocktest offers test helpers for swapping the package-level
// variables in pkg/clock so timer-driven production code can be exercised
// without real sleeps.
package clocktest

import (
	"time"

	"github.com/google/atft/pkg/clock"
)

// shortDuration is used by tests that want a real, but short, wait instead of
// faking time away entirely (e.g. to exercise an actual select race).
var shortDuration = 50 * time.Millisecond

// UseShortAfter shrinks clock.After to shortDuration regardless of the
// requested duration. Callers must call Reset when done.
func UseShortAfter() {
	clock.After = func(time.Duration) <-chan time.Time { return time.After(shortDuration) }
}

// UseNoAfter makes clock.After fire immediately.
func UseNoAfter() {
	clock.After = func(time.Duration) <-chan time.Time { return time.After(0) }
}

// UseFixedNow pins clock.Now to t.
func UseFixedNow(t time.Time) {
	clock.Now = func() time.Time { return t }
}

// Reset restores clock.After and clock.Now to their real implementations.
func Reset() {
	clock.After = time.After
	clock.Now = time.Now
	clock.NewTicker = time.NewTicker
}
