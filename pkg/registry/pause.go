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

package registry

import "sync/atomic"

// pauseCounter is the layered "refresh pause semaphore" (spec §5): Pause
// increments it and the function Pause returns decrements it; the poller tick
// is skipped while the count is non-zero. Fastboot operations do not take a
// pause on their own; only an explicit Pause call suspends the poller.
type pauseCounter struct {
	n int64
}

func (p *pauseCounter) inc() { atomic.AddInt64(&p.n, 1) }
func (p *pauseCounter) dec() { atomic.AddInt64(&p.n, -1) }

func (p *pauseCounter) paused() bool { return atomic.LoadInt64(&p.n) > 0 }

// Pause increments the pause count and returns a function that decrements
// it; callers performing a fastboot operation outside the poller should
// `defer registry.Pause()()`.
func (r *Registry) Pause() func() {
	r.pause.inc()
	return r.pause.dec
}
