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

package ingest

import (
	"context"

	"github.com/google/atft/pkg/clock"
)

// Start runs the periodic scan loop until ctx is cancelled or Stop is
// called. A scan error is discarded without being logged; the next tick
// retries.
func (s *Scanner) Start(ctx context.Context) {
	ticker := clock.NewTicker(s.interval)
	defer ticker.Stop()
	defer close(s.stopped)

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stop:
			return
		case <-ticker.C:
			_ = s.Scan(ctx)
		}
	}
}

// Stop signals Start's loop to exit and blocks until it has.
func (s *Scanner) Stop() {
	close(s.stop)
	<-s.stopped
}
