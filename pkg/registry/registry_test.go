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

import (
	"context"
	"testing"
	"time"

	"github.com/google/atft/pkg/fastboot/fastboottest"
)

func TestPauseSkipsTick(t *testing.T) {
	fake := fastboottest.New()
	fake.Add("TARGET1")
	oracle := &stubOracle{locations: map[string]string{"TARGET1": "1-1"}}
	r := newTestRegistry(t, fake, oracle)

	resume := r.Pause()
	if !r.pause.paused() {
		t.Fatal("Pause() did not mark the registry paused")
	}
	resume()
	if r.pause.paused() {
		t.Fatal("resume() did not clear the pause count")
	}
}

func TestStartStopLifecycle(t *testing.T) {
	fake := fastboottest.New()
	oracle := &stubOracle{locations: map[string]string{}}
	r := newTestRegistry(t, fake, oracle)
	r.interval = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		r.Start(ctx)
		close(done)
	}()

	r.Stop()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Start did not return after Stop")
	}
}
