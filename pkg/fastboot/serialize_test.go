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

package fastboot_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/atft/pkg/fastboot"
	"github.com/google/atft/pkg/fastboot/fastboottest"
)

// blockingTransport lets the test hold ListDevices open while a concurrent
// Device command is attempted, proving WithSerializedListing excludes them.
type blockingTransport struct {
	*fastboottest.Fake
	listing chan struct{}
	release chan struct{}
}

func (b *blockingTransport) ListDevices(ctx context.Context) ([]string, error) {
	close(b.listing)
	<-b.release
	return b.Fake.ListDevices(ctx)
}

func TestWithSerializedListingExcludesDeviceCommands(t *testing.T) {
	fake := fastboottest.New()
	fake.Add("SERIAL1").SetVar("product", "som")

	bt := &blockingTransport{Fake: fake, listing: make(chan struct{}), release: make(chan struct{})}
	transport := fastboot.WithSerializedListing(bt)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = transport.ListDevices(context.Background())
	}()

	<-bt.listing

	var unlocked int32
	done := make(chan struct{})
	go func() {
		_, _ = transport.Device("SERIAL1").GetVar(context.Background(), "product")
		atomic.StoreInt32(&unlocked, 1)
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("GetVar returned before ListDevices released the mutex")
	case <-time.After(50 * time.Millisecond):
	}

	close(bt.release)
	wg.Wait()
	<-done

	if atomic.LoadInt32(&unlocked) != 1 {
		t.Fatal("GetVar never completed")
	}
}

func TestFakeDeviceNotFound(t *testing.T) {
	fake := fastboottest.New()
	transport := fastboot.WithSerializedListing(fake)

	_, err := transport.Device("MISSING").GetVar(context.Background(), "product")
	if err == nil {
		t.Fatal("expected error for unregistered serial")
	}
	if _, ok := err.(*fastboot.DeviceNotFound); !ok {
		t.Fatalf("err = %T, want *fastboot.DeviceNotFound", err)
	}
}
