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

package fastboot

import (
	"context"
	"sync"
)

// serializedTransport enforces spec §5's fastboot-devices mutex: on Windows
// hosts a running fastboot transaction transiently hides a device from
// `fastboot devices`, so ListDevices must never interleave with any other
// fastboot invocation. We apply the same discipline on every platform since
// it is harmless elsewhere and keeps the behavior platform-independent.
type serializedTransport struct {
	inner Transport
	mu    sync.Mutex
}

// WithSerializedListing wraps a Transport so that ListDevices and every
// command issued through a Device obtained from it share one mutex.
func WithSerializedListing(inner Transport) Transport {
	return &serializedTransport{inner: inner}
}

func (t *serializedTransport) ListDevices(ctx context.Context) ([]string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.inner.ListDevices(ctx)
}

func (t *serializedTransport) Device(serial string) Device {
	return &serializedDevice{inner: t.inner.Device(serial), mu: &t.mu}
}

type serializedDevice struct {
	inner Device
	mu    *sync.Mutex
}

func (d *serializedDevice) Serial() string { return d.inner.Serial() }

func (d *serializedDevice) Oem(ctx context.Context, cmd string, redirectStderr bool) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.inner.Oem(ctx, cmd, redirectStderr)
}

func (d *serializedDevice) GetVar(ctx context.Context, name string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.inner.GetVar(ctx, name)
}

func (d *serializedDevice) Download(ctx context.Context, localPath string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.inner.Download(ctx, localPath)
}

func (d *serializedDevice) Upload(ctx context.Context, localPath string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.inner.Upload(ctx, localPath)
}

func (d *serializedDevice) Reboot(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.inner.Reboot(ctx)
}
