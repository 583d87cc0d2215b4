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

// Package fastboottest provides an in-memory fastboot.Transport and
// fastboot.Device for exercising higher-level packages (registry, provision,
// appliance, atap) without a real fastboot binary or USB device attached.
package fastboottest

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/atft/pkg/fastboot"
)

// Fake is an in-memory fastboot.Transport. Tests populate Devices directly
// and, where needed, set per-device behavior via the FakeDevice fields.
type Fake struct {
	mu      sync.Mutex
	Devices map[string]*FakeDevice
}

// New returns an empty Fake transport.
func New() *Fake {
	return &Fake{Devices: make(map[string]*FakeDevice)}
}

// Add registers a device serial with empty vars/oem responses and returns
// it so the test can keep mutating it.
func (f *Fake) Add(serial string) *FakeDevice {
	f.mu.Lock()
	defer f.mu.Unlock()
	d := &FakeDevice{serial: serial, Vars: map[string]string{}, OemResponses: map[string][]byte{}}
	f.Devices[serial] = d
	return d
}

// Remove simulates the serial disappearing from `fastboot devices`.
func (f *Fake) Remove(serial string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.Devices, serial)
}

func (f *Fake) ListDevices(ctx context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var serials []string
	for s := range f.Devices {
		serials = append(serials, s)
	}
	return serials, nil
}

func (f *Fake) Device(serial string) fastboot.Device {
	f.mu.Lock()
	defer f.mu.Unlock()
	if d, ok := f.Devices[serial]; ok {
		return d
	}
	// Return a device handle even if it isn't registered; operations against
	// it will fail with DeviceNotFound, matching a real transport handed a
	// stale serial.
	return &FakeDevice{serial: serial, missing: true}
}

// FakeDevice is an in-memory stand-in for a single fastboot device.
type FakeDevice struct {
	mu sync.Mutex

	serial  string
	missing bool

	Vars         map[string]string
	OemResponses map[string][]byte
	OemErrors    map[string]error

	Staged     []byte
	Downloaded []byte

	Rebooted  int
	OemCalls  []string
	GetVarLog []string
}

func (d *FakeDevice) Serial() string { return d.serial }

func (d *FakeDevice) Oem(ctx context.Context, cmd string, redirectStderr bool) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.missing {
		return nil, &fastboot.DeviceNotFound{Serial: d.serial}
	}
	d.OemCalls = append(d.OemCalls, cmd)
	if err, ok := d.OemErrors[cmd]; ok && err != nil {
		return nil, err
	}
	return d.OemResponses[cmd], nil
}

func (d *FakeDevice) GetVar(ctx context.Context, name string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.missing {
		return "", &fastboot.DeviceNotFound{Serial: d.serial}
	}
	d.GetVarLog = append(d.GetVarLog, name)
	v, ok := d.Vars[name]
	if !ok {
		return "", &fastboot.TransportFailure{Op: "getvar " + name, Serial: d.serial, Message: "no such variable"}
	}
	return v, nil
}

func (d *FakeDevice) Download(ctx context.Context, localPath string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.missing {
		return &fastboot.DeviceNotFound{Serial: d.serial}
	}
	d.Downloaded = []byte(fmt.Sprintf("staged:%s", localPath))
	return nil
}

func (d *FakeDevice) Upload(ctx context.Context, localPath string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.missing {
		return &fastboot.DeviceNotFound{Serial: d.serial}
	}
	return nil
}

func (d *FakeDevice) Reboot(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.missing {
		return &fastboot.DeviceNotFound{Serial: d.serial}
	}
	d.Rebooted++
	return nil
}

// SetVar is a convenience setter usable after construction.
func (d *FakeDevice) SetVar(name, value string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Vars[name] = value
}

// SetOemResponse configures the byte payload Oem returns for cmd.
func (d *FakeDevice) SetOemResponse(cmd string, payload []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.OemResponses[cmd] = payload
}

// SetOemError configures Oem to fail for cmd.
func (d *FakeDevice) SetOemError(cmd string, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.OemErrors == nil {
		d.OemErrors = map[string]error{}
	}
	d.OemErrors[cmd] = err
}
