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

// Package fastboot wraps the fastboot command-line client as an opaque
// transport (spec §4.1, C1). The protocol semantics it carries (ATAP
// messages, OEM commands) are defined by higher-level packages; this package
// only knows how to shell out and parse the conventional "name: value" getvar
// line format.
package fastboot

import (
	"context"
	"os/exec"
	"strings"
)

// Device is the capability surface a provisioning step or appliance command
// needs from a fastboot-attached device. It is deliberately narrow so it can
// be faked in tests without reimplementing a fastboot protocol stack.
type Device interface {
	// Serial returns the device's fastboot serial number.
	Serial() string

	// Oem issues `fastboot oem <cmd>`. If redirectStderr is true, stderr is
	// merged into the returned output (matching the original tool's
	// err_to_out flag, used so OEM failure text isn't lost).
	Oem(ctx context.Context, cmd string, redirectStderr bool) ([]byte, error)

	// GetVar issues `fastboot getvar <name>` and extracts the value from the
	// line "<name>: <value>", with a trailing carriage return stripped.
	GetVar(ctx context.Context, name string) (string, error)

	// Download stages localPath onto the device (`fastboot stage`).
	Download(ctx context.Context, localPath string) error

	// Upload unstages the device's staged file to localPath (`fastboot
	// get_staged`).
	Upload(ctx context.Context, localPath string) error

	// Reboot requests the device reset. It does not wait for the device to
	// come back; see pkg/reboot for that.
	Reboot(ctx context.Context) error
}

// Transport enumerates fastboot devices and builds handles to them. A
// Transport does not itself keep ListDevices calls and in-flight commands
// from running concurrently; WithSerializedListing wraps a Transport to give
// that guarantee (spec §5's fastboot-devices mutex).
type Transport interface {
	ListDevices(ctx context.Context) ([]string, error)
	Device(serial string) Device
}

// execTransport is the real, subprocess-backed implementation. It assumes a
// `fastboot` binary is on PATH, matching the original tool's
// fastbootsubp.FastbootDevice.
type execTransport struct {
	binary string
}

// NewTransport returns a Transport that shells out to the system fastboot
// binary.
func NewTransport() Transport {
	return &execTransport{binary: "fastboot"}
}

func (t *execTransport) ListDevices(ctx context.Context) ([]string, error) {
	out, err := exec.CommandContext(ctx, t.binary, "devices").CombinedOutput()
	if err != nil {
		return nil, &TransportFailure{Op: "devices", Message: outputOrErr(out, err)}
	}
	var serials []string
	for _, line := range strings.Split(string(out), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		serials = append(serials, fields[0])
	}
	return serials, nil
}

func (t *execTransport) Device(serial string) Device {
	return &execDevice{binary: t.binary, serial: serial}
}

type execDevice struct {
	binary string
	serial string
}

func (d *execDevice) Serial() string { return d.serial }

func (d *execDevice) command(args ...string) *exec.Cmd {
	full := append([]string{"-s", d.serial}, args...)
	return exec.Command(d.binary, full...)
}

func (d *execDevice) Oem(ctx context.Context, cmd string, redirectStderr bool) ([]byte, error) {
	c := exec.CommandContext(ctx, d.binary, "-s", d.serial, "oem", cmd)
	var out []byte
	var err error
	if redirectStderr {
		out, err = c.CombinedOutput()
	} else {
		out, err = c.Output()
	}
	if err != nil {
		return out, &TransportFailure{Op: "oem " + cmd, Serial: d.serial, Message: outputOrErr(out, err)}
	}
	return out, nil
}

func (d *execDevice) GetVar(ctx context.Context, name string) (string, error) {
	out, err := exec.CommandContext(ctx, d.binary, "-s", d.serial, "getvar", name).CombinedOutput()
	if err != nil {
		return "", &TransportFailure{Op: "getvar " + name, Serial: d.serial, Message: outputOrErr(out, err)}
	}
	prefix := name + ": "
	for _, line := range strings.Split(string(out), "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.HasPrefix(line, prefix) {
			return strings.TrimPrefix(line, prefix), nil
		}
	}
	return "", &TransportFailure{Op: "getvar " + name, Serial: d.serial, Message: "value not present in output: " + string(out)}
}

func (d *execDevice) Download(ctx context.Context, localPath string) error {
	out, err := exec.CommandContext(ctx, d.binary, "-s", d.serial, "stage", localPath).CombinedOutput()
	if err != nil {
		return &TransportFailure{Op: "stage", Serial: d.serial, Message: outputOrErr(out, err)}
	}
	return nil
}

func (d *execDevice) Upload(ctx context.Context, localPath string) error {
	out, err := exec.CommandContext(ctx, d.binary, "-s", d.serial, "get_staged", localPath).CombinedOutput()
	if err != nil {
		return &TransportFailure{Op: "get_staged", Serial: d.serial, Message: outputOrErr(out, err)}
	}
	return nil
}

func (d *execDevice) Reboot(ctx context.Context) error {
	out, err := exec.CommandContext(ctx, d.binary, "-s", d.serial, "reboot").CombinedOutput()
	if err != nil {
		return &TransportFailure{Op: "reboot", Serial: d.serial, Message: outputOrErr(out, err)}
	}
	return nil
}

func outputOrErr(out []byte, err error) string {
	if len(out) > 0 {
		return string(out)
	}
	return err.Error()
}
