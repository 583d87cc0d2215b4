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

package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/google/atft/pkg/device"
	"github.com/google/atft/pkg/errlog"
	"github.com/google/atft/pkg/provision"
)

// NewCmdStep groups the manual, single-step operator commands the original
// tool exposes in addition to its automatic sequence (SPEC_FULL.md
// "Supplemented features" #1): each goes through the same pkg/provision
// pre-condition checks the automatic path uses.
func NewCmdStep() *cobra.Command {
	root := &cobra.Command{
		Use:   "step",
		Short: "Run a single provisioning step against one target",
	}
	root.AddCommand(newCmdStepFuseVboot())
	root.AddCommand(newCmdStepFusePermAttr())
	root.AddCommand(newCmdStepLockAvb())
	root.AddCommand(newCmdStepUnlockAvb())
	root.AddCommand(newCmdStepReboot())
	root.AddCommand(newCmdStepProvision())
	root.AddCommand(newCmdStepProvisionSom())
	return root
}

// startRegistry starts the poller against the background context and
// returns a func that stops it. The poller must stay alive for the whole
// command, not just the initial debounce wait: pkg/reboot's tracker depends
// on live ticks to notice a target reappearing.
func startRegistry(rt *runtime) func() {
	ctx, cancel := context.WithCancel(context.Background())
	go rt.registry.Start(ctx)
	return func() {
		cancel()
		rt.registry.Stop()
	}
}

// waitForDebounce sleeps long enough for a serial to clear the registry's
// two-tick debounce (spec §4.4).
func waitForDebounce() {
	interval := time.Duration(cfg.DeviceRefreshInterval) * time.Second
	time.Sleep(3*interval + time.Second)
}

func resolveTarget(rt *runtime, serial string) (*device.Target, error) {
	waitForDebounce()
	t, ok := rt.registry.Target(serial)
	if !ok {
		return nil, errors.Errorf("target %q not found", serial)
	}
	return t, nil
}

func loadVbootKey() ([]byte, error) {
	d, err := loadCurrentDescriptor(cfg.KeyDir)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(d.VbootKeyPath)
}

func loadPermAttr() ([]byte, error) {
	d, err := loadCurrentDescriptor(cfg.KeyDir)
	if err != nil {
		return nil, err
	}
	if d.IsSom {
		return nil, errors.New("current descriptor is a SoM descriptor; no permanent attribute")
	}
	return os.ReadFile(d.PermAttrPath)
}

func withTarget(serial string, fn func(rt *runtime, t *device.Target) error) {
	rt, err := newRuntime(cfg)
	if err != nil {
		errlog.LogError(err)
		os.Exit(1)
	}
	stop := startRegistry(rt)
	defer stop()

	t, err := resolveTarget(rt, serial)
	if err != nil {
		errlog.LogError(err)
		os.Exit(1)
	}
	if err := fn(rt, t); err != nil {
		errlog.LogErrorWithFields(err, map[string]interface{}{"serial": serial})
		os.Exit(1)
	}
	fmt.Printf("%s: %s\n", serial, t.GetStatus())
}

func newCmdStepFuseVboot() *cobra.Command {
	return &cobra.Command{
		Use:   "fuse-vboot <serial>",
		Short: "Fuse the verified-boot public key onto a target",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			withTarget(args[0], func(rt *runtime, t *device.Target) error {
				key, err := loadVbootKey()
				if err != nil {
					return err
				}
				return provision.FuseVbootKey(context.Background(), t, key)
			})
		},
	}
}

func newCmdStepFusePermAttr() *cobra.Command {
	return &cobra.Command{
		Use:   "fuse-perm-attr <serial>",
		Short: "Fuse the product's permanent attribute onto a target",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			withTarget(args[0], func(rt *runtime, t *device.Target) error {
				attr, err := loadPermAttr()
				if err != nil {
					return err
				}
				return provision.FusePermAttr(context.Background(), t, attr, rt.prober, effectiveTestMode())
			})
		},
	}
}

func newCmdStepLockAvb() *cobra.Command {
	return &cobra.Command{
		Use:   "lock-avb <serial>",
		Short: "Lock android-verified-boot on a target",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			withTarget(args[0], func(rt *runtime, t *device.Target) error {
				return provision.LockAvb(context.Background(), t, rt.prober, effectiveTestMode())
			})
		},
	}
}

func newCmdStepUnlockAvb() *cobra.Command {
	return &cobra.Command{
		Use:   "unlock-avb <serial>",
		Short: "Unlock android-verified-boot on a target",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			withTarget(args[0], func(rt *runtime, t *device.Target) error {
				return provision.UnlockAvb(context.Background(), t, rt.cfg.PasswordHash, rt.prober)
			})
		},
	}
}

func newCmdStepReboot() *cobra.Command {
	return &cobra.Command{
		Use:   "reboot <serial>",
		Short: "Reboot a target and wait for it to reappear in the registry",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			serial := args[0]
			rt, err := newRuntime(cfg)
			if err != nil {
				errlog.LogError(err)
				os.Exit(1)
			}
			stop := startRegistry(rt)
			defer stop()

			t, err := resolveTarget(rt, serial)
			if err != nil {
				errlog.LogError(err)
				os.Exit(1)
			}
			timeout := time.Duration(rt.cfg.RebootTimeout) * time.Second
			fresh, err := provision.RebootAndWait(context.Background(), t, rt.reboot, timeout, rt.prober)
			if err != nil {
				errlog.LogErrorWithFields(err, map[string]interface{}{"serial": serial})
				os.Exit(1)
			}
			fmt.Printf("%s: %s\n", serial, fresh.GetStatus())
		},
	}
}

func newCmdStepProvision() *cobra.Command {
	return &cobra.Command{
		Use:   "provision <serial>",
		Short: "Run the product attestation-key provision sub-protocol",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			withTarget(args[0], func(rt *runtime, t *device.Target) error {
				a := rt.registry.Appliance()
				if a == nil {
					return errors.New("no appliance present")
				}
				return provision.ProvisionProduct(context.Background(), t, a, rt.manager, rt.prober, true, effectiveTestMode())
			})
		},
	}
}

func newCmdStepProvisionSom() *cobra.Command {
	return &cobra.Command{
		Use:   "provision-som <serial>",
		Short: "Run the SoM attestation-key provision sub-protocol",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			withTarget(args[0], func(rt *runtime, t *device.Target) error {
				a := rt.registry.Appliance()
				if a == nil {
					return errors.New("no appliance present")
				}
				return provision.ProvisionSom(context.Background(), t, a, rt.manager, rt.prober, effectiveTestMode())
			})
		},
	}
}
