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

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/google/atft/pkg/device"
	"github.com/google/atft/pkg/errlog"
)

// NewCmdAppliance groups the appliance-only commands (spec §4.8, C8). Reg
// and audit file staging are exposed directly here, not only as the
// internal dependency pkg/audit uses (SPEC_FULL.md "Supplemented features"
// #2).
func NewCmdAppliance() *cobra.Command {
	root := &cobra.Command{
		Use:   "appliance",
		Short: "Run commands against the current ATFA appliance",
	}
	root.AddCommand(newCmdApplianceReg())
	root.AddCommand(newCmdApplianceAudit())
	root.AddCommand(newCmdApplianceUpdate())
	root.AddCommand(newCmdApplianceReboot())
	root.AddCommand(newCmdApplianceShutdown())
	root.AddCommand(newCmdAppliancePurge())
	return root
}

func withAppliance(fn func(rt *runtime, a *device.Appliance) error) {
	rt, err := newRuntime(cfg)
	if err != nil {
		errlog.LogError(err)
		os.Exit(1)
	}
	stop := startRegistry(rt)
	defer stop()
	waitForDebounce()

	a := rt.registry.Appliance()
	if a == nil {
		errlog.LogError(errors.New("no appliance present"))
		os.Exit(1)
	}
	if err := fn(rt, a); err != nil {
		errlog.LogErrorWithFields(err, map[string]interface{}{"appliance": a.Serial})
		os.Exit(1)
	}
}

func stageAndDownload(rt *runtime, a *device.Appliance, kind, outPath string) error {
	if err := rt.manager.PrepareFile(context.Background(), a, kind); err != nil {
		return err
	}
	if err := a.Handle.Upload(context.Background(), outPath); err != nil {
		return err
	}
	return nil
}

func newCmdApplianceReg() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "reg",
		Short: "Stage and download the appliance's registration file",
		Args:  cobra.ExactArgs(0),
		Run: func(cmd *cobra.Command, args []string) {
			withAppliance(func(rt *runtime, a *device.Appliance) error {
				return stageAndDownload(rt, a, "reg", out)
			})
			fmt.Printf("registration file written to %s\n", out)
		},
	}
	cmd.Flags().StringVar(&out, "out", "atfa_reg.bin", "Local path to write the registration file to")
	return cmd
}

func newCmdApplianceAudit() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Stage and download the appliance's audit file",
		Args:  cobra.ExactArgs(0),
		Run: func(cmd *cobra.Command, args []string) {
			withAppliance(func(rt *runtime, a *device.Appliance) error {
				return stageAndDownload(rt, a, "audit", out)
			})
			fmt.Printf("audit file written to %s\n", out)
		},
	}
	cmd.Flags().StringVar(&out, "out", "atfa_audit.bin", "Local path to write the audit file to")
	return cmd
}

func newCmdApplianceUpdate() *cobra.Command {
	var image string
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Push a firmware image to the appliance and apply it",
		Args:  cobra.ExactArgs(0),
		Run: func(cmd *cobra.Command, args []string) {
			withAppliance(func(rt *runtime, a *device.Appliance) error {
				return rt.manager.Update(context.Background(), a, image)
			})
			fmt.Println("appliance update applied")
		},
	}
	cmd.Flags().StringVar(&image, "image", "", "Path to the firmware image to push")
	cmd.MarkFlagRequired("image")
	return cmd
}

func newCmdApplianceReboot() *cobra.Command {
	return &cobra.Command{
		Use:   "reboot",
		Short: "Reboot the appliance",
		Args:  cobra.ExactArgs(0),
		Run: func(cmd *cobra.Command, args []string) {
			withAppliance(func(rt *runtime, a *device.Appliance) error {
				return rt.manager.Reboot(context.Background(), a)
			})
			fmt.Println("appliance reboot issued")
		},
	}
}

func newCmdApplianceShutdown() *cobra.Command {
	return &cobra.Command{
		Use:   "shutdown",
		Short: "Power off the appliance",
		Args:  cobra.ExactArgs(0),
		Run: func(cmd *cobra.Command, args []string) {
			withAppliance(func(rt *runtime, a *device.Appliance) error {
				return rt.manager.Shutdown(context.Background(), a)
			})
			fmt.Println("appliance shutdown issued")
		},
	}
}

func newCmdAppliancePurge() *cobra.Command {
	var som bool
	cmd := &cobra.Command{
		Use:   "purge <descriptor-id>",
		Short: "Discard cached keys for a product or SoM id and refresh the count",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			withAppliance(func(rt *runtime, a *device.Appliance) error {
				return rt.manager.PurgeKey(context.Background(), a, som, args[0])
			})
			fmt.Println("purge complete")
		},
	}
	cmd.Flags().BoolVar(&som, "som", false, "Purge SoM keys instead of product keys")
	return cmd
}
