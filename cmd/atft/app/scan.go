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
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/google/atft/pkg/errlog"
)

func NewCmdScan() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Discover attached target devices and the current appliance",
		Args:  cobra.ExactArgs(0),
		Run:   runScan,
	}
	return cmd
}

func runScan(cmd *cobra.Command, args []string) {
	rt, err := newRuntime(cfg)
	if err != nil {
		errlog.LogError(err)
		os.Exit(1)
	}

	stop := startRegistry(rt)
	waitForDebounce()
	stop()

	printStatusTable(os.Stdout, rt.registry.Snapshot(), rt.registry.Appliance())
	fmt.Println()
}
