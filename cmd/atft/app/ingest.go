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
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/google/atft/pkg/errlog"
)

// NewCmdIngest runs the key-bundle ingest scanner (spec §4.10, C10) in the
// foreground until interrupted, the same "run until signalled" shape as the
// teacher's runner command.
func NewCmdIngest() *cobra.Command {
	return &cobra.Command{
		Use:   "ingest",
		Short: "Watch the staging directory for key bundles and push them to the appliance",
		Args:  cobra.ExactArgs(0),
		Run:   runIngest,
	}
}

func runIngest(cmd *cobra.Command, args []string) {
	rt, err := newRuntime(cfg)
	if err != nil {
		errlog.LogError(err)
		os.Exit(1)
	}

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go rt.registry.Start(ctx)
	go rt.ingest.Start(ctx)

	fmt.Printf("watching %s for key bundles (ctrl-c to stop)\n", rt.cfg.StagingDir)
	<-signals

	rt.ingest.Stop()
	cancel()
	rt.registry.Stop()
}
