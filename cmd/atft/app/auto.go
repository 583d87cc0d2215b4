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
	"path/filepath"
	"syscall"
	"time"

	"github.com/briandowns/spinner"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/google/atft/pkg/errlog"
	"github.com/google/atft/pkg/orchestrator"
	"github.com/google/atft/pkg/provision"
	"github.com/google/atft/pkg/report"
)

const (
	autoSpinnerCharSet = 14
	autoSpinnerTick    = 100 * time.Millisecond
)

// NewCmdAuto runs auto mode (spec §4.6, C6): admitting every eligible target
// and driving each through the loaded descriptor's configured sequence
// until interrupted.
func NewCmdAuto() *cobra.Command {
	return &cobra.Command{
		Use:   "auto",
		Short: "Automatically provision every eligible attached target",
		Args:  cobra.ExactArgs(0),
		Run:   runAuto,
	}
}

func stepSequence(d *loadedDescriptor) ([]provision.StepName, error) {
	if len(cfg.ProvisionSteps) > 0 {
		seq := make([]provision.StepName, 0, len(cfg.ProvisionSteps))
		for _, s := range cfg.ProvisionSteps {
			seq = append(seq, provision.StepName(s))
		}
		return seq, nil
	}
	if d.IsSom {
		return provision.DefaultSomSequence, nil
	}
	return provision.DefaultProductSequence, nil
}

func runAuto(cmd *cobra.Command, args []string) {
	rt, err := newRuntime(cfg)
	if err != nil {
		errlog.LogError(err)
		os.Exit(1)
	}

	d, err := loadCurrentDescriptor(cfg.KeyDir)
	if err != nil {
		errlog.LogError(err)
		os.Exit(1)
	}

	seq, err := stepSequence(d)
	if err != nil {
		errlog.LogError(err)
		os.Exit(1)
	}

	var vbootKey, permAttr []byte
	if vbootKey, err = os.ReadFile(d.VbootKeyPath); err != nil {
		errlog.LogError(errors.Wrap(err, "reading loaded vboot key"))
		os.Exit(1)
	}
	if !d.IsSom {
		if permAttr, err = os.ReadFile(d.PermAttrPath); err != nil {
			errlog.LogError(errors.Wrap(err, "reading loaded permanent attribute"))
			os.Exit(1)
		}
	}
	descriptorID := d.ProductID
	if d.IsSom {
		descriptorID = d.SomID
	}

	orch, err := orchestrator.New(rt.registry, rt.prober, rt.reboot, rt.manager, rt.manager, orchestrator.Config{
		Sequence:         seq,
		IsSom:            d.IsSom,
		VbootKey:         vbootKey,
		PermAttr:         permAttr,
		UnlockCredential: rt.cfg.PasswordHash,
		DescriptorID:     descriptorID,
		RebootTimeout:    time.Duration(rt.cfg.RebootTimeout) * time.Second,
		PollInterval:     time.Duration(rt.cfg.DeviceRefreshInterval) * time.Second,
		FirstWarning:     rt.cfg.DefaultKeyThreshold1,
		SecondWarning:    rt.cfg.DefaultKeyThreshold2,
		TestMode:         effectiveTestMode(),
	})
	if err != nil {
		errlog.LogError(errors.Wrap(err, "validating configured provision sequence"))
		os.Exit(1)
	}

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go rt.registry.Start(ctx)
	go rt.notifier.Watch(orch.Events())
	go func() {
		if err := rt.status.Start(); err != nil {
			errlog.LogError(errors.Wrap(err, "status server"))
		}
	}()

	var s *spinner.Spinner
	if term.IsTerminal(int(os.Stdout.Fd())) {
		s = spinner.New(spinner.CharSets[autoSpinnerCharSet], autoSpinnerTick)
		s.Suffix = " auto-provisioning (ctrl-c to stop)"
		s.Start()
	} else {
		fmt.Println("auto-provisioning (ctrl-c to stop)")
	}

	go orch.Start(ctx)

	<-signals
	if s != nil {
		s.Stop()
	}

	orch.Stop()
	cancel()
	rt.registry.Stop()
	rt.status.Stop()

	summary := report.BuildSummary(rt.registry.Snapshot(), rt.registry.Appliance())
	if err := os.MkdirAll(rt.cfg.ReportDir, 0755); err != nil {
		errlog.LogError(errors.Wrap(err, "creating report directory"))
		os.Exit(1)
	}
	path := filepath.Join(rt.cfg.ReportDir, reportFileName())
	if err := report.WriteFile(path, summary); err != nil {
		errlog.LogError(err)
		os.Exit(1)
	}
	fmt.Printf("run summary written to %s\n", path)
}

func reportFileName() string {
	return fmt.Sprintf("auto-%d.yaml", time.Now().Unix())
}
