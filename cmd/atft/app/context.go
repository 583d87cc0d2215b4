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
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/google/atft/pkg/alerts"
	"github.com/google/atft/pkg/appliance"
	"github.com/google/atft/pkg/atap"
	"github.com/google/atft/pkg/audit"
	"github.com/google/atft/pkg/config"
	"github.com/google/atft/pkg/fastboot"
	"github.com/google/atft/pkg/ingest"
	"github.com/google/atft/pkg/location"
	"github.com/google/atft/pkg/provision"
	"github.com/google/atft/pkg/reboot"
	"github.com/google/atft/pkg/registry"
	"github.com/google/atft/pkg/statusserver"
)

// runtime bundles the long-lived components every command wires itself
// against, built fresh from the loaded config each invocation the same way
// the teacher's commands build a *client.SonobuoyClient from a Kubeconfig
// flag.
type runtime struct {
	cfg *config.Config

	registry *registry.Registry
	reboot   *reboot.Tracker
	prober   provision.DeviceSomProber
	manager  *appliance.Manager
	rotator  *audit.Rotator
	ingest   *ingest.Scanner
	status   *statusserver.Server
	notifier *alerts.Notifier
}

// newRuntime wires C1/C2/C4/C7/C8/C9/C10 plus the diagnostics/alerts
// enrichments against a loaded config, mirroring the teacher's
// getSonobuoyClientFromKubecfg: one constructor every command calls before
// doing its own work.
func newRuntime(cfg *config.Config) (*runtime, error) {
	transport := fastboot.WithSerializedListing(fastboot.NewTransport())
	oracle := location.NewSysfsOracle()
	prober := provision.DeviceSomProber{OperationStartBlob: operationStartBlob}

	reg, err := registry.New(transport, oracle, prober, cfg.CompatibleATFAVersion,
		time.Duration(cfg.DeviceRefreshInterval)*time.Second)
	if err != nil {
		return nil, errors.Wrap(err, "build device registry")
	}

	tracker := reboot.NewTracker(reg, 0)

	puller := &appliance.AuditPuller{Registry: reg}
	rotator := audit.NewRotator(cfg.AuditDir, cfg.AuditInterval, cfg.LogFileNumber, puller)
	mgr := appliance.NewManager(rotator)
	puller.Manager = mgr

	scanner, err := ingest.New(reg, mgr, ingest.Config{
		StagingDir: cfg.StagingDir,
		LogDir:     cfg.IngestLogDir,
		Extension:  cfg.KeyFileExtension,
		Interval:   time.Duration(cfg.AuditInterval) * time.Second,
	})
	if err != nil {
		return nil, errors.Wrap(err, "build ingest scanner")
	}

	return &runtime{
		cfg:      cfg,
		registry: reg,
		reboot:   tracker,
		prober:   prober,
		manager:  mgr,
		rotator:  rotator,
		ingest:   scanner,
		status:   statusserver.NewServer(cfg.StatusAddr, reg),
		notifier: alerts.NewNotifier(cfg.WebhookURL),
	}, nil
}

// operationStartBlob builds a throwaway Operation-Start frame for the SoM
// status probe (spec §4.5 "SoM status probe"): the probe only cares about
// the size of the device's CA-request response, so a fresh, never-completed
// session is sufficient.
func operationStartBlob(algorithmID string) ([]byte, error) {
	id, err := strconv.Atoi(algorithmID)
	if err != nil {
		return nil, errors.Wrapf(err, "som probe: algorithm id %q", algorithmID)
	}
	s, err := atap.NewSession(atap.Algorithm(id), atap.OperationIssueSom)
	if err != nil {
		return nil, err
	}
	return atap.EncodeOperationStart(s), nil
}
