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

// Package report writes an end-of-run summary of a provisioning session: one
// line per target's final status plus the appliance's keys-left counters, as
// a YAML document an operator can archive alongside the audit log.
package report

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/google/atft/pkg/device"
)

// TargetResult is one target's outcome at the end of a run.
type TargetResult struct {
	Serial     string `yaml:"serial"`
	Status     string `yaml:"status"`
	AttestUUID string `yaml:"attest_uuid,omitempty"`
}

// Summary is the full end-of-run report.
type Summary struct {
	ApplianceSerial string         `yaml:"appliance_serial,omitempty"`
	KeysLeft        *int           `yaml:"keys_left,omitempty"`
	SomKeysLeft     *int           `yaml:"som_keys_left,omitempty"`
	Targets         []TargetResult `yaml:"targets"`
}

// BuildSummary snapshots targets and, if present, the appliance's key
// counters into a Summary ready to marshal.
func BuildSummary(targets []*device.Target, appliance *device.Appliance) Summary {
	s := Summary{Targets: make([]TargetResult, 0, len(targets))}
	for _, t := range targets {
		t.WithLock(func() {
			s.Targets = append(s.Targets, TargetResult{
				Serial:     t.Serial,
				Status:     t.Status.String(),
				AttestUUID: t.AttestUUID,
			})
		})
	}
	if appliance != nil {
		s.ApplianceSerial = appliance.Serial
		s.KeysLeft = appliance.GetKeysLeft()
		s.SomKeysLeft = appliance.GetSomKeysLeft()
	}
	return s
}

// WriteFile marshals summary as YAML and writes it to path.
func WriteFile(path string, summary Summary) error {
	out, err := yaml.Marshal(&summary)
	if err != nil {
		return errors.Wrap(err, "marshal report summary")
	}
	if err := os.WriteFile(path, out, 0644); err != nil {
		return errors.Wrap(err, "write report file")
	}
	return nil
}
