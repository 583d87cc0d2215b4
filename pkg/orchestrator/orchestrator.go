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

// Package orchestrator implements auto mode (spec §4.6, C6): admitting
// pending targets, running each through its configured step sequence under
// the global auto-provision mutex, and watching the appliance's key count
// for low-key alerts.
package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/google/atft/pkg/clock"
	"github.com/google/atft/pkg/device"
	"github.com/google/atft/pkg/provision"
)

// Registry is the narrow slice of *registry.Registry the orchestrator
// needs to discover and re-fetch targets across reboots.
type Registry interface {
	Snapshot() []*device.Target
	Appliance() *device.Appliance
	Target(serial string) (*device.Target, bool)
}

// KeysManager refreshes the appliance's cached keys-left count (C8).
type KeysManager interface {
	UpdateKeysLeft(ctx context.Context, a *device.Appliance, isSom bool, descriptorID string) error
}

// EventKind tags an orchestrator-level notification.
type EventKind int

const (
	EventAlertLowKeys EventKind = iota
	EventAutoModeExited
	EventStepFailed
)

// Event is posted to Events() for anything the UI cares about.
type Event struct {
	Kind     EventKind
	Serial   string
	Err      error
	KeysLeft int // meaningful only for EventAlertLowKeys
}

// Config bundles the orchestrator's static, per-run configuration (spec
// §4.6, §4.8).
type Config struct {
	// Sequence is the active run's configured step list: exactly one of
	// product mode / SoM mode is loaded at a time (C11), so the
	// orchestrator only ever drives one sequence per run.
	Sequence []provision.StepName
	IsSom    bool

	VbootKey         []byte
	PermAttr         []byte
	UnlockCredential string
	DescriptorID     string // product_id or som_id, matching IsSom
	RebootTimeout    time.Duration
	PollInterval     time.Duration
	FirstWarning     int
	SecondWarning    int
	TestMode         bool
}

// Orchestrator drives auto mode over a Registry.
type Orchestrator struct {
	registry Registry
	prober   provision.SomProber
	rebooter provision.Rebooter
	clock    provision.ApplianceTimeSetter
	keys     KeysManager
	cfg      Config

	autoMu sync.Mutex // spec §5 "auto-provision mutex"

	mu       sync.Mutex
	inFlight map[string]bool
	warned   struct{ first, second bool }

	events   chan Event
	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// New validates the configured sequence (unless TestMode) and returns an
// Orchestrator ready to Start.
func New(reg Registry, prober provision.SomProber, rebooter provision.Rebooter, timeSetter provision.ApplianceTimeSetter, keys KeysManager, cfg Config) (*Orchestrator, error) {
	if !cfg.TestMode {
		if err := provision.ValidateSequence(cfg.Sequence); err != nil {
			return nil, err
		}
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	return &Orchestrator{
		registry: reg,
		prober:   prober,
		rebooter: rebooter,
		clock:    timeSetter,
		keys:     keys,
		cfg:      cfg,
		inFlight: map[string]bool{},
		events:   make(chan Event, 16),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}, nil
}

// Events exposes orchestrator-level notifications.
func (o *Orchestrator) Events() <-chan Event { return o.events }

// Start runs the admit loop until ctx is done or Stop is called. Exiting
// auto mode is cooperative: in-flight goroutines run their current step to
// completion; Start only stops issuing new admissions.
func (o *Orchestrator) Start(ctx context.Context) {
	defer close(o.done)
	ticker := clock.NewTicker(o.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-o.stop:
			return
		case <-ticker.C:
			o.admitPending(ctx)
		}
	}
}

// Stop requests the admit loop to exit and waits for it to do so. Already
// in-flight targets are not interrupted.
func (o *Orchestrator) Stop() {
	o.requestStop()
	<-o.done
}

func (o *Orchestrator) requestStop() {
	o.stopOnce.Do(func() { close(o.stop) })
}

func (o *Orchestrator) admitPending(ctx context.Context) {
	for _, t := range o.registry.Snapshot() {
		if !o.admit(t) {
			continue
		}
		go o.run(ctx, t.Serial)
	}
}

// admit decides whether serial should be started, per spec §4.6: not
// rebooting, not already in-flight, not terminally failed, and not already
// complete per the configured sequence's projection.
func (o *Orchestrator) admit(t *device.Target) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.inFlight[t.Serial] {
		return false
	}
	if t.Rebooting {
		return false
	}
	if t.GetStatus().IsFailed() {
		return false
	}
	if provision.IsComplete(t.GetState(), o.cfg.Sequence) {
		return false
	}
	o.inFlight[t.Serial] = true
	t.SetStatus(device.Waiting())
	return true
}

func (o *Orchestrator) release(serial string) {
	o.mu.Lock()
	delete(o.inFlight, serial)
	o.mu.Unlock()
}

func (o *Orchestrator) emit(e Event) {
	select {
	case o.events <- e:
	default:
	}
}
