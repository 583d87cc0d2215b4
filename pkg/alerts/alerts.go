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

// Package alerts implements the optional low-key-threshold webhook
// notifier: when the orchestrator (C6) crosses a keys-left warning
// threshold, POST a small JSON payload to an operator-configured URL.
package alerts

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/sethgrid/pester"
	"github.com/sirupsen/logrus"

	"github.com/google/atft/pkg/auditlog"
	"github.com/google/atft/pkg/orchestrator"
)

// Notifier submits low-keys alerts to a webhook URL, retrying transient
// failures the way the teacher's worker.DoRequest does for its result
// check-ins: build the request, submit through pester, treat a non-200 as
// failure. Submission errors are logged, not returned, matching the
// original tool's "an alert failing to send must never block provisioning."
type Notifier struct {
	URL    string
	Client *pester.Client
}

// NewNotifier returns a Notifier posting to url. A zero-value url disables
// sending (NotifyLowKeys becomes a no-op), letting callers wire this
// unconditionally and simply leave the config field blank to turn it off.
func NewNotifier(url string) *Notifier {
	client := pester.New()
	client.MaxRetries = 3
	client.Backoff = pester.ExponentialBackoff
	return &Notifier{URL: url, Client: client}
}

// lowKeysPayload is the JSON body posted for a low-keys alert.
type lowKeysPayload struct {
	ApplianceSerial string `json:"appliance_serial"`
	KeysLeft        int    `json:"keys_left"`
}

// NotifyLowKeys posts a low-keys alert. Failure is logged and swallowed.
func (n *Notifier) NotifyLowKeys(applianceSerial string, keysLeft int) {
	if n == nil || n.URL == "" {
		return
	}

	log := logrus.WithField(auditlog.TagField, "alerts")

	body, err := json.Marshal(lowKeysPayload{ApplianceSerial: applianceSerial, KeysLeft: keysLeft})
	if err != nil {
		log.Errorf("marshal low-keys payload: %v", err)
		return
	}

	req, err := http.NewRequest(http.MethodPost, n.URL, bytes.NewReader(body))
	if err != nil {
		log.Errorf("build low-keys request: %v", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.Client.Do(req)
	if err != nil {
		log.Errorf("send low-keys alert to %v: %v", n.URL, err)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		log.Errorf("low-keys alert to %v got status %v", n.URL, resp.StatusCode)
	}
}

// Watch consumes orchestrator events until the channel closes, posting a
// webhook alert for each EventAlertLowKeys. Run it in its own goroutine
// alongside the orchestrator.
func (n *Notifier) Watch(events <-chan orchestrator.Event) {
	for e := range events {
		if e.Kind == orchestrator.EventAlertLowKeys {
			n.NotifyLowKeys(e.Serial, e.KeysLeft)
		}
	}
}
