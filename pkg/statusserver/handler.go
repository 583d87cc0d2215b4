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

package statusserver

import (
	"encoding/json"
	"net/http"

	"github.com/google/atft/pkg/device"
)

// statusResponse is the JSON body served at pathStatus.
type statusResponse struct {
	Targets   []targetView   `json:"targets"`
	Appliance *applianceView `json:"appliance"`
}

type targetView struct {
	Serial        string `json:"serial"`
	Location      string `json:"location"`
	Status        string `json:"status"`
	AttestUUID    string `json:"attest_uuid,omitempty"`
	OperationName string `json:"operation_name,omitempty"`
	Rebooting     bool   `json:"rebooting"`
}

type applianceView struct {
	Serial       string `json:"serial"`
	OsVersion    string `json:"os_version"`
	Incompatible bool   `json:"incompatible"`
	KeysLeft     *int   `json:"keys_left"`
	SomKeysLeft  *int   `json:"som_keys_left"`
}

func (s *Server) statusHandler(w http.ResponseWriter, r *http.Request) {
	snapshot := s.Registry.Snapshot()
	targets := make([]targetView, 0, len(snapshot))
	for _, t := range snapshot {
		targets = append(targets, newTargetView(t))
	}

	resp := statusResponse{Targets: targets}
	if a := s.Registry.Appliance(); a != nil {
		resp.Appliance = newApplianceView(a)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func newTargetView(t *device.Target) targetView {
	var v targetView
	t.WithLock(func() {
		v = targetView{
			Serial:        t.Serial,
			Location:      t.Location,
			Status:        t.Status.String(),
			AttestUUID:    t.AttestUUID,
			OperationName: t.OperationName,
			Rebooting:     t.Rebooting,
		}
	})
	return v
}

func newApplianceView(a *device.Appliance) *applianceView {
	return &applianceView{
		Serial:       a.Serial,
		OsVersion:    a.OsVersion,
		Incompatible: a.Incompatible,
		KeysLeft:     a.GetKeysLeft(),
		SomKeysLeft:  a.GetSomKeysLeft(),
	}
}
