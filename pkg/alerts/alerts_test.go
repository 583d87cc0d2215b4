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

package alerts

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/atft/pkg/orchestrator"
)

func TestNotifyLowKeysPostsPayload(t *testing.T) {
	var got lowKeysPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewNotifier(srv.URL)
	n.NotifyLowKeys("ATFA0001", 5)

	if got.ApplianceSerial != "ATFA0001" || got.KeysLeft != 5 {
		t.Fatalf("payload = %+v, want ATFA0001/5", got)
	}
}

func TestNotifyLowKeysNoopWhenURLEmpty(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	n := NewNotifier("")
	n.NotifyLowKeys("ATFA0001", 5)
	if called {
		t.Fatal("expected no request when URL is empty")
	}
}

func TestWatchForwardsOnlyLowKeysEvents(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewNotifier(srv.URL)
	events := make(chan orchestrator.Event, 2)
	events <- orchestrator.Event{Kind: orchestrator.EventAlertLowKeys, Serial: "ATFA0001", KeysLeft: 3}
	events <- orchestrator.Event{Kind: orchestrator.EventStepFailed, Serial: "DEV1"}
	close(events)

	n.Watch(events)

	if calls != 1 {
		t.Fatalf("calls = %d, want 1 (only the low-keys event forwarded)", calls)
	}
}
