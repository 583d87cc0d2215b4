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

package auditlog

import (
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func TestFormatMatchesEntryShape(t *testing.T) {
	e := &logrus.Entry{
		Level:   logrus.WarnLevel,
		Message: "low keys\nretrying",
		Time:    time.Date(2026, 3, 5, 9, 30, 0, 0, time.UTC),
		Data:    logrus.Fields{TagField: "appliance"},
	}

	out, err := (Formatter{}).Format(e)
	if err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	got := string(out)
	want := "[2026-03-05 09:30:00] W/appliance: low keys\tretrying\n"
	if got != want {
		t.Fatalf("Format() = %q, want %q", got, want)
	}
}

func TestFormatDefaultsTagWhenAbsent(t *testing.T) {
	e := &logrus.Entry{Level: logrus.InfoLevel, Message: "hi", Data: logrus.Fields{}}
	out, _ := (Formatter{}).Format(e)
	if !strings.Contains(string(out), "I/atft: hi") {
		t.Fatalf("Format() = %q, want it to contain default tag", string(out))
	}
}
