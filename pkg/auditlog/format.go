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
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

// levelTag maps a logrus level to the single-letter tag spec §4.12 uses.
var levelTag = map[logrus.Level]string{
	logrus.ErrorLevel: "E",
	logrus.WarnLevel:  "W",
	logrus.InfoLevel:  "I",
	logrus.DebugLevel: "D",
}

// tagField is the logrus field name a caller sets to label an entry's
// component, e.g. logrus.WithField(auditlog.TagField, "orchestrator").
const tagField = "tag"

// TagField is the logrus field name a caller sets to label an entry's
// source component (spec §4.12's "<tag>"); callers that omit it get "atft".
const TagField = tagField

// Formatter renders a logrus.Entry as spec §4.12's
// "[YYYY-MM-DD HH:MM:SS] <level>/<tag>: <message>", with newlines in the
// message replaced by tabs so one log line is always one file line.
type Formatter struct{}

func (Formatter) Format(e *logrus.Entry) ([]byte, error) {
	level, ok := levelTag[e.Level]
	if !ok {
		level = "I"
	}
	tag, _ := e.Data[tagField].(string)
	if tag == "" {
		tag = "atft"
	}
	msg := strings.ReplaceAll(e.Message, "\n", "\t")

	line := fmt.Sprintf("[%s] %s/%s: %s\n", e.Time.Format("2006-01-02 15:04:05"), level, tag, msg)
	return []byte(line), nil
}
