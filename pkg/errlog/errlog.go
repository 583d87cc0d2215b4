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

// Package errlog centralizes how the console reports operator-facing
// errors. Every command funnels its terminal error through LogError before
// exiting non-zero, so operators get one consistent format regardless of
// which step, provisioning stage, or appliance command failed.
package errlog

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

var (
	// DebugOutput controls whether errors are logged with a full trace.
	DebugOutput = false

	// LogLevel is set to "debug" by SetLevel when DebugOutput is on; the
	// --log-level flag is bound to the root command's own variable, not to
	// LogLevel.
	LogLevel logLevelFlagType = "info"
)

type logLevelFlagType string

func (l *logLevelFlagType) String() string { return string(*l) }
func (l *logLevelFlagType) Type() string   { return "level" }
func (l *logLevelFlagType) Set(str string) error {
	*l = logLevelFlagType(str)
	return SetLevel(str)
}

// SetLevel configures the logrus level used by the console and all packages
// that log through it. "debug" and "trace" also turn on DebugOutput so
// LogError includes a stack trace.
func SetLevel(s string) error {
	if DebugOutput {
		LogLevel = "debug"
	}
	switch s {
	case "panic":
		logrus.SetLevel(logrus.PanicLevel)
	case "fatal":
		logrus.SetLevel(logrus.FatalLevel)
	case "error":
		logrus.SetLevel(logrus.ErrorLevel)
	case "warn":
		logrus.SetLevel(logrus.WarnLevel)
	case "info":
		logrus.SetLevel(logrus.InfoLevel)
	case "debug":
		logrus.SetLevel(logrus.DebugLevel)
		DebugOutput = true
	case "trace":
		logrus.SetLevel(logrus.TraceLevel)
		DebugOutput = true
	default:
		return fmt.Errorf("unknown log level %q", s)
	}
	return nil
}

// LogError logs a terminal error, optionally with a %+v stack trace when
// DebugOutput is set (errors produced via github.com/pkg/errors carry one).
func LogError(err error) {
	if err == nil {
		return
	}
	if DebugOutput {
		logrus.WithField("trace", fmt.Sprintf("%+v", err)).Error(err)
	} else {
		logrus.Error(err.Error())
	}
}

// LogErrorWithFields is like LogError but attaches structured context, e.g.
// the serial of the target a step failed against.
func LogErrorWithFields(err error, fields logrus.Fields) {
	if err == nil {
		return
	}
	entry := logrus.WithFields(fields)
	if DebugOutput {
		entry = entry.WithField("trace", fmt.Sprintf("%+v", err))
	}
	entry.Error(err.Error())
}
