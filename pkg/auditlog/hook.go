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
	"github.com/rifflock/lfshook"
	"github.com/sirupsen/logrus"
)

// NewHook returns a logrus.Hook that routes error, warn, info and debug
// entries through a single rotating Writer over dir, formatted per spec
// §4.12; entries at other levels are not written. Attach it with
// logrus.AddHook; the logger's own level filtering decides what reaches the
// hook, this just decides how what reaches it is persisted.
func NewHook(dir string, maxBytes int64, maxFiles int) (logrus.Hook, error) {
	w, err := NewWriter(dir, maxBytes, maxFiles)
	if err != nil {
		return nil, err
	}

	hook := lfshook.NewHook(lfshook.WriterMap{
		logrus.ErrorLevel: w,
		logrus.WarnLevel:  w,
		logrus.InfoLevel:  w,
		logrus.DebugLevel: w,
	})
	hook.SetFormatter(Formatter{})
	return hook, nil
}
