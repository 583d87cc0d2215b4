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

// Package auditlog implements the rotating audit-log directory and the
// single-instance guard (spec §4.12, C12).
package auditlog

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/google/atft/pkg/clock"
)

const filePrefix = "atft_log_"

// Writer is an io.Writer that rolls over to a new file once the current one
// would exceed MaxBytes, and deletes the oldest file once the directory
// holds more than MaxFiles entries. It's handed to logrus via an lfshook
// WriterMap so every log record (regardless of level) lands in the same
// rotating directory (spec §4.12: one directory, not one file per level).
type Writer struct {
	mu sync.Mutex

	dir      string
	maxBytes int64
	maxFiles int

	cur     *os.File
	curSize int64
}

// NewWriter opens (or creates) dir and seats a Writer ready to accept
// entries. maxBytes bounds a single file's size; maxFiles bounds how many
// rotated files are retained.
func NewWriter(dir string, maxBytes int64, maxFiles int) (*Writer, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &Writer{dir: dir, maxBytes: maxBytes, maxFiles: maxFiles}, nil
}

// Write implements io.Writer. A single call is always one formatted log
// entry (lfshook calls Fire, which calls Write, once per record).
func (w *Writer) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.cur != nil && w.curSize+int64(len(p)) > w.maxBytes {
		w.cur.Close()
		w.cur = nil
	}
	if w.cur == nil {
		f, err := w.createFile()
		if err != nil {
			return 0, err
		}
		w.cur = f
		w.curSize = 0
		if err := w.enforceMaxFiles(); err != nil {
			return 0, err
		}
	}

	n, err := w.cur.Write(p)
	w.curSize += int64(n)
	return n, err
}

// createFile opens a new log file named atft_log_<epoch-seconds>, appending
// _1, _2, ... on collision with a file already created this second.
func (w *Writer) createFile() (*os.File, error) {
	epoch := clock.Now().Unix()
	base := fmt.Sprintf("%s%d", filePrefix, epoch)
	name := base
	for i := 1; ; i++ {
		path := filepath.Join(w.dir, name)
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if err == nil {
			return f, nil
		}
		if !os.IsExist(err) {
			return nil, err
		}
		name = fmt.Sprintf("%s_%d", base, i)
	}
}

// enforceMaxFiles deletes the oldest atft_log_* files once the directory
// holds more than maxFiles of them.
func (w *Writer) enforceMaxFiles() error {
	names, err := logFileNames(w.dir)
	if err != nil {
		return err
	}
	for len(names) > w.maxFiles {
		if err := os.Remove(filepath.Join(w.dir, names[0])); err != nil {
			return err
		}
		names = names[1:]
	}
	return nil
}

func logFileNames(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), filePrefix) {
			names = append(names, e.Name())
		}
	}
	sort.Slice(names, func(i, j int) bool {
		ei, oki := parseLogName(names[i])
		ej, okj := parseLogName(names[j])
		if oki && okj && ei.epoch != ej.epoch {
			return ei.epoch < ej.epoch
		}
		if oki && okj {
			return ei.suffix < ej.suffix
		}
		return names[i] < names[j]
	})
	return names, nil
}

type logName struct {
	epoch  int64
	suffix int
}

// parseLogName splits "atft_log_<epoch>[_<n>]" into its sortable parts.
func parseLogName(name string) (logName, bool) {
	rest := strings.TrimPrefix(name, filePrefix)
	if rest == name {
		return logName{}, false
	}
	parts := strings.SplitN(rest, "_", 2)
	epoch, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return logName{}, false
	}
	suffix := 0
	if len(parts) == 2 {
		suffix, err = strconv.Atoi(parts[1])
		if err != nil {
			return logName{}, false
		}
	}
	return logName{epoch: epoch, suffix: suffix}, true
}
