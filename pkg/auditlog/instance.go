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
	"os"
	"strconv"
	"strings"
)

// procRoot is a variable so tests can point it at a fixture directory
// instead of the real /proc.
var procRoot = "/proc"

// procInfo is what CheckSingleInstance needs from one /proc/<pid> entry.
type procInfo struct {
	pid  int
	ppid int
	comm string
}

// CheckSingleInstance reports whether another instance of this program is
// already running (spec §4.12): enumerate host processes by name, excluding
// self and, if self's own parent is itself an instance of the same program,
// that parent too (a launcher or wrapper that re-exec'd into the process
// doing the checking isn't a second instance). It never errors the caller
// out of starting; a failure to enumerate processes just means the guard
// couldn't check.
func CheckSingleInstance(programName string) (bool, error) {
	return checkSingleInstance(programName, os.Getpid())
}

func checkSingleInstance(programName string, self int) (bool, error) {
	procs, err := listProcesses()
	if err != nil {
		return false, err
	}

	byPID := make(map[int]procInfo, len(procs))
	for _, p := range procs {
		byPID[p.pid] = p
	}

	excluded := map[int]bool{self: true}
	if me, ok := byPID[self]; ok {
		if parent, ok := byPID[me.ppid]; ok && matchesProgram(parent.comm, programName) {
			excluded[parent.pid] = true
		}
	}

	for _, p := range procs {
		if !excluded[p.pid] && matchesProgram(p.comm, programName) {
			return true, nil
		}
	}
	return false, nil
}

func matchesProgram(comm, programName string) bool {
	return comm == programName || strings.HasPrefix(comm, programName)
}

// listProcesses parses every numeric /proc/<pid> entry's comm and stat
// files. Malformed or racily-vanished entries (a process can exit between
// os.ReadDir and the read) are skipped rather than failing the whole scan.
func listProcesses() ([]procInfo, error) {
	entries, err := os.ReadDir(procRoot)
	if err != nil {
		return nil, err
	}

	var procs []procInfo
	for _, e := range entries {
		pid, err := strconv.Atoi(e.Name())
		if err != nil {
			continue
		}
		comm, err := readComm(pid)
		if err != nil {
			continue
		}
		ppid, err := readPPID(pid)
		if err != nil {
			continue
		}
		procs = append(procs, procInfo{pid: pid, ppid: ppid, comm: comm})
	}
	return procs, nil
}

func readComm(pid int) (string, error) {
	data, err := os.ReadFile(procRoot + "/" + strconv.Itoa(pid) + "/comm")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// readPPID extracts field 4 of /proc/<pid>/stat ("pid (comm) state ppid
// ..."), tolerating a comm containing spaces or parens by splitting on the
// last ")" rather than naively on whitespace.
func readPPID(pid int) (int, error) {
	data, err := os.ReadFile(procRoot + "/" + strconv.Itoa(pid) + "/stat")
	if err != nil {
		return 0, err
	}
	s := string(data)
	closeParen := strings.LastIndex(s, ")")
	if closeParen == -1 || closeParen+2 >= len(s) {
		return 0, &statParseError{pid}
	}
	fields := strings.Fields(s[closeParen+2:])
	if len(fields) < 2 {
		return 0, &statParseError{pid}
	}
	return strconv.Atoi(fields[1])
}

type statParseError struct{ pid int }

func (e *statParseError) Error() string {
	return "auditlog: could not parse /proc/" + strconv.Itoa(e.pid) + "/stat"
}
