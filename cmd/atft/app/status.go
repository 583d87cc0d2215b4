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

package app

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/google/atft/pkg/device"
	"github.com/google/atft/pkg/errlog"
)

var statusTitleCaser = cases.Title(language.English)

// displayStatus turns a machine-readable status token like
// "FUSEVBOOT_IN_PROGRESS" into the operator-facing "Fusevboot In Progress"
// shown in the table view; the JSON view keeps the raw token.
func displayStatus(s fmt.Stringer) string {
	return statusTitleCaser.String(strings.ToLower(strings.ReplaceAll(s.String(), "_", " ")))
}

type statusFlags struct {
	json bool
}

func NewCmdStatus() *cobra.Command {
	var f statusFlags
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Print the current target and appliance status",
		Args:  cobra.ExactArgs(0),
		Run:   runStatus(&f),
	}
	cmd.Flags().BoolVar(&f.json, "json", false, "Print status as JSON")
	return cmd
}

func runStatus(f *statusFlags) func(cmd *cobra.Command, args []string) {
	return func(cmd *cobra.Command, args []string) {
		rt, err := newRuntime(cfg)
		if err != nil {
			errlog.LogError(err)
			os.Exit(1)
		}

		stop := startRegistry(rt)
		waitForDebounce()
		stop()

		targets := rt.registry.Snapshot()
		appliance := rt.registry.Appliance()

		if f.json {
			if err := printStatusJSON(os.Stdout, targets, appliance); err != nil {
				errlog.LogError(errors.Wrap(err, "encoding status"))
				os.Exit(1)
			}
			return
		}
		printStatusTable(os.Stdout, targets, appliance)
	}
}

func printStatusTable(w io.Writer, targets []*device.Target, appliance *device.Appliance) {
	tw := tabwriter.NewWriter(w, 0, 2, 3, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "SERIAL\tLOCATION\tSTATUS\t\n")
	for _, t := range targets {
		t.WithLock(func() {
			fmt.Fprintf(tw, "%s\t%s\t%s\t\n", t.Serial, t.Location, displayStatus(t.Status))
		})
	}
	tw.Flush()

	if appliance == nil {
		fmt.Fprintln(w, "\nno appliance present")
		return
	}
	fmt.Fprintf(w, "\nappliance %s", appliance.Serial)
	if n := appliance.GetKeysLeft(); n != nil {
		fmt.Fprintf(w, " keys_left=%d", *n)
	}
	if n := appliance.GetSomKeysLeft(); n != nil {
		fmt.Fprintf(w, " som_keys_left=%d", *n)
	}
	if appliance.Incompatible {
		fmt.Fprint(w, " (incompatible firmware)")
	}
	fmt.Fprintln(w)
}

type jsonStatus struct {
	Targets   []jsonTarget    `json:"targets"`
	Appliance *jsonAppliance  `json:"appliance,omitempty"`
}

type jsonTarget struct {
	Serial   string `json:"serial"`
	Location string `json:"location"`
	Status   string `json:"status"`
}

type jsonAppliance struct {
	Serial        string `json:"serial"`
	KeysLeft      *int   `json:"keys_left,omitempty"`
	SomKeysLeft   *int   `json:"som_keys_left,omitempty"`
	Incompatible  bool   `json:"incompatible"`
}

func printStatusJSON(w io.Writer, targets []*device.Target, appliance *device.Appliance) error {
	out := jsonStatus{Targets: make([]jsonTarget, 0, len(targets))}
	for _, t := range targets {
		t.WithLock(func() {
			out.Targets = append(out.Targets, jsonTarget{Serial: t.Serial, Location: t.Location, Status: t.Status.String()})
		})
	}
	if appliance != nil {
		out.Appliance = &jsonAppliance{
			Serial:       appliance.Serial,
			KeysLeft:     appliance.GetKeysLeft(),
			SomKeysLeft:  appliance.GetSomKeysLeft(),
			Incompatible: appliance.Incompatible,
		}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
