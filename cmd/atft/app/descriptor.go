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
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/google/atft/pkg/descriptor"
	"github.com/google/atft/pkg/errlog"
)

// loadedDescriptor is the on-disk record of the currently-loaded product/SoM
// descriptor (spec §4.11, C11). Exactly one is active at a time; "atft
// descriptor load" overwrites it, and step/auto commands read it back on
// every invocation since each is its own process.
type loadedDescriptor struct {
	IsSom        bool   `json:"is_som"`
	Name         string `json:"name"`
	ProductID    string `json:"product_id,omitempty"`
	SomID        string `json:"som_id,omitempty"`
	VbootKeyPath string `json:"vboot_key_path"`
	PermAttrPath string `json:"perm_attr_path,omitempty"`
}

func descriptorStatePath(keyDir string) string {
	return filepath.Join(keyDir, "descriptor.json")
}

func saveLoadedDescriptor(keyDir string, d *descriptor.Descriptor) (loadedDescriptor, error) {
	if err := os.MkdirAll(keyDir, 0755); err != nil {
		return loadedDescriptor{}, errors.Wrap(err, "creating key directory")
	}

	vbootPath := filepath.Join(keyDir, "vboot_pub.bin")
	if err := os.WriteFile(vbootPath, d.VbootPublicKey, 0600); err != nil {
		return loadedDescriptor{}, errors.Wrap(err, "writing vboot key")
	}

	out := loadedDescriptor{
		IsSom:        d.IsSom(),
		Name:         d.Name,
		VbootKeyPath: vbootPath,
	}
	if d.IsSom() {
		out.SomID = d.SomID
	} else {
		permPath := filepath.Join(keyDir, "perm_attr.bin")
		if err := os.WriteFile(permPath, d.PermanentAttribute, 0600); err != nil {
			return loadedDescriptor{}, errors.Wrap(err, "writing permanent attribute")
		}
		out.PermAttrPath = permPath
		out.ProductID = d.ProductID
	}

	raw, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return loadedDescriptor{}, errors.Wrap(err, "marshal descriptor state")
	}
	if err := os.WriteFile(descriptorStatePath(keyDir), raw, 0600); err != nil {
		return loadedDescriptor{}, errors.Wrap(err, "writing descriptor state")
	}
	return out, nil
}

func loadCurrentDescriptor(keyDir string) (*loadedDescriptor, error) {
	raw, err := os.ReadFile(descriptorStatePath(keyDir))
	if err != nil {
		return nil, errors.Wrap(err, "no descriptor loaded; run `atft descriptor load <path>` first")
	}
	var d loadedDescriptor
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, errors.Wrap(err, "parsing descriptor state")
	}
	return &d, nil
}

func NewCmdDescriptor() *cobra.Command {
	root := &cobra.Command{
		Use:   "descriptor",
		Short: "Manage the loaded product/SoM attestation descriptor",
	}
	root.AddCommand(newCmdDescriptorLoad())
	return root
}

func newCmdDescriptorLoad() *cobra.Command {
	return &cobra.Command{
		Use:   "load <path>",
		Short: "Parse and activate a product or SoM descriptor file",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			content, err := os.ReadFile(args[0])
			if err != nil {
				errlog.LogError(errors.Wrap(err, "reading descriptor file"))
				os.Exit(1)
			}
			d, err := descriptor.Parse(string(content))
			if err != nil {
				errlog.LogError(err)
				os.Exit(1)
			}
			loaded, err := saveLoadedDescriptor(cfg.KeyDir, d)
			if err != nil {
				errlog.LogError(err)
				os.Exit(1)
			}
			if loaded.IsSom {
				fmt.Printf("loaded SoM descriptor %q (som_id=%s)\n", loaded.Name, loaded.SomID)
			} else {
				fmt.Printf("loaded product descriptor %q (product_id=%s)\n", loaded.Name, loaded.ProductID)
			}
		},
	}
}
