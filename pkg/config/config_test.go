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

package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	t.Setenv(ConfigEnvVar, filepath.Join(t.TempDir(), "does-not-exist.json"))

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.DeviceRefreshInterval != 1 {
		t.Errorf("DeviceRefreshInterval = %d, want 1", cfg.DeviceRefreshInterval)
	}
	if cfg.CompatibleATFAVersion != "2.0" {
		t.Errorf("CompatibleATFAVersion = %q, want 2.0", cfg.CompatibleATFAVersion)
	}
}

func TestLoadOverridesFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	raw := map[string]interface{}{
		"ATFT_VERSION":             "v9.9.9",
		"DEVICE_REFRESH_INTERVAL":  5,
		"DEFAULT_KEY_THRESHOLD_1":  50,
		"TEST_MODE":                true,
		"PROVISION_STEPS":          []string{"FuseVbootKey", "ProvisionSom"},
		"DEVICE_USB_LOCATIONS":     [6]string{"1-1", "", "", "", "", ""},
	}
	data, err := json.Marshal(raw)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv(ConfigEnvVar, path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.ATFTVersion != "v9.9.9" {
		t.Errorf("ATFTVersion = %q, want v9.9.9", cfg.ATFTVersion)
	}
	if cfg.DeviceRefreshInterval != 5 {
		t.Errorf("DeviceRefreshInterval = %d, want 5", cfg.DeviceRefreshInterval)
	}
	if !cfg.TestMode {
		t.Error("TestMode = false, want true")
	}
	if len(cfg.ProvisionSteps) != 2 || cfg.ProvisionSteps[0] != "FuseVbootKey" {
		t.Errorf("ProvisionSteps = %v", cfg.ProvisionSteps)
	}
	if cfg.DeviceUSBLocations[0] != "1-1" {
		t.Errorf("DeviceUSBLocations[0] = %q, want 1-1", cfg.DeviceUSBLocations[0])
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	cfg := &Config{ATFTVersion: "v1.2.3", DeviceRefreshInterval: 2}
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var got Config
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatal(err)
	}
	if got.ATFTVersion != cfg.ATFTVersion {
		t.Errorf("round-tripped ATFTVersion = %q, want %q", got.ATFTVersion, cfg.ATFTVersion)
	}
}
