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

// Package config loads the console's persisted JSON configuration file (see
// spec §6 "Persisted state"), the same way the teacher's pkg/worker loaded a
// JSON worker config: via viper, with an environment variable escape hatch
// and defaults applied before the file is read.
package config

import (
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// ConfigEnvVar lets an operator point the console at a config file outside
// the default search path, mirroring the teacher's SONOBUOY_CONFIG.
const ConfigEnvVar = "ATFT_CONFIG"

// Config is the persisted state described in spec §6. Each field carries
// matching mapstructure and json tags naming its JSON key, so the file
// round-trips under the same key names.
type Config struct {
	ATFTVersion           string `mapstructure:"ATFT_VERSION" json:"ATFT_VERSION"`
	CompatibleATFAVersion string `mapstructure:"COMPATIBLE_ATFA_VERSION" json:"COMPATIBLE_ATFA_VERSION"`

	DeviceRefreshInterval int `mapstructure:"DEVICE_REFRESH_INTERVAL" json:"DEVICE_REFRESH_INTERVAL"`

	DefaultKeyThreshold1 int `mapstructure:"DEFAULT_KEY_THRESHOLD_1" json:"DEFAULT_KEY_THRESHOLD_1"`
	DefaultKeyThreshold2 int `mapstructure:"DEFAULT_KEY_THRESHOLD_2" json:"DEFAULT_KEY_THRESHOLD_2"`

	LogDir        string `mapstructure:"LOG_DIR" json:"LOG_DIR"`
	LogSize       int64  `mapstructure:"LOG_SIZE" json:"LOG_SIZE"`
	LogFileNumber int    `mapstructure:"LOG_FILE_NUMBER" json:"LOG_FILE_NUMBER"`

	AuditDir      string `mapstructure:"AUDIT_DIR" json:"AUDIT_DIR"`
	AuditInterval int    `mapstructure:"AUDIT_INTERVAL" json:"AUDIT_INTERVAL"`

	Language string `mapstructure:"LANGUAGE" json:"LANGUAGE"`

	RebootTimeout     int `mapstructure:"REBOOT_TIMEOUT" json:"REBOOT_TIMEOUT"`
	ATFARebootTimeout int `mapstructure:"ATFA_REBOOT_TIMEOUT" json:"ATFA_REBOOT_TIMEOUT"`

	ProductAttributeFileExtension string `mapstructure:"PRODUCT_ATTRIBUTE_FILE_EXTENSION" json:"PRODUCT_ATTRIBUTE_FILE_EXTENSION"`
	KeyFileExtension              string `mapstructure:"KEY_FILE_EXTENSION" json:"KEY_FILE_EXTENSION"`
	UpdateFileExtension           string `mapstructure:"UPDATE_FILE_EXTENSION" json:"UPDATE_FILE_EXTENSION"`

	PasswordHash string `mapstructure:"PASSWORD_HASH" json:"PASSWORD_HASH"`

	// DeviceUSBLocations is a fixed 6-slot list of USB location strings (or
	// empty strings where the slot is unmapped), matching the original
	// tool's "map target N to this bus-port" operator convenience.
	DeviceUSBLocations [6]string `mapstructure:"DEVICE_USB_LOCATIONS" json:"DEVICE_USB_LOCATIONS"`

	TestMode bool `mapstructure:"TEST_MODE" json:"TEST_MODE"`

	// ProvisionSteps is the configured automatic sequence (§4.5.2). Empty
	// means "use the product or SoM default depending on the loaded
	// descriptor".
	ProvisionSteps []string `mapstructure:"PROVISION_STEPS" json:"PROVISION_STEPS"`

	KeyDir string `mapstructure:"KEY_DIR" json:"KEY_DIR"`

	// The following keys are ATFT additions beyond the original tool's
	// config.json, supporting the console/diagnostics/reporting/alerting
	// enrichments described in SPEC_FULL.md.
	StagingDir   string `mapstructure:"STAGING_DIR" json:"STAGING_DIR"`
	IngestLogDir string `mapstructure:"INGEST_LOG_DIR" json:"INGEST_LOG_DIR"`
	WebhookURL   string `mapstructure:"WEBHOOK_URL" json:"WEBHOOK_URL"`
	StatusAddr   string `mapstructure:"STATUS_ADDR" json:"STATUS_ADDR"`
	ReportDir    string `mapstructure:"REPORT_DIR" json:"REPORT_DIR"`
}

// setDefaults fills in the values the original tool hard-codes as constants
// so a fresh config file (or one missing a key) still behaves sanely.
func setDefaults(c *Config) {
	c.CompatibleATFAVersion = "2.0"
	c.DeviceRefreshInterval = 1
	c.DefaultKeyThreshold1 = 100
	c.DefaultKeyThreshold2 = 20
	c.LogDir = "/tmp/atft/logs"
	c.LogSize = 1024 * 1024 * 10
	c.LogFileNumber = 10
	c.AuditDir = "/tmp/atft/audit"
	c.AuditInterval = 10
	c.Language = "en"
	c.RebootTimeout = 60
	c.ATFARebootTimeout = 120
	c.ProductAttributeFileExtension = ".attr"
	c.KeyFileExtension = ".atfa"
	c.UpdateFileExtension = ".img"
	c.KeyDir = "/tmp/atft/keys"
	c.StagingDir = "/tmp/atft/staging"
	c.IngestLogDir = "/tmp/atft/ingest"
	c.StatusAddr = "127.0.0.1:8087"
	c.ReportDir = "/tmp/atft/reports"
}

// Load reads the console's JSON configuration file via viper, applying
// defaults first so any key the file omits still gets a sane value.
// ATFT_CONFIG overrides the search path, same convention as the teacher's
// SONOBUOY_CONFIG.
func Load() (*Config, error) {
	cfg := &Config{}
	setDefaults(cfg)

	viper.SetConfigType("json")
	viper.SetConfigName("config")
	viper.AddConfigPath("/etc/atft")
	viper.AddConfigPath(".")

	if forced := os.Getenv(ConfigEnvVar); forced != "" {
		viper.SetConfigFile(forced)
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return cfg, nil
		}
		return nil, errors.Wrap(err, "reading atft config")
	}

	if err := viper.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, "unmarshalling atft config")
	}
	return cfg, nil
}

// Save persists the configuration back to path as indented JSON, matching
// the "normal exit persists configuration" requirement in spec §6.
func Save(path string, cfg *Config) error {
	return errors.Wrap(saveJSON(path, cfg), "saving atft config")
}
