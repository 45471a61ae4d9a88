// SPDX-License-Identifier: Apache-2.0

package flags

import (
	"os"

	"github.com/spf13/viper"
	"sigs.k8s.io/yaml"
)

// fileConfig is the shape of an optional relorm.yaml config file. Any
// field left empty does not override the flag default or an already-set
// environment variable.
type fileConfig struct {
	PostgresURL  string `json:"postgresUrl"`
	Schema       string `json:"schema"`
	SnapshotPath string `json:"snapshotPath"`
	LogFile      string `json:"logFile"`
}

// LoadConfigFile reads path (if non-empty and present) and seeds viper
// with its values. Unlike viper's built-in YAML support (go-yaml), this
// goes through sigs.k8s.io/yaml so the same struct tags double as the
// JSON Schema-friendly field names used elsewhere in the module.
func LoadConfigFile(path string) error {
	if path == "" {
		return nil
	}

	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	var cfg fileConfig
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return err
	}

	if cfg.PostgresURL != "" {
		viper.Set("PG_URL", cfg.PostgresURL)
	}
	if cfg.Schema != "" {
		viper.Set("SCHEMA", cfg.Schema)
	}
	if cfg.SnapshotPath != "" {
		viper.Set("SNAPSHOT_PATH", cfg.SnapshotPath)
	}
	if cfg.LogFile != "" {
		viper.Set("LOG_FILE", cfg.LogFile)
	}
	return nil
}
