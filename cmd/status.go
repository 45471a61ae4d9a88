// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/relormdb/relorm/cmd/flags"
	"github.com/relormdb/relorm/pkg/rellog"
	"github.com/relormdb/relorm/pkg/relstate"
)

type statusLine struct {
	SnapshotPath string   `json:"snapshotPath"`
	Tables       []string `json:"tables"`
	Status       string   `json:"status"`
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the schema snapshot last persisted by a RunMigrations call",
	RunE: func(cmd *cobra.Command, _ []string) error {
		path := flags.SnapshotPath()

		logger := rellog.NewNoopLogger()
		if logPath := flags.LogFile(); logPath != "" {
			logger = rellog.NewFileLogger(logPath)
		}

		snap, err := relstate.Load(path)
		if err != nil {
			return err
		}
		logger.Info("read persisted snapshot", "path", path)

		line := statusLine{SnapshotPath: path}
		if snap == nil {
			line.Status = "No migrations applied"
		} else {
			line.Tables = snap.TableNames()
			line.Status = "Up to date"
		}

		out, err := json.MarshalIndent(line, "", "  ")
		if err != nil {
			return err
		}

		fmt.Println(string(out))
		return nil
	},
}
