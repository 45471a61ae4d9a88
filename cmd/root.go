// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/relormdb/relorm/cmd/flags"
)

// Version is the relorm CLI version.
var Version = "development"

func init() {
	viper.SetEnvPrefix("RELORM")
	viper.AutomaticEnv()

	flags.PgConnectionFlags(rootCmd)
	rootCmd.PersistentFlags().String("config", "", "Path to a relorm.yaml config file")
}

var rootCmd = &cobra.Command{
	Use:          "relorm",
	SilenceUsage: true,
	Version:      Version,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		configPath, err := cmd.Flags().GetString("config")
		if err != nil {
			return err
		}
		return flags.LoadConfigFile(configPath)
	},
}

// Execute executes the root command.
func Execute() error {
	rootCmd.AddCommand(statusCmd)
	return rootCmd.Execute()
}
