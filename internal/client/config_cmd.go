package client

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(setServerCmd)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage client configuration",
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show the config file location",
	Run: func(cmd *cobra.Command, args []string) {
		path := cfgFile
		if path == "" {
			var err error
			path, err = GetConfigPath()
			if err != nil {
				fmt.Fprintln(cmd.OutOrStdout(), "Error getting config path:", err)
				return
			}
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
	},
}

var setServerCmd = &cobra.Command{
	Use:   "set-server <url>",
	Short: "Set the backend URL",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg.ServerURL = args[0]
		if err := SaveConfigGlobal(); err != nil {
			fmt.Fprintln(cmd.OutOrStdout(), "Error saving config:", err)
			return
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Server URL set to %s\n", args[0])
	},
}
