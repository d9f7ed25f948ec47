package client

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(pingCmd)
}

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Check connection to the backend",
	Run: func(cmd *cobra.Command, args []string) {
		withApp(cmd, func(ctx context.Context, app *App) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Pinging %s...\n", app.API.BaseURL())
			latency, err := app.API.Ping(ctx)
			if err != nil {
				fmt.Fprintf(out, "Failed to ping server: %v\n", err)
				return
			}
			fmt.Fprintf(out, "Pong! Server is reachable (Latency: %v)\n", latency)
		})
	},
}
