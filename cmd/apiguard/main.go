// apiguard is the rate-limit decision service: it throttles API callers
// against configurable per-identity and per-IP rules and audits every
// request it sees.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/apiguard/apiguard/app"
)

var configPath string

func main() {
	rootCmd := &cobra.Command{
		Use:   "apiguard",
		Short: "API rate-limit decision service",
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.New(configPath)
			if err != nil {
				return err
			}
			return a.Run()
		},
	}
	serveCmd.Flags().StringVarP(&configPath, "config", "c", "", "path to config file (YAML)")

	rootCmd.AddCommand(serveCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
