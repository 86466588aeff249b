package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const programName = "register-server"

var globalFlags = struct {
	configFile string
	logLevel   string
}{}

func main() {
	rootCmd := &cobra.Command{
		Use:           programName,
		Short:         "Visitor register and traceability log",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serveRun(cmd.Context())
		},
	}
	rootCmd.PersistentFlags().StringVarP(&globalFlags.configFile, "config", "c", "", "path to config file to load")
	rootCmd.PersistentFlags().StringVar(&globalFlags.logLevel, "log-level", "", "override the configured log level")

	rootCmd.AddCommand(serveCommand(), exportCommand())

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
