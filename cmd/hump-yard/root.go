package main

import (
	"github.com/spf13/cobra"
)

const skipConfigLoad = "skipConfigLoad"

func newRootCommand() *cobra.Command {
	var configFlag string
	var pidFileFlag string

	ctx := newCommandContext(&configFlag, &pidFileFlag)

	rootCmd := &cobra.Command{
		Use:           "hump-yard",
		Short:         "Watch folders and hand new files to plugins",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().StringVar(&pidFileFlag, "pid-file", "", "PID file path (default: /var/run/hump-yard.pid or ~/.hump-yard.pid)")

	for _, cmd := range newDaemonCommands(ctx) {
		rootCmd.AddCommand(cmd)
	}
	rootCmd.AddCommand(newPluginsCommand(ctx))
	rootCmd.AddCommand(newHistoryCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))

	return rootCmd
}
