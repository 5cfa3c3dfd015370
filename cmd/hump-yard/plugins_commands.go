package main

import (
	"github.com/spf13/cobra"

	"github.com/0xmhha/hump-yard/pkg/daemon"
	"github.com/0xmhha/hump-yard/pkg/display"
)

func newPluginsCommand(ctx *commandContext) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "plugins",
		Short: "List the plugins the daemon would register",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			formatter, err := newFormatter(out, format)
			if err != nil {
				return err
			}

			reg := daemon.NewRegistry(cfg, ctx.logger("warn"))
			names := reg.Names()
			infos := make([]display.PluginInfo, 0, len(names))
			for _, name := range names {
				p, ok := reg.Resolve(name)
				if !ok {
					continue
				}
				infos = append(infos, display.PluginInfo{Name: name, Version: p.Version()})
			}
			return formatter.FormatPlugins(out, infos)
		},
	}
	cmd.Flags().StringVar(&format, "format", "table", "Output format (table, json, simple)")
	return cmd
}
