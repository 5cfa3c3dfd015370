package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/0xmhha/hump-yard/pkg/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	configCmd.AddCommand(newConfigInitCommand())
	configCmd.AddCommand(newConfigPathCommand(ctx))
	configCmd.AddCommand(newConfigShowCommand(ctx))

	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Create a sample configuration file",
		Annotations: map[string]string{skipConfigLoad: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(targetPath)
			if target == "" {
				target = config.DefaultConfigPath()
			}

			if err := config.WriteTemplate(target, overwrite); err != nil {
				if errors.Is(err, config.ErrConfigExists) {
					return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", target)
				}
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
			fmt.Fprintln(out, "Edit the folders section before starting hump-yard.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing configuration if present")
	return cmd
}

func newConfigPathCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:         "path",
		Short:       "Show the configuration search path",
		Annotations: map[string]string{skipConfigLoad: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			paths := []string{"./config.yaml", "./config.json", config.DefaultConfigPath()}

			fmt.Fprintln(out, "Configuration file search paths (in order of precedence):")
			fmt.Fprintln(out, "  --config flag, then $"+config.EnvConfig)
			for i, p := range paths {
				state := "not found"
				if _, err := os.Stat(p); err == nil {
					state = "found"
				}
				fmt.Fprintf(out, "  %d. %s [%s]\n", i+1, p, state)
			}

			active := ctx.loader().Path()
			if active == "" {
				active = "none (built-in defaults)"
			}
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Active configuration:", active)
			return nil
		},
	}
}

func newConfigShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			data, err := config.Marshal(cfg)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			source := ctx.configPath
			if source == "" {
				source = "built-in defaults"
			}
			fmt.Fprintf(out, "# Source: %s\n", source)
			_, err = out.Write(data)
			return err
		},
	}
}
