package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/0xmhha/hump-yard/pkg/daemon"
	"github.com/0xmhha/hump-yard/pkg/logger"
	"github.com/0xmhha/hump-yard/pkg/supervisor"
)

// exitNotRunning is the status exit code when no daemon is running.
const exitNotRunning = 3

func newDaemonCommands(ctx *commandContext) []*cobra.Command {
	var foreground bool
	var internalWorker bool
	var startLevel string

	startCmd := &cobra.Command{
		Use:         "start",
		Short:       "Start the daemon in the background",
		Annotations: map[string]string{skipConfigLoad: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkLevel(startLevel); err != nil {
				return err
			}
			if internalWorker {
				return runWorker(cmd.Context(), ctx, startLevel)
			}

			stdout := cmd.OutOrStdout()
			cfg, err := ctx.ensureConfigFile(stdout)
			if err != nil {
				return err
			}

			log := ctx.logger(startLevel)
			sup, err := ctx.supervisor(log)
			if err != nil {
				return err
			}

			if foreground {
				_, err := sup.Start(cmd.Context(), supervisor.StartOptions{
					Foreground: true,
					Run: func(runCtx context.Context) error {
						fmt.Fprintf(stdout, "Running in the foreground (PID: %d), press Ctrl+C to stop\n", os.Getpid())
						return daemon.New(cfg, log).Run(runCtx)
					},
				})
				return err
			}

			pid, err := sup.Start(cmd.Context(), supervisor.StartOptions{LogLevel: startLevel})
			if err != nil {
				return err
			}
			fmt.Fprintf(stdout, "Daemon started successfully (PID: %d)\n", pid)
			fmt.Fprintf(stdout, "Logs: %s\n", ctx.config.DaemonLoggerConfig().Output)
			return nil
		},
	}
	startCmd.Flags().BoolVarP(&foreground, "foreground", "f", false, "Run in the foreground instead of detaching")
	startCmd.Flags().StringVar(&startLevel, "log-level", "", "Log level (debug, info, warning, error, critical)")
	startCmd.Flags().BoolVar(&internalWorker, "internal-worker", false, "Run as the detached daemon process")
	_ = startCmd.Flags().MarkHidden("internal-worker")

	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the running daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			sup, err := ctx.supervisor(ctx.logger(""))
			if err != nil {
				return err
			}

			stdout := cmd.OutOrStdout()
			result, err := sup.Stop()
			if err != nil {
				return err
			}
			if result.Forced {
				fmt.Fprintf(stdout, "Daemon did not stop gracefully and was terminated (PID: %d)\n", result.PID)
				return nil
			}
			fmt.Fprintf(stdout, "Daemon stopped (PID: %d)\n", result.PID)
			return nil
		},
	}

	var restartLevel string
	restartCmd := &cobra.Command{
		Use:   "restart",
		Short: "Stop the daemon if it is running, then start it again",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkLevel(restartLevel); err != nil {
				return err
			}
			sup, err := ctx.supervisor(ctx.logger(restartLevel))
			if err != nil {
				return err
			}

			pid, err := sup.Restart(cmd.Context(), supervisor.StartOptions{LogLevel: restartLevel})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Daemon restarted (PID: %d)\n", pid)
			return nil
		},
	}
	restartCmd.Flags().StringVar(&restartLevel, "log-level", "", "Log level (debug, info, warning, error, critical)")

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Report whether the daemon is running (exit 0) or not (exit 3)",
		RunE: func(cmd *cobra.Command, args []string) error {
			sup, err := ctx.supervisor(ctx.logger("warn"))
			if err != nil {
				return err
			}

			st, err := sup.Status()
			if err != nil {
				return err
			}

			stdout := cmd.OutOrStdout()
			switch st.State {
			case supervisor.StateRunning:
				fmt.Fprintf(stdout, "Daemon is running (PID: %d)\n", st.PID)
				fmt.Fprintf(stdout, "PID file: %s\n", sup.PIDFile())
				return nil
			case supervisor.StateStale:
				if st.PID > 0 {
					fmt.Fprintf(stdout, "Daemon is not running (removed stale PID file for PID %d)\n", st.PID)
				} else {
					fmt.Fprintln(stdout, "Daemon is not running (removed unreadable PID file)")
				}
			default:
				fmt.Fprintln(stdout, "Daemon is not running")
			}
			return &exitError{code: exitNotRunning}
		},
	}

	return []*cobra.Command{startCmd, stopCmd, restartCmd, statusCmd}
}

// runWorker is the body of the detached daemon process started by Start.
func runWorker(ctx context.Context, c *commandContext, level string) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}

	log := c.daemonLogger(level)
	sup, err := c.supervisor(log)
	if err != nil {
		log.Error("daemon failed to start", "error", err)
		return err
	}

	err = sup.RunForeground(ctx, func(runCtx context.Context) error {
		return daemon.New(cfg, log).Run(runCtx)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Error("daemon exited with error", "error", err)
		return err
	}
	return nil
}

func checkLevel(level string) error {
	if level != "" && !logger.ValidLevel(level) {
		return fmt.Errorf("invalid log level %q (want debug, info, warning, error or critical)", level)
	}
	return nil
}
