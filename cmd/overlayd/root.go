package main

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"overlay/internal/config"
	"overlay/internal/logging"
	"overlay/internal/rendererd"
	"overlay/internal/view"
)

type daemonFlags struct {
	config     string
	name       string
	runtimeDir string
}

func newRootCommand() *cobra.Command {
	var flags daemonFlags

	cmd := &cobra.Command{
		Use:           "overlayd",
		Short:         "Overlay candidate window renderer",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, _, err := config.Load(strings.TrimSpace(flags.config))
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			applyFlags(cfg, flags)
			if err := cfg.EnsureDirectories(); err != nil {
				return err
			}

			logger, err := logging.NewFromConfig(cfg, "overlayd", uuid.NewString())
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			info, err := serverInfo()
			if err != nil {
				return err
			}
			console := view.NewConsole(cmd.OutOrStdout(), view.Options{
				Width:       cfg.View.Width,
				Color:       cfg.View.Color,
				AccentColor: cfg.View.AccentColor,
			})
			r := rendererd.New(rendererd.Options{
				Endpoint: buildEndpoint(cfg, flags),
				Drawer:   console,
				Info:     info,
				Logger:   logger,
			})
			if err := r.Run(cmd.Context()); err != nil {
				return err
			}
			logger.Info("overlayd shutting down")
			return nil
		},
	}

	cmd.Flags().StringVarP(&flags.config, "config", "c", "", "Configuration file path")
	cmd.Flags().StringVar(&flags.name, "name", "", "Renderer name to serve (defaults to the configured name)")
	cmd.Flags().StringVar(&flags.runtimeDir, "runtime-dir", "", "Directory holding the renderer socket and pid file")
	return cmd
}
