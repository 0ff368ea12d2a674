package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"overlay/internal/config"
	"overlay/internal/deps"
	"overlay/internal/ipc"
	"overlay/internal/launcher"
	"overlay/internal/protocol"
)

const defaultActivateWait = 10 * time.Second

func newActivateCommand(ctx *commandContext) *cobra.Command {
	var wait time.Duration

	cmd := &cobra.Command{
		Use:   "activate",
		Short: "Start the renderer if it is not running",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			rt, err := newRendererRuntime(cmd.Context(), cfg, logger, false)
			if err != nil {
				return err
			}
			defer rt.Close()

			out := cmd.OutOrStdout()
			if !rt.client.Activate() {
				return fmt.Errorf("renderer %s is not responding", rt.name)
			}
			if rt.launcher.Status() == launcher.StatusUnknown {
				// Delivered to a live renderer without launching.
				fmt.Fprintf(out, "Renderer %s is running\n", rt.name)
				return nil
			}

			waitCtx, cancel := context.WithTimeout(cmd.Context(), wait)
			defer cancel()
			if err := rt.launcher.Wait(waitCtx); err != nil {
				return fmt.Errorf("renderer %s did not finish launching within %s", rt.name, wait)
			}
			if !rt.launcher.IsAvailable() {
				return fmt.Errorf("renderer %s failed to launch (status %s, %d errors)",
					rt.name, rt.launcher.Status(), rt.launcher.ErrorTimes())
			}
			fmt.Fprintf(out, "Renderer %s started\n", rt.name)
			return nil
		},
	}

	cmd.Flags().DurationVar(&wait, "wait", defaultActivateWait, "How long to wait for the renderer to come up")
	return cmd
}

func newShutdownCommand(ctx *commandContext) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "shutdown",
		Short: "Stop the renderer",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			rt, err := newRendererRuntime(cmd.Context(), cfg, logger, false)
			if err != nil {
				return err
			}
			defer rt.Close()

			if !rt.client.Shutdown(force) {
				return fmt.Errorf("renderer %s did not stop", rt.name)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Renderer %s stopped\n", rt.name)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Kill the renderer instead of asking it to exit")
	return cmd
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show renderer status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			writeRendererStatus(out, cfg, shouldColorize(out))
			return nil
		},
	}
}

// rendererStatus is what a one-shot probe of the renderer found.
type rendererStatus struct {
	name      string
	running   bool
	pathOK    bool
	pid       int
	protocol  int
	product   string
	probeKind ipc.ErrorKind
}

func probeRenderer(cfg *config.Config) rendererStatus {
	name := cfg.RendererName()
	endpoint := ipc.NewEndpoint(cfg.Renderer.RuntimeDir, name)
	status := rendererStatus{name: name}

	probe := ipc.Open(endpoint, "", time.Second)
	defer probe.Close()
	status.running = probe.Connected()
	status.probeKind = probe.LastError()
	if !status.running {
		return status
	}
	info := probe.Info()
	status.pid = info.PID
	status.protocol = info.ProtocolVersion
	status.product = info.ProductVersion

	expected := ""
	if !cfg.Renderer.SkipPathCheck {
		expected = cfg.Renderer.Path
	}
	checked := ipc.Open(endpoint, expected, time.Second)
	status.pathOK = checked.Connected()
	_ = checked.Close()
	return status
}

func writeRendererStatus(out io.Writer, cfg *config.Config, colorize bool) {
	status := probeRenderer(cfg)
	for _, line := range renderSectionHeader("Renderer "+status.name, colorize) {
		fmt.Fprintln(out, line)
	}
	for _, line := range rendererStatusLines(status, cfg, colorize) {
		fmt.Fprintln(out, line)
	}
	fmt.Fprintln(out)
	for _, line := range renderSectionHeader("Dependencies", colorize) {
		fmt.Fprintln(out, line)
	}
	for _, line := range dependencyLines(deps.CheckBinaries(deps.Requirements(cfg)), colorize) {
		fmt.Fprintln(out, line)
	}
}

func dependencyLines(statuses []deps.Status, colorize bool) []string {
	lines := make([]string, 0, len(statuses)+1)
	var missing []string
	for _, dep := range statuses {
		if dep.Available {
			lines = append(lines, renderStatusLine(dep.Name, statusOK, fmt.Sprintf("Ready (command: %s)", dep.Command), colorize))
			continue
		}
		detail := strings.TrimSpace(dep.Detail)
		if detail == "" {
			detail = "not available"
		}
		kind := statusError
		if dep.Optional {
			kind = statusWarn
		} else {
			missing = append(missing, dep.Name)
		}
		lines = append(lines, renderStatusLine(dep.Name, kind, detail, colorize))
	}
	if len(missing) > 0 {
		lines = append(lines, renderStatusLine("Missing", statusError, strings.Join(missing, ", ")+" (renderer launches will fail)", colorize))
	}
	return lines
}

func rendererStatusLines(status rendererStatus, cfg *config.Config, colorize bool) []string {
	lines := make([]string, 0, 6)
	if !status.running {
		msg := "not running"
		if status.probeKind == ipc.ErrorTimeout {
			msg = "not responding"
		}
		lines = append(lines, renderStatusLine("Renderer", statusWarn, msg, colorize))
		lines = append(lines, renderStatusLine("Executable", statusInfo, cfg.Renderer.Path, colorize))
		return lines
	}

	running := "running"
	if status.pid > 0 {
		running = fmt.Sprintf("running (pid %d)", status.pid)
	}
	lines = append(lines, renderStatusLine("Renderer", statusOK, running, colorize))

	switch {
	case cfg.Renderer.SkipPathCheck:
		lines = append(lines, renderStatusLine("Executable", statusInfo, "path check skipped", colorize))
	case status.pathOK:
		lines = append(lines, renderStatusLine("Executable", statusOK, cfg.Renderer.Path, colorize))
	default:
		lines = append(lines, renderStatusLine("Executable", statusError, "served by a different executable than "+cfg.Renderer.Path, colorize))
	}

	protoKind, protoMsg := statusOK, fmt.Sprintf("%d", status.protocol)
	switch {
	case status.protocol > protocol.ProtocolVersion:
		protoKind, protoMsg = statusWarn, fmt.Sprintf("%d (newer than %d; will be replaced)", status.protocol, protocol.ProtocolVersion)
	case status.protocol < protocol.ProtocolVersion:
		protoKind, protoMsg = statusError, fmt.Sprintf("%d (older than %d; incompatible)", status.protocol, protocol.ProtocolVersion)
	}
	lines = append(lines, renderStatusLine("Protocol", protoKind, protoMsg, colorize))

	product := strings.TrimSpace(status.product)
	if protocol.ProductVersionMismatch(product, protocol.ProductVersion) {
		if product == "" {
			product = "unknown"
		}
		lines = append(lines, renderStatusLine("Version", statusWarn, fmt.Sprintf("%s (client %s)", product, protocol.ProductVersion), colorize))
	} else {
		lines = append(lines, renderStatusLine("Version", statusOK, product, colorize))
	}
	return lines
}
