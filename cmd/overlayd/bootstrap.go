package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"overlay/internal/config"
	"overlay/internal/ipc"
	"overlay/internal/protocol"
)

// applyFlags lets the launcher's command line win over the config file.
func applyFlags(cfg *config.Config, flags daemonFlags) {
	if dir := strings.TrimSpace(flags.runtimeDir); dir != "" {
		cfg.Renderer.RuntimeDir = dir
	}
}

func buildEndpoint(cfg *config.Config, flags daemonFlags) ipc.Endpoint {
	name := strings.TrimSpace(flags.name)
	if name == "" {
		name = cfg.RendererName()
	}
	return ipc.NewEndpoint(cfg.Renderer.RuntimeDir, name)
}

// serverInfo describes this build to connecting clients. The executable path
// is resolved through symlinks so clients can compare it against their
// configured renderer.path.
func serverInfo() (ipc.ServerInfo, error) {
	exe, err := os.Executable()
	if err != nil {
		return ipc.ServerInfo{}, fmt.Errorf("resolve executable: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return ipc.ServerInfo{
		ProtocolVersion: protocol.ProtocolVersion,
		ProductVersion:  protocol.ProductVersion,
		Executable:      exe,
	}, nil
}
