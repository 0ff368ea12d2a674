package main

import (
	"path/filepath"
	"testing"

	"overlay/internal/protocol"
	"overlay/internal/testsupport"
)

func TestBuildEndpoint(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithRendererName("candidates"))

	tests := []struct {
		name     string
		flags    daemonFlags
		wantName string
		wantDir  string
	}{
		{"config defaults", daemonFlags{}, "candidates", cfg.Renderer.RuntimeDir},
		{"name flag", daemonFlags{name: " renderer.:1 "}, "renderer.:1", cfg.Renderer.RuntimeDir},
		{"runtime dir flag", daemonFlags{runtimeDir: "/run/user/1000/overlay"}, "candidates", "/run/user/1000/overlay"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := *cfg
			applyFlags(&c, tc.flags)
			endpoint := buildEndpoint(&c, tc.flags)
			if endpoint.Name != tc.wantName {
				t.Fatalf("endpoint name = %q, want %q", endpoint.Name, tc.wantName)
			}
			if endpoint.Dir != tc.wantDir {
				t.Fatalf("endpoint dir = %q, want %q", endpoint.Dir, tc.wantDir)
			}
		})
	}
}

func TestServerInfo(t *testing.T) {
	info, err := serverInfo()
	if err != nil {
		t.Fatalf("serverInfo: %v", err)
	}
	if info.ProtocolVersion != protocol.ProtocolVersion || info.ProductVersion != protocol.ProductVersion {
		t.Fatalf("unexpected versions: %+v", info)
	}
	if !filepath.IsAbs(info.Executable) {
		t.Fatalf("executable should be absolute, got %q", info.Executable)
	}
}
