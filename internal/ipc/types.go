package ipc

import "overlay/internal/protocol"

// HandshakeRequest asks the renderer to identify itself.
type HandshakeRequest struct{}

// HandshakeResponse carries the renderer's identity and versions.
type HandshakeResponse struct {
	Name            string `json:"name"`
	ProtocolVersion int    `json:"protocol_version"`
	ProductVersion  string `json:"product_version"`
	PID             int    `json:"pid"`
	Executable      string `json:"executable"`
}

// ExecRequest delivers a command to the renderer.
type ExecRequest struct {
	Command protocol.Command `json:"command"`
}

// ExecResponse reports whether the renderer accepted the command.
type ExecResponse struct {
	Accepted bool   `json:"accepted"`
	Message  string `json:"message,omitempty"`
}
