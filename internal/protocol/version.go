package protocol

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// ProtocolVersion is the wire protocol understood by this build. A renderer
// reporting a higher value is evicted and relaunched; a lower value is
// permanently incompatible.
const ProtocolVersion = 3

// ProductVersion identifies the build. Overridden at link time with
// -ldflags "-X overlay/internal/protocol.ProductVersion=1.2.3".
var ProductVersion = "0.0.0-dev"

// ProductVersionMismatch reports whether a server's product version differs
// from the local one. An empty server version always mismatches.
func ProductVersionMismatch(server, local string) bool {
	s := normalizeVersion(server)
	if s == "" {
		return true
	}
	return s != normalizeVersion(local)
}

func normalizeVersion(value string) string {
	return strings.TrimSpace(norm.NFKC.String(value))
}
