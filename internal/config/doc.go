// Package config loads, normalizes, and validates overlay configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// XDG_RUNTIME_DIR, DISPLAY and OVERLAY_NTFY_TOPIC. The Config type centralizes
// every knob the client, the launcher and the renderer process need, so the
// renderer name, its executable and the runtime directory holding its sockets
// are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
