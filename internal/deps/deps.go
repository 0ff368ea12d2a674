package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"overlay/internal/config"
)

// Requirement defines an external binary overlay relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a requirement.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// Requirements lists the binaries the configured launcher will execute.
func Requirements(cfg *config.Config) []Requirement {
	if cfg == nil {
		return nil
	}
	var reqs []Requirement
	switch cfg.Renderer.Spawner {
	case config.SpawnerSystemd:
		reqs = append(reqs, Requirement{
			Name:        "systemctl",
			Command:     "systemctl",
			Description: "Starts the renderer user unit",
		})
	default:
		reqs = append(reqs, Requirement{
			Name:        "Renderer",
			Command:     cfg.Renderer.Path,
			Description: "Renderer executable started by the launcher",
		})
	}
	if fields := strings.Fields(cfg.Notifications.DialogCommand); len(fields) > 0 && !cfg.Notifications.SuppressErrorDialog {
		reqs = append(reqs, Requirement{
			Name:        "Error dialog",
			Command:     fields[0],
			Description: "Shows fatal renderer errors",
			Optional:    true,
		})
	}
	return reqs
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		switch {
		case cmd == "":
			status.Detail = "command not configured"
		default:
			if _, err := exec.LookPath(cmd); err != nil {
				status.Detail = fmt.Sprintf("binary %q not found", cmd)
			} else {
				status.Available = true
			}
		}
		results = append(results, status)
	}
	return results
}
