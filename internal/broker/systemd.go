package broker

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// SystemdManager starts services through systemctl. The service manager is
// an external collaborator reachable only through its CLI, so this shells
// out rather than speaking any daemon protocol.
type SystemdManager struct{}

// NewSystemdManager creates a systemctl-backed service manager.
func NewSystemdManager() *SystemdManager {
	return &SystemdManager{}
}

// Start runs `systemctl start <unit>`. Stderr is folded into the error so
// the orchestrator's report carries the service manager's own diagnostic.
func (*SystemdManager) Start(ctx context.Context, unit string) error {
	cmd := exec.CommandContext(ctx, "systemctl", "start", unit)
	out, err := cmd.CombinedOutput()
	if err != nil {
		msg := strings.TrimSpace(string(out))
		if msg == "" {
			return fmt.Errorf("systemctl start %s: %w", unit, err)
		}
		return fmt.Errorf("systemctl start %s: %w: %s", unit, err, msg)
	}
	return nil
}
