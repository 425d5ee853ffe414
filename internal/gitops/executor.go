package gitops

import (
	"fmt"
	"os/exec"
)

// systemExecutor runs commands on the host via combined output.
type systemExecutor struct{}

func (systemExecutor) Execute(dir, name string, args ...string) (string, error) {
	cmd := exec.Command(name, args...)
	cmd.Dir = dir

	out, err := cmd.CombinedOutput()
	if err != nil {
		return string(out), fmt.Errorf("%s %v: %w", name, args, err)
	}
	return string(out), nil
}
