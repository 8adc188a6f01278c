package trace

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strconv"
)

var (
	ErrFacilityNotFound = errors.New("Traceroute command not found")
	ErrTimeout          = errors.New("Traceroute timed out")
)

// Runner executes the platform traceroute facility and returns its output
// lines.
type Runner interface {
	Run(ctx context.Context, host string, maxHops int) ([]string, error)
}

// RunnerFunc adapts a function to the Runner interface.
type RunnerFunc func(ctx context.Context, host string, maxHops int) ([]string, error)

func (f RunnerFunc) Run(ctx context.Context, host string, maxHops int) ([]string, error) {
	return f(ctx, host, maxHops)
}

// ExecRunner shells out to traceroute, or tracert on windows.
type ExecRunner struct {
	// GOOS selects the command line. Defaults to runtime.GOOS.
	GOOS string
}

func (r ExecRunner) Command(host string, maxHops int) []string {
	goos := r.GOOS
	if goos == "" {
		goos = runtime.GOOS
	}
	if goos == "windows" {
		return []string{"tracert", "-h", strconv.Itoa(maxHops), host}
	}
	return []string{"traceroute", "-m", strconv.Itoa(maxHops), "-w", "1", host}
}

// Run returns stdout only, banner included, so on linux the "traceroute to"
// line consumes hop index 1. A non-zero exit status is not an error as long
// as the command ran. Hitting the deadline maps to ErrTimeout; any other
// cancellation is returned as is.
func (r ExecRunner) Run(ctx context.Context, host string, maxHops int) ([]string, error) {
	argv := r.Command(host, maxHops)
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout

	err := cmd.Run()
	if ctxErr := ctx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			return nil, ErrTimeout
		}
		return nil, ctxErr
	}
	if err != nil {
		var exitErr *exec.ExitError
		switch {
		case errors.Is(err, exec.ErrNotFound):
			return nil, ErrFacilityNotFound
		case errors.As(err, &exitErr):
		default:
			return nil, fmt.Errorf("failed to run %s: %w", argv[0], err)
		}
	}

	var lines []string
	sc := bufio.NewScanner(&stdout)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	return lines, nil
}
