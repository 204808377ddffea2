package types

import (
	"fmt"
	"os/exec"
	"strings"
)

// Runner executes the external tools this project orchestrates (mkfs,
// rsync, labelers, losetup). Run returns the combined stdout and stderr
// so a failing tool's own message travels with the error.
type Runner interface {
	Run(command string, args ...string) ([]byte, error)
	CommandExists(command string) bool
	GetLogger() MultirootLogger
	SetLogger(logger MultirootLogger)
}

// RealRunner runs commands on the host.
type RealRunner struct {
	Logger MultirootLogger
}

func (r *RealRunner) Run(command string, args ...string) ([]byte, error) {
	r.Logger.Logger.Debug().Str("cmd", command).Str("args", strings.Join(args, " ")).Msg("Running command")
	out, err := exec.Command(command, args...).CombinedOutput()
	if err != nil {
		r.Logger.Logger.Debug().
			Str("cmd", command).
			Str("args", strings.Join(args, " ")).
			Str("output", string(out)).
			Msg("Command failed")
		return out, fmt.Errorf("%s %s: %w: %s", command, strings.Join(args, " "), err, strings.TrimSpace(string(out)))
	}
	return out, nil
}

func (r *RealRunner) CommandExists(command string) bool {
	_, err := exec.LookPath(command)
	return err == nil
}

func (r *RealRunner) GetLogger() MultirootLogger {
	return r.Logger
}

func (r *RealRunner) SetLogger(logger MultirootLogger) {
	r.Logger = logger
}
