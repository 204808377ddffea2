package mocks

import (
	"fmt"
	"strings"

	"github.com/multiroot-io/multiroot/types"
)

// FakeRunner records every command it is asked to run and answers with
// canned output, a canned error, or a per-command side effect. Tests use
// it both to assert the exact argv this project builds and to materialize
// the filesystem effects a real tool would have.
type FakeRunner struct {
	cmds        [][]string
	ReturnValue []byte
	ReturnError error
	SideEffect  func(command string, args ...string) ([]byte, error)
	Missing     map[string]bool
	Logger      types.MultirootLogger
}

func NewFakeRunner() *FakeRunner {
	return &FakeRunner{cmds: [][]string{}, Logger: types.NewNullLogger()}
}

func (r *FakeRunner) Run(command string, args ...string) ([]byte, error) {
	r.cmds = append(r.cmds, append([]string{command}, args...))
	if r.SideEffect != nil {
		return r.SideEffect(command, args...)
	}
	return r.ReturnValue, r.ReturnError
}

func (r *FakeRunner) CommandExists(command string) bool {
	return !r.Missing[command]
}

func (r *FakeRunner) GetLogger() types.MultirootLogger {
	return r.Logger
}

func (r *FakeRunner) SetLogger(logger types.MultirootLogger) {
	r.Logger = logger
}

// Cmds returns every recorded invocation, command first.
func (r *FakeRunner) Cmds() [][]string {
	return r.cmds
}

// ClearCmds drops the recorded invocations.
func (r *FakeRunner) ClearCmds() {
	r.cmds = [][]string{}
}

// CmdsMatch checks the recorded invocations equal the given list, in
// order and element by element.
func (r *FakeRunner) CmdsMatch(want [][]string) error {
	if len(want) != len(r.cmds) {
		return fmt.Errorf("expected %d commands, got %d: %v", len(want), len(r.cmds), r.cmds)
	}
	for i, cmd := range want {
		got := r.cmds[i]
		if strings.Join(cmd, " ") != strings.Join(got, " ") {
			return fmt.Errorf("command %d: expected %q, got %q", i, strings.Join(cmd, " "), strings.Join(got, " "))
		}
	}
	return nil
}

// IncludesCmds checks every given invocation was recorded, anywhere and
// in any order.
func (r *FakeRunner) IncludesCmds(want [][]string) error {
	for _, cmd := range want {
		found := false
		for _, got := range r.cmds {
			if strings.Join(cmd, " ") == strings.Join(got, " ") {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("command %q not found in %v", strings.Join(cmd, " "), r.cmds)
		}
	}
	return nil
}
