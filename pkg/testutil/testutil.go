package testutil

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/gitpod-io/snapbuild/pkg/snapbuild"
	"gopkg.in/yaml.v3"
)

// Scenario describes the state of a host and how commands behave on it
type Scenario struct {
	Host      FakeHost   `yaml:"host"`
	Responses []Response `yaml:"responses"`
}

// Response scripts the outcome of a command. Commands without a response succeed silently.
type Response struct {
	// Command is the full command line, e.g. "sudo snap refresh lxd"
	Command  string `yaml:"command"`
	ExitCode int    `yaml:"exitCode,omitempty"`
	Stdout   string `yaml:"stdout,omitempty"`
	// LaunchError makes the command fail to start altogether
	LaunchError string `yaml:"launchError,omitempty"`
}

// LoadScenario loads a scenario from YAML
func LoadScenario(in io.Reader) (*Scenario, error) {
	fc, err := io.ReadAll(in)
	if err != nil {
		return nil, err
	}

	var res Scenario
	err = yaml.Unmarshal(fc, &res)
	if err != nil {
		return nil, err
	}

	return &res, nil
}

// Runner produces a fake runner scripted by this scenario
func (s *Scenario) Runner() *FakeRunner {
	return &FakeRunner{Responses: s.Responses}
}

// Invocation is a command the fake runner was asked to run
type Invocation struct {
	Name             string
	Args             []string
	Input            string
	Silent           bool
	IgnoreReturnCode bool
}

// String returns the command line of the invocation
func (i Invocation) String() string {
	return strings.Join(append([]string{i.Name}, i.Args...), " ")
}

// FakeRunner records invocations instead of running commands
type FakeRunner struct {
	Responses   []Response
	Invocations []Invocation
}

var _ snapbuild.Runner = &FakeRunner{}

// Run implements snapbuild.Runner
func (r *FakeRunner) Run(ctx context.Context, name string, args []string, opts snapbuild.RunOptions) (int, error) {
	inv := Invocation{
		Name:             name,
		Args:             append([]string(nil), args...),
		Input:            string(opts.Input),
		Silent:           opts.Silent,
		IgnoreReturnCode: opts.IgnoreReturnCode,
	}
	r.Invocations = append(r.Invocations, inv)

	var resp Response
	for _, candidate := range r.Responses {
		if candidate.Command == inv.String() {
			resp = candidate
			break
		}
	}
	if resp.LaunchError != "" {
		return -1, errors.New(resp.LaunchError)
	}
	if resp.Stdout != "" && opts.Stdout != nil {
		io.WriteString(opts.Stdout, resp.Stdout)
	}
	if resp.ExitCode != 0 && !opts.IgnoreReturnCode {
		return resp.ExitCode, &snapbuild.CommandError{Command: inv.String(), ExitCode: resp.ExitCode}
	}
	return resp.ExitCode, nil
}

// Commands returns the command lines of all invocations in order
func (r *FakeRunner) Commands() []string {
	res := make([]string, 0, len(r.Invocations))
	for _, inv := range r.Invocations {
		res = append(res, inv.String())
	}
	return res
}

// Invocation returns the first invocation with the given command line
func (r *FakeRunner) Invocation(cmdline string) (Invocation, bool) {
	for _, inv := range r.Invocations {
		if inv.String() == cmdline {
			return inv, true
		}
	}
	return Invocation{}, false
}

// FakeHost is a host with a fixed set of executables
type FakeHost struct {
	Executables  []string `yaml:"executables"`
	RootUID      uint32   `yaml:"rootUID"`
	RootGID      uint32   `yaml:"rootGID"`
	User         string   `yaml:"user"`
	RootOwnerErr string   `yaml:"rootOwnerErr,omitempty"`
}

var _ snapbuild.Host = FakeHost{}

// HaveExecutable implements snapbuild.Host
func (h FakeHost) HaveExecutable(path string) bool {
	for _, e := range h.Executables {
		if e == path {
			return true
		}
	}
	return false
}

// RootOwner implements snapbuild.Host
func (h FakeHost) RootOwner() (uid, gid uint32, err error) {
	if h.RootOwnerErr != "" {
		return 0, 0, errors.New(h.RootOwnerErr)
	}
	return h.RootUID, h.RootGID, nil
}

// Username implements snapbuild.Host
func (h FakeHost) Username() (string, error) {
	if h.User == "" {
		return "runner", nil
	}
	return h.User, nil
}
