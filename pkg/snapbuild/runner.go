package snapbuild

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	log "github.com/sirupsen/logrus"
	"golang.org/x/xerrors"
)

// RunOptions configure a single command execution
type RunOptions struct {
	// Silent suppresses the command echo and the command's output on Output.
	Silent bool

	// IgnoreReturnCode turns a non-zero exit status into a plain exit code rather than an error.
	IgnoreReturnCode bool

	// Stdout receives everything the command writes to stdout, regardless of Silent.
	Stdout io.Writer

	// Input is fed to the command's stdin.
	Input []byte

	// Output is where non-silent commands are echoed and stream their output to.
	// Defaults to os.Stdout.
	Output io.Writer

	// Dir is the working directory of the command
	Dir string

	// Env replaces the process environment of the command if non-nil
	Env []string
}

// Runner executes external commands.
type Runner interface {
	// Run executes name with args and returns its exit code. Commands which cannot
	// be started always produce an error, non-zero exit codes only if opts.IgnoreReturnCode is false.
	Run(ctx context.Context, name string, args []string, opts RunOptions) (exitCode int, err error)
}

// CommandError is returned when a command exits with a non-zero status
type CommandError struct {
	Command  string
	ExitCode int
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s failed with exit code %d", e.Command, e.ExitCode)
}

// ExecRunner runs commands on the local machine
type ExecRunner struct{}

// Run implements Runner
func (ExecRunner) Run(ctx context.Context, name string, args []string, opts RunOptions) (exitCode int, err error) {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	if opts.Silent {
		out = io.Discard
	}

	bin, err := exec.LookPath(name)
	if err != nil {
		return -1, xerrors.Errorf("cannot find %s: %w", name, err)
	}
	cmdline := strings.Join(append([]string{name}, args...), " ")
	fmt.Fprintf(out, "[command]%s\n", strings.Join(append([]string{bin}, args...), " "))
	log.WithField("command", cmdline).Debug("running")

	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Dir = opts.Dir
	cmd.Env = opts.Env
	cmd.Stderr = out
	if opts.Stdout != nil {
		cmd.Stdout = io.MultiWriter(opts.Stdout, out)
	} else {
		cmd.Stdout = out
	}
	if opts.Input != nil {
		cmd.Stdin = bytes.NewReader(opts.Input)
	}

	err = cmd.Run()
	if exitErr, ok := err.(*exec.ExitError); ok {
		exitCode = exitErr.ExitCode()
		if opts.IgnoreReturnCode {
			return exitCode, nil
		}
		return exitCode, &CommandError{Command: cmdline, ExitCode: exitCode}
	}
	if err != nil {
		return -1, xerrors.Errorf("cannot run %s: %w", cmdline, err)
	}
	return 0, nil
}

// sudo runs a privileged command
func sudo(ctx context.Context, r Runner, out io.Writer, args ...string) error {
	_, err := r.Run(ctx, "sudo", args, RunOptions{Output: out})
	return err
}
