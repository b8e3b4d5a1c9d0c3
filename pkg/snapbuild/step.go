package snapbuild

import (
	"fmt"
)

// StepStatus describes how a provisioning step ended
type StepStatus int

const (
	// StepDone means the step ran and succeeded
	StepDone StepStatus = iota
	// StepSkipped means there was nothing to do, e.g. because a component was already installed
	StepSkipped
	// StepRecovered means the step failed but the pipeline can carry on regardless
	StepRecovered
	// StepFailed means the step failed and the pipeline must stop
	StepFailed
)

func (s StepStatus) String() string {
	switch s {
	case StepDone:
		return "done"
	case StepSkipped:
		return "skipped"
	case StepRecovered:
		return "recovered"
	case StepFailed:
		return "failed"
	default:
		return fmt.Sprintf("StepStatus(%d)", int(s))
	}
}

// StepResult is the outcome of a single provisioning step
type StepResult struct {
	Step   string
	Status StepStatus
	Err    error
}

// Fatal returns true if the pipeline must not continue after this step
func (r StepResult) Fatal() bool {
	return r.Status == StepFailed
}

func stepDone(step string) StepResult {
	return StepResult{Step: step, Status: StepDone}
}

func stepSkipped(step string) StepResult {
	return StepResult{Step: step, Status: StepSkipped}
}

func stepRecovered(step string, err error) StepResult {
	return StepResult{Step: step, Status: StepRecovered, Err: err}
}

func stepFailed(step string, err error) StepResult {
	return StepResult{Step: step, Status: StepFailed, Err: err}
}

// stepFromError is the common case: any error is fatal
func stepFromError(step string, err error) StepResult {
	if err != nil {
		return stepFailed(step, err)
	}
	return stepDone(step)
}

// StepError is the terminal failure of a provisioning run
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// Names of the provisioning steps in the order they run
const (
	StepInstallSnapd     = "install-snapd"
	StepRootOwnership    = "root-ownership"
	StepRemoveLegacyLXD  = "remove-legacy-lxd"
	StepLXDGroup         = "lxd-group"
	StepLXDGroupMember   = "lxd-group-member"
	StepInstallLXD       = "install-lxd"
	StepInitLXD          = "init-lxd"
	StepConflictQuery    = "conflicting-packages"
	StepLXDNetwork       = "lxd-network"
	StepInstallSnapcraft = "install-snapcraft"
	StepReadProfile      = "read-lxd-profile"
	StepWriteProfile     = "write-lxd-profile"
)
