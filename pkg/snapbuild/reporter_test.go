package snapbuild

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

type recordingReporter struct {
	NoopReporter
	events []string
}

func (r *recordingReporter) StepStarted(step string) {
	r.events = append(r.events, "start "+step)
}

func (r *recordingReporter) StepLog(step string, buf []byte) {
	r.events = append(r.events, "log "+step+" "+strings.TrimSpace(string(buf)))
}

func (r *recordingReporter) StepFinished(res StepResult) {
	r.events = append(r.events, "finish "+res.Step+" "+res.Status.String())
}

func TestConsoleReporter(t *testing.T) {
	var out bytes.Buffer
	r := newConsoleReporter(&out)

	r.ProvisionStarted()
	r.StepStarted(StepInstallLXD)
	r.StepLog(StepInstallLXD, []byte("snap \"lxd\" has no updates available\n"))
	res := stepRecovered(StepInstallLXD, errors.New("exit code 1"))
	r.StepFinished(res)
	r.ProvisionFinished(&ProvisionReport{Steps: []StepResult{res}}, nil)

	assert.Contains(t, out.String(), "[install-lxd] ")
	assert.Contains(t, out.String(), "has no updates available")
	assert.Contains(t, out.String(), "exit code 1")
	assert.Contains(t, out.String(), "provisioning succeeded")
	assert.Contains(t, out.String(), "recovered from failures in:")
}

func TestConsoleReporterFailure(t *testing.T) {
	var out bytes.Buffer
	r := newConsoleReporter(&out)

	r.ProvisionStarted()
	r.ProvisionFinished(&ProvisionReport{}, &StepError{Step: StepInitLXD, Err: errors.New("boom")})

	assert.Contains(t, out.String(), "provisioning failed")
	assert.Contains(t, out.String(), "init-lxd failed: boom")
}

func TestCompositeReporter(t *testing.T) {
	a, b := &recordingReporter{}, &recordingReporter{}
	r := CompositeReporter{a, b}

	stream := &reporterStream{R: r, Step: StepInitLXD}
	r.StepStarted(StepInitLXD)
	stream.Write([]byte("initialised\n"))
	r.StepFinished(stepDone(StepInitLXD))

	expected := []string{"start init-lxd", "log init-lxd initialised", "finish init-lxd done"}
	assert.Equal(t, expected, a.events)
	assert.Equal(t, expected, b.events)
}
