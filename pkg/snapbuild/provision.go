package snapbuild

import (
	"context"
	"io"

	log "github.com/sirupsen/logrus"
)

// ProvisionReport lists what a provisioning run did
type ProvisionReport struct {
	Steps []StepResult

	// ConflictingPackages are installed Docker packages that might interfere with LXD networking
	ConflictingPackages []string
}

// Provisioner prepares a host for building snaps in LXD
type Provisioner struct {
	runner   Runner
	host     Host
	reporter Reporter

	snapcraftChannel string
	env              Environment
	cache            *CacheCredentials

	report ProvisionReport
}

// ProvisionOption configures a provisioner
type ProvisionOption func(*Provisioner)

// WithRunner configures the command runner used for all external commands
func WithRunner(r Runner) ProvisionOption {
	return func(p *Provisioner) {
		p.runner = r
	}
}

// WithHost configures the host the provisioner probes
func WithHost(h Host) ProvisionOption {
	return func(p *Provisioner) {
		p.host = h
	}
}

// WithReporter sets the reporter which receives step progress
func WithReporter(r Reporter) ProvisionOption {
	return func(p *Provisioner) {
		p.reporter = r
	}
}

// WithSnapcraftChannel sets the snap channel snapcraft is installed from
func WithSnapcraftChannel(channel string) ProvisionOption {
	return func(p *Provisioner) {
		p.snapcraftChannel = channel
	}
}

// WithEnvironment sets the host environment snapshot propagated into the LXD default profile
func WithEnvironment(env Environment) ProvisionOption {
	return func(p *Provisioner) {
		p.env = env
	}
}

// WithGitHubCache enables GitHub cache support inside the build container
func WithGitHubCache(creds *CacheCredentials) ProvisionOption {
	return func(p *Provisioner) {
		p.cache = creds
	}
}

// NewProvisioner creates a provisioner. Without options it runs commands on the local
// machine and reports to the console.
func NewProvisioner(opts ...ProvisionOption) *Provisioner {
	p := &Provisioner{
		runner:           ExecRunner{},
		host:             SystemHost{},
		reporter:         NewConsoleReporter(),
		snapcraftChannel: DefaultSnapcraftChannel,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Provision runs the whole pipeline: snapd, LXD, snapcraft and finally the LXD default profile.
// It stops at the first fatal step.
func (p *Provisioner) Provision(ctx context.Context) (report *ProvisionReport, err error) {
	p.report = ProvisionReport{}
	p.reporter.ProvisionStarted()
	defer func() {
		p.reporter.ProvisionFinished(&p.report, err)
	}()

	err = p.EnsureSnapd(ctx)
	if err != nil {
		return &p.report, err
	}
	err = p.EnsureLXD(ctx)
	if err != nil {
		return &p.report, err
	}
	err = p.EnsureSnapcraft(ctx, p.snapcraftChannel)
	if err != nil {
		return &p.report, err
	}
	err = p.SetupEnvLXD(ctx, p.env, p.cache)
	if err != nil {
		return &p.report, err
	}

	return &p.report, nil
}

// Report returns the steps run so far
func (p *Provisioner) Report() ProvisionReport {
	return p.report
}

func (p *Provisioner) runStep(name string, f func(out io.Writer) StepResult) StepResult {
	p.reporter.StepStarted(name)
	res := f(&reporterStream{R: p.reporter, Step: name})
	res.Step = name

	switch res.Status {
	case StepRecovered:
		log.WithError(res.Err).WithField("step", name).Warn("step failed, continuing")
	case StepFailed:
		log.WithError(res.Err).WithField("step", name).Debug("step failed")
	}

	p.reporter.StepFinished(res)
	p.report.Steps = append(p.report.Steps, res)
	return res
}

// do runs a step and turns a fatal outcome into the terminal error
func (p *Provisioner) do(name string, f func(out io.Writer) StepResult) error {
	res := p.runStep(name, f)
	if res.Fatal() {
		return &StepError{Step: res.Step, Err: res.Err}
	}
	return nil
}

// reporterStream forwards command output to the reporter
type reporterStream struct {
	R    Reporter
	Step string
}

func (s *reporterStream) Write(buf []byte) (n int, err error) {
	s.R.StepLog(s.Step, buf)
	return len(buf), nil
}
