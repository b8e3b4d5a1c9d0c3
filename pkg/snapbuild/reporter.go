package snapbuild

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gookit/color"
	"github.com/segmentio/textio"
)

// Reporter provides feedback about the provisioning progress to the user.
//
// Implementers beware: these functions are called synchronously while commands run.
// Blocking in them blocks the provisioning.
type Reporter interface {
	// ProvisionStarted is called once before the first step runs.
	ProvisionStarted()

	// ProvisionFinished is called once the pipeline has finished or hit a fatal step.
	ProvisionFinished(report *ProvisionReport, err error)

	// StepStarted is called before a step runs.
	StepStarted(step string)

	// StepLog is called whenever a command of a step produced output.
	StepLog(step string, buf []byte)

	// StepFinished is called with the outcome of a step.
	StepFinished(res StepResult)
}

// ConsoleReporter reports provisioning progress by printing to stdout
type ConsoleReporter struct {
	out    io.Writer
	writer map[string]io.Writer
	times  map[string]time.Time
	start  time.Time
	mu     sync.Mutex
}

// NewConsoleReporter produces a new console reporter
func NewConsoleReporter() *ConsoleReporter {
	return newConsoleReporter(os.Stdout)
}

func newConsoleReporter(out io.Writer) *ConsoleReporter {
	return &ConsoleReporter{
		out:    out,
		writer: make(map[string]io.Writer),
		times:  make(map[string]time.Time),
	}
}

func (r *ConsoleReporter) getWriter(step string) io.Writer {
	r.mu.Lock()
	defer r.mu.Unlock()

	res, ok := r.writer[step]
	if !ok {
		res = textio.NewPrefixWriter(r.out, color.Gray.Render(fmt.Sprintf("[%s] ", step)))
		r.writer[step] = res
	}
	return res
}

// ProvisionStarted implements Reporter
func (r *ConsoleReporter) ProvisionStarted() {
	r.start = time.Now()
	io.WriteString(r.out, color.Sprintf("<fg=yellow>provisioning started</>\n"))
}

// ProvisionFinished implements Reporter
func (r *ConsoleReporter) ProvisionFinished(report *ProvisionReport, err error) {
	if err != nil {
		io.WriteString(r.out, color.Sprintf("<red>provisioning failed</>\n<white>Reason:</> %s\n", err))
		return
	}

	var recovered []string
	for _, s := range report.Steps {
		if s.Status == StepRecovered {
			recovered = append(recovered, s.Step)
		}
	}
	msg := color.Sprintf("<green>provisioning succeeded</> <gray>(%.2fs)</>\n", time.Since(r.start).Seconds())
	if len(recovered) > 0 {
		msg += color.Sprintf("<yellow>recovered from failures in:</> %s\n", strings.Join(recovered, ", "))
	}
	io.WriteString(r.out, msg)
}

// StepStarted implements Reporter
func (r *ConsoleReporter) StepStarted(step string) {
	r.mu.Lock()
	r.times[step] = time.Now()
	r.mu.Unlock()
}

// StepLog implements Reporter
func (r *ConsoleReporter) StepLog(step string, buf []byte) {
	r.getWriter(step).Write(buf)
}

// StepFinished implements Reporter
func (r *ConsoleReporter) StepFinished(res StepResult) {
	out := r.getWriter(res.Step)

	r.mu.Lock()
	dur := time.Since(r.times[res.Step])
	delete(r.writer, res.Step)
	delete(r.times, res.Step)
	r.mu.Unlock()

	var msg string
	switch res.Status {
	case StepDone:
		msg = color.Sprintf("<green>done</> <gray>(%.2fs)</>\n", dur.Seconds())
	case StepSkipped:
		msg = color.Sprintf("<gray>nothing to do</>\n")
	case StepRecovered:
		msg = color.Sprintf("<yellow>failed, continuing</>\n<white>Reason:</> %s\n", res.Err)
	case StepFailed:
		msg = color.Sprintf("<red>failed</>\n<white>Reason:</> %s\n", res.Err)
	}
	io.WriteString(out, msg)
	if f, ok := out.(interface{ Flush() error }); ok {
		f.Flush()
	}
}

// CompositeReporter forwards all calls to multiple reporters
type CompositeReporter []Reporter

// ProvisionStarted implements Reporter
func (cr CompositeReporter) ProvisionStarted() {
	for _, r := range cr {
		r.ProvisionStarted()
	}
}

// ProvisionFinished implements Reporter
func (cr CompositeReporter) ProvisionFinished(report *ProvisionReport, err error) {
	for _, r := range cr {
		r.ProvisionFinished(report, err)
	}
}

// StepStarted implements Reporter
func (cr CompositeReporter) StepStarted(step string) {
	for _, r := range cr {
		r.StepStarted(step)
	}
}

// StepLog implements Reporter
func (cr CompositeReporter) StepLog(step string, buf []byte) {
	for _, r := range cr {
		r.StepLog(step, buf)
	}
}

// StepFinished implements Reporter
func (cr CompositeReporter) StepFinished(res StepResult) {
	for _, r := range cr {
		r.StepFinished(res)
	}
}

var _ Reporter = CompositeReporter{}

// NoopReporter discards all progress
type NoopReporter struct{}

// ProvisionStarted implements Reporter
func (NoopReporter) ProvisionStarted() {}

// ProvisionFinished implements Reporter
func (NoopReporter) ProvisionFinished(report *ProvisionReport, err error) {}

// StepStarted implements Reporter
func (NoopReporter) StepStarted(step string) {}

// StepLog implements Reporter
func (NoopReporter) StepLog(step string, buf []byte) {}

// StepFinished implements Reporter
func (NoopReporter) StepFinished(res StepResult) {}
