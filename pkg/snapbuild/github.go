package snapbuild

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/xerrors"
)

// EnvvarGitHubOutput names the file GitHub Actions reads step outputs from
const EnvvarGitHubOutput = "GITHUB_OUTPUT"

// SetOutput sets an output of the current action step
func SetOutput(name, value string) error {
	return setOutput(os.Getenv(EnvvarGitHubOutput), os.Stdout, name, value)
}

func setOutput(fn string, stdout io.Writer, name, value string) error {
	if fn == "" {
		_, err := fmt.Fprintf(stdout, "::set-output name=%s::%s\n", name, escapeCommandData(value))
		return err
	}

	delim := "ghadelimiter_" + uuid.NewString()
	if strings.Contains(name, delim) || strings.Contains(value, delim) {
		return xerrors.Errorf("output %s must not contain the delimiter %s", name, delim)
	}

	f, err := os.OpenFile(fn, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return xerrors.Errorf("cannot open %s: %w", fn, err)
	}
	defer f.Close()

	_, err = fmt.Fprintf(f, "%s<<%s\n%s\n%s\n", name, delim, value, delim)
	if err != nil {
		return xerrors.Errorf("cannot write output %s: %w", name, err)
	}
	return nil
}

// FormatFailure renders err as a workflow error annotation
func FormatFailure(err error) string {
	return "::error::" + escapeCommandData(err.Error())
}

func escapeCommandData(s string) string {
	return strings.NewReplacer("%", "%25", "\r", "%0D", "\n", "%0A").Replace(s)
}
