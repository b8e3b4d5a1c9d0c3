package snapbuild

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetOutputFile(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "output")
	require.NoError(t, os.WriteFile(fn, []byte("other=1\n"), 0644))

	var stdout bytes.Buffer
	require.NoError(t, setOutput(fn, &stdout, "snap", "/home/runner/work/hello_1.0_amd64.snap"))

	fc, err := os.ReadFile(fn)
	require.NoError(t, err)
	re := regexp.MustCompile(`^other=1\nsnap<<(ghadelimiter_[0-9a-f-]{36})\n/home/runner/work/hello_1\.0_amd64\.snap\n(ghadelimiter_[0-9a-f-]{36})\n$`)
	m := re.FindStringSubmatch(string(fc))
	require.NotNil(t, m, string(fc))
	assert.Equal(t, m[1], m[2])
	assert.Empty(t, stdout.String())
}

func TestSetOutputWithoutFile(t *testing.T) {
	var stdout bytes.Buffer
	require.NoError(t, setOutput("", &stdout, "snap", "a%b\nc"))
	assert.Equal(t, "::set-output name=snap::a%25b%0Ac\n", stdout.String())
}

func TestFormatFailure(t *testing.T) {
	err := &StepError{Step: StepInitLXD, Err: errors.New("first line\nsecond line")}
	assert.Equal(t, "::error::init-lxd failed: first line%0Asecond line", FormatFailure(err))
}
