package snapbuild

import (
	"context"
	"io"

	log "github.com/sirupsen/logrus"
	"golang.org/x/xerrors"
)

// DefaultSnapcraftChannel is used when no channel was requested
const DefaultSnapcraftChannel = "stable"

// EnsureSnapcraft installs snapcraft from channel, or refreshes it to that channel if it's installed already.
// Unlike LXD a failed refresh is fatal: we cannot build on a snapcraft we did not ask for.
func (p *Provisioner) EnsureSnapcraft(ctx context.Context, channel string) error {
	return p.do(StepInstallSnapcraft, func(out io.Writer) StepResult {
		if channel == "" {
			return stepFailed(StepInstallSnapcraft, xerrors.Errorf("no snapcraft channel given"))
		}

		action := "install"
		if p.host.HaveExecutable(SnapcraftBinary) {
			action = "refresh"
		}
		log.WithField("channel", channel).Info("Installing Snapcraft...")
		return stepFromError(StepInstallSnapcraft, sudo(ctx, p.runner, out, "snap", action, "--channel", channel, "--classic", "snapcraft"))
	})
}
