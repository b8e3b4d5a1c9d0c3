package snapbuild

import (
	"context"
	"io"

	log "github.com/sirupsen/logrus"
	"golang.org/x/xerrors"
)

// MobyPackages are the Docker packages found on GitHub runners. Their firewall rules drop LXD bridge traffic.
var MobyPackages = []string{
	"moby-buildx",
	"moby-engine",
	"moby-cli",
	"moby-compose",
	"moby-containerd",
	"moby-runc",
}

// EnsureSnapd installs snapd unless it's present already, and repairs the ownership of /
// which snap-confine insists on.
func (p *Provisioner) EnsureSnapd(ctx context.Context) error {
	err := p.do(StepInstallSnapd, func(out io.Writer) StepResult {
		if p.host.HaveExecutable(SnapdBinary) {
			return stepSkipped(StepInstallSnapd)
		}

		log.Info("Installing snapd...")
		err := sudo(ctx, p.runner, out, "apt-get", "update", "-q")
		if err != nil {
			return stepFailed(StepInstallSnapd, err)
		}
		return stepFromError(StepInstallSnapd, sudo(ctx, p.runner, out, "apt-get", "install", "-qy", "snapd"))
	})
	if err != nil {
		return err
	}

	// GitHub runners come with odd ownership of the root directory which trips up snap-confine.
	return p.do(StepRootOwnership, func(out io.Writer) StepResult {
		uid, gid, err := p.host.RootOwner()
		if err != nil {
			return stepFailed(StepRootOwnership, err)
		}
		if uid == 0 && gid == 0 {
			return stepSkipped(StepRootOwnership)
		}

		log.WithField("uid", uid).WithField("gid", gid).Debug("/ is not owned by root")
		return stepFromError(StepRootOwnership, sudo(ctx, p.runner, out, "chown", "root:root", "/"))
	})
}

// InstalledPackages returns those of pkgs which dpkg knows as installed, in the order given.
// A package that is not installed is not an error, only failing to run dpkg is.
func InstalledPackages(ctx context.Context, r Runner, pkgs []string) ([]string, error) {
	var res []string
	for _, pkg := range pkgs {
		exitCode, err := r.Run(ctx, "dpkg", []string{"-l", pkg}, RunOptions{Silent: true, IgnoreReturnCode: true})
		if err != nil {
			return nil, xerrors.Errorf("cannot query package %s: %w", pkg, err)
		}
		if exitCode == 0 {
			res = append(res, pkg)
		}
	}
	return res, nil
}
