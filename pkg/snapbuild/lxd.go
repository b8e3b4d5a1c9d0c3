package snapbuild

import (
	"context"
	"io"

	log "github.com/sirupsen/logrus"
)

// LXDGroup is the system group whose members may talk to the LXD daemon
const LXDGroup = "lxd"

// EnsureLXD installs or refreshes the LXD snap, makes the current user a member of the lxd group
// and initialises LXD. A deb packaged LXD is removed first.
func (p *Provisioner) EnsureLXD(ctx context.Context) error {
	if p.host.HaveExecutable(LegacyLXDBinary) {
		err := p.do(StepRemoveLegacyLXD, func(out io.Writer) StepResult {
			log.Info("Removing legacy .deb packaged LXD...")
			return stepFromError(StepRemoveLegacyLXD, sudo(ctx, p.runner, out, "apt-get", "remove", "-qy", "lxd", "lxd-client"))
		})
		if err != nil {
			return err
		}
	}

	username, err := p.host.Username()
	if err != nil {
		return &StepError{Step: StepLXDGroupMember, Err: err}
	}
	log.Infof("Ensuring %s is in the lxd group...", username)
	err = p.do(StepLXDGroup, func(out io.Writer) StepResult {
		return stepFromError(StepLXDGroup, sudo(ctx, p.runner, out, "groupadd", "--force", "--system", LXDGroup))
	})
	if err != nil {
		return err
	}
	err = p.do(StepLXDGroupMember, func(out io.Writer) StepResult {
		return stepFromError(StepLXDGroupMember, sudo(ctx, p.runner, out, "usermod", "--append", "--groups", LXDGroup, username))
	})
	if err != nil {
		return err
	}

	err = p.do(StepInstallLXD, func(out io.Writer) StepResult {
		log.Info("Installing LXD...")
		if p.host.HaveExecutable(LXDBinary) {
			// LXD might be on the latest revision already, or the store hiccups. The installed LXD will do.
			err := sudo(ctx, p.runner, out, "snap", "refresh", "lxd")
			if err != nil {
				log.Info("LXD could not be refreshed...")
				return stepRecovered(StepInstallLXD, err)
			}
			return stepDone(StepInstallLXD)
		}
		return stepFromError(StepInstallLXD, sudo(ctx, p.runner, out, "snap", "install", "lxd"))
	})
	if err != nil {
		return err
	}

	err = p.do(StepInitLXD, func(out io.Writer) StepResult {
		log.Info("Initialising LXD...")
		return stepFromError(StepInitLXD, sudo(ctx, p.runner, out, "lxd", "init", "--auto"))
	})
	if err != nil {
		return err
	}

	return p.EnsureLXDNetwork(ctx)
}

// EnsureLXDNetwork makes sure Docker's firewall rules don't drop traffic from the LXD bridge.
// Removing Docker would be cleaner, but some pipelines depend on it. Instead we set the FORWARD
// policy to ACCEPT, whether Docker is installed or not.
// See https://linuxcontainers.org/lxd/docs/master/howto/network_bridge_firewalld/#prevent-issues-with-lxd-and-docker
func (p *Provisioner) EnsureLXDNetwork(ctx context.Context) error {
	err := p.do(StepConflictQuery, func(out io.Writer) StepResult {
		installed, err := InstalledPackages(ctx, p.runner, MobyPackages)
		if err != nil {
			return stepFailed(StepConflictQuery, err)
		}
		p.report.ConflictingPackages = installed
		log.Infof("Installed docker related packages might interfere with LXD networking: %v", installed)
		return stepDone(StepConflictQuery)
	})
	if err != nil {
		return err
	}

	return p.do(StepLXDNetwork, func(out io.Writer) StepResult {
		return stepFromError(StepLXDNetwork, sudo(ctx, p.runner, out, "iptables", "-P", "FORWARD", "ACCEPT"))
	})
}
