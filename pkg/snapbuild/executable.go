package snapbuild

import (
	"os"

	"golang.org/x/sys/unix"
)

const (
	// SnapdBinary is where the snapd client lives once the snapd deb is installed
	SnapdBinary = "/usr/bin/snap"
	// LegacyLXDBinary marks an LXD installation from the pre-snap deb packages
	LegacyLXDBinary = "/usr/bin/lxd"
	// LXDBinary is the snap packaged LXD daemon
	LXDBinary = "/snap/bin/lxd"
	// SnapcraftBinary is the snap packaged snapcraft
	SnapcraftBinary = "/snap/bin/snapcraft"
)

// HaveExecutable returns true if path names a file the current user may execute.
// Any error while probing the path counts as "not there".
func HaveExecutable(path string) bool {
	stat, err := os.Stat(path)
	if err != nil || stat.IsDir() {
		return false
	}
	return unix.Access(path, unix.X_OK) == nil
}
