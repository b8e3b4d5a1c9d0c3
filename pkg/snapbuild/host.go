package snapbuild

import (
	"os/user"

	"golang.org/x/sys/unix"
	"golang.org/x/xerrors"
)

// Host gives the provisioner read-only access to the machine it's preparing.
type Host interface {
	// HaveExecutable reports whether path is present and executable.
	HaveExecutable(path string) bool

	// RootOwner returns the owning user and group of the filesystem root.
	RootOwner() (uid, gid uint32, err error)

	// Username returns the name of the user snapbuild runs as.
	Username() (string, error)
}

// SystemHost is the Host we're actually running on
type SystemHost struct{}

// HaveExecutable implements Host
func (SystemHost) HaveExecutable(path string) bool {
	return HaveExecutable(path)
}

// RootOwner implements Host
func (SystemHost) RootOwner() (uid, gid uint32, err error) {
	var stat unix.Stat_t
	err = unix.Stat("/", &stat)
	if err != nil {
		return 0, 0, xerrors.Errorf("cannot stat /: %w", err)
	}
	return stat.Uid, stat.Gid, nil
}

// Username implements Host
func (SystemHost) Username() (string, error) {
	u, err := user.Current()
	if err != nil {
		return "", xerrors.Errorf("cannot determine current user: %w", err)
	}
	return u.Username, nil
}
