// Package constants This file contains all the constants that can be reused across the project
package constants

import "os"

const (
	FilePerm = os.FileMode(0644)
	DirPerm  = os.FileMode(0755)

	// ShadowBootDir is the directory kept at the top level of every
	// provisioned root partition with a full copy of the boot partition
	// content that partition expects.
	ShadowBootDir = "boot.shadow"

	// Boot configuration files inside a root tree / boot partition.
	FstabPath          = "etc/fstab"
	DefaultCmdlineFile = "cmdline.txt"

	// OS identity files, first match wins.
	OSReleasePath         = "etc/os-release"
	OSReleaseFallbackPath = "usr/lib/os-release"

	// Runtime scratch space for temporary mountpoints.
	RunDir = "/run/multiroot"

	DefaultBootMount  = "/boot"
	DefaultFSType     = "ext4"
	DefaultSourceRoot = "/"

	// Event bus plugin prefix, binaries are discovered as multiroot-hook-*.
	BusPluginPrefix = "multiroot-hook"

	LogDir  = "/var/log/multiroot"
	LogFile = "multiroot.log"
)

// DefaultSyncExcludes are the volatile paths never copied into a target
// root tree. The shadow boot directory is excluded too: provisioning
// rebuilds it from the live boot partition afterwards.
func DefaultSyncExcludes() []string {
	return []string{
		"/dev/*",
		"/proc/*",
		"/sys/*",
		"/run/*",
		"/tmp/*",
		"/var/tmp/*",
		"/mnt/*",
		"/media/*",
		"/lost+found",
		"/" + ShadowBootDir,
	}
}

// DefaultRsyncFlags carry ownership, hardlinks, ACLs, xattrs and sparse
// files across, stay on one filesystem and delete extraneous files so a
// re-sync converges to the source tree.
func DefaultRsyncFlags() []string {
	return []string{"-aHAXS", "--numeric-ids", "-x", "--delete"}
}
