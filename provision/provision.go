// Package provision turns spare partitions into bootable copies of a
// root filesystem and moves the boot configuration between them. The
// heavy lifting is left to the usual tools (mkfs, rsync, the labelers);
// this package orders them and keeps the boot-config invariants intact:
// every provisioned root carries a shadow boot directory whose cmdline
// points back at it, and its fstab mounts it at /.
package provision

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/shlex"
	"github.com/multiroot-io/multiroot/bootcfg"
	"github.com/multiroot-io/multiroot/config"
	"github.com/multiroot-io/multiroot/constants"
	"github.com/multiroot-io/multiroot/label"
	"github.com/multiroot-io/multiroot/shadow"
	"github.com/multiroot-io/multiroot/types"
	"github.com/multiroot-io/multiroot/utils"
	"github.com/twpayne/go-vfs/v4"
)

// Options select what to provision and from where.
type Options struct {
	// Target is the partition to provision: a device path, a bare
	// device name or LABEL=<fs-label>.
	Target string
	// SourceRoot is the tree to clone. Defaults to /.
	SourceRoot string
	// Label overrides the filesystem label otherwise derived from the
	// cloned tree's os-release.
	Label string
	// SwitchTarget, when it names the same partition as Target, also
	// points the live boot configuration at the new root.
	SwitchTarget string
}

// Provision clones a root filesystem onto a spare partition and makes
// it bootable: format, copy, patch the copied fstab, give the new root
// a shadow boot directory with a patched cmdline, and label it. The
// target's previous content is destroyed. A failure after formatting
// leaves the target mounted for inspection and is reported as
// PartialState; the partition must be provisioned again before use.
func Provision(cfg *config.Config, opts Options) error {
	part, err := checkTarget(cfg, opts.Target)
	if err != nil {
		return err
	}
	source := opts.SourceRoot
	if source == "" {
		source = constants.DefaultSourceRoot
	}
	cfg.Logger.Infof("Provisioning %s from %s", part.Path, source)

	if err := pipeline(cfg, part.Path, source, "", opts); err != nil {
		return err
	}
	cfg.Logger.Infof("Provisioned %s", part.Path)
	return nil
}

// pipeline runs the steps shared by Provision and Install: format,
// mount, clone, optional boot switch, label, unmount. Everything after
// the format is reported as PartialState on failure.
func pipeline(cfg *config.Config, device, source, bootSource string, opts Options) error {
	if err := Format(cfg, device); err != nil {
		return err
	}
	mountpoint, err := mountTarget(cfg, device, cfg.FSType)
	if err != nil {
		return err
	}
	if err := clone(cfg, device, source, bootSource, mountpoint); err != nil {
		return err
	}
	if switches(device, opts) {
		if err := pointBootAt(cfg, filepath.Join(mountpoint, constants.ShadowBootDir, cfg.CmdlineFile)); err != nil {
			return types.NewError(types.PartialState, "switch", err)
		}
	}
	if err := applyLabel(cfg, device, mountpoint, opts.Label); err != nil {
		return err
	}
	if err := utils.CleanupMount(cfg, mountpoint); err != nil {
		return types.NewError(types.PartialState, "cleanup", err)
	}
	return nil
}

// checkTarget resolves the target spec and refuses partitions already
// doing a job: the active root, the boot partition, anything mounted.
func checkTarget(cfg *config.Config, target string) (*types.Partition, error) {
	part, err := utils.ResolvePartition(cfg, target)
	if err != nil {
		return nil, err
	}
	active, err := utils.ActiveRoot(cfg)
	if err != nil {
		return nil, err
	}
	if part.Path == active {
		return nil, types.NewErrorf(types.ResourceBusy, "target", "%s is the active root", part.Path)
	}
	if part.Path == utils.BootDevice(cfg) {
		return nil, types.NewErrorf(types.ResourceBusy, "target", "%s is the boot partition", part.Path)
	}
	points, err := utils.MountPointsOf(cfg, part.Path)
	if err != nil {
		return nil, err
	}
	if len(points) > 0 {
		return nil, types.NewErrorf(types.ResourceBusy, "target", "%s is mounted at %s", part.Path, strings.Join(points, ", "))
	}
	return part, nil
}

// Format creates a fresh filesystem on device. Destructive. ext*
// filesystems get eager metadata initialization so the first boot off a
// slow SD card does not stall on background init.
func Format(cfg *config.Config, device string) error {
	mkfs := fmt.Sprintf("mkfs.%s", cfg.FSType)
	if !cfg.Runner.CommandExists(mkfs) {
		return types.NewErrorf(types.ExternalToolFailure, "format", "%s not found", mkfs)
	}
	var args []string
	switch {
	case strings.HasPrefix(cfg.FSType, "ext"):
		args = append(args, "-F", "-E", "lazy_itable_init=0,lazy_journal_init=0")
	case cfg.FSType == "xfs", cfg.FSType == "btrfs", cfg.FSType == "f2fs":
		args = append(args, "-f")
	}
	extra, err := shlex.Split(cfg.MkfsOptions)
	if err != nil {
		return types.NewErrorf(types.InvalidArgument, "format", "parsing mkfs options %q: %v", cfg.MkfsOptions, err)
	}
	args = append(append(args, extra...), device)
	cfg.Logger.Infof("Formatting %s as %s", device, cfg.FSType)
	if _, err := cfg.Runner.Run(mkfs, args...); err != nil {
		return types.NewError(types.ExternalToolFailure, "format", err)
	}
	return nil
}

// mountTarget mounts the freshly formatted device at a unique temporary
// mountpoint.
func mountTarget(cfg *config.Config, device, fsType string) (string, error) {
	mountpoint, err := utils.TempMountDir(cfg, "target")
	if err != nil {
		return "", types.NewError(types.PartialState, "mount", err)
	}
	if err := utils.Mount(cfg, device, mountpoint, fsType); err != nil {
		return "", types.NewError(types.PartialState, "mount", err)
	}
	return mountpoint, nil
}

// clone copies the source tree onto the mounted target and rewrites the
// copied boot configuration: fstab root device, shadow boot directory,
// shadow cmdline. bootSource overrides where the shadow content comes
// from; empty means the live boot partition.
func clone(cfg *config.Config, device, source, bootSource, mountpoint string) error {
	if err := utils.SyncTree(cfg, source, mountpoint, cfg.Excludes...); err != nil {
		return types.NewError(types.PartialState, "sync", err)
	}
	if err := bootcfg.UpdateFstab(cfg.Fs, filepath.Join(mountpoint, constants.FstabPath), device); err != nil {
		return types.NewError(types.PartialState, "fstab", err)
	}
	shadowDir := filepath.Join(mountpoint, constants.ShadowBootDir)
	if bootSource == "" {
		err := shadow.BackupTo(cfg, shadowDir)
		if err != nil {
			return types.NewError(types.PartialState, "shadow", err)
		}
	} else {
		if err := vfs.MkdirAll(cfg.Fs, shadowDir, constants.DirPerm); err != nil {
			return types.NewError(types.PartialState, "shadow", err)
		}
		if err := utils.SyncTree(cfg, bootSource, shadowDir); err != nil {
			return types.NewError(types.PartialState, "shadow", err)
		}
	}
	if err := bootcfg.UpdateCmdline(cfg.Fs, filepath.Join(shadowDir, cfg.CmdlineFile), device); err != nil {
		return types.NewError(types.PartialState, "cmdline", err)
	}
	return nil
}

// switches reports whether opts pair this provisioning with a switch to
// the same partition.
func switches(device string, opts Options) bool {
	if opts.SwitchTarget == "" {
		return false
	}
	return opts.SwitchTarget == opts.Target || utils.NormalizeDevice(opts.SwitchTarget) == device
}

// pointBootAt first preserves the running root's view of the boot
// partition in its own shadow, then copies the freshly patched cmdline
// onto the live boot partition so the next boot picks the new root.
func pointBootAt(cfg *config.Config, cmdline string) error {
	if err := shadow.Backup(cfg); err != nil {
		return err
	}
	live := filepath.Join(cfg.BootMount, cfg.CmdlineFile)
	cfg.Logger.Infof("Updating %s", live)
	return utils.CopyFile(cfg.Fs, cmdline, live)
}

// applyLabel labels the new root, composing the label from the cloned
// tree's os-release unless one was given.
func applyLabel(cfg *config.Config, device, mountpoint, name string) error {
	var err error
	if name == "" {
		name, err = label.Compute(cfg, mountpoint)
		if err != nil {
			return types.NewError(types.PartialState, "label", err)
		}
	}
	if err := label.Apply(cfg, device, name); err != nil {
		return types.NewError(types.PartialState, "label", err)
	}
	return nil
}
