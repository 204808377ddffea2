// Package label derives and applies the filesystem label that makes a
// provisioned partition recognizable in boot menus and disk tools.
package label

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/multiroot-io/multiroot/config"
	"github.com/multiroot-io/multiroot/constants"
	"github.com/multiroot-io/multiroot/types"
	"github.com/multiroot-io/multiroot/utils"
)

// Compute derives a label from the OS identity of the tree rooted at
// rootPath: "<ID> <VERSION_ID>" out of its os-release file, so a Debian
// 12 tree ends up labelled "debian 12". Both fields must be present.
func Compute(cfg *config.Config, rootPath string) (string, error) {
	files := []string{
		filepath.Join(rootPath, constants.OSReleasePath),
		filepath.Join(rootPath, constants.OSReleaseFallbackPath),
	}
	id, err := utils.OSRelease(cfg.Fs, "ID", files...)
	if err != nil {
		return "", types.NewError(types.MissingIdentity, "label", err)
	}
	versionID, err := utils.OSRelease(cfg.Fs, "VERSION_ID", files...)
	if err != nil {
		return "", types.NewError(types.MissingIdentity, "label", err)
	}
	return fmt.Sprintf("%s %s", id, versionID), nil
}

// Apply sets the filesystem label of device, choosing the labeler that
// matches the partition's filesystem. An empty device labels the
// partition the system is running from. Re-applying a label a partition
// already has is harmless.
func Apply(cfg *config.Config, device, label string) error {
	if label == "" {
		return types.NewErrorf(types.InvalidArgument, "label", "no label given")
	}
	var err error
	if device == "" {
		device, err = utils.ActiveRoot(cfg)
		if err != nil {
			return types.NewError(types.InvalidArgument, "label", err)
		}
	}
	device = utils.NormalizeDevice(device)

	fsType := ""
	if part, err := utils.ResolvePartition(cfg, device); err == nil {
		fsType = part.FS
	}
	if fsType == "" || fsType == "unknown" {
		// Scanning can't tell yet on a freshly formatted partition, the
		// udev database lags mkfs. Fall back to the configured type.
		fsType = cfg.FSType
	}

	var command string
	var args []string
	switch {
	case strings.HasPrefix(fsType, "ext"):
		command, args = "e2label", []string{device, label}
	case fsType == "vfat" || fsType == "fat" || fsType == "msdos":
		command, args = "fatlabel", []string{device, label}
	case fsType == "xfs":
		command, args = "xfs_admin", []string{"-L", label, device}
	case fsType == "btrfs":
		command, args = "btrfs", []string{"filesystem", "label", device, label}
	default:
		return types.NewErrorf(types.InvalidArgument, "label", "don't know how to label %s filesystems", fsType)
	}

	cfg.Logger.Logger.Info().Str("device", device).Str("label", label).Str("fs", fsType).Msg("Applying label")
	if _, err := cfg.Runner.Run(command, args...); err != nil {
		return types.NewError(types.ExternalToolFailure, "label", err)
	}
	return nil
}
