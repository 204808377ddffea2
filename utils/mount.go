package utils

import (
	"fmt"
	"path/filepath"

	"github.com/gofrs/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/multiroot-io/multiroot/config"
	"github.com/multiroot-io/multiroot/constants"
	"github.com/multiroot-io/multiroot/types"
	"github.com/twpayne/go-vfs/v4"
)

// TempMountDir creates a fresh, uniquely named mountpoint under the run
// dir so concurrent invocations never collide.
func TempMountDir(cfg *config.Config, name string) (string, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return "", fmt.Errorf("generating mountpoint id: %w", err)
	}
	dir := filepath.Join(constants.RunDir, fmt.Sprintf("%s-%s", name, id.String()))
	if err := vfs.MkdirAll(cfg.Fs, dir, constants.DirPerm); err != nil {
		return "", fmt.Errorf("creating mountpoint %s: %w", dir, err)
	}
	return dir, nil
}

// Mount mounts device on dir with the given filesystem type.
func Mount(cfg *config.Config, device, dir, fsType string, options ...string) error {
	cfg.Logger.Logger.Debug().Str("device", device).Str("dir", dir).Str("fs", fsType).Msg("Mounting")
	if err := cfg.Mounter.Mount(device, dir, fsType, options); err != nil {
		return types.NewError(types.ExternalToolFailure, "mount", err)
	}
	return nil
}

// CleanupMount unmounts dir and removes the directory, aggregating both
// failures so neither hides the other.
func CleanupMount(cfg *config.Config, dir string) error {
	var result *multierror.Error
	cfg.Logger.Logger.Debug().Str("dir", dir).Msg("Unmounting")
	if err := cfg.Mounter.Unmount(dir); err != nil {
		result = multierror.Append(result, fmt.Errorf("unmounting %s: %w", dir, err))
	}
	if err := cfg.Fs.RemoveAll(dir); err != nil {
		result = multierror.Append(result, fmt.Errorf("removing %s: %w", dir, err))
	}
	return result.ErrorOrNil()
}

// DeviceAt returns the device mounted at path, or empty when nothing is.
func DeviceAt(cfg *config.Config, path string) (string, error) {
	mounts, err := cfg.Mounter.List()
	if err != nil {
		return "", fmt.Errorf("listing mounts: %w", err)
	}
	for _, m := range mounts {
		if m.Path == path {
			return m.Device, nil
		}
	}
	return "", nil
}

// MountPointsOf returns every path the device is currently mounted at.
func MountPointsOf(cfg *config.Config, device string) ([]string, error) {
	device = NormalizeDevice(device)
	mounts, err := cfg.Mounter.List()
	if err != nil {
		return nil, fmt.Errorf("listing mounts: %w", err)
	}
	var points []string
	for _, m := range mounts {
		if m.Device == device {
			points = append(points, m.Path)
		}
	}
	return points, nil
}

// ActiveRoot returns the device mounted at /.
func ActiveRoot(cfg *config.Config) (string, error) {
	device, err := DeviceAt(cfg, "/")
	if err != nil {
		return "", err
	}
	if device == "" {
		return "", fmt.Errorf("no device mounted at /")
	}
	return device, nil
}

// BootDevice returns the configured boot partition device, falling back
// to whatever is mounted at the boot mountpoint. Empty when neither is
// known.
func BootDevice(cfg *config.Config) string {
	if cfg.BootDevice != "" {
		return NormalizeDevice(cfg.BootDevice)
	}
	device, err := DeviceAt(cfg, cfg.BootMount)
	if err != nil {
		return ""
	}
	return device
}
