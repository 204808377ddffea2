// Package shadow keeps per-root copies of the boot partition content.
// One physical boot partition serves several root partitions, so every
// provisioned root carries a shadow directory with the boot files it
// expects; backing up and restoring those copies is what switching the
// active root amounts to.
package shadow

import (
	"fmt"
	"path/filepath"

	"github.com/multiroot-io/multiroot/bootcfg"
	"github.com/multiroot-io/multiroot/config"
	"github.com/multiroot-io/multiroot/constants"
	"github.com/multiroot-io/multiroot/types"
	"github.com/multiroot-io/multiroot/utils"
	"github.com/twpayne/go-vfs/v4"
)

// Backup refreshes the running root's shadow directory from the live
// boot partition. The directory is created on first use. The live
// cmdline may already point at another root (a pending switch); a
// root's shadow must keep booting its owner, so the copied cmdline is
// re-pointed at the active root.
func Backup(cfg *config.Config) error {
	shadowDir := filepath.Join("/", constants.ShadowBootDir)
	if err := BackupTo(cfg, shadowDir); err != nil {
		return err
	}
	active, err := utils.ActiveRoot(cfg)
	if err != nil {
		return err
	}
	return bootcfg.UpdateCmdline(cfg.Fs, filepath.Join(shadowDir, cfg.CmdlineFile), active)
}

// BackupTo mirrors the live boot partition content into shadowDir,
// creating it as needed. Extraneous files in the shadow are deleted so
// the copy converges to the boot partition.
func BackupTo(cfg *config.Config, shadowDir string) error {
	bootMount, err := ensureBootMounted(cfg)
	if err != nil {
		return err
	}
	if err := vfs.MkdirAll(cfg.Fs, shadowDir, constants.DirPerm); err != nil {
		return fmt.Errorf("creating shadow dir %s: %w", shadowDir, err)
	}
	cfg.Logger.Logger.Info().Str("boot", bootMount).Str("shadow", shadowDir).Msg("Backing up boot configuration")
	return utils.SyncTree(cfg, bootMount, shadowDir)
}

// Restore mirrors shadowDir onto the live boot partition, making the
// root that owns the shadow the one the firmware boots next.
func Restore(cfg *config.Config, shadowDir string) error {
	if !utils.IsDir(cfg.Fs, shadowDir) {
		return types.NewErrorf(types.InvalidArgument, "restore", "no shadow boot directory at %s", shadowDir)
	}
	bootMount, err := ensureBootMounted(cfg)
	if err != nil {
		return err
	}
	cfg.Logger.Logger.Info().Str("shadow", shadowDir).Str("boot", bootMount).Msg("Restoring boot configuration")
	return utils.SyncTree(cfg, shadowDir, bootMount)
}

// ensureBootMounted returns the path the live boot partition content is
// reachable at. When nothing is mounted at the configured boot mount,
// the configured boot device gets mounted there and deliberately stays
// mounted, later steps and the next invocation expect it in place.
func ensureBootMounted(cfg *config.Config) (string, error) {
	device, err := utils.DeviceAt(cfg, cfg.BootMount)
	if err != nil {
		return "", types.NewError(types.ExternalToolFailure, "boot", err)
	}
	if device != "" {
		return cfg.BootMount, nil
	}
	if cfg.BootDevice == "" {
		return "", types.NewErrorf(types.InvalidArgument, "boot",
			"nothing mounted at %s and no boot device configured", cfg.BootMount)
	}
	if err := vfs.MkdirAll(cfg.Fs, cfg.BootMount, constants.DirPerm); err != nil {
		return "", fmt.Errorf("creating boot mountpoint %s: %w", cfg.BootMount, err)
	}
	if err := utils.Mount(cfg, utils.NormalizeDevice(cfg.BootDevice), cfg.BootMount, ""); err != nil {
		return "", err
	}
	return cfg.BootMount, nil
}
