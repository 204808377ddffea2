package provision

import (
	"path/filepath"

	"github.com/hashicorp/go-multierror"
	"github.com/multiroot-io/multiroot/config"
	"github.com/multiroot-io/multiroot/constants"
	"github.com/multiroot-io/multiroot/shadow"
	"github.com/multiroot-io/multiroot/types"
	"github.com/multiroot-io/multiroot/utils"
)

// Switch points the live boot configuration at the given provisioned
// root. The running root's shadow is refreshed first so nothing of the
// current configuration is lost, then the target's shadow content is
// restored onto the boot partition. Switching back to the running root
// is allowed and needs no extra mount.
func Switch(cfg *config.Config, target string) error {
	part, err := utils.ResolvePartition(cfg, target)
	if err != nil {
		return err
	}
	device := part.Path
	if device == utils.BootDevice(cfg) {
		return types.NewErrorf(types.InvalidArgument, "switch", "%s is the boot partition", device)
	}

	if err := shadow.Backup(cfg); err != nil {
		return err
	}

	active, err := utils.ActiveRoot(cfg)
	if err != nil {
		return err
	}
	if device == active {
		if err := shadow.Restore(cfg, filepath.Join("/", constants.ShadowBootDir)); err != nil {
			return restoreErr(err)
		}
		cfg.Logger.Infof("Next boot uses %s", device)
		return nil
	}

	mountpoint, err := utils.TempMountDir(cfg, "switch")
	if err != nil {
		return err
	}
	if err := utils.Mount(cfg, device, mountpoint, part.FS); err != nil {
		return err
	}
	result := shadow.Restore(cfg, filepath.Join(mountpoint, constants.ShadowBootDir))
	if result != nil {
		result = restoreErr(result)
	}
	if err := utils.CleanupMount(cfg, mountpoint); err != nil {
		result = multierror.Append(result, err).ErrorOrNil()
	}
	if result == nil {
		cfg.Logger.Infof("Next boot uses %s", device)
	}
	return result
}

// restoreErr classifies a failed restore. A missing shadow dir means
// the boot partition was never touched and the InvalidArgument passes
// through; anything later may have left the boot partition half-written.
func restoreErr(err error) error {
	if types.KindOf(err) == types.InvalidArgument {
		return err
	}
	return types.NewError(types.PartialState, "switch", err)
}
