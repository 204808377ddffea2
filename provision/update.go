package provision

import (
	"github.com/multiroot-io/multiroot/config"
	"github.com/multiroot-io/multiroot/constants"
	"github.com/multiroot-io/multiroot/label"
	"github.com/multiroot-io/multiroot/types"
	"github.com/multiroot-io/multiroot/utils"
)

// Update re-synchronizes an already-provisioned root from a running
// source tree: the same clone-and-patch steps as Provision, minus the
// format. The target must already carry a filesystem.
func Update(cfg *config.Config, opts Options) error {
	part, err := checkTarget(cfg, opts.Target)
	if err != nil {
		return err
	}
	if part.FS == "" || part.FS == "unknown" {
		return types.NewErrorf(types.InvalidArgument, "update", "%s carries no filesystem, provision it first", part.Path)
	}
	source := opts.SourceRoot
	if source == "" {
		source = constants.DefaultSourceRoot
	}
	cfg.Logger.Infof("Updating %s from %s", part.Path, source)

	mountpoint, err := mountTarget(cfg, part.Path, part.FS)
	if err != nil {
		return err
	}
	if err := clone(cfg, part.Path, source, "", mountpoint); err != nil {
		return err
	}
	if opts.Label != "" {
		if err := label.Apply(cfg, part.Path, opts.Label); err != nil {
			return types.NewError(types.PartialState, "label", err)
		}
	}
	if err := utils.CleanupMount(cfg, mountpoint); err != nil {
		return types.NewError(types.PartialState, "cleanup", err)
	}
	cfg.Logger.Infof("Updated %s", part.Path)
	return nil
}
