package utils

import (
	"strings"

	"github.com/multiroot-io/multiroot/config"
	"github.com/multiroot-io/multiroot/ghw"
	"github.com/multiroot-io/multiroot/types"
)

// ResolvePartition finds the partition a target spec names. A spec is a
// device path (/dev/sdb2), a bare device name (sdb2) or LABEL=<fs-label>.
func ResolvePartition(cfg *config.Config, target string) (*types.Partition, error) {
	if target == "" {
		return nil, types.NewErrorf(types.InvalidArgument, "resolve", "no target partition given")
	}
	disks := ghw.GetDisks(ghw.NewPaths(""), &cfg.Logger)
	if label, ok := strings.CutPrefix(target, "LABEL="); ok {
		for _, d := range disks {
			if p := d.Partitions.ByLabel(label); p != nil {
				return p, nil
			}
		}
		return nil, types.NewErrorf(types.InvalidArgument, "resolve", "no partition with filesystem label %q", label)
	}
	device := NormalizeDevice(target)
	for _, d := range disks {
		if p := d.Partitions.ByPath(device); p != nil {
			return p, nil
		}
	}
	return nil, types.NewErrorf(types.InvalidArgument, "resolve", "no partition %s", device)
}

// ListPartitions returns every partition of every disk.
func ListPartitions(cfg *config.Config) types.PartitionList {
	var out types.PartitionList
	for _, d := range ghw.GetDisks(ghw.NewPaths(""), &cfg.Logger) {
		out = append(out, d.Partitions...)
	}
	return out
}
