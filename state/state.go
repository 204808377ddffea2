// Package state reports the multi-boot layout of the host: which
// partition holds the boot configuration, which root is running, which
// root the firmware will boot next and which partitions are candidate
// roots.
package state

import (
	"path/filepath"

	"github.com/denisbrodbeck/machineid"
	"github.com/multiroot-io/multiroot/bootcfg"
	"github.com/multiroot-io/multiroot/config"
	"github.com/multiroot-io/multiroot/constants"
	"github.com/multiroot-io/multiroot/types"
	"github.com/multiroot-io/multiroot/utils"
	"github.com/zcalusic/sysinfo"
)

type Host struct {
	Hostname string `json:"hostname,omitempty" yaml:"hostname,omitempty"`
	OS       string `json:"os,omitempty" yaml:"os,omitempty"`
	Kernel   string `json:"kernel,omitempty" yaml:"kernel,omitempty"`
	Arch     string `json:"arch,omitempty" yaml:"arch,omitempty"`
	Board    string `json:"board,omitempty" yaml:"board,omitempty"`
}

// Runtime is a point-in-time snapshot of the multi-boot layout.
type Runtime struct {
	UUID          string              `json:"uuid,omitempty" yaml:"uuid,omitempty"`
	Host          Host                `json:"host,omitempty" yaml:"host,omitempty"`
	BootPartition *types.Partition    `json:"boot_partition,omitempty" yaml:"boot_partition,omitempty"`
	ActiveRoot    *types.Partition    `json:"active_root,omitempty" yaml:"active_root,omitempty"`
	NextBootRoot  string              `json:"next_boot_root,omitempty" yaml:"next_boot_root,omitempty"`
	HasShadow     bool                `json:"has_shadow" yaml:"has_shadow"`
	Roots         types.PartitionList `json:"roots,omitempty" yaml:"roots,omitempty"`
}

// NewRuntime assembles the snapshot. Missing pieces (no boot partition
// mounted, no machine id) degrade to empty fields rather than failing,
// state is a reporting command.
func NewRuntime(cfg *config.Config) (Runtime, error) {
	runtime := Runtime{
		UUID: machineID(),
		Host: hostInfo(),
	}

	bootDevice := utils.BootDevice(cfg)
	activeRoot, err := utils.ActiveRoot(cfg)
	if err != nil {
		cfg.Logger.Logger.Debug().Err(err).Msg("No active root found")
	}

	parts := utils.ListPartitions(cfg)
	runtime.BootPartition = parts.ByPath(bootDevice)
	runtime.ActiveRoot = parts.ByPath(activeRoot)
	runtime.Roots = rootCandidates(parts, bootDevice)
	runtime.HasShadow = utils.IsDir(cfg.Fs, filepath.Join("/", constants.ShadowBootDir))

	if next, err := bootcfg.CmdlineRoot(cfg.Fs, filepath.Join(cfg.BootMount, cfg.CmdlineFile)); err == nil {
		runtime.NextBootRoot = next
	}

	return runtime, nil
}

// rootCandidates filters the partitions that can hold a bootable root
// tree: Linux filesystems that are not the boot partition.
func rootCandidates(parts types.PartitionList, bootDevice string) types.PartitionList {
	out := make(types.PartitionList, 0)
	for _, p := range parts {
		if p.Path == bootDevice {
			continue
		}
		if !isLinuxFS(p.FS) {
			continue
		}
		out = append(out, p)
	}
	return out
}

func isLinuxFS(fs string) bool {
	switch fs {
	case "ext2", "ext3", "ext4", "xfs", "btrfs", "f2fs":
		return true
	}
	return false
}

func machineID() string {
	id, err := machineid.ID()
	if err != nil {
		return ""
	}
	return id
}

func hostInfo() Host {
	var si sysinfo.SysInfo
	si.GetSysInfo()
	return Host{
		Hostname: si.Node.Hostname,
		OS:       si.OS.Name,
		Kernel:   si.Kernel.Release,
		Arch:     si.Kernel.Architecture,
		Board:    si.Board.Name,
	}
}
