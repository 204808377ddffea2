package types

// Partition describes one block-device partition as this tool sees it:
// enough identity to pick provisioning targets and report state.
type Partition struct {
	Name            string `json:"name,omitempty" yaml:"name,omitempty"`
	FilesystemLabel string `json:"label,omitempty" yaml:"label,omitempty"`
	// Size in MiB
	Size       uint   `json:"size,omitempty" yaml:"size,omitempty"`
	FS         string `json:"fs,omitempty" yaml:"fs,omitempty"`
	UUID       string `json:"uuid,omitempty" yaml:"uuid,omitempty"`
	MountPoint string `json:"mount_point,omitempty" yaml:"mount_point,omitempty"`
	Path       string `json:"path,omitempty" yaml:"path,omitempty"`
	Disk       string `json:"disk,omitempty" yaml:"disk,omitempty"`
}

type PartitionList []*Partition

// ByPath returns the partition whose device path matches, or nil.
func (pl PartitionList) ByPath(path string) *Partition {
	for _, p := range pl {
		if p.Path == path {
			return p
		}
	}
	return nil
}

// ByLabel returns the partition whose filesystem label matches, or nil.
func (pl PartitionList) ByLabel(label string) *Partition {
	for _, p := range pl {
		if p.FilesystemLabel == label {
			return p
		}
	}
	return nil
}

// Disk is a block device together with its scanned partitions.
type Disk struct {
	Name       string        `json:"name,omitempty" yaml:"name,omitempty"`
	UUID       string        `json:"uuid,omitempty" yaml:"uuid,omitempty"`
	SizeBytes  uint64        `json:"size_bytes,omitempty" yaml:"size_bytes,omitempty"`
	Partitions PartitionList `json:"partitions,omitempty" yaml:"partitions,omitempty"`
}
