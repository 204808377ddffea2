package utils

import (
	"fmt"
	"strings"
)

// NormalizeDevice returns the absolute /dev path for a partition that may
// be given with or without the /dev/ prefix. Normalizing early keeps the
// boot-config patchers idempotent, a device never gains a second prefix.
func NormalizeDevice(device string) string {
	if device == "" {
		return ""
	}
	return "/dev/" + strings.TrimPrefix(device, "/dev/")
}

// DeviceName strips the /dev/ prefix from a device path.
func DeviceName(device string) string {
	return strings.TrimPrefix(device, "/dev/")
}

// PartitionDevice composes the device path of partition number n on disk.
// mmcblk, nvme and loop disks separate the partition number with "p".
func PartitionDevice(disk string, n int) string {
	disk = NormalizeDevice(disk)
	if strings.HasPrefix(disk, "/dev/mmcblk") || strings.HasPrefix(disk, "/dev/nvme") || strings.HasPrefix(disk, "/dev/loop") {
		return fmt.Sprintf("%sp%d", disk, n)
	}
	return fmt.Sprintf("%s%d", disk, n)
}
