package provision

import (
	"fmt"
	"strings"
	"time"

	"github.com/avast/retry-go"
	"github.com/diskfs/go-diskfs"
	"github.com/diskfs/go-diskfs/partition/gpt"
	"github.com/diskfs/go-diskfs/partition/mbr"
	"github.com/multiroot-io/multiroot/config"
	"github.com/multiroot-io/multiroot/types"
	"github.com/multiroot-io/multiroot/utils"
)

// Install provisions a target partition from a raw disk image instead
// of the running system. The image is attached read-only to a loop
// device; its largest Linux partition becomes the source tree and its
// boot partition feeds the new root's shadow directory.
func Install(cfg *config.Config, image string, opts Options) error {
	part, err := checkTarget(cfg, opts.Target)
	if err != nil {
		return err
	}
	layout, err := imageLayout(image)
	if err != nil {
		return err
	}

	loop, err := attach(cfg, image)
	if err != nil {
		return err
	}
	defer func() {
		if derr := detach(cfg, loop); derr != nil {
			cfg.Logger.Warnf("Detaching %s: %s", loop, derr.Error())
		}
	}()

	rootMount, bootMount, err := mountImageParts(cfg, loop, layout)
	if err != nil {
		return err
	}
	defer func() {
		for _, dir := range []string{bootMount, rootMount} {
			if cerr := utils.CleanupMount(cfg, dir); cerr != nil {
				cfg.Logger.Warnf("Cleaning up %s: %s", dir, cerr.Error())
			}
		}
	}()

	cfg.Logger.Infof("Provisioning %s from image %s", part.Path, image)
	if err := pipeline(cfg, part.Path, rootMount, bootMount, opts); err != nil {
		return err
	}
	cfg.Logger.Infof("Provisioned %s from %s", part.Path, image)
	return nil
}

type imageLayoutInfo struct {
	boot int // 1-based index of the image's boot partition
	root int // 1-based index of the image's root partition
}

// imageLayout inspects the image's partition table and picks the boot
// partition (first FAT or EFI system partition) and the root (largest
// Linux partition).
func imageLayout(image string) (imageLayoutInfo, error) {
	var layout imageLayoutInfo
	d, err := diskfs.Open(image, diskfs.WithOpenMode(diskfs.ReadOnly))
	if err != nil {
		return layout, types.NewErrorf(types.InvalidArgument, "install", "opening image %s: %v", image, err)
	}
	defer d.Close()
	table, err := d.GetPartitionTable()
	if err != nil {
		return layout, types.NewErrorf(types.InvalidArgument, "install", "reading partition table of %s: %v", image, err)
	}
	switch t := table.(type) {
	case *mbr.Table:
		var biggest uint32
		for i, p := range t.Partitions {
			switch p.Type {
			case mbr.Fat32LBA, mbr.Fat32CHS, mbr.EFISystem:
				if layout.boot == 0 {
					layout.boot = i + 1
				}
			case mbr.Linux:
				if p.Size > biggest {
					biggest = p.Size
					layout.root = i + 1
				}
			}
		}
	case *gpt.Table:
		var biggest uint64
		for i, p := range t.Partitions {
			switch p.Type {
			case gpt.EFISystemPartition, gpt.MicrosoftBasicData:
				if layout.boot == 0 {
					layout.boot = i + 1
				}
			case gpt.LinuxFilesystem:
				if size := p.End - p.Start; size > biggest {
					biggest = size
					layout.root = i + 1
				}
			}
		}
	default:
		return layout, types.NewErrorf(types.InvalidArgument, "install", "%s: unsupported partition table %s", image, table.Type())
	}
	if layout.boot == 0 || layout.root == 0 {
		return layout, types.NewErrorf(types.InvalidArgument, "install", "%s does not contain both a boot and a Linux root partition", image)
	}
	return layout, nil
}

// attach maps the image onto a free loop device with partition scanning
// and returns the device path.
func attach(cfg *config.Config, image string) (string, error) {
	if !cfg.Runner.CommandExists("losetup") {
		return "", types.NewErrorf(types.ExternalToolFailure, "attach", "losetup not found")
	}
	out, err := cfg.Runner.Run("losetup", "--find", "--show", "-r", "-P", image)
	if err != nil {
		return "", types.NewError(types.ExternalToolFailure, "attach", err)
	}
	loop := strings.TrimSpace(string(out))
	if !strings.HasPrefix(loop, "/dev/loop") {
		return "", types.NewErrorf(types.ExternalToolFailure, "attach", "unexpected losetup output %q", loop)
	}
	return loop, nil
}

func detach(cfg *config.Config, loop string) error {
	_, err := cfg.Runner.Run("losetup", "-d", loop)
	return err
}

// mountImageParts mounts the image's root and boot partitions read-only
// and returns their mountpoints.
func mountImageParts(cfg *config.Config, loop string, layout imageLayoutInfo) (rootMount, bootMount string, err error) {
	rootDev := utils.PartitionDevice(loop, layout.root)
	bootDev := utils.PartitionDevice(loop, layout.boot)
	if err := waitForNodes(cfg, rootDev, bootDev); err != nil {
		return "", "", types.NewError(types.ExternalToolFailure, "attach", err)
	}
	rootMount, err = mountReadOnly(cfg, rootDev, "image-root")
	if err != nil {
		return "", "", err
	}
	bootMount, err = mountReadOnly(cfg, bootDev, "image-boot")
	if err != nil {
		if cerr := utils.CleanupMount(cfg, rootMount); cerr != nil {
			cfg.Logger.Warnf("Cleaning up %s: %s", rootMount, cerr.Error())
		}
		return "", "", err
	}
	return rootMount, bootMount, nil
}

func mountReadOnly(cfg *config.Config, device, name string) (string, error) {
	dir, err := utils.TempMountDir(cfg, name)
	if err != nil {
		return "", err
	}
	if err := utils.Mount(cfg, device, dir, "", "ro"); err != nil {
		return "", err
	}
	return dir, nil
}

// waitForNodes waits for the kernel to publish the partition device
// nodes announced by losetup -P. udev needs a moment on slow boards.
func waitForNodes(cfg *config.Config, devices ...string) error {
	return retry.Do(
		func() error {
			for _, device := range devices {
				if !utils.Exists(cfg.Fs, device) {
					return fmt.Errorf("%s not present yet", device)
				}
			}
			return nil
		}, retry.Delay(200*time.Millisecond), retry.Attempts(25),
	)
}
