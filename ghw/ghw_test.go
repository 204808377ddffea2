package ghw_test

import (
	"testing"

	"github.com/multiroot-io/multiroot/ghw"
	"github.com/multiroot-io/multiroot/ghw/mocks"
	"github.com/multiroot-io/multiroot/types"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestGHW(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "GHW test suite")
}

var _ = Describe("GHW functions tests", func() {
	var ghwMock mocks.GhwMock
	BeforeEach(func() {
		ghwMock = mocks.GhwMock{}
	})
	AfterEach(func() {
		ghwMock.Clean()
	})
	Describe("With a disk", func() {
		BeforeEach(func() {
			mainDisk := types.Disk{
				Name:      "mmcblk0",
				UUID:      "555",
				SizeBytes: 1 * 1024,
				Partitions: []*types.Partition{
					{
						Name:            "mmcblk0p1",
						FilesystemLabel: "BOOT",
						FS:              "vfat",
						MountPoint:      "/boot",
						Size:            0,
						UUID:            "666",
					},
					{
						Name:            "mmcblk0p2",
						FilesystemLabel: "debian 12",
						FS:              "ext4",
						MountPoint:      "/",
						Size:            0,
						UUID:            "777",
					},
				},
			}

			ghwMock.AddDisk(mainDisk)
			ghwMock.CreateDevices()
		})

		It("Finds the disk and partitions", func() {
			disks := ghw.GetDisks(ghw.NewPaths(ghwMock.Chroot), nil)
			Expect(len(disks)).To(Equal(1), disks)
			Expect(disks[0].Name).To(Equal("mmcblk0"), disks)
			Expect(disks[0].UUID).To(Equal("555"), disks)
			// Expected is size * sectorsize which is 512
			Expect(disks[0].SizeBytes).To(Equal(uint64(1*1024*512)), disks)
			Expect(len(disks[0].Partitions)).To(Equal(2), disks)
			Expect(disks[0].Partitions[0].Name).To(Equal("mmcblk0p1"), disks)
			Expect(disks[0].Partitions[0].FilesystemLabel).To(Equal("BOOT"), disks)
			Expect(disks[0].Partitions[0].FS).To(Equal("vfat"), disks)
			Expect(disks[0].Partitions[0].MountPoint).To(Equal("/boot"), disks)
			Expect(disks[0].Partitions[0].UUID).To(Equal("666"), disks)
			Expect(disks[0].Partitions[0].Path).To(Equal("/dev/mmcblk0p1"), disks)
			Expect(disks[0].Partitions[0].Disk).To(Equal("/dev/mmcblk0"), disks)
			Expect(disks[0].Partitions[1].Name).To(Equal("mmcblk0p2"), disks)
			Expect(disks[0].Partitions[1].FilesystemLabel).To(Equal("debian 12"), disks)
			Expect(disks[0].Partitions[1].MountPoint).To(Equal("/"), disks)
		})

		It("Picks up a partition added after the fact", func() {
			ghwMock.AddPartitionToDisk("mmcblk0", &types.Partition{
				Name: "mmcblk0p3",
				FS:   "ext4",
				UUID: "888",
			})
			disks := ghw.GetDisks(ghw.NewPaths(ghwMock.Chroot), nil)
			Expect(len(disks)).To(Equal(1), disks)
			Expect(len(disks[0].Partitions)).To(Equal(3), disks)
			Expect(disks[0].Partitions[2].Name).To(Equal("mmcblk0p3"), disks)
			Expect(disks[0].Partitions[2].UUID).To(Equal("888"), disks)
			// The rebuilt chroot keeps the existing mountpoints.
			Expect(disks[0].Partitions[1].MountPoint).To(Equal("/"), disks)
		})

		It("Drops a removed partition", func() {
			ghwMock.RemovePartitionFromDisk("mmcblk0", "mmcblk0p2")
			disks := ghw.GetDisks(ghw.NewPaths(ghwMock.Chroot), nil)
			Expect(len(disks)).To(Equal(1), disks)
			Expect(len(disks[0].Partitions)).To(Equal(1), disks)
			Expect(disks[0].Partitions[0].Name).To(Equal("mmcblk0p1"), disks)
		})

		It("Drops a removed disk", func() {
			ghwMock.RemoveDisk("mmcblk0")
			disks := ghw.GetDisks(ghw.NewPaths(ghwMock.Chroot), nil)
			Expect(len(disks)).To(Equal(0), disks)
		})

		It("Finds partitions by path and label", func() {
			disks := ghw.GetDisks(ghw.NewPaths(ghwMock.Chroot), nil)
			Expect(len(disks)).To(Equal(1), disks)
			parts := disks[0].Partitions
			Expect(parts.ByPath("/dev/mmcblk0p2")).ToNot(BeNil())
			Expect(parts.ByPath("/dev/mmcblk0p2").FilesystemLabel).To(Equal("debian 12"))
			Expect(parts.ByLabel("BOOT")).ToNot(BeNil())
			Expect(parts.ByLabel("BOOT").Name).To(Equal("mmcblk0p1"))
			Expect(parts.ByPath("/dev/nothere")).To(BeNil())
			Expect(parts.ByLabel("nothere")).To(BeNil())
		})
	})
	Describe("With no disks", func() {
		It("Finds nothing", func() {
			ghwMock.CreateDevices()
			disks := ghw.GetDisks(ghw.NewPaths(ghwMock.Chroot), nil)
			Expect(len(disks)).To(Equal(0), disks)
		})
	})
	Describe("With a device-mapper device", func() {
		It("Skips it", func() {
			ghwMock.AddDisk(types.Disk{Name: "dm-0", UUID: "999", SizeBytes: 1024})
			ghwMock.AddDisk(types.Disk{Name: "sda", UUID: "111", SizeBytes: 2048})
			ghwMock.CreateDevices()
			disks := ghw.GetDisks(ghw.NewPaths(ghwMock.Chroot), nil)
			Expect(len(disks)).To(Equal(1), disks)
			Expect(disks[0].Name).To(Equal("sda"), disks)
		})
	})
})
