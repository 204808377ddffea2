package bootcfg_test

import (
	"testing"

	"github.com/multiroot-io/multiroot/bootcfg"
	"github.com/twpayne/go-vfs/v4/vfst"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestBootCfg(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "BootCfg test suite")
}

const sampleFstab = "proc            /proc           proc    defaults          0       0\n" +
	"PARTUUID=6c586e13-01  /boot     vfat    defaults          0       2\n" +
	"/dev/mmcblk0p2  /               ext4    defaults,noatime  0       1\n" +
	"# swap was here once\n" +
	"\n" +
	"tmpfs           /var/log        tmpfs   nodev,nosuid      0       0\n"

const sampleCmdline = "console=serial0,115200 console=tty1 root=/dev/mmcblk0p2 rootfstype=ext4 fsck.repair=yes rootwait quiet\n"

var _ = Describe("Boot configuration rewriting", func() {
	var fs *vfst.TestFS
	var cleanup func()
	var err error

	AfterEach(func() {
		cleanup()
	})

	Describe("UpdateFstab", func() {
		BeforeEach(func() {
			fs, cleanup, err = vfst.NewTestFS(map[string]interface{}{
				"/etc/fstab": sampleFstab,
			})
			Expect(err).ToNot(HaveOccurred())
		})

		It("patches only the root entry's source field", func() {
			err = bootcfg.UpdateFstab(fs, "/etc/fstab", "mmcblk0p3")
			Expect(err).ToNot(HaveOccurred())
			content, err := fs.ReadFile("/etc/fstab")
			Expect(err).ToNot(HaveOccurred())
			Expect(string(content)).To(Equal(
				"proc            /proc           proc    defaults          0       0\n" +
					"PARTUUID=6c586e13-01  /boot     vfat    defaults          0       2\n" +
					"/dev/mmcblk0p3  /               ext4    defaults,noatime  0       1\n" +
					"# swap was here once\n" +
					"\n" +
					"tmpfs           /var/log        tmpfs   nodev,nosuid      0       0\n"))
		})

		It("accepts the device with or without the /dev prefix", func() {
			err = bootcfg.UpdateFstab(fs, "/etc/fstab", "/dev/mmcblk0p3")
			Expect(err).ToNot(HaveOccurred())
			withPrefix, _ := fs.ReadFile("/etc/fstab")

			fs2, cleanup2, err := vfst.NewTestFS(map[string]interface{}{
				"/etc/fstab": sampleFstab,
			})
			Expect(err).ToNot(HaveOccurred())
			defer cleanup2()
			err = bootcfg.UpdateFstab(fs2, "/etc/fstab", "mmcblk0p3")
			Expect(err).ToNot(HaveOccurred())
			withoutPrefix, _ := fs2.ReadFile("/etc/fstab")

			Expect(string(withPrefix)).To(Equal(string(withoutPrefix)))
		})

		It("is idempotent", func() {
			Expect(bootcfg.UpdateFstab(fs, "/etc/fstab", "sdb2")).To(Succeed())
			once, _ := fs.ReadFile("/etc/fstab")
			Expect(bootcfg.UpdateFstab(fs, "/etc/fstab", "sdb2")).To(Succeed())
			twice, _ := fs.ReadFile("/etc/fstab")
			Expect(string(twice)).To(Equal(string(once)))
			Expect(string(twice)).ToNot(ContainSubstring("/dev//dev"))
		})

		It("leaves a file that already points at the device unchanged", func() {
			err = bootcfg.UpdateFstab(fs, "/etc/fstab", "mmcblk0p2")
			Expect(err).ToNot(HaveOccurred())
			content, _ := fs.ReadFile("/etc/fstab")
			Expect(string(content)).To(Equal(sampleFstab))
		})

		It("errors when no root entry exists", func() {
			fs2, cleanup2, err := vfst.NewTestFS(map[string]interface{}{
				"/etc/fstab": "proc /proc proc defaults 0 0\n",
			})
			Expect(err).ToNot(HaveOccurred())
			defer cleanup2()
			err = bootcfg.UpdateFstab(fs2, "/etc/fstab", "sdb2")
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("no root entry"))
		})

		It("does not touch entries whose mount point merely starts with /", func() {
			fs2, cleanup2, err := vfst.NewTestFS(map[string]interface{}{
				"/etc/fstab": "/dev/sda1 /data ext4 defaults 0 2\n/dev/sda2 / ext4 defaults 0 1\n",
			})
			Expect(err).ToNot(HaveOccurred())
			defer cleanup2()
			err = bootcfg.UpdateFstab(fs2, "/etc/fstab", "sdb2")
			Expect(err).ToNot(HaveOccurred())
			content, _ := fs2.ReadFile("/etc/fstab")
			Expect(string(content)).To(Equal("/dev/sda1 /data ext4 defaults 0 2\n/dev/sdb2 / ext4 defaults 0 1\n"))
		})

		It("patches tab-separated entries without rewriting the tabs", func() {
			fs2, cleanup2, err := vfst.NewTestFS(map[string]interface{}{
				"/etc/fstab": "/dev/sda2\t/\text4\tdefaults\t0\t1\n",
			})
			Expect(err).ToNot(HaveOccurred())
			defer cleanup2()
			err = bootcfg.UpdateFstab(fs2, "/etc/fstab", "sdb2")
			Expect(err).ToNot(HaveOccurred())
			content, _ := fs2.ReadFile("/etc/fstab")
			Expect(string(content)).To(Equal("/dev/sdb2\t/\text4\tdefaults\t0\t1\n"))
		})

		It("errors when the file is missing", func() {
			err = bootcfg.UpdateFstab(fs, "/etc/nope", "sdb2")
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("UpdateCmdline", func() {
		BeforeEach(func() {
			fs, cleanup, err = vfst.NewTestFS(map[string]interface{}{
				"/boot/cmdline.txt": sampleCmdline,
			})
			Expect(err).ToNot(HaveOccurred())
		})

		It("replaces the root= value in the middle of the line", func() {
			err = bootcfg.UpdateCmdline(fs, "/boot/cmdline.txt", "sda2")
			Expect(err).ToNot(HaveOccurred())
			content, _ := fs.ReadFile("/boot/cmdline.txt")
			Expect(string(content)).To(Equal(
				"console=serial0,115200 console=tty1 root=/dev/sda2 rootfstype=ext4 fsck.repair=yes rootwait quiet\n"))
		})

		It("replaces a root= token at the start of the line", func() {
			fs2, cleanup2, err := vfst.NewTestFS(map[string]interface{}{
				"/boot/cmdline.txt": "root=/dev/sda1 quiet\n",
			})
			Expect(err).ToNot(HaveOccurred())
			defer cleanup2()
			err = bootcfg.UpdateCmdline(fs2, "/boot/cmdline.txt", "sda2")
			Expect(err).ToNot(HaveOccurred())
			content, _ := fs2.ReadFile("/boot/cmdline.txt")
			Expect(string(content)).To(Equal("root=/dev/sda2 quiet\n"))
		})

		It("replaces a root= token at the end of the line without a newline", func() {
			fs2, cleanup2, err := vfst.NewTestFS(map[string]interface{}{
				"/boot/cmdline.txt": "quiet root=/dev/sda1",
			})
			Expect(err).ToNot(HaveOccurred())
			defer cleanup2()
			err = bootcfg.UpdateCmdline(fs2, "/boot/cmdline.txt", "sda2")
			Expect(err).ToNot(HaveOccurred())
			content, _ := fs2.ReadFile("/boot/cmdline.txt")
			Expect(string(content)).To(Equal("quiet root=/dev/sda2"))
		})

		It("does not treat nfsroot= as a root= parameter", func() {
			fs2, cleanup2, err := vfst.NewTestFS(map[string]interface{}{
				"/boot/cmdline.txt": "nfsroot=10.0.0.1:/srv root=/dev/sda1 rw\n",
			})
			Expect(err).ToNot(HaveOccurred())
			defer cleanup2()
			err = bootcfg.UpdateCmdline(fs2, "/boot/cmdline.txt", "sda2")
			Expect(err).ToNot(HaveOccurred())
			content, _ := fs2.ReadFile("/boot/cmdline.txt")
			Expect(string(content)).To(Equal("nfsroot=10.0.0.1:/srv root=/dev/sda2 rw\n"))
		})

		It("is idempotent", func() {
			Expect(bootcfg.UpdateCmdline(fs, "/boot/cmdline.txt", "sda2")).To(Succeed())
			once, _ := fs.ReadFile("/boot/cmdline.txt")
			Expect(bootcfg.UpdateCmdline(fs, "/boot/cmdline.txt", "/dev/sda2")).To(Succeed())
			twice, _ := fs.ReadFile("/boot/cmdline.txt")
			Expect(string(twice)).To(Equal(string(once)))
			Expect(string(twice)).ToNot(ContainSubstring("/dev//dev"))
		})

		It("errors when no root= parameter exists", func() {
			fs2, cleanup2, err := vfst.NewTestFS(map[string]interface{}{
				"/boot/cmdline.txt": "console=tty1 quiet\n",
			})
			Expect(err).ToNot(HaveOccurred())
			defer cleanup2()
			err = bootcfg.UpdateCmdline(fs2, "/boot/cmdline.txt", "sda2")
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("no root= parameter"))
		})
	})

	Describe("CmdlineRoot", func() {
		It("returns the device the command line boots from", func() {
			fs, cleanup, err = vfst.NewTestFS(map[string]interface{}{
				"/boot/cmdline.txt": sampleCmdline,
			})
			Expect(err).ToNot(HaveOccurred())
			root, err := bootcfg.CmdlineRoot(fs, "/boot/cmdline.txt")
			Expect(err).ToNot(HaveOccurred())
			Expect(root).To(Equal("/dev/mmcblk0p2"))
		})

		It("errors when the parameter is missing", func() {
			fs, cleanup, err = vfst.NewTestFS(map[string]interface{}{
				"/boot/cmdline.txt": "quiet\n",
			})
			Expect(err).ToNot(HaveOccurred())
			_, err := bootcfg.CmdlineRoot(fs, "/boot/cmdline.txt")
			Expect(err).To(HaveOccurred())
		})
	})
})
