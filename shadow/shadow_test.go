package shadow_test

import (
	"path/filepath"
	"testing"

	"github.com/multiroot-io/multiroot/config"
	"github.com/multiroot-io/multiroot/shadow"
	"github.com/multiroot-io/multiroot/types"
	"github.com/multiroot-io/multiroot/types/mocks"
	"github.com/multiroot-io/multiroot/utils"
	"github.com/twpayne/go-vfs/v4/vfst"
	mountUtils "k8s.io/mount-utils"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestShadow(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Shadow test suite")
}

var _ = Describe("Shadow boot configuration", func() {
	var cfg *config.Config
	var runner *mocks.FakeRunner
	var mounter *mountUtils.FakeMounter
	var fs *vfst.TestFS
	var cleanup func()

	BeforeEach(func() {
		var err error
		// The live cmdline points at another root, as it does while a
		// switch is pending.
		fs, cleanup, err = vfst.NewTestFS(map[string]interface{}{
			"/boot/cmdline.txt": "root=/dev/mmcblk0p3 quiet\n",
		})
		Expect(err).ToNot(HaveOccurred())
		runner = mocks.NewFakeRunner()
		// Rsync is faked, so materialize the one file the assertions need.
		runner.SideEffect = func(command string, args ...string) ([]byte, error) {
			if command == "rsync" {
				src := filepath.Join(args[len(args)-2], "cmdline.txt")
				dst := filepath.Join(args[len(args)-1], "cmdline.txt")
				if utils.Exists(fs, src) {
					return nil, utils.CopyFile(fs, src, dst)
				}
			}
			return nil, nil
		}
		mounter = mountUtils.NewFakeMounter([]mountUtils.MountPoint{
			{Device: "/dev/mmcblk0p2", Path: "/", Type: "ext4"},
			{Device: "/dev/mmcblk0p1", Path: "/boot", Type: "vfat"},
		})
		cfg = config.NewConfig(
			config.WithLogger(types.NewNullLogger()),
			config.WithFs(fs),
			config.WithRunner(runner),
			config.WithMounter(mounter),
		)
	})
	AfterEach(func() {
		cleanup()
	})

	Describe("Backup", func() {
		It("mirrors the live boot partition into the root's shadow dir", func() {
			Expect(shadow.Backup(cfg)).To(Succeed())
			Expect(runner.CmdsMatch([][]string{{
				"rsync", "-aHAXS", "--numeric-ids", "-x", "--delete",
				"/boot/", "/boot.shadow/",
			}})).To(Succeed())
			info, err := fs.Stat("/boot.shadow")
			Expect(err).ToNot(HaveOccurred())
			Expect(info.IsDir()).To(BeTrue())
		})

		It("re-points the copied cmdline at the root that owns the shadow", func() {
			Expect(shadow.Backup(cfg)).To(Succeed())
			content, err := fs.ReadFile("/boot.shadow/cmdline.txt")
			Expect(err).ToNot(HaveOccurred())
			Expect(string(content)).To(Equal("root=/dev/mmcblk0p2 quiet\n"))
		})

		It("reuses an existing shadow dir", func() {
			Expect(shadow.Backup(cfg)).To(Succeed())
			Expect(shadow.Backup(cfg)).To(Succeed())
			Expect(len(runner.Cmds())).To(Equal(2))
		})
	})

	Describe("BackupTo", func() {
		It("mirrors the boot partition into the given dir", func() {
			Expect(shadow.BackupTo(cfg, "/mnt/target/boot.shadow")).To(Succeed())
			Expect(runner.CmdsMatch([][]string{{
				"rsync", "-aHAXS", "--numeric-ids", "-x", "--delete",
				"/boot/", "/mnt/target/boot.shadow/",
			}})).To(Succeed())
		})

		It("mounts the boot partition on demand and leaves it mounted", func() {
			mounter = mountUtils.NewFakeMounter([]mountUtils.MountPoint{
				{Device: "/dev/mmcblk0p2", Path: "/", Type: "ext4"},
			})
			cfg.Mounter = mounter
			cfg.BootDevice = "mmcblk0p1"

			Expect(shadow.BackupTo(cfg, "/mnt/target/boot.shadow")).To(Succeed())

			log := mounter.GetLog()
			Expect(log).To(HaveLen(1))
			Expect(log[0].Action).To(Equal(mountUtils.FakeActionMount))
			Expect(log[0].Source).To(Equal("/dev/mmcblk0p1"))
			Expect(log[0].Target).To(Equal("/boot"))
			// No unmount afterwards
			for _, action := range mounter.GetLog() {
				Expect(action.Action).ToNot(Equal(mountUtils.FakeActionUnmount))
			}
		})

		It("fails when nothing is mounted and no boot device is configured", func() {
			mounter = mountUtils.NewFakeMounter(nil)
			cfg.Mounter = mounter

			err := shadow.BackupTo(cfg, "/mnt/target/boot.shadow")
			Expect(err).To(HaveOccurred())
			Expect(types.KindOf(err)).To(Equal(types.InvalidArgument))
			Expect(runner.Cmds()).To(BeEmpty())
		})
	})

	Describe("Restore", func() {
		It("mirrors a shadow dir onto the live boot partition", func() {
			Expect(vfstMkdir(fs, "/boot.shadow")).To(Succeed())
			Expect(shadow.Restore(cfg, "/boot.shadow")).To(Succeed())
			Expect(runner.CmdsMatch([][]string{{
				"rsync", "-aHAXS", "--numeric-ids", "-x", "--delete",
				"/boot.shadow/", "/boot/",
			}})).To(Succeed())
		})

		It("refuses to restore a missing shadow dir", func() {
			err := shadow.Restore(cfg, "/mnt/other/boot.shadow")
			Expect(err).To(HaveOccurred())
			Expect(types.KindOf(err)).To(Equal(types.InvalidArgument))
			Expect(runner.Cmds()).To(BeEmpty())
		})
	})
})

func vfstMkdir(fs *vfst.TestFS, path string) error {
	return fs.Mkdir(path, 0755)
}
