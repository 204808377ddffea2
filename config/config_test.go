package config_test

import (
	"testing"

	"github.com/multiroot-io/multiroot/config"
	"github.com/multiroot-io/multiroot/constants"
	"github.com/multiroot-io/multiroot/types"
	"github.com/twpayne/go-vfs/v4/vfst"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestConfig(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Config test suite")
}

var _ = Describe("Config", func() {
	It("fills working defaults", func() {
		cfg := config.NewConfig(config.WithLogger(types.NewNullLogger()))
		Expect(cfg.FSType).To(Equal("ext4"))
		Expect(cfg.BootMount).To(Equal("/boot"))
		Expect(cfg.CmdlineFile).To(Equal("cmdline.txt"))
		Expect(cfg.Excludes).To(Equal(constants.DefaultSyncExcludes()))
		Expect(cfg.Fs).ToNot(BeNil())
		Expect(cfg.Runner).ToNot(BeNil())
		Expect(cfg.Mounter).ToNot(BeNil())
	})

	It("lets options override defaults", func() {
		cfg := config.NewConfig(
			config.WithLogger(types.NewNullLogger()),
			config.WithFSType("btrfs"),
			config.WithBootDevice("mmcblk0p1"),
			config.WithBootMount("/boot/firmware"),
			config.WithCmdlineFile("cmdline"),
			config.WithExcludes("/scratch/*"),
		)
		Expect(cfg.FSType).To(Equal("btrfs"))
		Expect(cfg.BootDevice).To(Equal("mmcblk0p1"))
		Expect(cfg.BootMount).To(Equal("/boot/firmware"))
		Expect(cfg.CmdlineFile).To(Equal("cmdline"))
		Expect(cfg.Excludes).To(Equal([]string{"/scratch/*"}))
	})

	It("propagates the logger into the runner", func() {
		logger := types.NewNullLogger()
		cfg := config.NewConfig(config.WithLogger(logger))
		Expect(cfg.Runner.GetLogger()).To(Equal(logger))
	})

	Describe("Load", func() {
		var fs *vfst.TestFS
		var cleanup func()

		AfterEach(func() {
			cleanup()
		})

		It("overlays the file on the defaults", func() {
			var err error
			fs, cleanup, err = vfst.NewTestFS(map[string]interface{}{
				"/etc/multiroot.yaml": "fs_type: f2fs\nboot_mount: /boot/firmware\nexcludes:\n  - /scratch/*\n",
			})
			Expect(err).ToNot(HaveOccurred())
			cfg := config.NewConfig(config.WithLogger(types.NewNullLogger()), config.WithFs(fs))

			Expect(cfg.Load("/etc/multiroot.yaml")).To(Succeed())
			Expect(cfg.FSType).To(Equal("f2fs"))
			Expect(cfg.BootMount).To(Equal("/boot/firmware"))
			Expect(cfg.Excludes).To(Equal([]string{"/scratch/*"}))
			// Untouched fields keep their defaults.
			Expect(cfg.CmdlineFile).To(Equal("cmdline.txt"))
		})

		It("fails on a missing file", func() {
			var err error
			fs, cleanup, err = vfst.NewTestFS(map[string]interface{}{})
			Expect(err).ToNot(HaveOccurred())
			cfg := config.NewConfig(config.WithLogger(types.NewNullLogger()), config.WithFs(fs))
			Expect(cfg.Load("/etc/multiroot.yaml")).ToNot(Succeed())
		})

		It("fails on malformed yaml", func() {
			var err error
			fs, cleanup, err = vfst.NewTestFS(map[string]interface{}{
				"/etc/multiroot.yaml": "fs_type: [broken\n",
			})
			Expect(err).ToNot(HaveOccurred())
			cfg := config.NewConfig(config.WithLogger(types.NewNullLogger()), config.WithFs(fs))
			Expect(cfg.Load("/etc/multiroot.yaml")).ToNot(Succeed())
		})
	})
})
