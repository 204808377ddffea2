// Package config carries the immutable settings and the collaborators
// every operation works through. Build one Config up front, pass it down
// explicitly; nothing in this project reads configuration from globals.
package config

import (
	"github.com/multiroot-io/multiroot/constants"
	"github.com/multiroot-io/multiroot/types"
	"github.com/twpayne/go-vfs/v4"
	"gopkg.in/yaml.v3"
	mountUtils "k8s.io/mount-utils"
)

type Config struct {
	// FSType is the filesystem created on targets when provisioning.
	FSType string `yaml:"fs_type,omitempty"`
	// MkfsOptions are extra options appended to the mkfs invocation,
	// split shell-style.
	MkfsOptions string `yaml:"mkfs_options,omitempty"`
	// RsyncOptions are extra options appended to every rsync invocation,
	// split shell-style.
	RsyncOptions string `yaml:"rsync_options,omitempty"`
	// Excludes replace the default volatile-path excludes when set.
	Excludes []string `yaml:"excludes,omitempty"`
	// BootDevice is the partition holding the boot configuration the
	// firmware reads. Empty means discover it from the mount table.
	BootDevice string `yaml:"boot_device,omitempty"`
	// BootMount is where the boot partition lives (or gets mounted).
	BootMount string `yaml:"boot_mount,omitempty"`
	// CmdlineFile is the kernel command line file name on the boot
	// partition, cmdline.txt on the boards this targets.
	CmdlineFile string `yaml:"cmdline_file,omitempty"`
	Debug       bool   `yaml:"debug,omitempty"`

	Logger  types.MultirootLogger `yaml:"-"`
	Fs      types.FS              `yaml:"-"`
	Runner  types.Runner          `yaml:"-"`
	Mounter mountUtils.Interface  `yaml:"-"`
}

type GenericOptions func(c *Config)

func WithLogger(logger types.MultirootLogger) GenericOptions {
	return func(c *Config) { c.Logger = logger }
}

func WithFs(fs types.FS) GenericOptions {
	return func(c *Config) { c.Fs = fs }
}

func WithRunner(runner types.Runner) GenericOptions {
	return func(c *Config) { c.Runner = runner }
}

func WithMounter(mounter mountUtils.Interface) GenericOptions {
	return func(c *Config) { c.Mounter = mounter }
}

func WithFSType(fsType string) GenericOptions {
	return func(c *Config) { c.FSType = fsType }
}

func WithBootDevice(device string) GenericOptions {
	return func(c *Config) { c.BootDevice = device }
}

func WithBootMount(mount string) GenericOptions {
	return func(c *Config) { c.BootMount = mount }
}

func WithCmdlineFile(name string) GenericOptions {
	return func(c *Config) { c.CmdlineFile = name }
}

func WithExcludes(excludes ...string) GenericOptions {
	return func(c *Config) { c.Excludes = excludes }
}

// NewConfig assembles a Config with working defaults, applies the given
// options and fills anything still missing.
func NewConfig(opts ...GenericOptions) *Config {
	c := &Config{
		Fs:      vfs.OSFS,
		Logger:  types.NewMultirootLogger("multiroot", "info", false),
		Mounter: mountUtils.New(""),
	}
	for _, o := range opts {
		o(c)
	}
	c.Sanitize()
	return c
}

// Sanitize fills empty fields with their defaults and propagates the
// logger into the runner.
func (c *Config) Sanitize() {
	if c.FSType == "" {
		c.FSType = constants.DefaultFSType
	}
	if c.BootMount == "" {
		c.BootMount = constants.DefaultBootMount
	}
	if c.CmdlineFile == "" {
		c.CmdlineFile = constants.DefaultCmdlineFile
	}
	if len(c.Excludes) == 0 {
		c.Excludes = constants.DefaultSyncExcludes()
	}
	if c.Runner == nil {
		c.Runner = &types.RealRunner{}
	}
	c.Runner.SetLogger(c.Logger)
}

// Load overlays the YAML file at path on top of c. Fields the file does
// not mention keep their current values.
func (c *Config) Load(path string) error {
	data, err := c.Fs.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return err
	}
	c.Sanitize()
	return nil
}
