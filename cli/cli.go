// Package cli binds every operation to a command. Global flags build
// one immutable Config up front; each command passes it down and maps
// its error to the exit code of the error's kind.
package cli

import (
	"fmt"

	"github.com/multiroot-io/multiroot/bus"
	"github.com/multiroot-io/multiroot/config"
	"github.com/multiroot-io/multiroot/types"
	"github.com/pterm/pterm"
	"github.com/urfave/cli/v2"
)

var (
	verboseFlag = &cli.BoolFlag{
		Name:    "verbose",
		Aliases: []string{"v"},
		Usage:   "log debug output",
	}

	quietFlag = &cli.BoolFlag{
		Name:  "quiet",
		Usage: "log to the log file only",
	}

	configFlag = &cli.StringFlag{
		Name:  "config",
		Usage: "read settings from `FILE`",
	}

	bootDeviceFlag = &cli.StringFlag{
		Name:  "boot-device",
		Usage: "partition holding the boot configuration the firmware reads",
	}

	bootMountFlag = &cli.StringFlag{
		Name:  "boot-mount",
		Usage: "where the boot partition is, or gets, mounted",
	}

	fsTypeFlag = &cli.StringFlag{
		Name:  "fs-type",
		Usage: "filesystem created on provisioned targets",
	}

	sourceFlag = &cli.StringFlag{
		Name:  "source",
		Value: "/",
		Usage: "root tree to clone",
	}

	labelFlag = &cli.StringFlag{
		Name:  "label",
		Usage: "filesystem label for the target (default: derived from its os-release)",
	}

	switchFlag = &cli.BoolFlag{
		Name:  "switch",
		Usage: "also point the live boot configuration at the new root",
	}

	yesFlag = &cli.BoolFlag{
		Name:    "yes",
		Aliases: []string{"y"},
		Usage:   "skip confirmation prompts",
	}
)

// NewApp assembles the multiroot command tree.
func NewApp(version string) *cli.App {
	return &cli.App{
		Name:    "multiroot",
		Usage:   "several bootable root partitions behind one boot partition",
		Version: version,
		Flags: []cli.Flag{
			verboseFlag, quietFlag, configFlag,
			bootDeviceFlag, bootMountFlag, fsTypeFlag,
		},
		Commands: Commands(),
	}
}

// buildConfig turns the global flags (and the optional config file) into
// the one Config every operation receives. Flags win over the file.
func buildConfig(c *cli.Context) (*config.Config, error) {
	level := "info"
	if c.Bool(verboseFlag.Name) {
		level = "debug"
	}
	cfg := config.NewConfig(
		config.WithLogger(types.NewMultirootLogger("multiroot", level, c.Bool(quietFlag.Name))),
	)
	cfg.Debug = c.Bool(verboseFlag.Name)
	if path := c.String(configFlag.Name); path != "" {
		if err := cfg.Load(path); err != nil {
			return nil, types.NewError(types.InvalidArgument, "config", err)
		}
	}
	if v := c.String(bootDeviceFlag.Name); v != "" {
		cfg.BootDevice = v
	}
	if v := c.String(bootMountFlag.Name); v != "" {
		cfg.BootMount = v
	}
	if v := c.String(fsTypeFlag.Name); v != "" {
		cfg.FSType = v
	}
	cfg.Sanitize()
	return cfg, nil
}

// hooks returns the event bus with provider hooks loaded.
func hooks(cfg *config.Config) *bus.Bus {
	b := bus.NewBus()
	b.Initialize(bus.WithLogger(cfg.Logger))
	return b
}

// exit maps an operation error to its process exit code.
func exit(err error) error {
	if err == nil {
		return nil
	}
	return cli.Exit(err.Error(), types.ExitCode(err))
}

// confirmDestructive asks before wiping a partition unless --yes was
// given. Declining aborts before anything on disk changes.
func confirmDestructive(c *cli.Context, device string) error {
	if c.Bool(yesFlag.Name) {
		return nil
	}
	ok, err := pterm.DefaultInteractiveConfirm.Show(
		fmt.Sprintf("All data on %s will be lost. Continue?", device))
	if err != nil {
		return err
	}
	if !ok {
		return types.NewErrorf(types.InvalidArgument, "confirm", "aborted by user")
	}
	return nil
}
