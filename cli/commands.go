package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/multiroot-io/multiroot/bus"
	"github.com/multiroot-io/multiroot/config"
	"github.com/multiroot-io/multiroot/constants"
	"github.com/multiroot-io/multiroot/label"
	"github.com/multiroot-io/multiroot/provision"
	"github.com/multiroot-io/multiroot/shadow"
	"github.com/multiroot-io/multiroot/state"
	"github.com/multiroot-io/multiroot/types"
	"github.com/multiroot-io/multiroot/utils"
	"github.com/pterm/pterm"
	"github.com/urfave/cli/v2"
)

// Commands returns every operation the tool exposes. Each command builds
// its Config from the global flags and exits with the code of the error
// kind it failed with.
func Commands() []*cli.Command {
	return []*cli.Command{
		{
			Name:      "copy",
			Usage:     "provision a partition with a copy of the running root",
			ArgsUsage: "<target>",
			Flags:     []cli.Flag{sourceFlag, labelFlag, switchFlag, yesFlag},
			Action: func(c *cli.Context) error {
				cfg, err := buildConfig(c)
				if err != nil {
					return exit(err)
				}
				target := c.Args().First()
				if target == "" {
					return exit(types.NewErrorf(types.InvalidArgument, "copy", "no target partition given"))
				}
				if err := confirmDestructive(c, target); err != nil {
					return exit(err)
				}
				opts := provision.Options{
					Target:     target,
					SourceRoot: c.String(sourceFlag.Name),
					Label:      c.String(labelFlag.Name),
				}
				if c.Bool(switchFlag.Name) {
					opts.SwitchTarget = target
				}
				b := hooks(cfg)
				payload := bus.ProvisionPayload{Target: target, Source: opts.SourceRoot, Label: opts.Label}
				if err := b.PublishEvent(bus.EventBeforeProvision, payload); err != nil {
					return exit(types.NewError(types.ExternalToolFailure, "hook", err))
				}
				if err := provision.Provision(cfg, opts); err != nil {
					return exit(err)
				}
				if err := b.PublishEvent(bus.EventAfterProvision, payload); err != nil {
					cfg.Logger.Warnf("provision.after hook: %s", err.Error())
				}
				return nil
			},
		},
		{
			Name:      "install",
			Usage:     "provision a partition from a raw disk image",
			ArgsUsage: "<image> <target>",
			Flags:     []cli.Flag{labelFlag, switchFlag, yesFlag},
			Action: func(c *cli.Context) error {
				cfg, err := buildConfig(c)
				if err != nil {
					return exit(err)
				}
				image := c.Args().Get(0)
				target := c.Args().Get(1)
				if image == "" || target == "" {
					return exit(types.NewErrorf(types.InvalidArgument, "install", "usage: install <image> <target>"))
				}
				if err := confirmDestructive(c, target); err != nil {
					return exit(err)
				}
				opts := provision.Options{
					Target: target,
					Label:  c.String(labelFlag.Name),
				}
				if c.Bool(switchFlag.Name) {
					opts.SwitchTarget = target
				}
				b := hooks(cfg)
				payload := bus.ProvisionPayload{Target: target, Source: image, Label: opts.Label}
				if err := b.PublishEvent(bus.EventBeforeProvision, payload); err != nil {
					return exit(types.NewError(types.ExternalToolFailure, "hook", err))
				}
				if err := provision.Install(cfg, image, opts); err != nil {
					return exit(err)
				}
				if err := b.PublishEvent(bus.EventAfterProvision, payload); err != nil {
					cfg.Logger.Warnf("provision.after hook: %s", err.Error())
				}
				return nil
			},
		},
		{
			Name:      "switch",
			Usage:     "select the root partition used at next boot",
			ArgsUsage: "[<target>]",
			Flags:     []cli.Flag{yesFlag},
			Action: func(c *cli.Context) error {
				cfg, err := buildConfig(c)
				if err != nil {
					return exit(err)
				}
				target := c.Args().First()
				if target == "" {
					target, err = pickRoot(cfg)
					if err != nil {
						return exit(err)
					}
				}
				active, _ := utils.ActiveRoot(cfg)
				b := hooks(cfg)
				payload := bus.SwitchPayload{Target: target, Current: active}
				if err := b.PublishEvent(bus.EventBeforeSwitch, payload); err != nil {
					return exit(types.NewError(types.ExternalToolFailure, "hook", err))
				}
				if err := provision.Switch(cfg, target); err != nil {
					return exit(err)
				}
				if err := b.PublishEvent(bus.EventAfterSwitch, payload); err != nil {
					cfg.Logger.Warnf("switch.after hook: %s", err.Error())
				}
				return nil
			},
		},
		{
			Name:      "update",
			Usage:     "re-sync an already-provisioned partition from the running root",
			ArgsUsage: "<target>",
			Flags:     []cli.Flag{sourceFlag, labelFlag, yesFlag},
			Action: func(c *cli.Context) error {
				cfg, err := buildConfig(c)
				if err != nil {
					return exit(err)
				}
				target := c.Args().First()
				if target == "" {
					return exit(types.NewErrorf(types.InvalidArgument, "update", "no target partition given"))
				}
				return exit(provision.Update(cfg, provision.Options{
					Target:     target,
					SourceRoot: c.String(sourceFlag.Name),
					Label:      c.String(labelFlag.Name),
				}))
			},
		},
		{
			Name:  "backup",
			Usage: "refresh this root's shadow copy of the boot partition",
			Action: func(c *cli.Context) error {
				cfg, err := buildConfig(c)
				if err != nil {
					return exit(err)
				}
				if err := shadow.Backup(cfg); err != nil {
					return exit(err)
				}
				b := hooks(cfg)
				payload := bus.BackupPayload{BootMount: cfg.BootMount, ShadowDir: "/" + constants.ShadowBootDir}
				if err := b.PublishEvent(bus.EventAfterBackup, payload); err != nil {
					cfg.Logger.Warnf("backup.after hook: %s", err.Error())
				}
				return nil
			},
		},
		{
			Name:      "label",
			Usage:     "set a partition's filesystem label",
			ArgsUsage: "[<device>] <label>",
			Action: func(c *cli.Context) error {
				cfg, err := buildConfig(c)
				if err != nil {
					return exit(err)
				}
				var device, name string
				switch c.NArg() {
				case 1:
					name = c.Args().Get(0)
				case 2:
					device = c.Args().Get(0)
					name = c.Args().Get(1)
				default:
					return exit(types.NewErrorf(types.InvalidArgument, "label", "usage: label [<device>] <label>"))
				}
				return exit(label.Apply(cfg, device, name))
			},
		},
		{
			Name:      "state",
			Usage:     "show the multi-boot layout of this host",
			ArgsUsage: "[<query>]",
			Action: func(c *cli.Context) error {
				cfg, err := buildConfig(c)
				if err != nil {
					return exit(err)
				}
				runtime, err := state.NewRuntime(cfg)
				if err != nil {
					return exit(err)
				}
				if q := c.Args().First(); q != "" {
					res, err := runtime.Query(q)
					if err != nil {
						return exit(types.NewError(types.InvalidArgument, "state", err))
					}
					fmt.Println(res)
					return nil
				}
				out, err := json.MarshalIndent(runtime, "", "  ")
				if err != nil {
					return exit(err)
				}
				fmt.Println(string(out))
				return nil
			},
		},
	}
}

// pickRoot shows a menu of candidate root partitions and returns the
// chosen device path.
func pickRoot(cfg *config.Config) (string, error) {
	runtime, err := state.NewRuntime(cfg)
	if err != nil {
		return "", err
	}
	if len(runtime.Roots) == 0 {
		return "", types.NewErrorf(types.InvalidArgument, "switch", "no candidate root partitions found")
	}
	var options []string
	for _, p := range runtime.Roots {
		option := p.Path
		if p.FilesystemLabel != "" {
			option = fmt.Sprintf("%s (%s)", p.Path, p.FilesystemLabel)
		}
		if runtime.ActiveRoot != nil && p.Path == runtime.ActiveRoot.Path {
			option += " [active]"
		}
		options = append(options, option)
	}
	choice, err := pterm.DefaultInteractiveSelect.WithOptions(options).Show("Root partition for next boot")
	if err != nil {
		return "", err
	}
	return strings.Fields(choice)[0], nil
}
