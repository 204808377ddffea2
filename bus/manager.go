package bus

import (
	"fmt"
	"os"

	"github.com/hashicorp/go-multierror"
	"github.com/multiroot-io/multiroot/constants"
	"github.com/multiroot-io/multiroot/types"
	"github.com/mudler/go-pluggable"
)

func NewBus(withEvents ...pluggable.EventType) *Bus {
	if len(withEvents) == 0 {
		withEvents = AllEvents
	}
	return &Bus{
		Manager: pluggable.NewManager(withEvents),
	}
}

// Bus dispatches lifecycle events to hook executables. Hooks are plain
// binaries named <prefix>-<name> found on the hook paths; each one
// receives the event payload as JSON and answers with a JSON response.
type Bus struct {
	*pluggable.Manager
	registered bool
	logger     *types.MultirootLogger // Fully override the logger
	logLevel   string                 // Log level for the logger, defaults to "info" unless MULTIROOT_BUS_DEBUG is set to "true". Only valid if logger is not set.
	logName    string                 // Name of the logger, defaults to "bus". Only valid if logger is not set.
	hookPrefix string                 // Prefix for hook executables, defaults to "multiroot-hook".
	hookPaths  []string               // Paths to search for hooks, defaults to system paths and current working directory.
	hookErr    error                  // Errors reported by hooks during the last publish.
}

func (b *Bus) LoadHooks() {
	b.Autoload(b.hookPrefix, b.hookPaths...).Register()
}

func (b *Bus) Initialize(o ...Options) {
	if b.registered {
		return
	}

	for _, opt := range o {
		opt(b)
	}

	if b.hookPrefix == "" {
		b.hookPrefix = constants.BusPluginPrefix
	}

	// If no hook paths are set, use the default system paths and current working directory
	if b.hookPaths == nil {
		wd, _ := os.Getwd()
		b.hookPaths = []string{"/usr/local/lib/multiroot/hooks", "/usr/lib/multiroot/hooks", wd}
	}

	// If no logger is set, create a new one with the default log level and name
	if b.logger == nil {
		if b.logLevel == "" {
			b.logLevel = "info"
		}

		if os.Getenv("MULTIROOT_BUS_DEBUG") == "true" {
			b.logLevel = "debug"
		}
		if b.logName == "" {
			b.logName = "bus"
		}
		logger := types.NewMultirootLogger(b.logName, b.logLevel, false)
		b.logger = &logger
	}

	b.LoadHooks()
	for i := range b.Events {
		e := b.Events[i]
		b.Response(e, func(p *pluggable.Plugin, r *pluggable.EventResponse) {
			b.logger.Logger.Debug().Str("from", p.Name).Str("at", p.Executable).Str("type", string(e)).Msg("Received response from hook")
			if r.Errored() {
				b.logger.Logger.Error().Str("error", r.Error).Str("from", p.Name).Str("at", p.Executable).Str("type", string(e)).Msg("Hook failed")
				b.hookErr = multierror.Append(b.hookErr, fmt.Errorf("hook %s: %s", p.Name, r.Error))
			}
			if r.State != "" {
				b.logger.Logger.Debug().Str("state", r.State).Str("from", p.Name).Str("at", p.Executable).Str("type", string(e)).Msg("Hook state")
			}
		})
	}
	b.registered = true
}

// PublishEvent sends the event to every registered hook and returns an
// error if any hook reported one. Callers decide whether that aborts the
// operation: before-events do, after-events only warn.
func (b *Bus) PublishEvent(event pluggable.EventType, payload interface{}) error {
	b.hookErr = nil
	if _, err := b.Publish(event, payload); err != nil {
		return err
	}
	return b.hookErr
}

type Options func(d *Bus)

// WithLogger allows to set a custom logger for the bus. If set, it will override the default logger.
func WithLogger(logger types.MultirootLogger) Options {
	return func(d *Bus) {
		d.logger = &logger
	}
}

// WithLoggerLevel allows to set the log level for the bus logger. If set, it will override the default log level.
func WithLoggerLevel(level string) Options {
	return func(d *Bus) {
		d.logLevel = level
	}
}

// WithLoggerName allows to set the name of the logger for the bus. If set, it will override the default logger name.
func WithLoggerName(name string) Options {
	return func(d *Bus) {
		d.logName = name
	}
}

// WithHookPrefix allows to set the prefix for hook executables. If set, it will override the default prefix.
func WithHookPrefix(prefix string) Options {
	return func(d *Bus) {
		d.hookPrefix = prefix
	}
}

// WithHookPaths allows to set the paths to search for hooks. If set, it will override the default paths.
func WithHookPaths(paths ...string) Options {
	return func(d *Bus) {
		d.hookPaths = paths
	}
}
