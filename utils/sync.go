package utils

import (
	"fmt"
	"strings"

	"github.com/google/shlex"
	"github.com/multiroot-io/multiroot/config"
	"github.com/multiroot-io/multiroot/constants"
	"github.com/multiroot-io/multiroot/types"
)

// SyncTree mirrors the tree at source into target with rsync, carrying
// ownership, hardlinks, ACLs and xattrs and deleting extraneous files so
// re-running converges to the source. Extra excludes come on top of the
// configured ones only when the caller passes them.
func SyncTree(cfg *config.Config, source, target string, excludes ...string) error {
	if !cfg.Runner.CommandExists("rsync") {
		return types.NewErrorf(types.ExternalToolFailure, "sync", "rsync not found in PATH")
	}

	args := constants.DefaultRsyncFlags()
	for _, exclude := range excludes {
		args = append(args, fmt.Sprintf("--exclude=%s", exclude))
	}
	if cfg.RsyncOptions != "" {
		extra, err := shlex.Split(cfg.RsyncOptions)
		if err != nil {
			return types.NewErrorf(types.InvalidArgument, "sync", "parsing rsync options %q: %v", cfg.RsyncOptions, err)
		}
		args = append(args, extra...)
	}
	args = append(args, ensureTrailingSlash(source), ensureTrailingSlash(target))

	cfg.Logger.Logger.Info().Str("source", source).Str("target", target).Msg("Synchronizing tree")
	if _, err := cfg.Runner.Run("rsync", args...); err != nil {
		return types.NewError(types.ExternalToolFailure, "sync", err)
	}
	return nil
}

// ensureTrailingSlash makes rsync copy the content of a directory rather
// than the directory itself.
func ensureTrailingSlash(path string) string {
	if strings.HasSuffix(path, "/") {
		return path
	}
	return path + "/"
}
