// Package build drives makepkg over acquired source trees and cleans up
// build-only dependencies afterwards.
package build

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"

	"github.com/zaurpkg/zaur/pkg/aur"
	"github.com/zaurpkg/zaur/pkg/errors"
	"github.com/zaurpkg/zaur/pkg/observability"
	"github.com/zaurpkg/zaur/pkg/pacman"
	"github.com/zaurpkg/zaur/pkg/system"
)

// makepkg exits with 8 when it cannot install missing dependencies.
const exitMissingDeps = 8

// SystemDB is the slice of the local package database the builder needs.
type SystemDB interface {
	IsInstalled(ctx context.Context, name string) bool
	InstallReason(ctx context.Context, name string) string
	Remove(ctx context.Context, names []string, extraArgs ...string) error
}

// Builder runs package builds.
type Builder struct {
	run    system.Runner
	db     SystemDB
	logger *log.Logger
}

// New creates a Builder.
func New(run system.Runner, db SystemDB, logger *log.Logger) *Builder {
	if logger == nil {
		logger = log.Default()
	}
	return &Builder{run: run, db: db, logger: logger}
}

// BuildAndInstall runs `makepkg -s` in dir, adding -i when install is set.
// makepkg keeps the terminal: it prompts for sudo and build confirmations
// itself.
func (b *Builder) BuildAndInstall(ctx context.Context, dir string, install bool) error {
	if _, err := os.Stat(filepath.Join(dir, "PKGBUILD")); err != nil {
		return errors.New(errors.ErrCodeBuildFailed, "no PKGBUILD found in %s", dir)
	}

	args := []string{"-s"}
	if install {
		args = append(args, "-i")
	}

	name := filepath.Base(dir)
	observability.Build().OnBuildStart(ctx, name)
	start := time.Now()
	err := b.run.Run(ctx, dir, "makepkg", args...)
	observability.Build().OnBuildComplete(ctx, name, time.Since(start), err)

	if err != nil {
		if system.ExitCode(err) == exitMissingDeps {
			return errors.Wrap(errors.ErrCodeBuildFailed, err,
				"makepkg could not install missing dependencies for %s; install them with `sudo pacman -S <deps>` and retry", name)
		}
		return errors.Wrap(errors.ErrCodeBuildFailed, err, "build failed in %s", dir)
	}
	return nil
}

// CleanupMakeDeps removes build-only dependencies that are installed and
// carry the "installed as a dependency" reason, meaning nothing explicit
// holds them. Removal failures are reported, never fatal: a half-cleaned
// system is usable, an aborted install flow is not. Returns the names it
// removed.
func (b *Builder) CleanupMakeDeps(ctx context.Context, makeDeps []string) []string {
	var removable []string
	seen := make(map[string]bool)
	for _, dep := range makeDeps {
		name := aur.StripVersionQualifier(dep)
		if seen[name] {
			continue
		}
		seen[name] = true
		if !b.db.IsInstalled(ctx, name) {
			continue
		}
		if b.db.InstallReason(ctx, name) != pacman.ReasonDependency {
			continue
		}
		removable = append(removable, name)
	}
	if len(removable) == 0 {
		return nil
	}

	b.logger.Info("removing build dependencies", "packages", removable)
	if err := b.db.Remove(ctx, removable, "--noconfirm", "--recursive"); err != nil {
		b.logger.Warn("failed to remove build dependencies", "packages", removable, "err", err)
		return nil
	}
	return removable
}
