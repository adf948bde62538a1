// Package fetch materializes buildable source trees under the clone root,
// either as git checkouts or from snapshot tarballs.
package fetch

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/zaurpkg/zaur/pkg/errors"
	"github.com/zaurpkg/zaur/pkg/observability"
	"github.com/zaurpkg/zaur/pkg/system"
)

const originURL = "https://aur.archlinux.org"

// Snapshotter downloads a package's snapshot tarball.
type Snapshotter interface {
	DownloadSnapshot(ctx context.Context, name string) ([]byte, error)
}

// Acquirer places source trees under a clone root.
type Acquirer struct {
	root   string
	useGit bool
	run    system.Runner
	snaps  Snapshotter
	logger *log.Logger
}

// New creates an Acquirer rooted at root. useGit selects git checkouts
// over snapshot tarballs when the git binary is present.
func New(root string, useGit bool, run system.Runner, snaps Snapshotter, logger *log.Logger) *Acquirer {
	if logger == nil {
		logger = log.Default()
	}
	return &Acquirer{root: root, useGit: useGit, run: run, snaps: snaps, logger: logger}
}

// Acquire ensures a buildable tree for name exists under the clone root
// and returns its path. Existing trees holding built package artifacts are
// never deleted. A failed git acquisition degrades to the snapshot
// tarball; a permission error while clearing the target never does, since
// retrying over an unremovable directory cannot succeed either.
func (a *Acquirer) Acquire(ctx context.Context, name string) (string, error) {
	dir := filepath.Join(a.root, name)

	observability.Build().OnFetchStart(ctx, name)
	start := time.Now()
	var err error
	if a.useGit && a.run.Look("git") {
		err = a.acquireGit(ctx, name, dir)
		if err != nil && !stderrors.Is(err, fs.ErrPermission) {
			a.logger.Warn("git acquisition failed, falling back to snapshot", "package", name, "err", err)
			err = a.acquireSnapshot(ctx, name, dir)
		}
	} else {
		err = a.acquireSnapshot(ctx, name, dir)
	}
	observability.Build().OnFetchComplete(ctx, name, time.Since(start), err)

	if err != nil {
		return "", err
	}
	return dir, nil
}

func (a *Acquirer) acquireGit(ctx context.Context, name, dir string) error {
	if isGitCheckout(dir) {
		return a.refresh(ctx, name, dir)
	}

	keep, err := a.clearStale(dir)
	if err != nil || keep {
		return err
	}

	a.logger.Debug("cloning package repository", "package", name)
	if err := a.run.Run(ctx, "", "git", "clone", fmt.Sprintf("%s/%s.git", originURL, name), dir); err != nil {
		return errors.Wrap(errors.ErrCodeDownloadFailed, err, "failed to clone %s", name)
	}
	return nil
}

// refresh brings an existing checkout up to date. A failed fetch degrades
// to building from the tree as it stands.
func (a *Acquirer) refresh(ctx context.Context, name, dir string) error {
	a.logger.Debug("updating package repository", "package", name)
	if err := a.run.Run(ctx, dir, "git", "fetch", "origin"); err != nil {
		a.logger.Warn("fetch failed, using existing checkout", "package", name, "err", err)
		return nil
	}
	if err := a.run.Run(ctx, dir, "git", "reset", "--hard", "FETCH_HEAD"); err != nil {
		return errors.Wrap(errors.ErrCodeDownloadFailed, err, "failed to update checkout for %s", name)
	}
	return nil
}

func (a *Acquirer) acquireSnapshot(ctx context.Context, name, dir string) error {
	keep, err := a.clearStale(dir)
	if err != nil || keep {
		return err
	}

	a.logger.Debug("downloading snapshot", "package", name)
	data, err := a.snaps.DownloadSnapshot(ctx, name)
	if err != nil {
		return err
	}

	// Extract into a staging directory first so a half-written tree never
	// lands at the final path.
	staging := filepath.Join(a.root, ".staging-"+uuid.NewString())
	if err := extractTarGz(data, staging); err != nil {
		os.RemoveAll(staging)
		return errors.Wrap(errors.ErrCodeDownloadFailed, err, "failed to extract snapshot for %s", name)
	}
	defer os.RemoveAll(staging)

	// The snapshot tarball nests everything under a single top-level
	// directory named after the package.
	if err := os.Rename(filepath.Join(staging, name), dir); err != nil {
		return errors.Wrap(errors.ErrCodeDownloadFailed, err, "failed to place snapshot for %s", name)
	}
	return nil
}

// clearStale removes a directory that is not a usable checkout so it can
// be recreated. It reports keep=true when the directory holds built
// package artifacts, which must survive. A permission failure while
// clearing is fatal and carries its remediation.
func (a *Acquirer) clearStale(dir string) (keep bool, err error) {
	if _, statErr := os.Stat(dir); statErr != nil {
		return false, nil
	}
	if hasBuiltArtifacts(dir) {
		a.logger.Warn("keeping existing directory with built packages", "dir", dir)
		return true, nil
	}
	if rmErr := os.RemoveAll(dir); rmErr != nil {
		if stderrors.Is(rmErr, fs.ErrPermission) {
			return false, errors.Wrap(errors.ErrCodeDownloadFailed, rmErr,
				"cannot remove %s: permission denied. Remove it manually with `sudo rm -rf %s` and retry", dir, dir)
		}
		return false, errors.Wrap(errors.ErrCodeDownloadFailed, rmErr, "cannot remove %s", dir)
	}
	return false, nil
}

func isGitCheckout(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, ".git"))
	return err == nil && info.IsDir()
}

// hasBuiltArtifacts reports whether dir contains finished packages.
func hasBuiltArtifacts(dir string) bool {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false
	}
	for _, e := range entries {
		name := e.Name()
		if strings.HasSuffix(name, ".pkg.tar.zst") || strings.HasSuffix(name, ".pkg.tar.xz") {
			return true
		}
	}
	return false
}

func extractTarGz(data []byte, dest string) error {
	gz, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("not a gzip stream: %w", err)
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		target, err := securePath(dest, hdr.Name)
		if err != nil {
			return err
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return err
			}
			f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, fs.FileMode(hdr.Mode)&0o777)
			if err != nil {
				return err
			}
			if _, err := io.Copy(f, tr); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
		}
	}
}

// securePath joins name under dest, rejecting entries that escape it.
func securePath(dest, name string) (string, error) {
	target := filepath.Join(dest, filepath.Clean(name))
	if !strings.HasPrefix(target, filepath.Clean(dest)+string(os.PathSeparator)) {
		return "", fmt.Errorf("archive entry escapes destination: %s", name)
	}
	return target, nil
}
