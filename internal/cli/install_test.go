package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/zaurpkg/zaur/pkg/aur"
	"github.com/zaurpkg/zaur/pkg/build"
	"github.com/zaurpkg/zaur/pkg/errors"
	"github.com/zaurpkg/zaur/pkg/fetch"
	"github.com/zaurpkg/zaur/pkg/resolver"
)

type fakeInfo struct {
	pkgs map[string]aur.Package
}

func (f *fakeInfo) Info(ctx context.Context, name string) (*aur.Package, error) {
	pkg, ok := f.pkgs[name]
	if !ok {
		return nil, errors.New(errors.ErrCodeNotFound, "package %s not found", name)
	}
	return &pkg, nil
}

func (f *fakeInfo) InfoBatch(ctx context.Context, names []string) ([]aur.Package, error) {
	var out []aur.Package
	for _, name := range names {
		if pkg, ok := f.pkgs[name]; ok {
			out = append(out, pkg)
		}
	}
	return out, nil
}

type fakeDB struct{}

func (fakeDB) IsInstalled(ctx context.Context, name string) bool     { return false }
func (fakeDB) InRepos(ctx context.Context, name string) bool         { return false }
func (fakeDB) InstallReason(ctx context.Context, name string) string { return "" }
func (fakeDB) Remove(ctx context.Context, names []string, extraArgs ...string) error {
	return nil
}

// pipelineRunner plays both git and makepkg: a clone materializes a
// minimal source tree so the build step finds its PKGBUILD.
type pipelineRunner struct {
	ran []string
}

func (r *pipelineRunner) Run(ctx context.Context, dir, name string, args ...string) error {
	r.ran = append(r.ran, name+" "+strings.Join(args, " "))
	if name == "git" && len(args) > 0 && args[0] == "clone" {
		dest := args[len(args)-1]
		if err := os.MkdirAll(dest, 0o755); err != nil {
			return err
		}
		return os.WriteFile(filepath.Join(dest, "PKGBUILD"), []byte("pkgname=test\n"), 0o644)
	}
	return nil
}

func (r *pipelineRunner) Output(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	return nil, nil
}

func (r *pipelineRunner) Look(name string) bool { return true }

// TestInstallPipelineBuildsDependenciesFirst resolves foo (make-depends on
// bar), then fetches and builds both: bar must be cloned and built before
// foo is.
func TestInstallPipelineBuildsDependenciesFirst(t *testing.T) {
	ctx := context.Background()
	info := &fakeInfo{pkgs: map[string]aur.Package{
		"foo": {Name: "foo", Version: "1.0.0-1", MakeDepends: []string{"bar"}},
		"bar": {Name: "bar", Version: "2.0.0-1"},
	}}
	logger := newLogger(io.Discard, LogInfo)

	order, err := resolver.New(info, fakeDB{}, logger).Resolve(ctx, []string{"foo"})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if len(order) != 2 || order[0].Name != "bar" || order[1].Name != "foo" {
		var names []string
		for _, pkg := range order {
			names = append(names, pkg.Name)
		}
		t.Fatalf("order = %v, want [bar foo]", names)
	}

	root := t.TempDir()
	run := &pipelineRunner{}
	c := New(io.Discard, LogInfo)

	makeDeps, err := c.buildInOrder(ctx, order,
		fetch.New(root, true, run, nil, logger),
		build.New(run, fakeDB{}, logger))
	if err != nil {
		t.Fatalf("buildInOrder failed: %v", err)
	}

	want := []string{
		"git clone https://aur.archlinux.org/bar.git " + filepath.Join(root, "bar"),
		"makepkg -s -i",
		"git clone https://aur.archlinux.org/foo.git " + filepath.Join(root, "foo"),
		"makepkg -s -i",
	}
	if len(run.ran) != len(want) {
		t.Fatalf("commands = %v, want %v", run.ran, want)
	}
	for i := range want {
		if run.ran[i] != want[i] {
			t.Errorf("command[%d] = %q, want %q", i, run.ran[i], want[i])
		}
	}

	if len(makeDeps) != 1 || makeDeps[0] != "bar" {
		t.Errorf("makeDeps = %v, want [bar]", makeDeps)
	}
}

func TestOutdatedPackages(t *testing.T) {
	installed := map[string]string{
		"current":  "2.0.0-1",
		"stale":    "1.0.0-1",
		"personal": "0.1.0-1", // local-only package, unknown to the AUR
	}
	remote := []aur.Package{
		{Name: "current", Version: "2.0.0-1"},
		{Name: "stale", Version: "1.1.0-1"},
	}

	outdated := outdatedPackages(installed, remote)
	if len(outdated) != 1 || outdated[0].Name != "stale" {
		t.Errorf("outdated = %+v, want only stale", outdated)
	}
}
