package appstore

import (
	"context"
	"strings"

	"github.com/zaurpkg/zaur/pkg/system"
)

// Flatpak drives the flatpak binary.
type Flatpak struct {
	run system.Runner
}

// NewFlatpak creates the Flatpak backend.
func NewFlatpak(run system.Runner) *Flatpak {
	return &Flatpak{run: run}
}

// Name implements Backend.
func (f *Flatpak) Name() string { return "flatpak" }

// Available implements Backend.
func (f *Flatpak) Available() bool { return f.run.Look("flatpak") }

// Search implements Backend. Results come from
// `flatpak search --columns=...`, which emits tab-separated rows.
func (f *Flatpak) Search(ctx context.Context, query string) ([]Package, error) {
	out, err := f.run.Output(ctx, "", "flatpak", "search",
		"--columns=name,description,application,version,origin", query)
	if err != nil {
		return nil, err
	}
	return parseFlatpakSearch(string(out)), nil
}

// Install implements Backend.
func (f *Flatpak) Install(ctx context.Context, id string) error {
	err := f.run.Run(ctx, "", "flatpak", "install", "-y", id)
	if cerr := cancelled(ctx, f.Name(), id); cerr != nil {
		return cerr
	}
	return err
}

// Uninstall implements Backend.
func (f *Flatpak) Uninstall(ctx context.Context, id string) error {
	return f.run.Run(ctx, "", "flatpak", "uninstall", "-y", id)
}

func parseFlatpakSearch(out string) []Package {
	var pkgs []Package
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		if line == "" || strings.HasPrefix(line, "No matches found") {
			continue
		}
		cols := strings.Split(line, "\t")
		if len(cols) < 3 {
			continue
		}
		pkg := Package{
			Name:        strings.TrimSpace(cols[0]),
			Description: strings.TrimSpace(cols[1]),
			ID:          strings.TrimSpace(cols[2]),
		}
		if len(cols) > 3 {
			pkg.Version = strings.TrimSpace(cols[3])
		}
		if len(cols) > 4 {
			pkg.Origin = strings.TrimSpace(cols[4])
		}
		pkgs = append(pkgs, pkg)
	}
	return pkgs
}
