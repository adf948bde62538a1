// Package pacman wraps the official binary-repository tooling.
//
// Every query shells out through a system.Runner so tests can substitute a
// fake instead of requiring an Arch system.
package pacman

import (
	"context"
	"strings"

	"github.com/zaurpkg/zaur/pkg/system"
)

// Package is one entry from the official repositories.
type Package struct {
	Name        string `json:"name"`
	Repository  string `json:"repo"`
	Version     string `json:"version"`
	Description string `json:"description"`
	Installed   bool   `json:"installed"`
}

// Installed is an installed package name/version pair.
type Installed struct {
	Name    string
	Version string
}

// Install reasons reported by the package database.
const (
	ReasonExplicit   = "explicit"
	ReasonDependency = "dependency"
)

// DB queries and mutates the system package database.
type DB struct {
	run system.Runner
}

// New creates a DB using the given runner.
func New(run system.Runner) *DB {
	return &DB{run: run}
}

// Search lists repository packages matching query.
func (d *DB) Search(ctx context.Context, query string) ([]Package, error) {
	out, err := d.run.Output(ctx, "", "pacman", "-Ss", "--", query)
	if err != nil {
		// Exit 1 with empty output means no matches.
		if system.ExitCode(err) == 1 && len(out) == 0 {
			return nil, nil
		}
		return nil, err
	}
	return parseSearch(string(out)), nil
}

// Details looks one package up directly in the sync database. Returns
// (nil, nil) when the package does not exist; this tolerates a stale local
// index where the listing search misses an existing package.
func (d *DB) Details(ctx context.Context, name string) (*Package, error) {
	out, err := d.run.Output(ctx, "", "pacman", "-Si", "--", name)
	if err != nil {
		if system.ExitCode(err) >= 1 {
			return nil, nil
		}
		return nil, err
	}
	pkg := parseInfo(string(out))
	if pkg.Name == "" {
		return nil, nil
	}
	pkg.Installed = d.IsInstalled(ctx, pkg.Name)
	return &pkg, nil
}

// IsInstalled reports whether name is installed on the system.
func (d *DB) IsInstalled(ctx context.Context, name string) bool {
	_, err := d.run.Output(ctx, "", "pacman", "-Q", "--", name)
	return err == nil
}

// InRepos reports whether name exists in any sync repository.
func (d *DB) InRepos(ctx context.Context, name string) bool {
	pkg, err := d.Details(ctx, name)
	return err == nil && pkg != nil
}

// InstallReason returns why a package is on the system: ReasonExplicit,
// ReasonDependency, or "" when it cannot be determined.
func (d *DB) InstallReason(ctx context.Context, name string) string {
	out, err := d.run.Output(ctx, "", "pacman", "-Qi", "--", name)
	if err != nil {
		return ""
	}
	for _, line := range strings.Split(string(out), "\n") {
		if !strings.HasPrefix(strings.TrimSpace(line), "Install Reason") {
			continue
		}
		if strings.Contains(line, "dependency") || strings.Contains(line, "Dependency") {
			return ReasonDependency
		}
		return ReasonExplicit
	}
	return ""
}

// Foreign lists installed packages absent from the sync databases, which on
// a typical system means AUR-built ones.
func (d *DB) Foreign(ctx context.Context) ([]Installed, error) {
	out, err := d.run.Output(ctx, "", "pacman", "-Qm")
	if err != nil {
		if system.ExitCode(err) == 1 && len(out) == 0 {
			return nil, nil
		}
		return nil, err
	}

	var pkgs []Installed
	for _, line := range strings.Split(strings.TrimSpace(string(out)), "\n") {
		fields := strings.Fields(line)
		if len(fields) == 2 {
			pkgs = append(pkgs, Installed{Name: fields[0], Version: fields[1]})
		}
	}
	return pkgs, nil
}

// Install installs repository packages interactively via sudo.
func (d *DB) Install(ctx context.Context, names []string, extraArgs ...string) error {
	args := append([]string{"pacman", "-S"}, extraArgs...)
	args = append(args, "--")
	args = append(args, names...)
	return d.run.Run(ctx, "", "sudo", args...)
}

// Remove removes packages interactively via sudo.
func (d *DB) Remove(ctx context.Context, names []string, extraArgs ...string) error {
	args := append([]string{"pacman", "-R"}, extraArgs...)
	args = append(args, "--")
	args = append(args, names...)
	return d.run.Run(ctx, "", "sudo", args...)
}

// parseSearch parses `pacman -Ss` output: a "repo/name version [installed]"
// header line followed by an indented description line.
func parseSearch(out string) []Package {
	var pkgs []Package
	lines := strings.Split(out, "\n")
	for i := 0; i < len(lines); i++ {
		line := lines[i]
		if line == "" || strings.HasPrefix(line, " ") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		repo, name, ok := strings.Cut(fields[0], "/")
		if !ok {
			continue
		}
		pkg := Package{
			Name:       name,
			Repository: repo,
			Version:    fields[1],
			Installed:  strings.Contains(line, "[installed"),
		}
		if i+1 < len(lines) && strings.HasPrefix(lines[i+1], " ") {
			pkg.Description = strings.TrimSpace(lines[i+1])
			i++
		}
		pkgs = append(pkgs, pkg)
	}
	return pkgs
}

// parseInfo parses `pacman -Si` field/value output for a single package.
func parseInfo(out string) Package {
	var pkg Package
	for _, line := range strings.Split(out, "\n") {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		switch strings.TrimSpace(key) {
		case "Repository":
			pkg.Repository = value
		case "Name":
			pkg.Name = value
		case "Version":
			pkg.Version = value
		case "Description":
			pkg.Description = value
		}
	}
	return pkg
}
