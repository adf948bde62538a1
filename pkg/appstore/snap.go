package appstore

import (
	"context"
	"strings"

	"github.com/zaurpkg/zaur/pkg/system"
)

// Snap drives the snap binary.
type Snap struct {
	run system.Runner
}

// NewSnap creates the Snap backend.
func NewSnap(run system.Runner) *Snap {
	return &Snap{run: run}
}

// Name implements Backend.
func (s *Snap) Name() string { return "snap" }

// Available implements Backend.
func (s *Snap) Available() bool { return s.run.Look("snap") }

// Search implements Backend. `snap find` emits whitespace-aligned columns
// with a header row.
func (s *Snap) Search(ctx context.Context, query string) ([]Package, error) {
	out, err := s.run.Output(ctx, "", "snap", "find", query)
	if err != nil {
		return nil, err
	}
	return parseSnapFind(string(out)), nil
}

// Install implements Backend.
func (s *Snap) Install(ctx context.Context, id string) error {
	err := s.run.Run(ctx, "", "sudo", "snap", "install", id)
	if cerr := cancelled(ctx, s.Name(), id); cerr != nil {
		return cerr
	}
	return err
}

// Uninstall implements Backend.
func (s *Snap) Uninstall(ctx context.Context, id string) error {
	return s.run.Run(ctx, "", "sudo", "snap", "remove", id)
}

func parseSnapFind(out string) []Package {
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) < 2 {
		return nil
	}

	var pkgs []Package
	for _, line := range lines[1:] { // skip header
		fields := strings.Fields(line)
		if len(fields) < 4 {
			continue
		}
		pkgs = append(pkgs, Package{
			Name:        fields[0],
			ID:          fields[0],
			Version:     fields[1],
			Origin:      fields[2],
			Description: strings.Join(fields[3:], " "),
		})
	}
	return pkgs
}
