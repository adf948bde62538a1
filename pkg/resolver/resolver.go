// Package resolver computes the build order for a set of requested
// packages and their transitive build-from-source dependencies.
//
// Resolution is an explicit-worklist depth-first traversal rather than a
// recursive one, so arbitrarily deep dependency chains cannot exhaust the
// goroutine stack and cycles are detected instead of looping forever.
package resolver

import (
	"context"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/zaurpkg/zaur/pkg/aur"
	"github.com/zaurpkg/zaur/pkg/errors"
)

// InfoClient is the slice of the remote query client the resolver needs.
type InfoClient interface {
	Info(ctx context.Context, name string) (*aur.Package, error)
	InfoBatch(ctx context.Context, names []string) ([]aur.Package, error)
}

// SystemDB answers whether a dependency is already satisfied locally or
// by the binary repositories.
type SystemDB interface {
	IsInstalled(ctx context.Context, name string) bool
	InRepos(ctx context.Context, name string) bool
}

// Resolver walks dependency metadata and orders packages for building.
type Resolver struct {
	aur    InfoClient
	db     SystemDB
	logger *log.Logger
}

// New creates a Resolver.
func New(aurClient InfoClient, db SystemDB, logger *log.Logger) *Resolver {
	if logger == nil {
		logger = log.Default()
	}
	return &Resolver{aur: aurClient, db: db, logger: logger}
}

type state int

const (
	unvisited state = iota
	visiting
	resolved
)

// frame is one node on the traversal stack: a package whose dependencies
// are being walked, with a cursor into its dependency list.
type frame struct {
	pkg  *aur.Package
	deps []string
	next int
}

// Resolve returns the requested packages and every transitive dependency
// that must itself be built from source, ordered so each package appears
// after all of its dependencies. Each package appears exactly once,
// however many dependents share it.
//
// A requested name that does not exist remotely is an error. A transitive
// dependency that cannot be looked up is assumed to be satisfiable by
// other means and skipped.
func (r *Resolver) Resolve(ctx context.Context, names []string) ([]aur.Package, error) {
	if len(names) == 0 {
		return nil, nil
	}

	known, err := r.seed(ctx, names)
	if err != nil {
		return nil, err
	}

	var order []aur.Package
	states := make(map[string]state)

	for _, name := range names {
		pkg, ok := known[name]
		if !ok {
			return nil, errors.New(errors.ErrCodeNotFound, "package %s not found", name)
		}
		if states[pkg.Name] == resolved {
			continue
		}

		stack := []*frame{{pkg: pkg, deps: pkg.AllDepends()}}
		states[pkg.Name] = visiting

		for len(stack) > 0 {
			top := stack[len(stack)-1]

			if top.next >= len(top.deps) {
				// All dependencies ordered; this package comes next.
				order = append(order, *top.pkg)
				states[top.pkg.Name] = resolved
				stack = stack[:len(stack)-1]
				continue
			}

			dep := aur.StripVersionQualifier(top.deps[top.next])
			top.next++

			switch states[dep] {
			case resolved:
				continue
			case visiting:
				return nil, cycleError(stack, dep)
			}

			if r.db.IsInstalled(ctx, dep) || r.db.InRepos(ctx, dep) {
				continue
			}

			depPkg, ok := known[dep]
			if !ok {
				if depPkg = r.lookup(ctx, dep); depPkg == nil {
					// Not buildable from source here; some other
					// provider has to satisfy it.
					continue
				}
				known[dep] = depPkg
			}

			states[depPkg.Name] = visiting
			stack = append(stack, &frame{pkg: depPkg, deps: depPkg.AllDepends()})
		}
	}

	return order, nil
}

// seed batch-fetches metadata for the requested names in one round trip.
func (r *Resolver) seed(ctx context.Context, names []string) (map[string]*aur.Package, error) {
	pkgs, err := r.aur.InfoBatch(ctx, names)
	if err != nil {
		return nil, err
	}
	known := make(map[string]*aur.Package, len(pkgs))
	for i := range pkgs {
		known[pkgs[i].Name] = &pkgs[i]
	}
	return known, nil
}

// lookup fetches one transitive dependency. Any failure here — unknown
// name, remote error, exhausted retries — means the dependency cannot be
// built from source by us, so it is treated as externally satisfiable and
// returns nil. Only requested roots fail a resolution.
func (r *Resolver) lookup(ctx context.Context, name string) *aur.Package {
	pkg, err := r.aur.Info(ctx, name)
	if err != nil {
		r.logger.Debug("dependency lookup failed, assuming externally satisfiable", "dependency", name, "err", err)
		return nil
	}
	return pkg
}

// cycleError renders the dependency chain that closed the loop.
func cycleError(stack []*frame, dep string) error {
	var chain []string
	for _, f := range stack {
		chain = append(chain, f.pkg.Name)
	}
	chain = append(chain, dep)

	// Trim the chain to start at the repeated package.
	for i, name := range chain {
		if name == dep {
			chain = chain[i:]
			break
		}
	}
	return errors.New(errors.ErrCodeDependencyCycle,
		"dependency cycle detected: %s", strings.Join(chain, " -> "))
}
