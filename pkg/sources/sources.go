// Package sources discovers where a requested package is available.
//
// A Finder consults the enabled backends in a fixed order (official
// repositories, AUR, then app stores) and collects candidates. One dead
// backend never blocks discovery through the others.
package sources

import (
	"context"

	"github.com/charmbracelet/log"

	"github.com/zaurpkg/zaur/pkg/appstore"
	"github.com/zaurpkg/zaur/pkg/aur"
	"github.com/zaurpkg/zaur/pkg/cache"
	"github.com/zaurpkg/zaur/pkg/pacman"
)

// Kind identifies which backend a candidate came from.
type Kind string

// Backend kinds, in enablement order.
const (
	KindRepo    Kind = "repo"
	KindAUR     Kind = "aur"
	KindFlatpak Kind = "flatpak"
	KindSnap    Kind = "snap"
)

// Candidate is a requested name paired with exactly one source variant.
// Exactly one of Repo, AUR, and App is set, matching Kind.
type Candidate struct {
	Name string            `json:"name"`
	Kind Kind              `json:"kind"`
	Repo *pacman.Package   `json:"repo,omitempty"`
	AUR  *aur.Package      `json:"aur,omitempty"`
	App  *appstore.Package `json:"app,omitempty"`
}

// Version returns the candidate's version string for display.
func (c Candidate) Version() string {
	switch {
	case c.Repo != nil:
		return c.Repo.Version
	case c.AUR != nil:
		return c.AUR.Version
	case c.App != nil:
		return c.App.Version
	}
	return ""
}

// Description returns the candidate's description for display.
func (c Candidate) Description() string {
	switch {
	case c.Repo != nil:
		return c.Repo.Description
	case c.AUR != nil:
		return c.AUR.Description
	case c.App != nil:
		return c.App.Description
	}
	return ""
}

// Filter selects which backends to consult. The zero value means "all
// enabled and available".
type Filter struct {
	Repo    bool
	AUR     bool
	Flatpak bool
	Snap    bool
}

func (f Filter) all() bool {
	return !f.Repo && !f.AUR && !f.Flatpak && !f.Snap
}

func (f Filter) wants(k Kind) bool {
	if f.all() {
		return true
	}
	switch k {
	case KindRepo:
		return f.Repo
	case KindAUR:
		return f.AUR
	case KindFlatpak:
		return f.Flatpak
	case KindSnap:
		return f.Snap
	}
	return false
}

// RepoDB is the slice of the binary-repository backend the Finder needs.
type RepoDB interface {
	Search(ctx context.Context, query string) ([]pacman.Package, error)
	Details(ctx context.Context, name string) (*pacman.Package, error)
}

// AURClient is the slice of the remote query client the Finder needs.
type AURClient interface {
	Info(ctx context.Context, name string) (*aur.Package, error)
}

// Finder aggregates candidates across backends.
type Finder struct {
	repo   RepoDB
	aur    AURClient
	stores []appstore.Backend
	cache  cache.Cache
	logger *log.Logger
}

// NewFinder creates a Finder. stores may be empty; cache may be a NullCache.
func NewFinder(repo RepoDB, aurClient AURClient, stores []appstore.Backend, c cache.Cache, logger *log.Logger) *Finder {
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Finder{repo: repo, aur: aurClient, stores: stores, cache: c, logger: logger}
}

// Find returns all candidates for name across the backends filter selects.
// Per-backend failures are logged and skipped. Candidate order follows
// backend enablement order.
func (f *Finder) Find(ctx context.Context, name string, filter Filter) ([]Candidate, error) {
	// Only full-fan-out queries are memoized; a filtered result under the
	// same key would poison later unfiltered lookups.
	if filter.all() {
		var cached []Candidate
		if f.cache.Get(name, &cached) {
			f.logger.Debug("search cache hit", "package", name)
			return cached, nil
		}
	}

	var candidates []Candidate

	if filter.wants(KindRepo) {
		candidates = append(candidates, f.findRepo(ctx, name)...)
	}
	if filter.wants(KindAUR) {
		candidates = append(candidates, f.findAUR(ctx, name)...)
	}
	if filter.wants(KindFlatpak) || filter.wants(KindSnap) {
		candidates = append(candidates, f.findStores(ctx, name, filter)...)
	}

	if filter.all() {
		if err := f.cache.Set(name, candidates); err != nil {
			f.logger.Debug("failed to persist search cache", "err", err)
		}
	}
	return candidates, nil
}

// findRepo matches exactly against the listing search, falling back to a
// direct detail lookup to tolerate a stale local index.
func (f *Finder) findRepo(ctx context.Context, name string) []Candidate {
	pkgs, err := f.repo.Search(ctx, name)
	if err != nil {
		f.logger.Debug("repository search failed", "package", name, "err", err)
	}
	for i := range pkgs {
		if pkgs[i].Name == name {
			return []Candidate{{Name: name, Kind: KindRepo, Repo: &pkgs[i]}}
		}
	}

	pkg, err := f.repo.Details(ctx, name)
	if err != nil {
		f.logger.Debug("repository detail lookup failed", "package", name, "err", err)
		return nil
	}
	if pkg == nil {
		return nil
	}
	return []Candidate{{Name: name, Kind: KindRepo, Repo: pkg}}
}

func (f *Finder) findAUR(ctx context.Context, name string) []Candidate {
	pkg, err := f.aur.Info(ctx, name)
	if err != nil {
		f.logger.Debug("not found in AUR", "package", name, "err", err)
		return nil
	}
	return []Candidate{{Name: name, Kind: KindAUR, AUR: pkg}}
}

func (f *Finder) findStores(ctx context.Context, name string, filter Filter) []Candidate {
	var candidates []Candidate
	for _, store := range f.stores {
		kind := Kind(store.Name())
		if !filter.wants(kind) || !store.Available() {
			continue
		}
		pkgs, err := store.Search(ctx, name)
		if err != nil {
			f.logger.Debug("app store search failed", "store", store.Name(), "err", err)
			continue
		}
		for i := range pkgs {
			if appstore.Matches(pkgs[i], name) {
				candidates = append(candidates, Candidate{Name: name, Kind: kind, App: &pkgs[i]})
			}
		}
	}
	return candidates
}
