package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zaurpkg/zaur/pkg/appstore"
	"github.com/zaurpkg/zaur/pkg/aur"
	"github.com/zaurpkg/zaur/pkg/pacman"
)

// searchResults aggregates one query's matches across all backends. It is
// the unit stored in the search cache.
type searchResults struct {
	Repo []pacman.Package              `json:"repo"`
	AUR  []aur.Package                 `json:"aur"`
	Apps map[string][]appstore.Package `json:"apps"`
}

func (r searchResults) total() int {
	n := len(r.Repo) + len(r.AUR)
	for _, pkgs := range r.Apps {
		n += len(pkgs)
	}
	return n
}

// searchCommand creates the search command.
func (c *CLI) searchCommand() *cobra.Command {
	var noCache bool

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the repositories, the AUR, and the app stores",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := c.newApp()
			if err != nil {
				return err
			}
			return c.runSearch(cmd.Context(), app, args[0], noCache)
		},
	}

	cmd.Flags().BoolVar(&noCache, "no-cache", false, "bypass the search result cache")
	return cmd
}

func (c *CLI) runSearch(ctx context.Context, app *app, query string, noCache bool) error {
	store := app.searchCache(noCache)
	cacheKey := "query:" + query

	var results searchResults
	cached := store.Get(cacheKey, &results)
	if !cached {
		spin := newSpinnerWithContext(ctx, fmt.Sprintf("Searching for %q...", query))
		spin.Start()
		results = c.gatherResults(ctx, app, query)
		spin.Stop()

		if err := store.Set(cacheKey, results); err != nil {
			c.Logger.Debug("failed to persist search cache", "err", err)
		}
	}

	if results.total() == 0 {
		printInfo("No packages found for %q", query)
		return nil
	}

	printSearchResults(results, cached)
	return nil
}

// gatherResults queries every backend, logging and skipping failures so one
// dead backend never hides the others' matches.
func (c *CLI) gatherResults(ctx context.Context, app *app, query string) searchResults {
	results := searchResults{Apps: make(map[string][]appstore.Package)}

	repoPkgs, err := app.db.Search(ctx, query)
	if err != nil {
		c.Logger.Debug("repository search failed", "err", err)
	}
	results.Repo = repoPkgs

	aurPkgs, err := app.aur.Search(ctx, query)
	if err != nil {
		c.Logger.Debug("AUR search failed", "err", err)
	}
	results.AUR = aurPkgs

	for _, store := range app.stores {
		if !store.Available() {
			continue
		}
		pkgs, err := store.Search(ctx, query)
		if err != nil {
			c.Logger.Debug("app store search failed", "store", store.Name(), "err", err)
			continue
		}
		if len(pkgs) > 0 {
			results.Apps[store.Name()] = pkgs
		}
	}
	return results
}

func printSearchResults(results searchResults, cached bool) {
	if len(results.Repo) > 0 {
		printSection("Official repositories")
		for _, pkg := range results.Repo {
			printPackageLine(pkg.Repository+"/"+pkg.Name, pkg.Version, pkg.Description, pkg.Installed)
		}
	}
	if len(results.AUR) > 0 {
		printSection("AUR")
		for _, pkg := range results.AUR {
			printPackageLine("aur/"+pkg.Name, pkg.Version, pkg.Description, false)
		}
	}
	for store, pkgs := range results.Apps {
		printSection(store)
		for _, pkg := range pkgs {
			printPackageLine(store+"/"+pkg.ID, pkg.Version, pkg.Description, false)
		}
	}

	printNewline()
	printCount(results.total(), cached)
}
