package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zaurpkg/zaur/pkg/appstore"
	"github.com/zaurpkg/zaur/pkg/aur"
	"github.com/zaurpkg/zaur/pkg/build"
	"github.com/zaurpkg/zaur/pkg/errors"
	"github.com/zaurpkg/zaur/pkg/fetch"
	"github.com/zaurpkg/zaur/pkg/resolver"
	"github.com/zaurpkg/zaur/pkg/sources"
)

// installOptions carries the install command's flags.
type installOptions struct {
	noCache      bool
	keepMakeDeps bool
	filter       sources.Filter
}

// installCommand creates the install command.
func (c *CLI) installCommand() *cobra.Command {
	var opts installOptions

	cmd := &cobra.Command{
		Use:     "install <package>...",
		Aliases: []string{"in"},
		Short:   "Install packages from the repositories, the AUR, or an app store",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := c.newApp()
			if err != nil {
				return err
			}
			return c.runInstall(cmd.Context(), app, args, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "bypass the search result cache")
	cmd.Flags().BoolVar(&opts.keepMakeDeps, "keep-make-deps", false, "keep build-only dependencies after building")
	cmd.Flags().BoolVar(&opts.filter.Repo, "repo", false, "only consider the official repositories")
	cmd.Flags().BoolVar(&opts.filter.AUR, "aur", false, "only consider the AUR")
	cmd.Flags().BoolVar(&opts.filter.Flatpak, "flatpak", false, "only consider Flatpak")
	cmd.Flags().BoolVar(&opts.filter.Snap, "snap", false, "only consider Snap")
	return cmd
}

// appInstall is a chosen app-store candidate awaiting installation.
type appInstall struct {
	backend appstore.Backend
	id      string
}

func (c *CLI) runInstall(ctx context.Context, app *app, names []string, opts installOptions) error {
	finder := app.finder(opts.noCache)

	var (
		repoNames   []string
		aurNames    []string
		appInstalls []appInstall
	)

	for _, name := range names {
		if app.db.IsInstalled(ctx, name) {
			printInfo("%s is already installed", name)
			continue
		}

		candidates, err := finder.Find(ctx, name, opts.filter)
		if err != nil {
			return err
		}
		if len(candidates) == 0 {
			return errors.New(errors.ErrCodeNotFound, "package %s not found in any enabled source", name)
		}

		cand, err := chooseCandidate(candidates)
		if err != nil {
			return err
		}

		switch cand.Kind {
		case sources.KindRepo:
			repoNames = append(repoNames, cand.Name)
		case sources.KindAUR:
			aurNames = append(aurNames, cand.Name)
		default:
			backend := app.storeFor(string(cand.Kind))
			if backend == nil {
				return errors.New(errors.ErrCodeInvalidInput, "backend %s is not available", cand.Kind)
			}
			appInstalls = append(appInstalls, appInstall{backend: backend, id: cand.App.ID})
		}
	}

	if len(repoNames) > 0 {
		printInfo("Installing from the official repositories: %s", strings.Join(repoNames, " "))
		if err := app.db.Install(ctx, repoNames); err != nil {
			return err
		}
	}

	for _, inst := range appInstalls {
		printInfo("Installing %s via %s", inst.id, inst.backend.Name())
		if err := inst.backend.Install(ctx, inst.id); err != nil {
			return err
		}
	}

	if len(aurNames) > 0 {
		return c.installFromAUR(ctx, app, aurNames, opts.keepMakeDeps)
	}
	return nil
}

// installFromAUR resolves the build order, fetches each source tree, and
// builds them dependency-first.
func (c *CLI) installFromAUR(ctx context.Context, app *app, names []string, keepMakeDeps bool) error {
	p := newProgress(c.Logger)
	spin := newSpinnerWithContext(ctx, "Resolving dependencies...")
	spin.Start()
	order, err := resolver.New(app.aur, app.db, c.Logger).Resolve(ctx, names)
	spin.Stop()
	if err != nil {
		return err
	}
	p.done(fmt.Sprintf("Resolved %d packages", len(order)))

	if len(order) > 1 {
		printInfo("Build order:")
		for i, pkg := range order {
			printDetail("%d. %s %s", i+1, pkg.Name, pkg.Version)
		}
	}

	acquirer := fetch.New(app.cfg.CloneDir, app.cfg.UseGitClone, app.run, app.aur, c.Logger)
	builder := build.New(app.run, app.db, c.Logger)

	makeDeps, err := c.buildInOrder(ctx, order, acquirer, builder)
	if err != nil {
		return err
	}

	if app.cfg.RemoveMakeDeps && !keepMakeDeps {
		if removed := builder.CleanupMakeDeps(ctx, makeDeps); len(removed) > 0 {
			printInfo("Removed build dependencies: %s", strings.Join(removed, " "))
		}
	}
	return nil
}

// buildInOrder fetches and builds each package dependency-first, returning
// the accumulated build-only dependencies for later cleanup.
func (c *CLI) buildInOrder(ctx context.Context, order []aur.Package, acquirer *fetch.Acquirer, builder *build.Builder) ([]string, error) {
	var makeDeps []string
	for _, pkg := range order {
		spin := newSpinnerWithContext(ctx, fmt.Sprintf("Fetching %s...", pkg.Name))
		spin.Start()
		dir, err := acquirer.Acquire(ctx, pkg.Name)
		spin.Stop()
		if err != nil {
			return nil, err
		}

		// makepkg owns the terminal from here: sudo prompts and build
		// output go straight through.
		if err := builder.BuildAndInstall(ctx, dir, true); err != nil {
			return nil, err
		}
		makeDeps = append(makeDeps, pkg.MakeDepends...)
		printSuccess("Installed %s %s", pkg.Name, pkg.Version)
	}
	return makeDeps, nil
}

// storeFor returns the app-store backend with the given name, nil if absent
// or unavailable.
func (a *app) storeFor(name string) appstore.Backend {
	for _, store := range a.stores {
		if store.Name() == name && store.Available() {
			return store
		}
	}
	return nil
}

// chooseCandidate auto-picks a sole candidate and prompts otherwise.
func chooseCandidate(candidates []sources.Candidate) (sources.Candidate, error) {
	if len(candidates) == 1 {
		return candidates[0], nil
	}

	fmt.Printf("%s is available from multiple sources:\n", candidates[0].Name)
	for i, cand := range candidates {
		printDetail("%d. [%s] %s %s", i+1, cand.Kind, cand.Name, cand.Version())
	}
	fmt.Print("Select source [1]: ")

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return sources.Candidate{}, errors.Wrap(errors.ErrCodeInvalidInput, err, "failed to read selection")
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return candidates[0], nil
	}

	n, err := strconv.Atoi(line)
	if err != nil || n < 1 || n > len(candidates) {
		return sources.Candidate{}, errors.New(errors.ErrCodeInvalidInput, "invalid selection %q", line)
	}
	return candidates[n-1], nil
}
