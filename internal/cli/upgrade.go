package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zaurpkg/zaur/pkg/aur"
	"github.com/zaurpkg/zaur/pkg/version"
)

// upgradeCommand creates the upgrade command.
func (c *CLI) upgradeCommand() *cobra.Command {
	var keepMakeDeps bool

	cmd := &cobra.Command{
		Use:   "upgrade",
		Short: "Rebuild foreign packages with newer AUR versions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := c.newApp()
			if err != nil {
				return err
			}
			return c.runUpgrade(cmd.Context(), app, keepMakeDeps)
		},
	}

	cmd.Flags().BoolVar(&keepMakeDeps, "keep-make-deps", false, "keep build-only dependencies after building")
	return cmd
}

func (c *CLI) runUpgrade(ctx context.Context, app *app, keepMakeDeps bool) error {
	foreign, err := app.db.Foreign(ctx)
	if err != nil {
		return err
	}
	if len(foreign) == 0 {
		printInfo("No foreign packages installed")
		return nil
	}

	names := make([]string, 0, len(foreign))
	installed := make(map[string]string, len(foreign))
	for _, pkg := range foreign {
		names = append(names, pkg.Name)
		installed[pkg.Name] = pkg.Version
	}

	spin := newSpinnerWithContext(ctx, fmt.Sprintf("Checking %d foreign packages...", len(names)))
	spin.Start()
	remote, err := app.aur.InfoBatch(ctx, names)
	spin.Stop()
	if err != nil {
		return err
	}

	outdated := outdatedPackages(installed, remote)
	if len(outdated) == 0 {
		printSuccess("All %d foreign packages are up to date", len(names))
		return nil
	}

	printInfo("Updates available:")
	for _, pkg := range outdated {
		printDetail("%s  %s %s %s", pkg.Name, installed[pkg.Name], iconArrow, pkg.Version)
	}

	targets := make([]string, 0, len(outdated))
	for _, pkg := range outdated {
		targets = append(targets, pkg.Name)
	}
	return c.installFromAUR(ctx, app, targets, keepMakeDeps)
}

// outdatedPackages returns the remote records strictly newer than what is
// installed. Foreign packages unknown to the AUR are skipped: there is
// nothing to compare against.
func outdatedPackages(installed map[string]string, remote []aur.Package) []aur.Package {
	var outdated []aur.Package
	for _, pkg := range remote {
		current, ok := installed[pkg.Name]
		if !ok {
			continue
		}
		if version.NeedsUpdate(current, pkg.Version) {
			outdated = append(outdated, pkg)
		}
	}
	return outdated
}
