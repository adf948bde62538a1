// Package cli implements the zaur command-line interface.
package cli

import (
	"io"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/zaurpkg/zaur/pkg/appstore"
	"github.com/zaurpkg/zaur/pkg/aur"
	"github.com/zaurpkg/zaur/pkg/buildinfo"
	"github.com/zaurpkg/zaur/pkg/cache"
	"github.com/zaurpkg/zaur/pkg/config"
	"github.com/zaurpkg/zaur/pkg/pacman"
	"github.com/zaurpkg/zaur/pkg/sources"
	"github.com/zaurpkg/zaur/pkg/system"
)

// searchCacheFile is the on-disk store for aggregated search results.
const searchCacheFile = "search.json"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "zaur",
		Short:        "zaur builds and installs packages from the AUR",
		Long:         `zaur is an AUR helper: it finds packages across the official repositories, the AUR, and the Flatpak/Snap app stores, resolves AUR build dependencies into a build order, and drives makepkg over the fetched sources.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())

	root.AddCommand(c.searchCommand())
	root.AddCommand(c.infoCommand())
	root.AddCommand(c.installCommand())
	root.AddCommand(c.upgradeCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// app bundles the backends a command run needs, wired from configuration.
type app struct {
	cfg    *config.Config
	logger *log.Logger
	run    system.Runner
	aur    *aur.Client
	db     *pacman.DB
	stores []appstore.Backend
}

// newApp loads configuration and constructs the backend clients.
func (c *CLI) newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.EnsureDirs(); err != nil {
		return nil, err
	}

	run := system.ExecRunner{}
	return &app{
		cfg:    cfg,
		logger: c.Logger,
		run:    run,
		aur:    aur.NewClient(cfg.MaxConcurrentRequests, cfg.RequestDelay()),
		db:     pacman.New(run),
		stores: []appstore.Backend{appstore.NewFlatpak(run), appstore.NewSnap(run)},
	}, nil
}

// finder builds the cross-backend aggregator, optionally without the
// search cache.
func (a *app) finder(noCache bool) *sources.Finder {
	store := a.searchCache(noCache)
	return sources.NewFinder(a.db, a.aur, a.stores, store, a.logger)
}

func (a *app) searchCache(noCache bool) cache.Cache {
	if noCache {
		return cache.NewNullCache()
	}
	return cache.Open(filepath.Join(a.cfg.CacheDir, searchCacheFile), a.cfg.SearchCacheTTL())
}
