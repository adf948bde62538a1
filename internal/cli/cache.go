package cli

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/zaurpkg/zaur/pkg/cache"
	"github.com/zaurpkg/zaur/pkg/config"
)

// cacheCommand creates the cache management command.
func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the search result cache",
	}

	cmd.AddCommand(c.cacheClearCommand())
	cmd.AddCommand(c.cacheInfoCommand())

	return cmd
}

// cacheClearCommand creates the "cache clear" subcommand.
func (c *CLI) cacheClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Clear all cached search results",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, ttl, err := searchCachePath()
			if err != nil {
				return err
			}

			store := cache.Open(path, ttl)
			count := store.Len()
			if err := store.Clear(); err != nil {
				return err
			}

			printSuccess("Cleared %d cached entries", count)
			printDetail("File: %s", path)
			return nil
		},
	}
}

// cacheInfoCommand creates the "cache info" subcommand.
func (c *CLI) cacheInfoCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show search cache statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, ttl, err := searchCachePath()
			if err != nil {
				return err
			}

			store := cache.Open(path, ttl)
			printKeyValue("File", path)
			printKeyValue("Entries", fmt.Sprintf("%d", store.Len()))
			printKeyValue("TTL", ttl.String())
			return nil
		},
	}
}

func searchCachePath() (string, time.Duration, error) {
	cfg, err := config.Load()
	if err != nil {
		return "", 0, err
	}
	return filepath.Join(cfg.CacheDir, searchCacheFile), cfg.SearchCacheTTL(), nil
}
