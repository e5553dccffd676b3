package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"

	"github.com/omarluq/skillswap/internal/cache"
	"github.com/omarluq/skillswap/internal/di"
)

// errCacheMiss is returned by "cache get" for an absent or expired key.
var errCacheMiss = errors.New("cache miss")

func newCacheCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and edit the tiered cache",
		Long: `Read and write the tiered cache. Each invocation starts with an empty memory
tier, so these commands act on the durable tier unless --memory-only is set.`,
	}

	cmd.AddCommand(
		newCacheGetCmd(a),
		newCacheSetCmd(a),
		newCacheDeleteCmd(a),
		newCacheClearCmd(a),
		newCacheCleanupCmd(a),
		newCacheStatsCmd(a),
	)
	return cmd
}

// withCache runs fn against the cache service.
func (a *app) withCache(fn func(*cache.Tiered) error) error {
	return a.withContainer(func(c *di.Container) error {
		cacheSvc, err := di.Invoke[*di.CacheService](c)
		if err != nil {
			return err
		}
		return fn(cacheSvc.Cache)
	})
}

func newCacheGetCmd(a *app) *cobra.Command {
	var memoryOnly bool
	cmd := &cobra.Command{
		Use:   "get <key>",
		Short: "Print a cached value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withCache(func(c *cache.Tiered) error {
				raw, ok := c.Get(cmd.Context(), args[0], !memoryOnly).Get()
				if !ok {
					return fmt.Errorf("%w: %s", errCacheMiss, args[0])
				}
				_, err := fmt.Fprintln(cmd.OutOrStdout(), string(raw))
				return err
			})
		},
	}
	cmd.Flags().BoolVar(&memoryOnly, "memory-only", false, "skip the durable tier")
	return cmd
}

func newCacheSetCmd(a *app) *cobra.Command {
	var (
		ttl        time.Duration
		memoryOnly bool
	)
	cmd := &cobra.Command{
		Use:     "set <key> <json>",
		Short:   "Store a JSON value",
		Example: `  skillswap cache set profile '{"name":"ada"}' --ttl 10m`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !gjson.Valid(args[1]) {
				return errors.New("value is not valid JSON")
			}
			opts := []cache.SetOption{cache.WithTTL(ttl)}
			if !memoryOnly {
				opts = append(opts, cache.Persistent())
			}
			return a.withCache(func(c *cache.Tiered) error {
				return c.Set(cmd.Context(), args[0], json.RawMessage(args[1]), opts...)
			})
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "time to live (default: cache.default_ttl_ms)")
	cmd.Flags().BoolVar(&memoryOnly, "memory-only", false, "skip the durable tier")
	return cmd
}

func newCacheDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <key>",
		Short: "Remove a key from both tiers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withCache(func(c *cache.Tiered) error {
				c.Delete(cmd.Context(), args[0], true)
				return nil
			})
		},
	}
}

func newCacheClearCmd(a *app) *cobra.Command {
	var memoryOnly bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every entry under the cache prefix",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withCache(func(c *cache.Tiered) error {
				c.Clear(cmd.Context(), !memoryOnly)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&memoryOnly, "memory-only", false, "leave the durable tier untouched")
	return cmd
}

func newCacheCleanupCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Sweep expired and corrupt entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withCache(func(c *cache.Tiered) error {
				return writeJSON(cmd.OutOrStdout(), c.Cleanup(cmd.Context()))
			})
		},
	}
}

func newCacheStatsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print cache counters and tier sizes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withCache(func(c *cache.Tiered) error {
				c.Warm(cmd.Context())
				return writeJSON(cmd.OutOrStdout(), c.Stats())
			})
		},
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
