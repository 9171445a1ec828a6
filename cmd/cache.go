package cmd

import (
	"fmt"

	"github.com/KaramelBytes/tidyseg-cli/internal/geocode"
	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the persistent location cache",
}

var cacheListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cached location lookups",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := persistentStore(cmd)
		if err != nil {
			return err
		}
		defer store.Close()
		entries, err := store.List(cmd.Context())
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		if len(entries) == 0 {
			fmt.Fprintln(w, "Location cache is empty")
			return nil
		}
		for _, e := range entries {
			region := e.Region
			if !e.Found {
				region = "(not found)"
			}
			fmt.Fprintf(w, "%-30s %-20s %s\n", e.Name, region, e.StoredAt.Format("2006-01-02 15:04"))
		}
		fmt.Fprintf(w, "%d entries\n", len(entries))
		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every cached location lookup",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := persistentStore(cmd)
		if err != nil {
			return err
		}
		defer store.Close()
		n, err := store.Clear(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Removed %d cached lookups\n", n)
		return nil
	},
}

func persistentStore(cmd *cobra.Command) (geocode.Store, error) {
	c, err := settings()
	if err != nil {
		return nil, err
	}
	store, err := openStore(cmd.Context(), c)
	if err != nil {
		return nil, err
	}
	if store == nil {
		return nil, fmt.Errorf("cache_backend is %q; set it to sqlite or redis to persist lookups", c.CacheBackend)
	}
	return store, nil
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheListCmd)
	cacheCmd.AddCommand(cacheClearCmd)
}
