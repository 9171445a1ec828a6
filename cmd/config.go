package cmd

import (
	"fmt"
	"strconv"
	"strings"

	cfgpkg "github.com/KaramelBytes/tidyseg-cli/internal/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set tidyseg configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := settings()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "geocode_url: %s\n", c.GeocodeURL)
		fmt.Fprintf(out, "geocode_api_key: %s\n", mask(c.GeocodeAPIKey))
		fmt.Fprintf(out, "geocode_country: %s\n", c.GeocodeCountry)
		fmt.Fprintf(out, "geocode_delay_ms: %d\n", c.GeocodeDelayMs)
		fmt.Fprintf(out, "http_timeout_sec: %d\n", c.HTTPTimeoutSec)
		fmt.Fprintf(out, "retry_max_attempts: %d\n", c.RetryMaxAttempts)
		fmt.Fprintf(out, "cache_backend: %s\n", c.CacheBackend)
		switch strings.ToLower(c.CacheBackend) {
		case "sqlite":
			fmt.Fprintf(out, "cache_path: %s\n", c.CachePath)
		case "redis":
			fmt.Fprintf(out, "redis_addr: %s\n", c.RedisAddr)
			fmt.Fprintf(out, "redis_prefix: %s\n", c.RedisPrefix)
		}
		if c.CacheBackend != "memory" {
			fmt.Fprintf(out, "cache_ttl_hours: %d\n", c.CacheTTLHours)
		}
		fmt.Fprintf(out, "completeness_threshold: %.2f\n", c.CompletenessThreshold)
		fmt.Fprintf(out, "outlier_size_cutoff: %d\n", c.OutlierSizeCutoff)
		fmt.Fprintf(out, "k_min: %d\n", c.KMin)
		fmt.Fprintf(out, "k_max: %d\n", c.KMax)
		fmt.Fprintf(out, "kmeans_n_init: %d\n", c.KMeansNInit)
		fmt.Fprintf(out, "kmeans_max_iter: %d\n", c.KMeansMaxIter)
		fmt.Fprintf(out, "seed: %d\n", c.Seed)
		fmt.Fprintf(out, "log_level: %s\n", c.LogLevel)
		fmt.Fprintf(out, "log_format: %s\n", c.LogFormat)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := settings()
		if err != nil {
			return err
		}
		if err := setKey(c, args[0], args[1]); err != nil {
			return err
		}
		if err := cfgpkg.Save(c, cfgFile); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Saved config")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

func setKey(c *cfgpkg.Global, key, val string) error {
	atoi := func(lo int) (int, error) {
		i, err := strconv.Atoi(val)
		if err != nil || i < lo {
			return 0, fmt.Errorf("invalid int for %s: %v", key, val)
		}
		return i, nil
	}
	var err error
	switch key {
	case "geocode_url":
		c.GeocodeURL = val
	case "geocode_api_key":
		c.GeocodeAPIKey = val
	case "geocode_country":
		c.GeocodeCountry = val
	case "geocode_delay_ms":
		c.GeocodeDelayMs, err = atoi(0)
	case "http_timeout_sec":
		c.HTTPTimeoutSec, err = atoi(1)
	case "retry_max_attempts":
		c.RetryMaxAttempts, err = atoi(1)
	case "cache_backend":
		switch strings.ToLower(val) {
		case "memory", "sqlite", "redis":
			c.CacheBackend = strings.ToLower(val)
		default:
			return fmt.Errorf("invalid cache_backend: %s (use memory, sqlite or redis)", val)
		}
	case "cache_path":
		c.CachePath = val
	case "cache_ttl_hours":
		c.CacheTTLHours, err = atoi(0)
	case "redis_addr":
		c.RedisAddr = val
	case "redis_prefix":
		c.RedisPrefix = val
	case "completeness_threshold":
		f, perr := strconv.ParseFloat(val, 64)
		if perr != nil || f < 0 || f > 1 {
			return fmt.Errorf("invalid float for completeness_threshold: %v (0..1)", val)
		}
		c.CompletenessThreshold = f
	case "outlier_size_cutoff":
		c.OutlierSizeCutoff, err = atoi(1)
	case "k_min":
		c.KMin, err = atoi(2)
	case "k_max":
		c.KMax, err = atoi(2)
	case "kmeans_n_init":
		c.KMeansNInit, err = atoi(1)
	case "kmeans_max_iter":
		c.KMeansMaxIter, err = atoi(1)
	case "seed":
		s, perr := strconv.ParseInt(val, 10, 64)
		if perr != nil {
			return fmt.Errorf("invalid int for seed: %w", perr)
		}
		c.Seed = s
	case "log_level":
		c.LogLevel = val
	case "log_format":
		c.LogFormat = val
	default:
		return fmt.Errorf("unknown key: %s", key)
	}
	return err
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 6 {
		return "******"
	}
	return s[:3] + "****" + s[len(s)-3:]
}
