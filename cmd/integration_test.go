package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// resetFlags restores every flag to its default so state does not leak
// between invocations of the shared root command.
func resetFlags(c *cobra.Command) {
	reset := func(fl *pflag.Flag) {
		if sv, ok := fl.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = fl.Value.Set(fl.DefValue)
		}
		fl.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// execute runs the root command with args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	cfg = nil
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

// runCmd is a helper to execute the root command with args.
func runCmd(t *testing.T, args ...string) string {
	t.Helper()
	out, err := execute(t, args...)
	if err != nil {
		t.Fatalf("command %v failed: %v", args, err)
	}
	return out
}

func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("TIDYSEG_LOG_LEVEL", "error")
	return home
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

const customersCSV = `Customer ID,Date of Birth,Gender,City,State
c01,01/01/1990,M,Ipoh,Perak
c01,01/01/1990,M,Ipoh,Perak
c02,05/05/1985,F,Klang,Selangor
c03,10/10/2000,female,Shah Alam,selangor
c04,12/12/1970,male,Johor Bahru,Johor
c05,03/03/1995,F,Kuala Terengganu,Terengganu
c06,04/04/1988,M,George Town,Penang
c07,07/07/1999,F,Kota Bharu,Kelantan
c08,08/08/1980,M,Kuching,Sarawak
c09,09/09/1992,F,Ipoh,Perak
,09/09/1992,F,Ipoh,Perak
`

// ordersCSV places customers in three groups by how recently and how often
// they bought.
func ordersCSV() string {
	var b strings.Builder
	b.WriteString("Order ID,Customer ID,Purchase Item,Purchase Date,Item Price,Purchase Quantity,Total Spend,Transaction Method\n")
	id := 0
	groups := []struct {
		customers []string
		date      string
		orders    int
	}{
		{[]string{"c01", "c02", "c03"}, "10/01/2025 09:15", 1},
		{[]string{"c04", "c05", "c06"}, "10/06/2025 13:30", 3},
		{[]string{"c07", "c08", "c09"}, "10/09/2025 20:45", 6},
	}
	for _, g := range groups {
		for _, c := range g.customers {
			for i := 0; i < g.orders; i++ {
				id++
				fmt.Fprintf(&b, "o%03d,%s,nasi lemak,%s,RM5.00,2,10.00,cash\n", id, c, g.date)
			}
		}
	}
	// unrecoverable: no price and no total
	b.WriteString("o999,c01,teh tarik,10/01/2025 09:15,,,,card\n")
	return b.String()
}

func TestCLI_CleanMergeSegment(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	custPath := filepath.Join(dir, "customers.csv")
	ordPath := filepath.Join(dir, "orders.csv")
	writeFile(t, custPath, customersCSV)
	writeFile(t, ordPath, ordersCSV())

	out := runCmd(t, "clean", custPath, "--type", "customer", "--no-geocode")
	assert.Contains(t, out, "✓ Wrote cleaned data to")
	cleanedCust := filepath.Join(dir, "customers_cleaned.csv")
	require.FileExists(t, cleanedCust)
	require.FileExists(t, filepath.Join(dir, "customers_report.json"))

	var rep map[string]any
	b, err := os.ReadFile(filepath.Join(dir, "customers_report.json"))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(b, &rep))
	assert.NotEmpty(t, rep["run_id"])
	assert.Contains(t, rep, "summary")
	assert.Contains(t, rep, "detailed_messages")

	runCmd(t, "clean", ordPath, "--type", "order", "-q")
	cleanedOrd := filepath.Join(dir, "orders_cleaned.csv")
	require.FileExists(t, cleanedOrd)
	b, err = os.ReadFile(cleanedOrd)
	require.NoError(t, err)
	assert.NotContains(t, string(b), "o999")

	merged := filepath.Join(dir, "merged.csv")
	out = runCmd(t, "merge", "--customers", cleanedCust, "--orders", cleanedOrd, "-o", merged)
	assert.Contains(t, out, "Customers: 9 (9 with orders, 0 without)")
	b, err = os.ReadFile(merged)
	require.NoError(t, err)
	header := strings.SplitN(string(b), "\n", 2)[0]
	assert.Contains(t, header, "recency")
	assert.Contains(t, header, "frequency")

	pairs := runCmd(t, "pairs", "-f", merged)
	assert.Contains(t, pairs, "recency_frequency")

	result := filepath.Join(dir, "segments.json")
	out = runCmd(t, "segment", merged, "--pair", "recency_frequency", "--k-min", "2", "--k-max", "4", "--no-progress", "-o", result)
	assert.Contains(t, out, "✓ Wrote segmentation to")

	var seg struct {
		BestK       int `json:"best_k"`
		Assignments []struct {
			CustomerID string `json:"customerid"`
			Cluster    int    `json:"cluster"`
		} `json:"cluster_assignments"`
		Summary  map[string]any `json:"cluster_summary"`
		Decision struct {
			SelectedK int    `json:"selected_k"`
			Reason    string `json:"reason"`
		} `json:"decision"`
	}
	b, err = os.ReadFile(result)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(b, &seg))
	assert.GreaterOrEqual(t, seg.BestK, 2)
	assert.LessOrEqual(t, seg.BestK, 4)
	assert.Len(t, seg.Assignments, 9)
	assert.Len(t, seg.Summary, seg.BestK)
	assert.NotEmpty(t, seg.Decision.Reason)
}

func TestCLI_CleanResolvesStateOnline(t *testing.T) {
	isolate(t)
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_ = json.NewEncoder(w).Encode([]map[string]any{{"address": map[string]any{"state": "selangor"}}})
	}))
	defer srv.Close()
	t.Setenv("TIDYSEG_GEOCODE_URL", srv.URL)
	t.Setenv("TIDYSEG_GEOCODE_DELAY_MS", "1")

	dir := t.TempDir()
	path := filepath.Join(dir, "customers.csv")
	writeFile(t, path, "Customer ID,City,State\nc1,Shah Alam,\nc2,Shah Alam,\nc3,Ipoh,Perak\n")

	out := runCmd(t, "clean", path, "--type", "customer")
	assert.Contains(t, out, "Location lookups: 1 distinct place name(s)")
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
	b, err := os.ReadFile(filepath.Join(dir, "customers_cleaned.csv"))
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(b), "Shah Alam,Selangor"))
}

func TestCLI_CleanFailureWritesNothing(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.csv")
	writeFile(t, path, "Customer ID,City\n")

	_, err := execute(t, "clean", path, "--type", "customer", "--no-geocode")
	require.Error(t, err)
	assert.NoFileExists(t, filepath.Join(dir, "empty_cleaned.csv"))
	assert.NoFileExists(t, filepath.Join(dir, "empty_report.json"))

	_, err = execute(t, "clean", path, "--type", "invoice")
	assert.Error(t, err)
}

func TestCLI_SegmentRequiresFeatures(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "m.csv")
	writeFile(t, path, "customerid,recency\nA,1\n")

	_, err := execute(t, "segment", path, "--no-progress")
	assert.ErrorContains(t, err, "no features selected")

	_, err = execute(t, "segment", path, "--pair", "nope", "--no-progress")
	assert.Error(t, err)
}

func TestCLI_ConfigSetShow(t *testing.T) {
	isolate(t)
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")

	runCmd(t, "--config", cfgPath, "config", "set", "k_max", "7")
	runCmd(t, "--config", cfgPath, "config", "set", "geocode_api_key", "abcdef123456")
	out := runCmd(t, "--config", cfgPath, "config", "show")
	assert.Contains(t, out, "k_max: 7")
	assert.Contains(t, out, "geocode_api_key: abc****456")

	_, err := execute(t, "--config", cfgPath, "config", "set", "cache_backend", "etcd")
	assert.Error(t, err)
	_, err = execute(t, "--config", cfgPath, "config", "set", "nope", "1")
	assert.Error(t, err)
}

func TestCLI_CacheSQLite(t *testing.T) {
	isolate(t)
	t.Setenv("TIDYSEG_CACHE_BACKEND", "sqlite")
	t.Setenv("TIDYSEG_CACHE_PATH", filepath.Join(t.TempDir(), "loc.db"))

	out := runCmd(t, "cache", "list")
	assert.Contains(t, out, "Location cache is empty")
	out = runCmd(t, "cache", "clear")
	assert.Contains(t, out, "✓ Removed 0 cached lookups")
}

func TestCLI_CacheMemoryBackend(t *testing.T) {
	isolate(t)
	_, err := execute(t, "cache", "list")
	assert.ErrorContains(t, err, "cache_backend")
}

func TestDelimitedPath(t *testing.T) {
	assert.Equal(t, "a/b.csv", delimitedPath("a/b.xlsx"))
	assert.Equal(t, "a/b.tsv", delimitedPath("a/b.tsv"))
}
