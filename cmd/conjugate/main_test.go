package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// execute runs the root command with fresh flag values and returns its
// standard output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	reset := func(c *cobra.Command) {
		c.Flags().VisitAll(func(f *pflag.Flag) {
			if sv, ok := f.Value.(pflag.SliceValue); ok {
				_ = sv.Replace(nil)
			} else {
				_ = f.Value.Set(f.DefValue)
			}
			f.Changed = false
		})
	}
	reset(rootCmd)
	rootCmd.PersistentFlags().VisitAll(func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	})
	for _, c := range rootCmd.Commands() {
		reset(c)
	}

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestList(t *testing.T) {
	out, err := execute(t, "list")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"normal-mean", "uniform-std-boundary", "Half-Cauchy"} {
		if !strings.Contains(out, want) {
			t.Errorf("list output missing %q:\n%s", want, out)
		}
	}
}

func TestPosterior(t *testing.T) {
	out, err := execute(t, "posterior", "--bundle", "uniform-std", "--format", "markdown")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "| sigma-2.5") || !strings.Contains(out, "Closed Form") {
		t.Errorf("posterior output:\n%s", out)
	}

	out, err = execute(t, "posterior", "--bundle", "uniform-std-boundary", "--truth", "closed")
	if err == nil {
		t.Errorf("closed truth at n=1 should fail:\n%s", out)
	}
	if !strings.Contains(out, "error") {
		t.Errorf("failed scenario not shown:\n%s", out)
	}
}

func TestVerify_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")
	out, err := execute(t, "verify", "--bundle", "uniform-std", "--iterations", "3000",
		"--parallel", "2", "--json", path)
	if err != nil {
		t.Fatalf("verify: %v\n%s", err, out)
	}
	if !strings.Contains(out, "RESULT: PASS") {
		t.Errorf("report output:\n%s", out)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var reports []struct {
		Bundle  string            `json:"bundle"`
		Results []json.RawMessage `json:"results"`
	}
	if err := json.Unmarshal(data, &reports); err != nil {
		t.Fatal(err)
	}
	if len(reports) != 1 || reports[0].Bundle != "uniform-std" || len(reports[0].Results) != 5 {
		t.Errorf("decoded %d reports", len(reports))
	}
}

func TestVerify_MismatchExitsNonZero(t *testing.T) {
	out, err := execute(t, "verify", "--bundle", "uniform-std", "--iterations", "500",
		"--mean-tol", "1e-9", "--std-tol", "1e-9")
	if !errors.Is(err, errVerifyFailed) {
		t.Fatalf("err = %v, want errVerifyFailed", err)
	}
	if !strings.Contains(out, "RESULT: FAIL") {
		t.Errorf("report output:\n%s", out)
	}
}

func TestVerify_BadFlags(t *testing.T) {
	tests := [][]string{
		{"verify", "--method", "hmc"},
		{"verify", "--bundle", "no-such-bundle"},
		{"verify", "--truth", "guess"},
		{"verify", "--bundle", "uniform-std", "--mean-tol", "0"},
		{"verify", "--bundle-file", "/does/not/exist.yaml"},
		{"list", "--log-level", "loud"},
	}
	for _, args := range tests {
		t.Run(strings.Join(args, " "), func(t *testing.T) {
			if _, err := execute(t, args...); err == nil {
				t.Error("expected an error")
			}
		})
	}
}
