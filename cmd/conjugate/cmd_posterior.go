package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"conjugate/internal/display"
	"conjugate/internal/format"
	"conjugate/internal/model"
	"conjugate/internal/posterior"
)

var posteriorFlags struct {
	bundles    []string
	bundleFile string
	truth      string
	format     string
}

var posteriorCmd = &cobra.Command{
	Use:   "posterior",
	Short: "Print the ground-truth posterior of every scenario",
	Long: `Posterior builds each scenario's data and prints its analytic posterior
without sampling. Use it to inspect a bundle before verifying it.`,
	Args: cobra.NoArgs,
	RunE: runPosterior,
}

func init() {
	f := posteriorCmd.Flags()
	f.StringSliceVar(&posteriorFlags.bundles, "bundle", nil, "Embedded bundle name, repeatable (default: all embedded bundles)")
	f.StringVar(&posteriorFlags.bundleFile, "bundle-file", "", "Path to an external bundle YAML")
	f.StringVar(&posteriorFlags.truth, "truth", "", "Force the ground truth (auto, closed, numeric); empty = per scenario")
	f.StringVar(&posteriorFlags.format, "format", "ascii", "Table format (ascii, markdown, csv)")
}

func runPosterior(cmd *cobra.Command, _ []string) error {
	var forced posterior.Mode
	if posteriorFlags.truth != "" {
		var err error
		if forced, err = posterior.ParseMode(posteriorFlags.truth); err != nil {
			return err
		}
	}
	bundles, err := loadBundles(posteriorFlags.bundles, posteriorFlags.bundleFile)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	failed := 0
	for _, b := range bundles {
		tbl := format.NewTable(format.ParseMode(posteriorFlags.format))
		tbl.Title(b.Name)
		tbl.Header("Scenario", "Seed", "N", "True", "Truth", "Mean", "Std", "2.5%", "50%", "97.5%")
		for _, sc := range b.Scenarios {
			truth, n, err := sc.GroundTruth(forced)
			if err != nil {
				failed++
				tbl.Row(sc.Name, sc.Seed, n, format.FmtFloat(sc.TrueValue), "error", format.Truncate(err.Error(), 40), "", "", "", "")
				continue
			}
			s := truth.Summary
			tbl.Row(sc.Name, sc.Seed, n, format.FmtFloat(sc.TrueValue), display.Truth(string(truth.Method)),
				format.FmtFloat(s.Mean), format.FmtFloat(s.Std),
				format.FmtFloat(s.Quantiles[model.QLower]), format.FmtFloat(s.Quantiles[model.QMedian]),
				format.FmtFloat(s.Quantiles[model.QUpper]))
		}
		tbl.Columns(
			format.ColumnConfig{Number: 2, Align: format.AlignRight},
			format.ColumnConfig{Number: 3, Align: format.AlignRight},
		)
		fmt.Fprintln(out, tbl.String())
		fmt.Fprintln(out)
	}
	if failed > 0 {
		return fmt.Errorf("%d scenarios have no ground truth", failed)
	}
	return nil
}
