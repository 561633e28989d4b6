package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"conjugate/internal/display"
	"conjugate/internal/format"
	"conjugate/internal/verify/scenarios"
)

var listFormat string

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the embedded scenario bundles",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		tbl := format.NewTable(format.ParseMode(listFormat))
		tbl.Header("Bundle", "Scenarios", "Target", "Description")
		for _, name := range scenarios.ListBundles() {
			b, err := scenarios.LoadBundle(name)
			if err != nil {
				return err
			}
			target := ""
			if len(b.Scenarios) > 0 {
				target = display.Prior(b.Scenarios[0].Prior.Kind)
			}
			tbl.Row(b.Name, len(b.Scenarios), target, format.Truncate(b.Description, 60))
		}
		tbl.Columns(format.ColumnConfig{Number: 2, Align: format.AlignRight})
		fmt.Fprintln(cmd.OutOrStdout(), tbl.String())
		return nil
	},
}

func init() {
	listCmd.Flags().StringVar(&listFormat, "format", "ascii", "Table format (ascii, markdown, csv)")
}
