package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/datahub-cli/internal/analysis"
	"github.com/KaramelBytes/datahub-cli/internal/parser"
	"github.com/KaramelBytes/datahub-cli/internal/table"
)

var (
	anaWorkspace  string
	anaDataset    string
	anaOutputPath string
	anaDelimiter  string
	anaSheetName  string
	anaSampleRows int
	anaTopValues  int
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [file]",
	Short: "Profile a CSV/TSV/XLSX file and report its quality",
	Long: `Profile a spreadsheet: inferred column types, statistics, top values, sample rows
and a quality score. Pass a file path, or --dataset with --workspace to profile a
stored dataset.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		topt, err := tableOptions(anaDelimiter, anaSheetName)
		if err != nil {
			return err
		}
		var path, name string
		switch {
		case anaDataset != "":
			w, err := openWorkspace(anaWorkspace)
			if err != nil {
				return err
			}
			d, err := w.Lookup(anaDataset)
			if err != nil {
				return err
			}
			path, name = filepath.Join(w.DataDir(), d.File), d.Name
		case len(args) == 1:
			path, name = args[0], filepath.Base(args[0])
		default:
			return fmt.Errorf("a file or --dataset is required")
		}
		t, err := parser.ParseFile(path, topt)
		if err != nil {
			return err
		}
		rep := analysis.Profile(name, t, analysis.Options{SampleRows: anaSampleRows, TopValues: anaTopValues})
		md := rep.Markdown()

		if anaOutputPath != "" {
			if err := os.WriteFile(anaOutputPath, []byte(md), 0o644); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			fmt.Printf("✓ Wrote analysis to %s\n", anaOutputPath)
			return nil
		}
		fmt.Println(md)
		return nil
	},
}

// tableOptions applies --delimiter and --sheet over the configured parser
// options.
func tableOptions(delimiter, sheet string) (table.Options, error) {
	c, err := settings()
	if err != nil {
		return table.Options{}, err
	}
	opt := c.TableOptions()
	switch delimiter {
	case "":
	case ",":
		opt.Delimiter = ','
	case "\t", "tab":
		opt.Delimiter = '\t'
	case ";":
		opt.Delimiter = ';'
	case "|":
		opt.Delimiter = '|'
	default:
		return opt, fmt.Errorf("unsupported --delimiter: %s", delimiter)
	}
	if sheet != "" {
		opt.Sheet = sheet
	}
	return opt, nil
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().StringVarP(&anaWorkspace, "workspace", "w", "", "workspace holding --dataset")
	analyzeCmd.Flags().StringVar(&anaDataset, "dataset", "", "stored dataset id (or unique prefix) to profile")
	analyzeCmd.Flags().StringVarP(&anaOutputPath, "output", "o", "", "optional path to write analysis (Markdown)")
	analyzeCmd.Flags().StringVar(&anaDelimiter, "delimiter", "", "CSV delimiter: ',' | ';' | '|' | 'tab' (sniffed if omitted)")
	analyzeCmd.Flags().StringVar(&anaSheetName, "sheet-name", "", "XLSX: sheet name to analyze (first sheet if omitted)")
	analyzeCmd.Flags().IntVar(&anaSampleRows, "sample-rows", 5, "number of sample rows to include (0 disables samples)")
	analyzeCmd.Flags().IntVar(&anaTopValues, "top-values", 8, "top values listed per categorical column")
}
