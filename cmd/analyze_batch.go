package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/datahub-cli/internal/analysis"
	"github.com/KaramelBytes/datahub-cli/internal/parser"
	"github.com/KaramelBytes/datahub-cli/internal/utils"
)

var (
	abWorkspace  string
	abOutDir     string
	abDelimiter  string
	abSheetName  string
	abSampleRows int
	abTopValues  int
	abQuiet      bool
)

var analyzeBatchCmd = &cobra.Command{
	Use:   "analyze-batch <files...>",
	Short: "Profile multiple CSV/TSV/XLSX files and write one summary per file",
	Long: `Profile every matched file and write <name>.summary.md into --out-dir, or into the
workspace's summaries folder with --workspace. Existing summaries are never
overwritten; a numeric suffix is added instead.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var files []string
		seen := map[string]struct{}{}
		for _, arg := range args {
			matches, _ := filepath.Glob(arg)
			if len(matches) == 0 {
				// treat as literal path if exists
				if _, err := os.Stat(arg); err == nil {
					matches = []string{arg}
				}
			}
			for _, m := range matches {
				if _, ok := seen[m]; ok {
					continue
				}
				seen[m] = struct{}{}
				files = append(files, m)
			}
		}
		if len(files) == 0 {
			return fmt.Errorf("no input files matched")
		}
		sort.Strings(files)

		topt, err := tableOptions(abDelimiter, abSheetName)
		if err != nil {
			return err
		}
		outDir := abOutDir
		if outDir == "" {
			if abWorkspace == "" {
				return fmt.Errorf("one of --out-dir or --workspace is required")
			}
			w, err := openWorkspace(abWorkspace)
			if err != nil {
				return err
			}
			outDir = filepath.Join(w.RootDir(), "summaries")
		}
		if err := utils.EnsureDir(outDir); err != nil {
			return err
		}
		opt := analysis.Options{SampleRows: abSampleRows, TopValues: abTopValues}

		total := len(files)
		var failed []string
		for i, path := range files {
			if !abQuiet {
				fmt.Printf("[%d/%d] Processing %s...\n", i+1, total, filepath.Base(path))
			}
			t, err := parser.ParseFile(path, topt)
			if err != nil {
				fmt.Fprintf(os.Stderr, "⚠ Warning: %s skipped: %v\n", filepath.Base(path), err)
				failed = append(failed, filepath.Base(path))
				continue
			}
			rep := analysis.Profile(filepath.Base(path), t, opt)

			outFile := summaryPath(outDir, filepath.Base(path), abSheetName)
			if !abQuiet && filepath.Base(outFile) != summaryBase(filepath.Base(path), abSheetName)+".summary.md" {
				fmt.Printf("⚠ Detected existing summary, writing to %s to avoid overwrite.\n", filepath.Base(outFile))
			}
			if err := os.WriteFile(outFile, []byte(rep.Markdown()), 0o644); err != nil {
				return fmt.Errorf("write summary: %w", err)
			}
			if !abQuiet {
				score := rep.QualityScore()
				fmt.Printf("✓ %s: %d rows, quality %.1f (%s)\n", filepath.Base(outFile), rep.Rows, score, analysis.QualityLabel(score))
			}
		}
		if len(failed) == total {
			return fmt.Errorf("no files could be analyzed")
		}
		if len(failed) > 0 && !abQuiet {
			fmt.Printf("⚠ %d of %d files skipped: %s\n", len(failed), total, strings.Join(failed, ", "))
		}
		return nil
	},
}

// summaryBase derives the summary file stem, tagging the sheet when one is
// selected.
func summaryBase(file, sheet string) string {
	safe := strings.TrimSuffix(file, filepath.Ext(file))
	if sheet == "" {
		return safe
	}
	s := strings.ToLower(strings.TrimSpace(sheet))
	var b strings.Builder
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else if r == ' ' || r == '-' || r == '_' {
			b.WriteRune('-')
		}
	}
	ss := strings.Trim(b.String(), "-")
	if ss == "" {
		ss = "sheet"
	}
	return safe + "__sheet-" + ss
}

// summaryPath returns the first free summary path in dir.
func summaryPath(dir, file, sheet string) string {
	base := summaryBase(file, sheet)
	outFile := filepath.Join(dir, base+".summary.md")
	if _, err := os.Stat(outFile); err != nil {
		return outFile
	}
	for idx := 2; ; idx++ {
		cand := filepath.Join(dir, fmt.Sprintf("%s__%d.summary.md", base, idx))
		if _, err := os.Stat(cand); os.IsNotExist(err) {
			return cand
		}
	}
}

func init() {
	rootCmd.AddCommand(analyzeBatchCmd)
	analyzeBatchCmd.Flags().StringVarP(&abWorkspace, "workspace", "w", "", "write summaries into this workspace")
	analyzeBatchCmd.Flags().StringVarP(&abOutDir, "out-dir", "o", "", "directory for summaries")
	analyzeBatchCmd.Flags().StringVar(&abDelimiter, "delimiter", "", "CSV delimiter: ',' | ';' | '|' | 'tab' (sniffed if omitted)")
	analyzeBatchCmd.Flags().StringVar(&abSheetName, "sheet-name", "", "XLSX: sheet name to analyze")
	analyzeBatchCmd.Flags().IntVar(&abSampleRows, "sample-rows", 5, "number of sample rows to include (0 disables samples)")
	analyzeBatchCmd.Flags().IntVar(&abTopValues, "top-values", 8, "top values listed per categorical column")
	analyzeBatchCmd.Flags().BoolVar(&abQuiet, "quiet", false, "suppress progress and non-essential output")
}
