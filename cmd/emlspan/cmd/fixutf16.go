package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/emlkit/go-emlspan/section"
	"github.com/emlkit/go-emlspan/span/repair"
)

var fixUTF16DryRun bool

var fixUTF16Cmd = &cobra.Command{
	Use:   "fix-utf16",
	Short: "Convert UTF-16 code-unit offsets to codepoint offsets",
	Long: "Browser selection APIs count UTF-16 code units, so spans recorded\n" +
		"there drift by one for every preceding astral-plane character.\n" +
		"fix-utf16 converts such offsets to codepoints, keeping a span only\n" +
		"when the converted range slices exactly its stored text.",
	RunE: runFixUTF16,
}

func init() {
	rootCmd.AddCommand(fixUTF16Cmd)
	fixUTF16Cmd.Flags().BoolVar(&fixUTF16DryRun, "dry-run", false, "report changes without writing span files")
}

func runFixUTF16(cmd *cobra.Command, args []string) error {
	var checked, corrected, failed int

	processed, docFailed, err := eachDocument(func(d *document) error {
		sections := section.Extract(d.raw)
		content := section.ContentByIndex(sections)

		rep := repair.RepairUTF16(d.set.Spans, content)
		checked += len(rep.Results)
		corrected += rep.Count(repair.OutcomeCorrected)
		failed += rep.Count(repair.OutcomeFailed)

		if rep.Count(repair.OutcomeCorrected) == 0 {
			return nil
		}
		fmt.Printf("%s: %d fixed, %d failed\n",
			d.name, rep.Count(repair.OutcomeCorrected), rep.Count(repair.OutcomeFailed))
		if fixUTF16DryRun {
			return nil
		}
		return d.saveSet(rep.Spans())
	})
	if err != nil {
		return err
	}

	action := "fixed"
	if fixUTF16DryRun {
		action = "would be fixed"
	}
	fmt.Println()
	fmt.Printf("documents:  %d (%d failed)\n", processed, docFailed)
	fmt.Printf("spans:      %d\n", checked)
	fmt.Printf("%s:      %d\n", action, corrected)
	fmt.Printf("failed:     %d\n", failed)
	return nil
}
