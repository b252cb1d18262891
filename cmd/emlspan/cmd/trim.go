package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/emlkit/go-emlspan/section"
	"github.com/emlkit/go-emlspan/span/repair"
)

var trimDryRun bool

var trimCmd = &cobra.Command{
	Use:   "trim",
	Short: "Trim accidental whitespace from span selections",
	Long: "Annotators sometimes catch extra whitespace when selecting text.\n" +
		"trim moves each span's offsets inward to the non-whitespace core,\n" +
		"verifies the result against the section content, and writes a new\n" +
		"version of the span file. All-whitespace spans are removed.",
	RunE: runTrim,
}

func init() {
	rootCmd.AddCommand(trimCmd)
	trimCmd.Flags().BoolVar(&trimDryRun, "dry-run", false, "report changes without writing span files")
}

func runTrim(cmd *cobra.Command, args []string) error {
	var checked, corrected, dropped, failed int

	processed, docFailed, err := eachDocument(func(d *document) error {
		sections := section.Extract(d.raw)
		content := section.ContentByIndex(sections)

		rep := repair.TrimWhitespace(d.set.Spans, content)
		checked += len(rep.Results)
		corrected += rep.Count(repair.OutcomeCorrected)
		dropped += rep.Count(repair.OutcomeDropped)
		failed += rep.Count(repair.OutcomeFailed)

		changed := rep.Count(repair.OutcomeCorrected) + rep.Count(repair.OutcomeDropped)
		if changed == 0 {
			return nil
		}
		fmt.Printf("%s: %d trimmed, %d dropped, %d failed\n",
			d.name, rep.Count(repair.OutcomeCorrected), rep.Count(repair.OutcomeDropped),
			rep.Count(repair.OutcomeFailed))
		if trimDryRun {
			return nil
		}
		return d.saveSet(rep.Spans())
	})
	if err != nil {
		return err
	}

	action := "trimmed"
	if trimDryRun {
		action = "would be trimmed"
	}
	fmt.Println()
	fmt.Printf("documents:  %d (%d failed)\n", processed, docFailed)
	fmt.Printf("spans:      %d\n", checked)
	fmt.Printf("%s:    %d\n", action, corrected)
	fmt.Printf("dropped:    %d\n", dropped)
	fmt.Printf("failed:     %d\n", failed)
	return nil
}
