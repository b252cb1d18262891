package cmd

import (
	"errors"
	"fmt"

	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/spf13/cobra"

	"github.com/emlkit/go-emlspan/message"
	"github.com/emlkit/go-emlspan/message/header"
	"github.com/emlkit/go-emlspan/section"
	"github.com/emlkit/go-emlspan/span"
	"github.com/emlkit/go-emlspan/span/repair"
)

var verifyVerbose bool

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check that every span slices its stored text (read-only)",
	RunE:  runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)
	verifyCmd.Flags().BoolVarP(&verifyVerbose, "verbose", "v", false, "print a diff for each mismatched span")
}

func runVerify(cmd *cobra.Command, args []string) error {
	var checked, matched, failed int
	filesWithIssues := map[string]int{}

	processed, docFailed, err := eachDocument(func(d *document) error {
		sections := section.Extract(d.raw)
		content := section.ContentByIndex(sections)

		spans := d.set.Spans
		if cfg.OffsetConvention == ConventionUTF16 {
			spans = repair.RepairUTF16(spans, content).Spans()
		}

		rep := repair.Verify(spans, content)
		checked += len(rep.Results)
		matched += rep.Count(repair.OutcomeMatched)
		if n := rep.Count(repair.OutcomeFailed); n > 0 {
			failed += n
			filesWithIssues[d.name] += n
			fmt.Printf("%s: %d of %d spans failed%s\n",
				d.name, n, len(rep.Results), documentDate(d.raw))
			if verifyVerbose {
				printFailures(rep)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Printf("documents:   %d (%d unreadable)\n", processed, docFailed)
	fmt.Printf("spans:       %d\n", checked)
	fmt.Printf("matching:    %d\n", matched)
	fmt.Printf("mismatched:  %d\n", failed)
	fmt.Printf("files with issues: %d\n", len(filesWithIssues))

	if failed > 0 || docFailed > 0 {
		return fmt.Errorf("verification found %d span issues in %d files", failed, len(filesWithIssues))
	}
	return nil
}

// printFailures shows each failed span, with a character diff when the
// failure is a text mismatch.
func printFailures(rep *repair.Report) {
	dmp := diffmatchpatch.New()
	for _, res := range rep.Results {
		if res.Outcome != repair.OutcomeFailed {
			continue
		}
		fmt.Printf("  section %d [%d:%d): %v\n",
			res.Span.SectionIndex, res.Span.Start, res.Span.End, res.Err)

		var mismatch *span.MismatchError
		if errors.As(res.Err, &mismatch) {
			diffs := dmp.DiffMain(mismatch.Want, mismatch.Got, false)
			fmt.Printf("    %s\n", dmp.DiffPrettyText(diffs))
		}
	}
}

// documentDate renders the message date for report lines, or nothing when
// the Date field is absent or unparseable.
func documentDate(raw string) string {
	msg, _ := message.Parse([]byte(raw))
	when, err := msg.GetHeader().GetTime(header.Date)
	if err != nil {
		return ""
	}
	return " (dated " + when.Format("2006-01-02") + ")"
}
