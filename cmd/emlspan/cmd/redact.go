package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/emlkit/go-emlspan/reassemble"
	"github.com/emlkit/go-emlspan/section"
	"github.com/emlkit/go-emlspan/span"
	"github.com/emlkit/go-emlspan/span/repair"
)

var redactOutDir string

var redactCmd = &cobra.Command{
	Use:   "redact",
	Short: "Splice span replacements into each email and write the result",
	Long: "redact applies every span's tag (or [CLASS] placeholder) to its\n" +
		"document and writes a structurally identical .eml to the output\n" +
		"directory. Documents without a span file pass through unchanged.",
	RunE: runRedact,
}

func init() {
	rootCmd.AddCommand(redactCmd)
	redactCmd.Flags().StringVarP(&redactOutDir, "out", "o", "redacted", "output directory")
}

func runRedact(cmd *cobra.Command, args []string) error {
	if err := os.MkdirAll(redactOutDir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	var written int
	processed, docFailed, err := eachDocument(func(d *document) error {
		sections := section.Extract(d.raw)

		spans := d.set.Spans
		if cfg.OffsetConvention == ConventionUTF16 {
			content := section.ContentByIndex(sections)
			spans = repair.RepairUTF16(spans, content).Spans()
		}

		out, err := reassemble.Deidentify(d.raw, sections, span.BySection(spans))
		if err != nil {
			return err
		}

		outPath := filepath.Join(redactOutDir, d.name+".eml")
		if err := os.WriteFile(outPath, []byte(out), 0o644); err != nil {
			return err
		}
		written++
		fmt.Printf("%s: %d spans applied\n", d.name, len(spans))
		return nil
	})
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Printf("documents: %d (%d failed)\n", processed, docFailed)
	fmt.Printf("written:   %d\n", written)
	return nil
}
