package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/emlkit/go-emlspan/section"
	"github.com/emlkit/go-emlspan/span"
	"github.com/emlkit/go-emlspan/suggest"
)

var suggestWrite bool

var suggestCmd = &cobra.Command{
	Use:   "suggest",
	Short: "Propose header PII spans from address-bearing fields",
	RunE:  runSuggest,
}

func init() {
	rootCmd.AddCommand(suggestCmd)
	suggestCmd.Flags().BoolVar(&suggestWrite, "write", false,
		"write proposals to <name>.suggested.json instead of printing them")
}

func runSuggest(cmd *cobra.Command, args []string) error {
	var total int

	processed, docFailed, err := eachDocument(func(d *document) error {
		sections := section.Extract(d.raw)
		if len(sections) == 0 {
			return nil
		}

		proposals := suggest.Header(sections[0].Content)
		kept := proposals[:0]
		for _, p := range proposals {
			if utf8.RuneCountInString(p.Text) >= cfg.MinSelectionLen {
				kept = append(kept, p)
			}
		}
		total += len(kept)

		if suggestWrite {
			set := span.NewSet(d.name)
			for _, p := range kept {
				set.Add(p)
			}
			data, err := set.Marshal()
			if err != nil {
				return err
			}
			return os.WriteFile(filepath.Join(corpusDir, d.name+".suggested.json"), data, 0o644)
		}

		for _, p := range kept {
			fmt.Printf("%s: [%d:%d) %s %q\n", d.name, p.Start, p.End, p.ClassName, p.Text)
		}
		return nil
	})
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Printf("documents: %d (%d failed)\n", processed, docFailed)
	fmt.Printf("proposals: %d\n", total)
	return nil
}
