package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/emlkit/go-emlspan/span/migrate"
)

var (
	migrateDryRun     bool
	migrateRawOffsets bool
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Convert legacy flat-string offsets to per-section offsets",
	Long: "Legacy span files carry offsets into one flat normalized string of\n" +
		"the whole email. migrate maps each span onto a section, falling back\n" +
		"to text search when position mapping fails. Unmappable spans come\n" +
		"back with section index -1; ambiguous matches are counted so they\n" +
		"can be reviewed.",
	RunE: runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.Flags().BoolVar(&migrateDryRun, "dry-run", false, "report results without writing span files")
	migrateCmd.Flags().BoolVar(&migrateRawOffsets, "raw-offsets", false,
		"legacy offsets index the raw encoded string, not the normalized one")
}

func runMigrate(cmd *cobra.Command, args []string) error {
	var mapped, textSearch, ambiguous, failed, duplicated int

	opts := &migrate.Options{
		ContextLen: cfg.ContextLen,
		RawOffsets: migrateRawOffsets,
		Logger:     slog.Default(),
	}

	processed, docFailed, err := eachDocument(func(d *document) error {
		rep := migrate.MigrateDocument(d.raw, d.set.Spans, opts)
		mapped += rep.Count(migrate.OutcomeMapped)
		textSearch += rep.Count(migrate.OutcomeTextSearch)
		ambiguous += rep.Count(migrate.OutcomeAmbiguous)
		failed += rep.Count(migrate.OutcomeFailed)
		duplicated += len(rep.Duplicates)

		fmt.Printf("%s: %d mapped, %d text-search, %d ambiguous, %d failed, %d duplicated\n",
			d.name, rep.Count(migrate.OutcomeMapped), rep.Count(migrate.OutcomeTextSearch),
			rep.Count(migrate.OutcomeAmbiguous), rep.Count(migrate.OutcomeFailed),
			len(rep.Duplicates))

		if migrateDryRun {
			return nil
		}
		return d.saveSet(rep.Spans())
	})
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Printf("documents:    %d (%d failed)\n", processed, docFailed)
	fmt.Printf("mapped:       %d\n", mapped)
	fmt.Printf("text-search:  %d\n", textSearch)
	fmt.Printf("ambiguous:    %d\n", ambiguous)
	fmt.Printf("failed:       %d\n", failed)
	fmt.Printf("duplicated:   %d\n", duplicated)
	return nil
}
