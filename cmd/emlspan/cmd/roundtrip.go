package cmd

import (
	"bytes"
	"fmt"
	"os"

	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/spf13/cobra"

	"github.com/emlkit/go-emlspan/message"
)

var roundtripCmd = &cobra.Command{
	Use:   "roundtrip [message.eml]",
	Short: "Check that messages survive a parse and re-render byte for byte",
	Long: "With a path argument, parses that message, renders it back out,\n" +
		"and prints a diff when the output differs from the input. With no\n" +
		"argument, checks every .eml in the corpus directory.",
	Args: cobra.MaximumNArgs(1),
	RunE: runRoundtrip,
}

func init() {
	rootCmd.AddCommand(roundtripCmd)
}

func runRoundtrip(cmd *cobra.Command, args []string) error {
	if len(args) == 1 {
		raw, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		if !roundtripOne(args[0], string(raw)) {
			return fmt.Errorf("%s does not round-trip", args[0])
		}
		fmt.Printf("%s round-trips cleanly\n", args[0])
		return nil
	}

	var broken int
	processed, docFailed, err := eachDocument(func(d *document) error {
		if !roundtripOne(d.name, d.raw) {
			broken++
		}
		return nil
	})
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Printf("documents: %d (%d unreadable)\n", processed, docFailed)
	fmt.Printf("broken:    %d\n", broken)
	if broken > 0 || docFailed > 0 {
		return fmt.Errorf("%d documents do not round-trip", broken)
	}
	return nil
}

// roundtripOne reports whether raw re-renders byte for byte, printing a
// character diff when it does not. Parse errors are tolerated as long as
// the degraded message still renders its input.
func roundtripOne(name, raw string) bool {
	msg, _ := message.Parse([]byte(raw))

	var buf bytes.Buffer
	if _, err := msg.WriteTo(&buf); err != nil {
		fmt.Printf("%s: rendering failed: %v\n", name, err)
		return false
	}
	if buf.String() == raw {
		return true
	}

	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(raw, buf.String(), false)
	fmt.Printf("%s: output differs from input\n%s\n", name, dmp.DiffPrettyText(diffs))
	return false
}
