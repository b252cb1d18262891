package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/emlkit/go-emlspan/span"
)

// document is one corpus entry: the raw .eml plus its span set, which may
// be empty when no sibling spans file exists.
type document struct {
	name      string // base name without the .eml extension
	emlPath   string
	spansPath string
	raw       string
	set       *span.Set
}

// eachDocument runs fn over every .eml in the corpus directory, in name
// order. A document whose processing fails is logged and counted; the
// rest of the corpus still runs.
func eachDocument(fn func(d *document) error) (processed, failed int, err error) {
	entries, err := os.ReadDir(corpusDir)
	if err != nil {
		return 0, 0, fmt.Errorf("reading corpus directory: %w", err)
	}

	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".eml") {
			continue
		}
		d, err := loadDocument(e.Name())
		if err != nil {
			slog.Error("loading document failed", "file", e.Name(), "error", err)
			failed++
			continue
		}
		processed++
		if err := fn(d); err != nil {
			slog.Error("processing document failed", "file", e.Name(), "error", err)
			failed++
		}
	}
	return processed, failed, nil
}

func loadDocument(emlName string) (*document, error) {
	name := strings.TrimSuffix(emlName, ".eml")
	d := &document{
		name:      name,
		emlPath:   filepath.Join(corpusDir, emlName),
		spansPath: filepath.Join(corpusDir, name+".spans.json"),
	}

	raw, err := os.ReadFile(d.emlPath)
	if err != nil {
		return nil, err
	}
	d.raw = string(raw)

	data, err := os.ReadFile(d.spansPath)
	switch {
	case os.IsNotExist(err):
		d.set = span.NewSet(name)
	case err != nil:
		return nil, err
	default:
		d.set, err = span.UnmarshalSet(data)
		if err != nil {
			return nil, err
		}
		if d.set.Document == "" {
			d.set.Document = name
		}
	}
	return d, nil
}

// saveSet writes a new version of the document's span set in place of the
// old file.
func (d *document) saveSet(spans []span.Span) error {
	next := d.set.Next(spans)
	data, err := next.Marshal()
	if err != nil {
		return err
	}
	return os.WriteFile(d.spansPath, data, 0o644)
}
