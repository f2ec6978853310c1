package extract

import (
	"sort"
	"strings"
)

// Result aggregates the three derived views of one OCR response. It is owned
// by the caller and has no lifecycle beyond the extraction call.
type Result struct {
	Lines      []string
	Tables     map[string]Table
	FormFields map[string]string
}

// Build derives lines, tables and form fields from a raw block response in
// a single extraction call.
func Build(blocks []Block) Result {
	wm := BuildWordMap(blocks)
	return Result{
		Lines:      ExtractByType(blocks, BlockTypeLine),
		Tables:     ExtractTables(blocks, wm),
		FormFields: ExtractFormFields(blocks, wm),
	}
}

// RenderText flattens the result into the plain-text layout fed to the
// normalizer: form fields first, then tables, then reading-order lines.
// Map sections are sorted by key so output is stable across runs.
func (r Result) RenderText() string {
	var b strings.Builder

	b.WriteString("Extracted Form Fields:\n")
	labels := make([]string, 0, len(r.FormFields))
	for label := range r.FormFields {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	for _, label := range labels {
		b.WriteString("- ")
		b.WriteString(label)
		b.WriteString(": ")
		b.WriteString(r.FormFields[label])
		b.WriteString("\n")
	}

	b.WriteString("\nExtracted Tables:\n")
	keys := make([]string, 0, len(r.Tables))
	for k := range r.Tables {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.WriteString(k)
		b.WriteString(":\n")
		for _, row := range r.Tables[k] {
			b.WriteString(strings.Join(row, " | "))
			b.WriteString("\n")
		}
	}

	b.WriteString("\nExtracted Text Lines:\n")
	for _, line := range r.Lines {
		b.WriteString(line)
		b.WriteString("\n")
	}

	return b.String()
}
