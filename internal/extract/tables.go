package extract

import (
	"fmt"
	"strings"
)

// Table is an ordered sequence of rows, each an ordered sequence of cell strings.
type Table [][]string

// cellPlaceholder keeps row/column alignment visually inspectable when a CELL
// has no CHILD relationship. A single space, not an empty string.
const cellPlaceholder = " "

// ExtractTables scans blocks in response order and reconstructs every table.
// A new table begins at each TABLE block; rows are delimited by changes in
// RowIndex; a row is additionally flushed when the final cell of the table
// row (ColumnIndex == Columns) is seen. Keys are positional ("table_1",
// "table_2", ...) so re-running extraction on identical input is reproducible.
//
// A TABLE block with zero CELL children still registers with an empty row
// list, never silently dropped.
func ExtractTables(blocks []Block, wm WordMap) map[string]Table {
	tables := make(map[string]Table)

	var (
		key      string
		rows     Table
		row      []string
		rowIndex int
		open     bool
	)

	flushRow := func() {
		if len(row) > 0 {
			rows = append(rows, row)
			row = nil
		}
	}
	flushTable := func() {
		if !open {
			return
		}
		flushRow()
		if rows == nil {
			rows = Table{}
		}
		tables[key] = rows
		rows = nil
		open = false
	}

	for _, b := range blocks {
		switch b.Type {
		case BlockTypeTable:
			flushTable()
			key = fmt.Sprintf("table_%d", len(tables)+1)
			rowIndex = 0
			open = true
		case BlockTypeCell:
			if !open {
				continue
			}
			if b.RowIndex != rowIndex {
				flushRow()
				rowIndex = b.RowIndex
			}
			row = append(row, resolveCell(b, wm))
			if b.Columns > 0 && b.ColumnIndex == b.Columns {
				flushRow()
			}
		}
	}
	flushTable()

	return tables
}

func resolveCell(b Block, wm WordMap) string {
	ids := b.ChildIDs()
	if ids == nil {
		return cellPlaceholder
	}
	var words []string
	for _, id := range ids {
		if w, ok := wm[id]; ok {
			words = append(words, w)
		}
	}
	return strings.Join(words, " ")
}
