package extract

import (
	"strings"
	"testing"
)

func word(id, text string) Block {
	return Block{ID: id, Type: BlockTypeWord, Text: text}
}

func keyBlock(id string, childIDs, valueIDs []string) Block {
	b := Block{ID: id, Type: BlockTypeKeyValueSet, EntityTypes: []EntityType{EntityKey}}
	if childIDs != nil {
		b.Relationships = append(b.Relationships, Relationship{Type: RelationshipChild, IDs: childIDs})
	}
	if valueIDs != nil {
		b.Relationships = append(b.Relationships, Relationship{Type: RelationshipValue, IDs: valueIDs})
	}
	return b
}

func valueBlock(id string, childIDs []string) Block {
	b := Block{ID: id, Type: BlockTypeKeyValueSet, EntityTypes: []EntityType{EntityValue}}
	if childIDs != nil {
		b.Relationships = append(b.Relationships, Relationship{Type: RelationshipChild, IDs: childIDs})
	}
	return b
}

func TestBuildWordMap(t *testing.T) {
	blocks := []Block{
		word("w1", "Name"),
		{ID: "s1", Type: BlockTypeSelectionElement, SelectionStatus: Selected},
		{ID: "l1", Type: BlockTypeLine, Text: "a line"},
	}
	wm := BuildWordMap(blocks)
	if got := wm["w1"]; got != "Name" {
		t.Errorf("word text = %q, want %q", got, "Name")
	}
	if got := wm["s1"]; got != "SELECTED" {
		t.Errorf("selection text = %q, want %q", got, "SELECTED")
	}
	if _, ok := wm["l1"]; ok {
		t.Error("LINE blocks must not be indexed in the word map")
	}
}

func TestExtractFormFieldsPairsKeysAndValues(t *testing.T) {
	blocks := []Block{
		word("w1", "Full"),
		word("w2", "Name"),
		word("w3", "Ada"),
		word("w4", "Lovelace"),
		// value arrives before its key: the two-pass walk must still pair them
		valueBlock("v1", []string{"w3", "w4"}),
		keyBlock("k1", []string{"w1", "w2"}, []string{"v1"}),
	}
	fields := ExtractFormFields(blocks, BuildWordMap(blocks))
	if got := fields["Full Name"]; got != "Ada Lovelace" {
		t.Errorf("fields[%q] = %q, want %q", "Full Name", got, "Ada Lovelace")
	}
}

func TestExtractFormFieldsMissingValueSentinel(t *testing.T) {
	blocks := []Block{
		word("w1", "Phone"),
		// key references a value block that never appears in the response
		keyBlock("k1", []string{"w1"}, []string{"v-ghost"}),
		word("w2", "Email"),
		// key with no VALUE relationship at all
		keyBlock("k2", []string{"w2"}, nil),
	}
	fields := ExtractFormFields(blocks, BuildWordMap(blocks))
	if got := fields["Phone"]; got != "N/A" {
		t.Errorf("unresolved value = %q, want N/A", got)
	}
	if got := fields["Email"]; got != "N/A" {
		t.Errorf("missing VALUE edge = %q, want N/A", got)
	}
}

func TestExtractFormFieldsDuplicateLabelLastWins(t *testing.T) {
	blocks := []Block{
		word("w1", "Total"),
		word("w2", "Total"),
		word("first", "10.00"),
		word("second", "20.00"),
		valueBlock("v1", []string{"first"}),
		valueBlock("v2", []string{"second"}),
		keyBlock("k1", []string{"w1"}, []string{"v1"}),
		keyBlock("k2", []string{"w2"}, []string{"v2"}),
	}
	fields := ExtractFormFields(blocks, BuildWordMap(blocks))
	if got := fields["Total"]; got != "20.00" {
		t.Errorf("duplicate label resolved to %q, want the later key's value %q", got, "20.00")
	}
}

func TestExtractTables(t *testing.T) {
	cell := func(id string, row, col, cols int, childIDs []string) Block {
		b := Block{ID: id, Type: BlockTypeCell, RowIndex: row, ColumnIndex: col, Columns: cols}
		if childIDs != nil {
			b.Relationships = append(b.Relationships, Relationship{Type: RelationshipChild, IDs: childIDs})
		}
		return b
	}

	blocks := []Block{
		word("w1", "Item"),
		word("w2", "Qty"),
		word("w3", "Pen"),
		{ID: "t1", Type: BlockTypeTable},
		cell("c1", 1, 1, 2, []string{"w1"}),
		cell("c2", 1, 2, 2, []string{"w2"}),
		cell("c3", 2, 1, 2, []string{"w3"}),
		cell("c4", 2, 2, 2, nil), // no CHILD: renders as the single-space placeholder
		{ID: "t2", Type: BlockTypeTable}, // empty table must still register
	}
	tables := ExtractTables(blocks, BuildWordMap(blocks))

	if len(tables) != 2 {
		t.Fatalf("got %d tables, want 2", len(tables))
	}
	t1 := tables["table_1"]
	if len(t1) != 2 {
		t.Fatalf("table_1 has %d rows, want 2", len(t1))
	}
	if t1[0][0] != "Item" || t1[0][1] != "Qty" {
		t.Errorf("header row = %v", t1[0])
	}
	if t1[1][1] != " " {
		t.Errorf("empty cell = %q, want a single space placeholder", t1[1][1])
	}

	t2, ok := tables["table_2"]
	if !ok {
		t.Fatal("empty table was dropped")
	}
	if len(t2) != 0 {
		t.Errorf("empty table has %d rows, want 0", len(t2))
	}
}

func TestExtractTablesIgnoresCellsOutsideTable(t *testing.T) {
	blocks := []Block{
		{ID: "c1", Type: BlockTypeCell, RowIndex: 1, ColumnIndex: 1},
	}
	tables := ExtractTables(blocks, BuildWordMap(blocks))
	if len(tables) != 0 {
		t.Errorf("got %d tables from orphan cells, want 0", len(tables))
	}
}

func TestResultRenderText(t *testing.T) {
	blocks := []Block{
		{ID: "l1", Type: BlockTypeLine, Text: "INVOICE"},
		{ID: "l2", Type: BlockTypeLine, Text: "Thank you"},
		word("w1", "Vendor"),
		word("w2", "Acme"),
		valueBlock("v1", []string{"w2"}),
		keyBlock("k1", []string{"w1"}, []string{"v1"}),
	}
	text := Build(blocks).RenderText()

	for _, want := range []string{
		"Extracted Form Fields:\n- Vendor: Acme",
		"Extracted Tables:",
		"Extracted Text Lines:\nINVOICE\nThank you",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("rendered text missing %q:\n%s", want, text)
		}
	}
}
