package extract

// BlockType tags an OCR detection unit.
type BlockType string

const (
	BlockTypeWord             BlockType = "WORD"
	BlockTypeLine             BlockType = "LINE"
	BlockTypeSelectionElement BlockType = "SELECTION_ELEMENT"
	BlockTypeKeyValueSet      BlockType = "KEY_VALUE_SET"
	BlockTypeTable            BlockType = "TABLE"
	BlockTypeCell             BlockType = "CELL"
)

// RelationshipType labels an edge between blocks.
type RelationshipType string

const (
	RelationshipChild RelationshipType = "CHILD"
	RelationshipValue RelationshipType = "VALUE"
)

// EntityType classifies KEY_VALUE_SET blocks.
type EntityType string

const (
	EntityKey   EntityType = "KEY"
	EntityValue EntityType = "VALUE"
)

// SelectionStatus is the state of a SELECTION_ELEMENT (checkbox, radio).
type SelectionStatus string

const (
	Selected    SelectionStatus = "SELECTED"
	NotSelected SelectionStatus = "NOT_SELECTED"
)

// Relationship is an ordered edge list from one block to others.
type Relationship struct {
	Type RelationshipType
	IDs  []string
}

// Block is the atomic OCR detection unit. Blocks form a directed graph via
// Relationships: CHILD edges point to constituent word/selection blocks,
// VALUE edges link a KEY block to its paired VALUE block.
type Block struct {
	ID              string
	Type            BlockType
	Text            string          // WORD/LINE
	SelectionStatus SelectionStatus // SELECTION_ELEMENT
	EntityTypes     []EntityType    // KEY_VALUE_SET
	Relationships   []Relationship
	RowIndex        int // CELL
	ColumnIndex     int // CELL
	Columns         int // CELL: total columns of the owning table row, 0 if unknown
}

// ChildIDs returns the target ids of the block's CHILD relationship, nil when absent.
func (b Block) ChildIDs() []string {
	for _, r := range b.Relationships {
		if r.Type == RelationshipChild {
			return r.IDs
		}
	}
	return nil
}

// ValueIDs returns the target ids of the block's VALUE relationship, nil when absent.
func (b Block) ValueIDs() []string {
	for _, r := range b.Relationships {
		if r.Type == RelationshipValue {
			return r.IDs
		}
	}
	return nil
}

// HasEntityType reports whether the block carries the given entity tag.
func (b Block) HasEntityType(et EntityType) bool {
	for _, t := range b.EntityTypes {
		if t == et {
			return true
		}
	}
	return false
}
