package extract

// WordMap resolves a block id to its text: a word's literal text, or a
// selection element's status string. Built once per OCR response and
// read-only afterwards.
type WordMap map[string]string

// BuildWordMap walks the blocks once and indexes every WORD and
// SELECTION_ELEMENT by id.
func BuildWordMap(blocks []Block) WordMap {
	wm := make(WordMap, len(blocks))
	for _, b := range blocks {
		switch b.Type {
		case BlockTypeWord:
			wm[b.ID] = b.Text
		case BlockTypeSelectionElement:
			wm[b.ID] = string(b.SelectionStatus)
		}
	}
	return wm
}

// ExtractByType filters blocks of the given type and returns their text in
// arrival order. The order OCR returns blocks in is treated as authoritative
// reading order for the document.
func ExtractByType(blocks []Block, t BlockType) []string {
	var out []string
	for _, b := range blocks {
		if b.Type == t {
			out = append(out, b.Text)
		}
	}
	return out
}
