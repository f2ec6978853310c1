package extract

import "strings"

// missingValue is substituted for every value id a KEY references that never
// materialized as a VALUE block.
const missingValue = "N/A"

// ExtractFormFields pairs KEY blocks with their VALUE blocks and returns a
// label -> value mapping.
//
// Two passes are required, not incidental: VALUE blocks may be encountered
// before or after their owning KEY block in raw response order, so a single
// pass risks resolving an unseen value. Pass 1 classifies every
// KEY_VALUE_SET block; pass 2 joins labels to resolved value text.
//
// When two KEY blocks carry identical label text the later one wins
// (insertion-order overwrite).
func ExtractFormFields(blocks []Block, wm WordMap) map[string]string {
	keyMap := make(map[string][]string)  // label text -> value block ids
	valueMap := make(map[string]string)  // value block id -> resolved text
	keyOrder := make([]string, 0, 16)    // labels in arrival order, for deterministic overwrite

	for _, b := range blocks {
		if b.Type != BlockTypeKeyValueSet {
			continue
		}
		switch {
		case b.HasEntityType(EntityKey):
			label := resolveChildren(b, wm)
			if label == "" {
				continue
			}
			keyMap[label] = b.ValueIDs()
			keyOrder = append(keyOrder, label)
		case b.HasEntityType(EntityValue):
			valueMap[b.ID] = resolveChildren(b, wm)
		}
	}

	fields := make(map[string]string, len(keyMap))
	for _, label := range keyOrder {
		ids := keyMap[label]
		if len(ids) == 0 {
			fields[label] = missingValue
			continue
		}
		fragments := make([]string, 0, len(ids))
		for _, id := range ids {
			if v, ok := valueMap[id]; ok {
				fragments = append(fragments, v)
			} else {
				fragments = append(fragments, missingValue)
			}
		}
		fields[label] = strings.TrimSpace(strings.Join(fragments, " "))
	}
	return fields
}

func resolveChildren(b Block, wm WordMap) string {
	var words []string
	for _, id := range b.ChildIDs() {
		if w, ok := wm[id]; ok {
			words = append(words, w)
		}
	}
	return strings.Join(words, " ")
}
