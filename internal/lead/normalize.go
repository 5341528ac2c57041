package lead

import (
	"strings"
	"unicode"
)

// NormalizePhone reduces a raw phone string to its comparable key by stripping
// whitespace, parentheses, brackets, hyphens, and plus signs. Contact identity
// is defined solely by equality of this key. Empty input yields "" (which
// matches nothing). Idempotent.
func NormalizePhone(raw string) string {
	if raw == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if unicode.IsSpace(r) {
			continue
		}
		switch r {
		case '(', ')', '[', ']', '-', '+':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// BuildPhoneIndex builds the dedup index: normalized phone key → existing
// lead ref. Refs with an empty normalized phone are excluded so leads with
// missing phones are never mass-merged. When two persisted leads normalize to
// the same key (a pre-existing data-quality issue), the later ref wins.
func BuildPhoneIndex(refs []Ref) map[string]Ref {
	idx := make(map[string]Ref, len(refs))
	for _, r := range refs {
		key := NormalizePhone(r.Phone)
		if key == "" {
			continue
		}
		idx[key] = r
	}
	return idx
}
