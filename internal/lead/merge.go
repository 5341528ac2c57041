package lead

// ResolveMerge computes the update payload for an incoming record matched to
// an existing lead. The import is authoritative for scalar fields, which the
// incoming values overwrite unconditionally. Tags are the union of both sides
// so an import can add information without discarding manually curated tags.
func ResolveMerge(existing Ref, incoming Lead) Lead {
	merged := incoming
	merged.ID = existing.ID
	merged.Tags = MergeTags(existing.Tags, incoming.Tags)
	return merged
}

// MergeTags unions two tag collections, existing first, with whitespace
// trimmed, blank entries filtered, and duplicates collapsed.
func MergeTags(existing, incoming []string) []string {
	merged := make([]string, 0, len(existing)+len(incoming))
	merged = append(merged, existing...)
	merged = append(merged, incoming...)
	return ParseTags(merged)
}
