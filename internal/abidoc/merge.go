package abidoc

// MergeEvents builds the unified ABI for a modular deployment: the base
// document untouched and in order, followed by every event declared by a
// module document that the base does not already declare. Candidates are
// deduplicated by Signature keeping the first occurrence, so the result
// contains each distinct event exactly once. Module functions are not
// merged; submodules are only ever invoked through the base surface.
func MergeEvents(base Document, modules []Document) Document {
	seen := make(map[string]struct{})
	for _, e := range base {
		if e.Type == KindEvent {
			seen[Signature(e)] = struct{}{}
		}
	}

	out := make(Document, 0, len(base))
	out = append(out, base...)

	for _, doc := range modules {
		for _, e := range doc {
			if e.Type != KindEvent {
				continue
			}
			sig := Signature(e)
			if _, dup := seen[sig]; dup {
				continue
			}
			seen[sig] = struct{}{}
			out = append(out, e)
		}
	}
	return out
}
