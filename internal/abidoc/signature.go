package abidoc

import "strings"

// Signature returns the canonical identity of an entry, e.g.
// Transfer(address,uint256). Parameter names and the anonymous flag are
// excluded, so two event declarations that differ only in naming compare
// equal. Tuple parameters are expanded structurally.
func Signature(e Entry) string {
	types := make([]string, 0, len(e.Inputs))
	for _, p := range e.Inputs {
		types = append(types, canonicalType(p))
	}
	return e.Name + "(" + strings.Join(types, ",") + ")"
}

func canonicalType(p Param) string {
	if !strings.HasPrefix(p.Type, "tuple") {
		return p.Type
	}
	inner := make([]string, 0, len(p.Components))
	for _, c := range p.Components {
		inner = append(inner, canonicalType(c))
	}
	// keep the array suffix, if any: tuple[] -> (...)[]
	return "(" + strings.Join(inner, ",") + ")" + strings.TrimPrefix(p.Type, "tuple")
}
