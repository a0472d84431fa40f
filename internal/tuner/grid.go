package tuner

// GridCombinations expands a parameter space into the full Cartesian
// product, in deterministic order.
func GridCombinations(space []ParamSpec) []map[string]any {
	if len(space) == 0 {
		return []map[string]any{{}}
	}

	combos := []map[string]any{{}}
	for _, p := range space {
		values := p.Values
		if len(values) == 0 {
			continue // continuous-only parameter has no grid points; skip
		}
		var next []map[string]any
		for _, base := range combos {
			for _, v := range values {
				entry := make(map[string]any, len(base)+1)
				for k, bv := range base {
					entry[k] = bv
				}
				entry[p.Name] = v
				next = append(next, entry)
			}
		}
		combos = next
	}
	return combos
}
