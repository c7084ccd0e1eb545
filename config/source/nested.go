package source

// setNestedValue stores value under the path segments, creating maps on the
// way. A leaf already present on the path wins over a deeper value.
func setNestedValue(m map[string]any, segments []string, value string) {
	current := m

	for i, segment := range segments {
		if segment == "" {
			continue
		}

		if i == len(segments)-1 {
			current[segment] = value
			return
		}

		if existing, exists := current[segment]; exists {
			nested, ok := existing.(map[string]any)
			if !ok {
				return
			}
			current = nested
		} else {
			nested := make(map[string]any)
			current[segment] = nested
			current = nested
		}
	}
}
