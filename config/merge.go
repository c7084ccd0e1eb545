package config

import "strings"

// mergeMaps deep-merges src into dst. Nested maps merge key by key; any
// other value in src replaces the one in dst. Keys match case-insensitively
// so env-style "readtimeout" overrides a file's "readTimeout".
func mergeMaps(dst, src map[string]any) {
	for k, v := range src {
		key := existingKey(dst, k)
		if mv, ok := v.(map[string]any); ok {
			if existing, ok := dst[key].(map[string]any); ok {
				mergeMaps(existing, mv)
				continue
			}
			cp := map[string]any{}
			mergeMaps(cp, mv)
			dst[key] = cp
			continue
		}
		dst[key] = v
	}
}

func existingKey(m map[string]any, k string) string {
	if _, ok := m[k]; ok {
		return k
	}
	for existing := range m {
		if strings.EqualFold(existing, k) {
			return existing
		}
	}
	return k
}
