package configurator

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// deepCopyTable returns a fully independent copy of a document table.
// Nested tables and arrays are copied recursively; scalars are shared as
// values. Inserting defaults into the live document must never alias the
// defaults schema, otherwise write-through mirror assignments would mutate it.
func deepCopyTable(src map[string]any) map[string]any {
	dst := make(map[string]any, len(src))
	for key, value := range src {
		dst[key] = deepCopyValue(value)
	}
	return dst
}

// deepCopyValue copies a single document value.
func deepCopyValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		return deepCopyTable(v)
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = deepCopyValue(item)
		}
		return out
	default:
		return v
	}
}

// navigateToPath traverses the nested document to reach a dot-separated path.
// Returns nil if any segment is missing or not a table.
func navigateToPath(nested map[string]any, path string) any {
	if path == "" {
		return nested
	}

	path = strings.TrimSuffix(path, ".")
	if path == "" {
		return nested
	}

	segments := strings.Split(path, ".")
	current := any(nested)

	for _, segment := range segments {
		currentMap, ok := current.(map[string]any)
		if !ok {
			return nil
		}

		value, exists := currentMap[segment]
		if !exists {
			return nil
		}
		current = value
	}

	return current
}

// formatValue renders a document value as the string form published to the
// environment. Lists keep a literal form the override parser can read back.
func formatValue(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.FormatInt(int64(v), 10)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case time.Time:
		return v.Format(time.RFC3339)
	case []any:
		parts := make([]string, len(v))
		for i, item := range v {
			if s, ok := item.(string); ok {
				parts[i] = strconv.Quote(s)
				continue
			}
			parts[i] = formatValue(item)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return fmt.Sprintf("%v", v)
	}
}

// sortedKeys returns the keys of a table in lexical order.
func sortedKeys(table map[string]any) []string {
	keys := make([]string, 0, len(table))
	for key := range table {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
