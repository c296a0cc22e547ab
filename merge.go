package configurator

import "github.com/rs/zerolog"

// mergeDefaults recursively reconciles a document table against a defaults
// table, in place. Missing keys are inserted as deep copies of the default.
// On a kind mismatch (scalar where defaults has a table, or a table where
// defaults has a scalar) the defaults win: the document value is discarded and
// rebuilt from the default. Existing values of the matching kind are kept.
func mergeDefaults(doc, defaults map[string]any, logger zerolog.Logger) {
	for key, def := range defaults {
		defTable, defIsTable := def.(map[string]any)

		if defIsTable {
			sub, ok := doc[key].(map[string]any)
			if !ok {
				if _, exists := doc[key]; exists {
					logger.Warn().Str("key", key).Msg("mismatched types: expected table, replacing")
				} else {
					logger.Info().Str("table", key).Msg("adding new table")
				}
				sub = make(map[string]any)
				doc[key] = sub
			}
			mergeDefaults(sub, defTable, logger)
			continue
		}

		current, exists := doc[key]
		if !exists {
			logger.Info().Str("key", key).Msg("adding new key")
			doc[key] = deepCopyValue(def)
			continue
		}
		if _, isTable := current.(map[string]any); isTable {
			logger.Warn().Str("key", key).Msg("mismatched types: expected value, replacing with default")
			doc[key] = deepCopyValue(def)
		}
	}
}

// pruneRemoved deletes keys present in the document but absent from the
// defaults, recursing into surviving sub-tables.
func pruneRemoved(doc, defaults map[string]any, logger zerolog.Logger) {
	for key, current := range doc {
		def, ok := defaults[key]
		if !ok {
			logger.Info().Str("key", key).Msg("removing key not present in defaults")
			delete(doc, key)
			continue
		}
		if sub, isTable := current.(map[string]any); isTable {
			if defTable, ok := def.(map[string]any); ok {
				pruneRemoved(sub, defTable, logger)
			}
		}
	}
}
