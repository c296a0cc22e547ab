package configurator

import (
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment abstracts the process environment so the override/publish
// behavior can be faked in tests and disabled or redirected in production.
type Environment interface {
	// Lookup retrieves the variable, reporting whether it is present.
	Lookup(key string) (string, bool)
	// Set publishes the variable.
	Set(key, value string) error
}

// OSEnvironment is the default Environment, backed by the real process
// environment. Variables it sets persist for the process lifetime.
type OSEnvironment struct{}

func (OSEnvironment) Lookup(key string) (string, bool) { return os.LookupEnv(key) }
func (OSEnvironment) Set(key, value string) error      { return os.Setenv(key, value) }

// makeEnvName derives the environment variable name for a table/key pair:
// upper-cased segments joined by underscores, with the optional prefix first.
// Nested keys arrive pre-flattened ("databases_prod").
func (c *Configuration) makeEnvName(table, key string) string {
	name := strings.ToUpper(table) + "_" + strings.ToUpper(key)
	if c.envPrefix != "" {
		name = strings.ToUpper(c.envPrefix) + "_" + name
	}
	return name
}

// applyEnv runs the environment overlay over the whole document and persists
// the result. For every key whose derived variable already exists, the
// environment value is coerced and overrides the document (environment beats
// both defaults and the persisted file). Keys without an existing variable
// are published with their current value. Nested tables flatten to their
// leaves; no variable ever represents a whole sub-table on publish.
func (c *Configuration) applyEnv() error {
	for _, table := range sortedKeys(c.config) {
		tbl, ok := c.config[table].(map[string]any)
		if !ok {
			continue
		}
		c.overlayTable(table, "", tbl)
	}
	return c.writeAndReload()
}

// overlayTable applies the override-or-publish pass to one table level.
func (c *Configuration) overlayTable(table, keyPrefix string, tbl map[string]any) {
	for _, key := range sortedKeys(tbl) {
		flat := key
		if keyPrefix != "" {
			flat = keyPrefix + "_" + key
		}

		name := c.makeEnvName(table, flat)
		if raw, ok := c.env.Lookup(name); ok && raw != "" {
			c.logger.Info().Str("table", table).Str("key", flat).Str("env", name).
				Msg("overriding value from existing environment variable")
			tbl[key] = parseEnvValue(raw)
			continue
		}

		if sub, ok := tbl[key].(map[string]any); ok {
			c.overlayTable(table, flat, sub)
			continue
		}

		c.publishValue(table, flat, tbl[key])
	}
}

// publishValue sets the environment variable for a leaf, recursing into
// nested tables so only terminal leaves get variables.
func (c *Configuration) publishValue(table, key string, value any) {
	if sub, ok := value.(map[string]any); ok {
		for _, subkey := range sortedKeys(sub) {
			c.publishValue(table, key+"_"+subkey, sub[subkey])
		}
		return
	}

	name := c.makeEnvName(table, key)
	if err := c.env.Set(name, formatValue(value)); err != nil {
		c.logger.Error().Err(err).Str("env", name).Msg("could not set environment variable")
	}
}

// parseEnvValue coerces an environment override string into a typed document
// value. The chain is ordered: booleans first, then structured literals, then
// timestamps, then the raw string. Booleans and literals must be checked
// before date parsing so ambiguous tokens are not misread as dates.
func parseEnvValue(value string) any {
	if strings.EqualFold(value, "true") {
		return true
	}
	if strings.EqualFold(value, "false") {
		return false
	}
	if parsed, ok := parseLiteral(value); ok {
		return parsed
	}
	if ts, ok := parseTimestamp(value); ok {
		return ts
	}
	return value
}

// parseLiteral attempts a structured-literal parse (integers, floats, lists,
// inline mappings) via YAML. A bare word is valid YAML and would resolve to
// itself as a string, so string results are accepted only when the input was
// explicitly quoted; everything else falls through the chain.
func parseLiteral(value string) (any, bool) {
	var parsed any
	if err := yaml.Unmarshal([]byte(value), &parsed); err != nil {
		return nil, false
	}

	switch v := parsed.(type) {
	case bool, int, int64, uint64, float64:
		return normalizeValue(parsed), true
	case []any, map[string]any:
		return normalizeValue(parsed), true
	case string:
		trimmed := strings.TrimSpace(value)
		if len(trimmed) >= 2 && (trimmed[0] == '"' || trimmed[0] == '\'') {
			return v, true
		}
		return nil, false
	default:
		return nil, false
	}
}

// normalizeValue rewrites parsed literals into the document's value kinds:
// ints widen to int64, containers to map[string]any / []any.
func normalizeValue(value any) any {
	switch v := value.(type) {
	case int:
		return int64(v)
	case uint64:
		return int64(v)
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = normalizeValue(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			out[key] = normalizeValue(item)
		}
		return out
	default:
		return v
	}
}

// timestampLayouts are tried in order by parseTimestamp.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02 Jan 2006",
	time.RFC1123,
}

// parseTimestamp tries the known layouts against the value.
func parseTimestamp(value string) (time.Time, bool) {
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}
