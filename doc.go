// Package configurator keeps an application's settings durable in a TOML
// file, reconciles them against a caller-supplied schema of defaults, overlays
// process-environment overrides, and mirrors every value as a live,
// bidirectionally-writable accessor tree.
//
// Quick Start:
//
//	defaults := map[string]any{
//	    "app": map[string]any{
//	        "ip":   "0.0.0.0",
//	        "host": "",
//	        "port": 5000,
//	    },
//	}
//
//	settings := configurator.New()
//	if _, err := settings.InitConfig("config", defaults, "app_config", ""); err != nil {
//	    log.Fatal(err)
//	}
//
//	// Mutate through the live mirror, then persist.
//	settings.Table("app").Set("ip", "1.1.1.1")
//	settings.Update()
//
//	// Flat snapshot access.
//	settings.GetSettings() // {"app_ip": "1.1.1.1", "app_host": "", "app_port": 5000}
//	settings.UpdateConfig(map[string]any{"app_ip": "1.2.3.4"})
//
// InitConfig runs load → reconcile → environment overlay → mirror projection:
//
//  1. The file config/app_config.toml is created from defaults when absent.
//  2. Missing tables and keys are added from defaults, kind mismatches are
//     replaced by the default, and keys absent from defaults are pruned.
//  3. Every leaf gets an environment variable (APP_PORT, or
//     APP_CONFIG_APP_PORT with the "app_config" prefix; nested tables flatten
//     to APP_DATABASES_PROD). A variable that already exists overrides the
//     document value instead, coerced through an ordered parser chain:
//     boolean, structured literal, timestamp, raw string.
//  4. Every table becomes a write-through Table accessor, and every key is
//     additionally exposed as a flat "table_key" / "_table_key" snapshot
//     attribute.
//
// The document is re-read from disk after every write, so the in-memory state
// is always the round-trip of what was persisted. Consistency is guaranteed
// within a single process only; there is no file locking.
package configurator
