package configurator_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	configurator "github.com/GilbN/simple-toml-configurator"
)

// fakeEnv is a map-backed Environment so tests never touch the process
// environment.
type fakeEnv struct {
	vars map[string]string
}

func newFakeEnv() *fakeEnv {
	return &fakeEnv{vars: make(map[string]string)}
}

func (f *fakeEnv) Lookup(key string) (string, bool) {
	value, ok := f.vars[key]
	return value, ok
}

func (f *fakeEnv) Set(key, value string) error {
	f.vars[key] = value
	return nil
}

func newTestConfiguration(t *testing.T, defaults map[string]any, envPrefix string, env *fakeEnv) (*configurator.Configuration, string) {
	t.Helper()

	dir := t.TempDir()
	c := configurator.New(configurator.WithEnvironment(env))
	_, err := c.InitConfig(dir, defaults, "config", envPrefix)
	require.NoError(t, err)
	return c, dir
}

func TestInitConfig(t *testing.T) {
	t.Run("Creates Document From Defaults", func(t *testing.T) {
		env := newFakeEnv()
		defaults := map[string]any{
			"app": map[string]any{"port": 5000},
		}
		c, dir := newTestConfiguration(t, defaults, "", env)

		assert.FileExists(t, filepath.Join(dir, "config.toml"))
		assert.Equal(t, "config.toml", c.FileName())
		assert.Equal(t, dir, c.Path())

		app, ok := c.Config()["app"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, int64(5000), app["port"])

		published, ok := env.Lookup("APP_PORT")
		require.True(t, ok)
		assert.Equal(t, "5000", published)
	})

	t.Run("Argument Validation", func(t *testing.T) {
		c := configurator.New(configurator.WithEnvironment(newFakeEnv()))
		defaults := map[string]any{"app": map[string]any{"port": 5000}}

		_, err := c.InitConfig("", defaults, "config", "")
		require.ErrorIs(t, err, configurator.ErrInvalidArgument)
		assert.Contains(t, err.Error(), "config_path")

		_, err = c.InitConfig(t.TempDir(), nil, "config", "")
		require.ErrorIs(t, err, configurator.ErrInvalidArgument)
		assert.Contains(t, err.Error(), "defaults")

		_, err = c.InitConfig(t.TempDir(), map[string]any{}, "config", "")
		require.ErrorIs(t, err, configurator.ErrInvalidArgument)

		_, err = c.InitConfig(t.TempDir(), defaults, "", "")
		require.ErrorIs(t, err, configurator.ErrInvalidArgument)
		assert.Contains(t, err.Error(), "config_file_name")
	})

	t.Run("Idempotent Reinitialization", func(t *testing.T) {
		env := newFakeEnv()
		defaults := map[string]any{
			"app":     map[string]any{"host": "localhost", "port": 5000},
			"logging": map[string]any{"debug": false},
		}
		c, dir := newTestConfiguration(t, defaults, "", env)

		first, err := os.ReadFile(filepath.Join(dir, "config.toml"))
		require.NoError(t, err)

		_, err = c.InitConfig(dir, defaults, "config", "")
		require.NoError(t, err)

		second, err := os.ReadFile(filepath.Join(dir, "config.toml"))
		require.NoError(t, err)
		assert.Equal(t, string(first), string(second))
	})

	t.Run("Prunes Keys Removed From Defaults", func(t *testing.T) {
		dir := t.TempDir()
		existing := "[logging]\ndebug = false\nlevel = \"info\"\n"
		require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(existing), 0644))

		c := configurator.New(configurator.WithEnvironment(newFakeEnv()))
		_, err := c.InitConfig(dir, map[string]any{
			"logging": map[string]any{"debug": false},
		}, "config", "")
		require.NoError(t, err)

		logging := c.Config()["logging"].(map[string]any)
		assert.NotContains(t, logging, "level")
		assert.Contains(t, logging, "debug")

		data, err := os.ReadFile(filepath.Join(dir, "config.toml"))
		require.NoError(t, err)
		assert.NotContains(t, string(data), "level")
	})

	t.Run("Keeps Existing Values Of Matching Kind", func(t *testing.T) {
		dir := t.TempDir()
		existing := "[app]\nhost = \"example.com\"\n"
		require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(existing), 0644))

		c := configurator.New(configurator.WithEnvironment(newFakeEnv()))
		_, err := c.InitConfig(dir, map[string]any{
			"app": map[string]any{"host": "localhost", "port": 5000},
		}, "config", "")
		require.NoError(t, err)

		app := c.Config()["app"].(map[string]any)
		assert.Equal(t, "example.com", app["host"])
		assert.Equal(t, int64(5000), app["port"])
	})

	t.Run("Defaults Win On Kind Mismatch", func(t *testing.T) {
		dir := t.TempDir()
		existing := "[mysql]\ndatabases = \"oops\"\n"
		require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(existing), 0644))

		c := configurator.New(configurator.WithEnvironment(newFakeEnv()))
		_, err := c.InitConfig(dir, map[string]any{
			"mysql": map[string]any{
				"databases": map[string]any{"prod": "test", "dev": "test2"},
			},
		}, "config", "")
		require.NoError(t, err)

		databases := c.Config()["mysql"].(map[string]any)["databases"].(map[string]any)
		assert.Equal(t, "test", databases["prod"])
		assert.Equal(t, "test2", databases["dev"])
	})
}

func TestGetSettings(t *testing.T) {
	env := newFakeEnv()
	defaults := map[string]any{
		"app":     map[string]any{"host": "localhost", "port": 8080},
		"logging": map[string]any{"debug": false},
		"mysql":   map[string]any{"databases": map[string]any{"prod": "a"}},
	}
	c, _ := newTestConfiguration(t, defaults, "", env)

	settings := c.GetSettings()

	// Keys are exactly table_key for the top two levels; deeper nesting is
	// not flattened.
	assert.ElementsMatch(t,
		[]string{"app_host", "app_port", "logging_debug", "mysql_databases"},
		keysOf(settings))
	assert.Equal(t, "localhost", settings["app_host"])
	assert.Equal(t, int64(8080), settings["app_port"])
	assert.Equal(t, false, settings["logging_debug"])
	assert.Equal(t, map[string]any{"prod": "a"}, settings["mysql_databases"])
}

func keysOf(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	return keys
}

func TestUpdateConfig(t *testing.T) {
	t.Run("Updates Values By Flat Key", func(t *testing.T) {
		env := newFakeEnv()
		defaults := map[string]any{
			"app": map[string]any{"host": "localhost", "port": 8080},
		}
		c, _ := newTestConfiguration(t, defaults, "", env)

		err := c.UpdateConfig(map[string]any{"app_host": "test_localhost", "app_port": 8888})
		require.NoError(t, err)

		app := c.Config()["app"].(map[string]any)
		assert.Equal(t, "test_localhost", app["host"])
		assert.Equal(t, int64(8888), app["port"])

		host, ok := c.Attr("app_host")
		require.True(t, ok)
		assert.Equal(t, "test_localhost", host)
	})

	t.Run("Replaces Nested Table Value", func(t *testing.T) {
		env := newFakeEnv()
		defaults := map[string]any{
			"mysql": map[string]any{
				"databases": map[string]any{"prod": "prod_db1", "dev": "dev_db1"},
			},
		}
		c, _ := newTestConfiguration(t, defaults, "", env)

		err := c.UpdateConfig(map[string]any{
			"mysql_databases": map[string]any{"prod": "a", "dev": "b"},
		})
		require.NoError(t, err)

		databases := c.Config()["mysql"].(map[string]any)["databases"].(map[string]any)
		assert.Equal(t, "a", databases["prod"])
		assert.Equal(t, "b", databases["dev"])
	})

	t.Run("Bare Key Updates Every Matching Table", func(t *testing.T) {
		env := newFakeEnv()
		defaults := map[string]any{
			"first":  map[string]any{"host": "one"},
			"second": map[string]any{"host": "two"},
		}
		c, _ := newTestConfiguration(t, defaults, "", env)

		// Without a table prefix the key matches in both tables.
		err := c.UpdateConfig(map[string]any{"host": "shared"})
		require.NoError(t, err)

		assert.Equal(t, "shared", c.Config()["first"].(map[string]any)["host"])
		assert.Equal(t, "shared", c.Config()["second"].(map[string]any)["host"])
	})

	t.Run("Ignores Unknown Keys", func(t *testing.T) {
		env := newFakeEnv()
		defaults := map[string]any{"app": map[string]any{"port": 8080}}
		c, _ := newTestConfiguration(t, defaults, "", env)

		require.NoError(t, c.UpdateConfig(map[string]any{"app_missing": 1}))
		assert.NotContains(t, c.Config()["app"].(map[string]any), "missing")
	})

	t.Run("Nil Settings", func(t *testing.T) {
		env := newFakeEnv()
		defaults := map[string]any{"app": map[string]any{"port": 8080}}
		c, _ := newTestConfiguration(t, defaults, "", env)

		err := c.UpdateConfig(nil)
		require.ErrorIs(t, err, configurator.ErrInvalidArgument)
	})

	t.Run("Uninitialized", func(t *testing.T) {
		c := configurator.New()
		err := c.UpdateConfig(map[string]any{"app_port": 1})
		require.ErrorIs(t, err, configurator.ErrUpdate)
	})
}

func TestUpdate(t *testing.T) {
	t.Run("Persists Direct Document Mutation", func(t *testing.T) {
		env := newFakeEnv()
		defaults := map[string]any{"logging": map[string]any{"debug": false}}
		c, dir := newTestConfiguration(t, defaults, "", env)

		c.Config()["logging"].(map[string]any)["debug"] = true
		require.NoError(t, c.Update())

		debug, ok := c.Attr("logging_debug")
		require.True(t, ok)
		assert.Equal(t, true, debug)

		data, err := os.ReadFile(filepath.Join(dir, "config.toml"))
		require.NoError(t, err)
		assert.Contains(t, string(data), "debug = true")
	})

	t.Run("Uninitialized", func(t *testing.T) {
		c := configurator.New()
		require.Error(t, c.Update())
	})
}

func TestRoundTrip(t *testing.T) {
	// After a write, the in-memory document is always the round-trip of
	// what was persisted: reinitializing over the same file must observe
	// identical state.
	env := newFakeEnv()
	defaults := map[string]any{
		"app": map[string]any{
			"host":  "localhost",
			"port":  8080,
			"ratio": 0.5,
			"debug": true,
		},
	}
	c, dir := newTestConfiguration(t, defaults, "", env)
	doc := c.Config()

	other := configurator.New(configurator.WithEnvironment(env))
	reloaded, err := other.InitConfig(dir, defaults, "config", "")
	require.NoError(t, err)
	assert.Equal(t, doc, reloaded)
}
