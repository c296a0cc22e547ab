package configurator

import (
	"fmt"
	"path/filepath"
	"reflect"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// Configuration is the facade over the document store, the defaults
// reconciliation, the environment overlay and the attribute mirror. One
// instance owns one on-disk file and the environment variables derived from
// it. The zero value is unconfigured; InitConfig makes it ready, and it stays
// ready for the process lifetime.
type Configuration struct {
	mu     sync.RWMutex
	logger zerolog.Logger
	env    Environment

	defaults  map[string]any
	path      string
	fileName  string
	envPrefix string
	fullPath  string

	store  *documentStore
	config map[string]any
	tables map[string]*Table
	attrs  map[string]any
}

// Option configures a Configuration instance.
type Option func(*Configuration)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Configuration) { c.logger = logger }
}

// WithEnvironment sets the environment provider used for overrides and
// publishing. The default is the real process environment.
func WithEnvironment(env Environment) Option {
	return func(c *Configuration) { c.env = env }
}

// New creates an unconfigured Configuration.
func New(opts ...Option) *Configuration {
	c := &Configuration{
		logger: zerolog.Nop(),
		env:    OSEnvironment{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Quick creates a Configuration and initializes it in one call.
func Quick(configPath string, defaults map[string]any, fileName, envPrefix string, opts ...Option) (*Configuration, error) {
	c := New(opts...)
	if _, err := c.InitConfig(configPath, defaults, fileName, envPrefix); err != nil {
		return nil, err
	}
	return c, nil
}

// MustQuick is like Quick but panics on error.
func MustQuick(configPath string, defaults map[string]any, fileName, envPrefix string, opts ...Option) *Configuration {
	c, err := Quick(configPath, defaults, fileName, envPrefix, opts...)
	if err != nil {
		panic(fmt.Sprintf("config initialization failed: %v", err))
	}
	return c
}

// InitConfig creates the config folder and TOML file if needed, reconciles the
// loaded document against defaults (adding missing tables and keys, replacing
// kind mismatches, pruning keys absent from defaults), applies environment
// overrides, publishes every leaf as an environment variable, and projects the
// attribute mirror. The file lives at configPath/fileName.toml. Variable names
// are upper-cased TABLE_KEY paths, prefixed with envPrefix when set; nested
// tables flatten to their leaves (APP_DATABASES_PROD).
//
// It returns the reconciled document and is idempotent for identical
// arguments. Calling it again with different defaults re-triggers
// reconciliation.
func (c *Configuration) InitConfig(configPath string, defaults map[string]any, fileName, envPrefix string) (map[string]any, error) {
	if configPath == "" {
		return nil, fmt.Errorf("%w: config_path must not be empty", ErrInvalidArgument)
	}
	if len(defaults) == 0 {
		return nil, fmt.Errorf("%w: defaults must not be empty", ErrInvalidArgument)
	}
	if fileName == "" {
		return nil, fmt.Errorf("%w: config_file_name must not be empty", ErrInvalidArgument)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.defaults = deepCopyTable(defaults)
	c.path = configPath
	c.fileName = fileName + ".toml"
	c.envPrefix = envPrefix
	c.fullPath = filepath.Join(configPath, c.fileName)
	c.store = &documentStore{path: c.fullPath, logger: c.logger}

	doc, err := c.store.load(c.defaults)
	if err != nil {
		return nil, err
	}
	c.config = doc

	if err := c.syncConfigValues(); err != nil {
		return nil, err
	}
	if err := c.applyEnv(); err != nil {
		return nil, err
	}
	c.setAttributes()

	return c.config, nil
}

// syncConfigValues reconciles the document against the defaults: the additive
// pass first, then the prune pass, persisting after each so later stages read
// the freshly synced document.
func (c *Configuration) syncConfigValues() error {
	mergeDefaults(c.config, c.defaults, c.logger)
	if err := c.writeAndReload(); err != nil {
		return err
	}
	pruneRemoved(c.config, c.defaults, c.logger)
	return c.writeAndReload()
}

// writeAndReload persists the in-memory document and adopts the re-read
// on-disk state as the new document.
func (c *Configuration) writeAndReload() error {
	doc, err := c.store.write(c.config)
	if err != nil {
		return err
	}
	c.config = doc
	return nil
}

// GetSettings flattens the document one level into table_key keys. It covers
// the top two levels only; deeper nesting stays as nested values. Returned
// values are copies.
func (c *Configuration) GetSettings() map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()

	settings := make(map[string]any)
	for table, value := range c.config {
		tbl, ok := value.(map[string]any)
		if !ok {
			continue
		}
		for key, v := range tbl {
			settings[table+"_"+key] = deepCopyValue(v)
		}
	}
	return settings
}

// UpdateConfig overwrites document values from a partial mapping in the
// GetSettings key format, then persists and re-projects the mirror. For every
// table, each partial key is matched after stripping that table's own
// "table_" prefix; a bare key that exists in several tables is therefore
// written to all of them, so key names should be globally unique.
func (c *Configuration) UpdateConfig(settings map[string]any) error {
	if settings == nil {
		return fmt.Errorf("%w: settings must not be nil", ErrInvalidArgument)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.store == nil {
		return fmt.Errorf("%w: configuration not initialized", ErrUpdate)
	}

	for table, value := range c.config {
		tbl, ok := value.(map[string]any)
		if !ok {
			continue
		}
		for key, newValue := range settings {
			tableKey := stripTablePrefix(key, table)
			current, exists := tbl[tableKey]
			if !exists {
				continue
			}
			if !reflect.DeepEqual(current, newValue) {
				c.logger.Info().Str("table", table).Str("key", tableKey).Msg("updating TOML document")
				tbl[tableKey] = deepCopyValue(newValue)
			}
		}
	}

	if err := c.writeAndReload(); err != nil {
		return fmt.Errorf("%w: %w", ErrUpdate, err)
	}
	c.setAttributes()
	return nil
}

// Update persists whatever is currently in the in-memory document (typically
// mutated through the mirror) and re-projects the mirror.
func (c *Configuration) Update() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.store == nil {
		return fmt.Errorf("%w: configuration not initialized", ErrWrite)
	}
	if err := c.writeAndReload(); err != nil {
		return err
	}
	c.setAttributes()
	return nil
}

// stripTablePrefix returns the substring after the last occurrence of
// "table_", or the key unchanged when the prefix is absent.
func stripTablePrefix(key, table string) string {
	prefix := table + "_"
	if idx := strings.LastIndex(key, prefix); idx >= 0 {
		return key[idx+len(prefix):]
	}
	return key
}

// Config returns the live document. Mutations become durable on Update.
func (c *Configuration) Config() map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.config
}

// Table returns the live accessor for a top-level table, or nil.
func (c *Configuration) Table(name string) *Table {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tables[name]
}

// Attr looks up a flat "table_key" or "_table_key" attribute. Attributes are
// snapshot copies as of the last mirror rebuild, not write-through references.
func (c *Configuration) Attr(name string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	value, ok := c.attrs[name]
	return value, ok
}

// Defaults returns a copy of the defaults schema.
func (c *Configuration) Defaults() map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return deepCopyTable(c.defaults)
}

// Path returns the config folder path.
func (c *Configuration) Path() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.path
}

// FileName returns the config file name, including the .toml extension.
func (c *Configuration) FileName() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.fileName
}

// FilePath returns the full path of the config file.
func (c *Configuration) FilePath() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.fullPath
}

// EnvPrefix returns the environment variable prefix.
func (c *Configuration) EnvPrefix() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.envPrefix
}
