package configurator

import (
	"fmt"

	"github.com/rs/zerolog"
)

// Builder provides a fluent interface for constructing and initializing a
// Configuration.
type Builder struct {
	path      string
	fileName  string
	envPrefix string
	defaults  map[string]any
	opts      []Option
	err       error
}

// NewBuilder creates a builder with the default file name "config".
func NewBuilder() *Builder {
	return &Builder{fileName: "config"}
}

// WithPath sets the config folder path.
func (b *Builder) WithPath(path string) *Builder {
	b.path = path
	return b
}

// WithDefaults sets the defaults schema.
func (b *Builder) WithDefaults(defaults map[string]any) *Builder {
	b.defaults = defaults
	return b
}

// WithDefaultsStruct derives the defaults schema from a toml-tagged struct.
func (b *Builder) WithDefaultsStruct(structWithDefaults any) *Builder {
	defaults, err := DefaultsFromStruct(structWithDefaults)
	if err != nil {
		b.err = err
		return b
	}
	b.defaults = defaults
	return b
}

// WithFileName sets the config file name, without the .toml extension.
func (b *Builder) WithFileName(name string) *Builder {
	b.fileName = name
	return b
}

// WithEnvPrefix sets the environment variable prefix.
func (b *Builder) WithEnvPrefix(prefix string) *Builder {
	b.envPrefix = prefix
	return b
}

// WithLogger sets the logger.
func (b *Builder) WithLogger(logger zerolog.Logger) *Builder {
	b.opts = append(b.opts, WithLogger(logger))
	return b
}

// WithEnvironment sets the environment provider.
func (b *Builder) WithEnvironment(env Environment) *Builder {
	b.opts = append(b.opts, WithEnvironment(env))
	return b
}

// Build creates the Configuration and runs InitConfig with the accumulated
// options.
func (b *Builder) Build() (*Configuration, error) {
	if b.err != nil {
		return nil, b.err
	}

	c := New(b.opts...)
	if _, err := c.InitConfig(b.path, b.defaults, b.fileName, b.envPrefix); err != nil {
		return nil, err
	}
	return c, nil
}

// MustBuild is like Build but panics on error.
func (b *Builder) MustBuild() *Configuration {
	c, err := b.Build()
	if err != nil {
		panic(fmt.Sprintf("config build failed: %v", err))
	}
	return c
}
