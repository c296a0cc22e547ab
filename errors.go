package configurator

import "errors"

// Errors returned by the configuration store. All failures are wrapped with
// fmt.Errorf("...: %w", ...) so callers can match them with errors.Is.
var (
	// ErrCreate indicates the config directory or the initial config file
	// could not be created.
	ErrCreate = errors.New("unable to create config file")
	// ErrWrite indicates the config document could not be serialized or
	// written to disk.
	ErrWrite = errors.New("unable to write config file")
	// ErrLoad indicates the config file could not be parsed, even after a
	// create attempt.
	ErrLoad = errors.New("unable to load config file")
	// ErrUpdate indicates an unexpected failure inside UpdateConfig.
	ErrUpdate = errors.New("unable to update config")
	// ErrInvalidArgument indicates a malformed argument to InitConfig or
	// UpdateConfig. The wrapped message names the offending argument.
	ErrInvalidArgument = errors.New("invalid argument")
)
