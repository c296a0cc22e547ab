package configurator

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog"
)

// blankLines matches runs of three or more newlines; serialized documents
// collapse them to a single blank line.
var blankLines = regexp.MustCompile(`\n{3,}`)

// documentStore owns the on-disk TOML document for one Configuration
// instance. The in-memory document is always re-read from disk after every
// write, so the authoritative state is what was actually persisted.
type documentStore struct {
	path   string
	logger zerolog.Logger
}

// load reads and parses the config file. If the file does not exist, the
// parent directory is created (idempotently), the defaults schema is written
// as the initial document, and the file is read back. A parse failure even
// after a create attempt is fatal.
func (s *documentStore) load(defaults map[string]any) (map[string]any, error) {
	doc, err := s.read()
	if err == nil {
		return doc, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	if err := s.create(defaults); err != nil {
		return nil, err
	}

	doc, err = s.read()
	if err != nil {
		s.logger.Error().Err(err).Str("path", s.path).Msg("could not load config file after create")
		return nil, fmt.Errorf("%w: %q after create attempt: %v", ErrLoad, s.path, err)
	}
	return doc, nil
}

// read parses the file into a document. A missing file is reported as
// fs.ErrNotExist so load can fall back to create.
func (s *documentStore) read() (map[string]any, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: reading %q: %v", ErrLoad, s.path, err)
	}

	doc := make(map[string]any)
	if err := toml.Unmarshal(data, &doc); err != nil {
		s.logger.Error().Err(err).Str("path", s.path).Msg("could not parse config file")
		return nil, fmt.Errorf("%w: parsing %q: %v", ErrLoad, s.path, err)
	}
	return doc, nil
}

// create writes the defaults schema as the initial config file.
func (s *documentStore) create(defaults map[string]any) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		s.logger.Error().Err(err).Str("dir", dir).Msg("could not create config folder")
		return fmt.Errorf("%w: creating config folder %q: %v", ErrCreate, dir, err)
	}

	s.logger.Debug().Str("path", s.path).Msg("creating config file")
	data, err := encode(defaults)
	if err != nil {
		return fmt.Errorf("%w: serializing defaults for %q: %v", ErrCreate, s.path, err)
	}
	if err := atomicWriteFile(s.path, data); err != nil {
		s.logger.Error().Err(err).Str("path", s.path).Msg("could not create config file")
		return fmt.Errorf("%w: %q: %v", ErrCreate, s.path, err)
	}
	return nil
}

// write serializes the document, overwrites the file and re-reads it,
// returning the freshly parsed document. Callers must adopt the returned
// document as the new in-memory state.
func (s *documentStore) write(doc map[string]any) (map[string]any, error) {
	s.logger.Debug().Str("path", s.path).Msg("writing config to file")

	data, err := encode(doc)
	if err != nil {
		s.logger.Error().Err(err).Str("path", s.path).Msg("could not serialize config")
		return nil, fmt.Errorf("%w: serializing %q: %v", ErrWrite, s.path, err)
	}
	if err := atomicWriteFile(s.path, data); err != nil {
		s.logger.Error().Err(err).Str("path", s.path).Msg("could not write config file")
		return nil, fmt.Errorf("%w: %q: %v", ErrWrite, s.path, err)
	}

	return s.read()
}

// encode marshals a document to normalized TOML text.
func encode(doc map[string]any) ([]byte, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(doc); err != nil {
		return nil, err
	}
	return blankLines.ReplaceAll(buf.Bytes(), []byte("\n\n")), nil
}

// atomicWriteFile replaces path with data via a temp file in the same
// directory.
func atomicWriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)

	tempFile, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}

	tempPath := tempFile.Name()
	defer os.Remove(tempPath) // Clean up on any error

	if _, err := tempFile.Write(data); err != nil {
		tempFile.Close()
		return fmt.Errorf("failed to write temporary file: %w", err)
	}

	if err := tempFile.Sync(); err != nil {
		tempFile.Close()
		return fmt.Errorf("failed to sync temporary file: %w", err)
	}

	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("failed to close temporary file: %w", err)
	}

	if err := os.Chmod(tempPath, 0644); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}

	return nil
}
