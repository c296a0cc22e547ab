package configurator

import (
	"fmt"
	"reflect"
	"time"

	"github.com/mitchellh/mapstructure"
)

// Scan decodes the document section at a dot-separated base path into the
// target struct or map. An empty basePath decodes the whole document. The
// target must be a non-nil pointer; fields map through "toml" tags, with
// weakly-typed conversion and string-to-duration, string-to-time and
// comma-separated-slice hooks.
func (c *Configuration) Scan(basePath string, target any) error {
	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return fmt.Errorf("target of Scan must be a non-nil pointer, got %T", target)
	}

	c.mu.RLock()
	sectionData := navigateToPath(c.config, basePath)
	c.mu.RUnlock()

	sectionMap, ok := sectionData.(map[string]any)
	if !ok {
		if sectionData == nil {
			sectionMap = make(map[string]any)
		} else {
			return fmt.Errorf("configuration path %q does not refer to a table, but to type %T", basePath, sectionData)
		}
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		TagName:          "toml",
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToTimeHookFunc(time.RFC3339),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return fmt.Errorf("failed to create mapstructure decoder: %w", err)
	}

	if err := decoder.Decode(sectionMap); err != nil {
		return fmt.Errorf("failed to scan section %q into %T: %w", basePath, target, err)
	}

	return nil
}
