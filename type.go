package configurator

import (
	"fmt"
	"reflect"
	"strconv"
)

// Get retrieves a document value by dot-separated path ("table.key",
// "mysql.databases.prod"). The second return value reports whether the path
// exists.
func (c *Configuration) Get(path string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.config == nil {
		return nil, false
	}
	value := navigateToPath(c.config, path)
	if value == nil {
		return nil, false
	}
	return value, true
}

// String retrieves a string value by path, converting common scalar types.
func (c *Configuration) String(path string) (string, error) {
	val, found := c.Get(path)
	if !found {
		return "", fmt.Errorf("path not found: %s", path)
	}

	if strVal, ok := val.(string); ok {
		return strVal, nil
	}

	switch v := val.(type) {
	case fmt.Stringer:
		return v.String(), nil
	case bool, int, int64, float64:
		return formatValue(v), nil
	default:
		return "", fmt.Errorf("cannot convert type %T to string for path %s", val, path)
	}
}

// Int64 retrieves an int64 value by path, converting numeric types, parsable
// strings and booleans.
func (c *Configuration) Int64(path string) (int64, error) {
	val, found := c.Get(path)
	if !found {
		return 0, fmt.Errorf("path not found: %s", path)
	}

	v := reflect.ValueOf(val)
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int(), nil
	case reflect.Float32, reflect.Float64:
		return int64(v.Float()), nil
	case reflect.String:
		s := v.String()
		if i, err := strconv.ParseInt(s, 0, 64); err == nil {
			return i, nil
		} else if f, ferr := strconv.ParseFloat(s, 64); ferr == nil {
			return int64(f), nil
		} else {
			return 0, fmt.Errorf("cannot convert string %q to int64 for path %s: %w", s, path, err)
		}
	case reflect.Bool:
		if v.Bool() {
			return 1, nil
		}
		return 0, nil
	}

	return 0, fmt.Errorf("cannot convert type %T to int64 for path %s", val, path)
}

// Bool retrieves a boolean value by path. Numbers convert as 0=false,
// non-zero=true; strings go through strconv.ParseBool.
func (c *Configuration) Bool(path string) (bool, error) {
	val, found := c.Get(path)
	if !found {
		return false, fmt.Errorf("path not found: %s", path)
	}

	v := reflect.ValueOf(val)
	switch v.Kind() {
	case reflect.Bool:
		return v.Bool(), nil
	case reflect.String:
		s := v.String()
		if b, err := strconv.ParseBool(s); err == nil {
			return b, nil
		} else {
			return false, fmt.Errorf("cannot convert string %q to bool for path %s: %w", s, path, err)
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() != 0, nil
	case reflect.Float32, reflect.Float64:
		return v.Float() != 0, nil
	}

	return false, fmt.Errorf("cannot convert type %T to bool for path %s", val, path)
}

// Float64 retrieves a float64 value by path, converting numeric types and
// parsable strings.
func (c *Configuration) Float64(path string) (float64, error) {
	val, found := c.Get(path)
	if !found {
		return 0.0, fmt.Errorf("path not found: %s", path)
	}

	v := reflect.ValueOf(val)
	switch v.Kind() {
	case reflect.Float32, reflect.Float64:
		return v.Float(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(v.Int()), nil
	case reflect.String:
		s := v.String()
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f, nil
		} else {
			return 0.0, fmt.Errorf("cannot convert string %q to float64 for path %s: %w", s, path, err)
		}
	}

	return 0.0, fmt.Errorf("cannot convert type %T to float64 for path %s", val, path)
}
