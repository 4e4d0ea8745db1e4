package corelib

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/glint-lang/glint/internal/value"
)

// Prelude builds the Map of built-in names every script sees without an
// explicit import (spec §6.1's prelude()). Currently this is just the
// `io` module's read_config, grounded on the teacher's cmd/sentra `-c`
// config-file flag (which decodes the same YAML shape this reads) — a
// config-reading helper is a natural prelude citizen since scripts
// embedded for configuration-driven tools need it without ceremony.
func Prelude() *value.Map {
	m := value.NewMap()
	m.Set(value.NewStrValue("io"), value.NewMapValue(ioModule()))
	return m
}

// ioModule returns the `io` submodule: today just read_config, reading
// a YAML document from disk into a glint Map.
func ioModule() *value.Map {
	m := value.NewMap()
	m.Set(value.NewStrValue("read_config"), nativeFn("read_config", func(args []value.Value) (value.Value, error) {
		if len(args) != 1 || args[0].Kind() != value.KindStr {
			return value.Value{}, unexpectedf("io.read_config expects |String| (a file path)")
		}
		path := args[0].AsStr().String()
		raw, err := os.ReadFile(path)
		if err != nil {
			return value.Value{}, errors.Wrapf(err, "reading config %q", path)
		}
		var decoded map[string]any
		if err := yaml.Unmarshal(raw, &decoded); err != nil {
			return value.Value{}, errors.Wrapf(err, "parsing config %q", path)
		}
		return fromYAML(decoded), nil
	}))
	return m
}

// fromYAML converts a decoded YAML document (map[string]any, []any, and
// scalar leaves) into glint values, recursing through nested
// mappings/sequences.
func fromYAML(v any) value.Value {
	switch t := v.(type) {
	case nil:
		return value.Null()
	case bool:
		return value.Bool(t)
	case int:
		return value.Int(int64(t))
	case int64:
		return value.Int(t)
	case float64:
		return value.Float(t)
	case string:
		return value.NewStrValue(t)
	case map[string]any:
		m := value.NewMap()
		for k, val := range t {
			m.Set(value.NewStrValue(k), fromYAML(val))
		}
		return value.NewMapValue(m)
	case map[any]any:
		m := value.NewMap()
		for k, val := range t {
			m.Set(value.NewStrValue(keyString(k)), fromYAML(val))
		}
		return value.NewMapValue(m)
	case []any:
		elems := make([]value.Value, len(t))
		for i, e := range t {
			elems[i] = fromYAML(e)
		}
		return value.NewList(elems)
	default:
		return value.Null()
	}
}

func keyString(k any) string {
	if s, ok := k.(string); ok {
		return s
	}
	return ""
}
