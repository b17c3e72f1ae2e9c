package config

import (
	"fmt"

	"go.starlark.net/starlark"
	"gopkg.in/yaml.v3"

	"github.com/cjeanneret/FilmGate/internal/debug"
)

// sceneGlobals are the Starlark globals mapped onto the YAML schema.
var sceneGlobals = []string{"cameras", "render", "defaults"}

// LoadStarlark executes a Starlark scene description and returns the
// configuration it defines.
func LoadStarlark(path string) (*Config, error) {
	src, err := readConfigFile(path)
	if err != nil {
		return nil, err
	}
	return ParseStarlark(path, src)
}

// ParseStarlark executes src and converts its cameras, render and defaults
// globals into a Config. The script sees MM_PER_INCH predeclared, so film
// backs can be written in millimeters:
//
//	cameras = {"shotCam": {"aperture_x_in": 36 / MM_PER_INCH, ...}}
//
// The result goes through Parse, so defaults and validation match YAML.
func ParseStarlark(filename string, src []byte) (*Config, error) {
	thread := &starlark.Thread{
		Name:  filename,
		Print: func(_ *starlark.Thread, msg string) { debug.Verbose("scene %s: %s", filename, msg) },
	}
	predeclared := starlark.StringDict{
		"MM_PER_INCH": starlark.Float(25.4),
	}

	globals, err := starlark.ExecFile(thread, filename, src, predeclared)
	if err != nil {
		return nil, fmt.Errorf("exec scene %s: %w", filename, err)
	}

	doc := make(map[string]interface{}, len(sceneGlobals))
	for _, name := range sceneGlobals {
		v, ok := globals[name]
		if !ok {
			continue
		}
		goVal, err := fromStarlark(v)
		if err != nil {
			return nil, fmt.Errorf("scene global %s: %w", name, err)
		}
		doc[name] = goVal
	}

	data, err := yaml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal scene: %w", err)
	}
	debug.Verbose("scene %s resolved to:\n%s", filename, data)
	return Parse(data)
}

// fromStarlark converts a Starlark value into plain Go values.
func fromStarlark(v starlark.Value) (interface{}, error) {
	switch val := v.(type) {
	case starlark.NoneType:
		return nil, nil
	case starlark.Bool:
		return bool(val), nil
	case starlark.Int:
		i, ok := val.Int64()
		if !ok {
			return nil, fmt.Errorf("integer %s out of range", val)
		}
		return i, nil
	case starlark.Float:
		return float64(val), nil
	case starlark.String:
		return string(val), nil
	case *starlark.Dict:
		out := make(map[string]interface{}, val.Len())
		for _, item := range val.Items() {
			key, ok := starlark.AsString(item[0])
			if !ok {
				return nil, fmt.Errorf("dict keys must be strings, got %s", item[0].Type())
			}
			goVal, err := fromStarlark(item[1])
			if err != nil {
				return nil, fmt.Errorf("%s: %w", key, err)
			}
			out[key] = goVal
		}
		return out, nil
	case *starlark.List:
		out := make([]interface{}, 0, val.Len())
		for i := 0; i < val.Len(); i++ {
			goVal, err := fromStarlark(val.Index(i))
			if err != nil {
				return nil, err
			}
			out = append(out, goVal)
		}
		return out, nil
	case starlark.Tuple:
		out := make([]interface{}, 0, len(val))
		for _, elem := range val {
			goVal, err := fromStarlark(elem)
			if err != nil {
				return nil, err
			}
			out = append(out, goVal)
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported type %s", v.Type())
}
