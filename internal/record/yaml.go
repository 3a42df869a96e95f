package record

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

func decodeYAML(data []byte) (map[string]any, error) {
	var v any
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return topLevelObject(stringifyKeys(v))
}

// stringifyKeys converts YAML mappings with non-string keys into
// map[string]any so expressions can address them.
func stringifyKeys(v any) any {
	switch x := v.(type) {
	case map[string]any:
		for k, e := range x {
			x[k] = stringifyKeys(e)
		}
		return x
	case map[any]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[fmt.Sprint(k)] = stringifyKeys(e)
		}
		return out
	case []any:
		for i, e := range x {
			x[i] = stringifyKeys(e)
		}
		return x
	default:
		return v
	}
}
