package helm

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Values represents helm chart values as a map.
type Values map[string]any

// Merge combines multiple Values maps with later maps taking precedence.
// Only top-level keys are merged.
func Merge(valueMaps ...Values) Values {
	result := make(Values)
	for _, m := range valueMaps {
		for k, v := range m {
			result[k] = v
		}
	}
	return result
}

// DeepMerge combines Values recursively. Nested maps are merged key by key;
// any other value, lists included, is replaced by the later map.
func DeepMerge(valueMaps ...Values) Values {
	result := make(Values)
	for _, m := range valueMaps {
		mergeInto(result, m)
	}
	return result
}

func mergeInto(dst, src Values) {
	for k, v := range src {
		srcMap, srcIsMap := asValues(v)
		dstMap, dstIsMap := asValues(dst[k])
		if srcIsMap && dstIsMap {
			merged := make(Values, len(dstMap))
			mergeInto(merged, dstMap)
			mergeInto(merged, srcMap)
			dst[k] = merged
			continue
		}
		if srcIsMap {
			copied := make(Values, len(srcMap))
			mergeInto(copied, srcMap)
			dst[k] = copied
			continue
		}
		dst[k] = v
	}
}

func asValues(v any) (Values, bool) {
	switch m := v.(type) {
	case Values:
		return m, true
	case map[string]any:
		return Values(m), true
	}
	return nil, false
}

// Plain converts v and every nested Values into map[string]any, the form
// the Helm SDK expects.
func (v Values) Plain() map[string]any {
	out := make(map[string]any, len(v))
	for k, val := range v {
		out[k] = plain(val)
	}
	return out
}

func plain(v any) any {
	switch t := v.(type) {
	case Values:
		return t.Plain()
	case map[string]any:
		return Values(t).Plain()
	case []Values:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = e.Plain()
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = plain(e)
		}
		return out
	}
	return v
}

// ToYAML converts values to YAML bytes.
func (v Values) ToYAML() ([]byte, error) {
	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)

	if err := encoder.Encode(v.Plain()); err != nil {
		return nil, fmt.Errorf("failed to encode values to YAML: %w", err)
	}

	return buf.Bytes(), nil
}

// FromYAML parses YAML bytes into Values.
func FromYAML(data []byte) (Values, error) {
	var values Values
	if err := yaml.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("failed to parse YAML values: %w", err)
	}
	return values, nil
}
