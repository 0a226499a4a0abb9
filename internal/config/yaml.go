package config

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	yaml "go.yaml.in/yaml/v3"
)

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// relayConfigJSON returns the relay config file as JSON. YAML files are
// re-encoded; anything else is passed through untouched.
func relayConfigJSON(path string, raw []byte) ([]byte, error) {
	if !isYAML(path) {
		return raw, nil
	}
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("yaml: %w", err)
	}
	if doc == nil {
		return []byte("{}"), nil
	}
	out, err := json.Marshal(stringKeys(doc))
	if err != nil {
		return nil, fmt.Errorf("yaml to json: %w", err)
	}
	return out, nil
}

// stringKeys rewrites map[any]any nodes (e.g. `5: x` or `true: x`) into
// map[string]any, which encoding/json can marshal.
func stringKeys(node any) any {
	switch n := node.(type) {
	case []any:
		for i, v := range n {
			n[i] = stringKeys(v)
		}
	case map[string]any:
		for k, v := range n {
			n[k] = stringKeys(v)
		}
	case map[any]any:
		out := make(map[string]any, len(n))
		for k, v := range n {
			out[fmt.Sprint(k)] = stringKeys(v)
		}
		return out
	}
	return node
}
