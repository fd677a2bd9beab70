// Package config loads template specifications from YAML documents. A
// document is either a single spec mapping or a catalog of named specs
// under a top-level "templates" key; the loader validates root shapes and
// hands the compiler plain native trees.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Pchelolo/restbase/internal/reqtemplate"
)

// DefaultName is the key a single-spec document is registered under.
const DefaultName = "default"

// Load reads a YAML document from disk and returns the named template
// specs it defines.
func Load(path string) (map[string]reqtemplate.Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading template spec file: %w", err)
	}
	specs, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("in %s: %w", path, err)
	}
	return specs, nil
}

// Parse decodes a YAML document into named template specs. The document
// root must be a mapping, and so must every spec in a catalog; anything
// else is a fatal spec error, caught before compilation starts.
func Parse(data []byte) (map[string]reqtemplate.Spec, error) {
	var root any
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("parsing template spec document: %w", err)
	}

	rootMap, ok := root.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("template spec root must be a mapping, got %T", root)
	}

	catalog, ok := rootMap["templates"]
	if !ok {
		return map[string]reqtemplate.Spec{DefaultName: reqtemplate.Spec(rootMap)}, nil
	}

	catalogMap, ok := catalog.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("templates catalog must be a mapping, got %T", catalog)
	}
	specs := make(map[string]reqtemplate.Spec, len(catalogMap))
	for name, raw := range catalogMap {
		specMap, ok := raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("template %q must be a mapping, got %T", name, raw)
		}
		specs[name] = reqtemplate.Spec(specMap)
	}
	return specs, nil
}
