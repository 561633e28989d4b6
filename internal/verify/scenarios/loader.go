// Package scenarios holds the embedded verification bundles.
package scenarios

import (
	"bytes"
	"embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"conjugate/internal/verify"
)

//go:embed *.yaml
var bundleFS embed.FS

// LoadBundle reads a bundle by name from the embedded YAML files.
func LoadBundle(name string) (*verify.Bundle, error) {
	data, err := bundleFS.ReadFile(name + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("bundle %q not found (available: %s): %w",
			name, strings.Join(ListBundles(), ", "), err)
	}
	b, err := parse(data, name)
	if err != nil {
		return nil, err
	}
	if b.Name != name {
		return nil, fmt.Errorf("bundle file %s.yaml declares name %q", name, b.Name)
	}
	return b, nil
}

// LoadBundleFile reads a bundle from a YAML file on disk.
func LoadBundleFile(path string) (*verify.Bundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read bundle: %w", err)
	}
	return parse(data, path)
}

// ListBundles returns the names of all embedded bundles, sorted.
func ListBundles() []string {
	entries, _ := bundleFS.ReadDir(".")
	var names []string
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".yaml") {
			names = append(names, strings.TrimSuffix(e.Name(), ".yaml"))
		}
	}
	sort.Strings(names)
	return names
}

// parse decodes strictly, so a misspelled key fails instead of silently
// zeroing a model parameter.
func parse(data []byte, source string) (*verify.Bundle, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var b verify.Bundle
	if err := dec.Decode(&b); err != nil {
		return nil, fmt.Errorf("parse bundle %q: %w", source, err)
	}
	if err := b.Validate(); err != nil {
		return nil, fmt.Errorf("bundle %q: %w", source, err)
	}
	return &b, nil
}
