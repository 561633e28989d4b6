package main

import (
	"fmt"

	"conjugate/internal/verify"
	"conjugate/internal/verify/scenarios"
)

// loadBundles resolves the named embedded bundles plus an optional external
// file. No names and no file selects every embedded bundle.
func loadBundles(names []string, file string) ([]*verify.Bundle, error) {
	if len(names) == 0 && file == "" {
		names = scenarios.ListBundles()
	}
	var out []*verify.Bundle
	for _, name := range names {
		b, err := scenarios.LoadBundle(name)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	if file != "" {
		b, err := scenarios.LoadBundleFile(file)
		if err != nil {
			return nil, fmt.Errorf("bundle file: %w", err)
		}
		out = append(out, b)
	}
	return out, nil
}
