package soak

import (
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// Built-in test suite names.
const (
	SuiteRegular  = "regular"
	SuiteSingleBD = "single-bd"
)

// TestCase is the command sent every round and the substring a response must contain.
type TestCase struct {
	Command  string `yaml:"command"`
	Expected string `yaml:"expected"`
}

func (tc TestCase) validate() error {
	if tc.Command == "" {
		return fmt.Errorf("%w: empty command", ErrInvalidConfig)
	}
	if tc.Expected == "" {
		return fmt.Errorf("%w: empty expected response", ErrInvalidConfig)
	}

	return nil
}

// Catalog maps suite names to test cases. Names are lower case.
type Catalog map[string]TestCase

// DefaultCatalog returns the built-in suites.
func DefaultCatalog() Catalog {
	return Catalog{
		SuiteRegular: {
			Command:  "$QXMONCSTM",
			Expected: "QXMONCSTM,BG1101",
		},
		SuiteSingleBD: {
			Command:  "$QXMON",
			Expected: "QXMON,BG1101",
		},
	}
}

// Lookup returns the test case registered under name, ignoring case.
func (c Catalog) Lookup(name string) (TestCase, error) {
	tc, ok := c[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return TestCase{}, fmt.Errorf("%w: %q (available: %s)", ErrUnknownSuite, name, strings.Join(c.Names(), ", "))
	}

	return tc, nil
}

// Names returns the sorted suite names.
func (c Catalog) Names() []string {
	return slices.Sorted(maps.Keys(c))
}

// Merge returns a new catalog holding c overlaid with other.
func (c Catalog) Merge(other Catalog) Catalog {
	merged := maps.Clone(c)
	if merged == nil {
		merged = Catalog{}
	}
	maps.Copy(merged, other)

	return merged
}

// LoadCatalog decodes suites from YAML of the form:
//
//	gps-status:
//	  command: "$QXGPS"
//	  expected: "QXGPS,OK"
func LoadCatalog(r io.Reader) (Catalog, error) {
	raw := map[string]TestCase{}
	if err := yaml.NewDecoder(r).Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: decode suites: %w", ErrInvalidConfig, err)
	}

	catalog := make(Catalog, len(raw))
	for name, tc := range raw {
		key := strings.ToLower(strings.TrimSpace(name))
		if key == "" {
			return nil, fmt.Errorf("%w: empty suite name", ErrInvalidConfig)
		}
		if err := tc.validate(); err != nil {
			return nil, fmt.Errorf("suite %q: %w", name, err)
		}
		catalog[key] = tc
	}

	return catalog, nil
}

// LoadCatalogFile reads suites from the YAML file at path.
func LoadCatalogFile(path string) (Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	defer f.Close()

	return LoadCatalog(f)
}
