// Package period loads run-period configuration: the trigger path menu,
// per-family threshold tables, luminosity weights and the sample-stitching
// table. Tables are data, not code, so a new run period is a new YAML file.
package period

import (
	"bytes"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/karma-hep/trigweight/weight"
)

// Reference is the name of the embedded default run period.
const Reference = "Run2016BCDEFGH"

//go:embed data/*.yaml
var embedded embed.FS

// embeddedFiles maps embedded period names to their file.
var embeddedFiles = map[string]string{
	Reference: "data/run2016bcdefgh.yaml",
}

// Spec is the YAML representation of a run period.
type Spec struct {
	Version         string         `yaml:"version"`
	Name            string         `yaml:"name"`
	LuminosityScale float64        `yaml:"luminosity_scale"`
	Paths           []PathSpec     `yaml:"paths"`
	Patterns        []string       `yaml:"patterns,omitempty"` // resolved in every run, no family
	Families        []FamilySpec   `yaml:"families"`
	Stitching       *StitchingSpec `yaml:"stitching,omitempty"`
}

// PathSpec is one menu entry. Paths without an effective luminosity carry no weight.
type PathSpec struct {
	Name                string   `yaml:"name"`
	EffectiveLuminosity *float64 `yaml:"effective_luminosity,omitempty"`
}

// FamilySpec configures one trigger family.
type FamilySpec struct {
	Name       string          `yaml:"name"`
	Observable string          `yaml:"observable"`
	Patterns   []string        `yaml:"patterns"`
	Mandatory  bool            `yaml:"mandatory,omitempty"`
	Thresholds []ThresholdSpec `yaml:"thresholds"`
}

// ThresholdSpec is one row of a family threshold table.
type ThresholdSpec struct {
	Lower float64 `yaml:"lower"`
	Path  string  `yaml:"path"`
}

// StitchingSpec configures the generator-level stitching table.
type StitchingSpec struct {
	Quantity string    `yaml:"quantity"`
	Bins     []BinSpec `yaml:"bins"`
}

// BinSpec is one stitching bin.
type BinSpec struct {
	Lower  float64 `yaml:"lower"`
	Weight float64 `yaml:"weight"`
}

// Period is a validated run period ready for weighting.
type Period struct {
	Name     string
	Engine   *weight.Engine
	Patterns []string // family-less patterns
}

// Parse decodes a period from YAML. Uses strict parsing: unrecognized keys
// (typos) are rejected.
func Parse(data []byte) (*Spec, error) {
	var spec Spec
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&spec); err != nil {
		return nil, fmt.Errorf("%w: parsing period: %v", weight.ErrConfiguration, err)
	}
	return &spec, nil
}

// LoadSpec reads a period from a YAML file, or from the embedded periods when
// pathOrName is the name of one (e.g. "Run2016BCDEFGH").
func LoadSpec(pathOrName string) (*Spec, error) {
	if file, ok := embeddedFiles[pathOrName]; ok {
		if _, err := os.Stat(pathOrName); err != nil {
			data, err := embedded.ReadFile(file)
			if err != nil {
				return nil, fmt.Errorf("reading embedded period %s: %w", pathOrName, err)
			}
			return Parse(data)
		}
	}
	data, err := os.ReadFile(filepath.Clean(pathOrName))
	if err != nil {
		return nil, fmt.Errorf("reading period file: %w", err)
	}
	return Parse(data)
}

// Load reads and builds a period. See LoadSpec.
func Load(pathOrName string) (*Period, error) {
	spec, err := LoadSpec(pathOrName)
	if err != nil {
		return nil, err
	}
	return spec.Build()
}

// Embedded returns the names of the embedded periods, sorted.
func Embedded() []string {
	names := make([]string, 0, len(embeddedFiles))
	for name := range embeddedFiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Build validates s and constructs the immutable tables.
func (s *Spec) Build() (*Period, error) {
	if s.Name == "" {
		return nil, fmt.Errorf("%w: period has no name", weight.ErrConfiguration)
	}
	scale := s.LuminosityScale
	if scale == 0 {
		scale = 1
	}

	names := make([]string, len(s.Paths))
	for i, p := range s.Paths {
		if strings.TrimSpace(p.Name) != p.Name {
			return nil, fmt.Errorf("%w: paths[%d]: name %q has surrounding whitespace", weight.ErrConfiguration, i, p.Name)
		}
		names[i] = p.Name
	}
	menu, err := weight.NewMenu(names)
	if err != nil {
		return nil, err
	}

	lumiWeights := make(map[weight.PathID]float64)
	for i, p := range s.Paths {
		if p.EffectiveLuminosity == nil {
			continue
		}
		w, err := weight.InverseLuminosity(scale, *p.EffectiveLuminosity)
		if err != nil {
			return nil, fmt.Errorf("paths[%d] %s: %w", i, p.Name, err)
		}
		lumiWeights[weight.PathID(i)] = w
	}
	weights, err := weight.NewPathWeights(lumiWeights)
	if err != nil {
		return nil, err
	}

	families := make([]*weight.Family, 0, len(s.Families))
	for i, fs := range s.Families {
		f, err := fs.build(menu)
		if err != nil {
			return nil, fmt.Errorf("families[%d] %s: %w", i, fs.Name, err)
		}
		families = append(families, f)
	}

	var stitching *weight.StitchingTable
	if s.Stitching != nil {
		bins := make([]weight.StitchingBin, len(s.Stitching.Bins))
		for i, b := range s.Stitching.Bins {
			bins[i] = weight.StitchingBin{Lower: b.Lower, Weight: b.Weight}
		}
		if stitching, err = weight.NewStitchingTable(bins); err != nil {
			return nil, fmt.Errorf("stitching: %w", err)
		}
	}

	engine, err := weight.NewEngine(menu, weights, stitching, families)
	if err != nil {
		return nil, err
	}
	return &Period{
		Name:     s.Name,
		Engine:   engine,
		Patterns: append([]string(nil), s.Patterns...),
	}, nil
}

func (fs FamilySpec) build(menu *weight.Menu) (*weight.Family, error) {
	if len(fs.Patterns) == 0 {
		return nil, fmt.Errorf("%w: at least one path pattern required", weight.ErrConfiguration)
	}
	rows := make([]weight.PathInterval, len(fs.Thresholds))
	for i, t := range fs.Thresholds {
		id, ok := menu.Lookup(t.Path)
		if !ok {
			return nil, fmt.Errorf("%w: thresholds[%d]: path %q is not in the menu", weight.ErrConfiguration, i, t.Path)
		}
		rows[i] = weight.PathInterval{Lower: t.Lower, Path: id}
	}
	table, err := weight.NewThresholdTable(rows)
	if err != nil {
		return nil, err
	}
	return &weight.Family{
		Name:       fs.Name,
		Observable: fs.Observable,
		Patterns:   append([]string(nil), fs.Patterns...),
		Mandatory:  fs.Mandatory,
		Thresholds: table,
	}, nil
}
