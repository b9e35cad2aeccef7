// Package config loads a project's antec.yaml (SPEC_FULL.md §3 "Ambient
// stack / configuration"): the handful of front-end-wide settings that
// aren't derivable from source alone — default numeric kinds, pointer
// width, the effect labels a project declares up front, and where to look
// for modules. Grounded on the teacher's own yaml.v3 config loader
// (internal/eval_harness/models.go's LoadModelsConfig: read the file,
// yaml.Unmarshal into a plain struct, wrap read/parse errors).
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/antec-lang/antec/internal/types"
)

// Config is the resolved, typed form of antec.yaml.
type Config struct {
	// DefaultInt is the integer kind an unconstrained literal defaults to
	// (spec.md §4.7 "unknown integer literals default to a fixed kind").
	DefaultInt types.IntKind
	// DefaultFloat is the float kind an unconstrained literal defaults to.
	DefaultFloat types.FloatKind
	// PointerBits is the target's pointer width in bits (spec.md §4.7
	// "pointer width equals the target pointer size").
	PointerBits int
	// Effects is the effect-label allowlist AllowsEffect checks against;
	// empty means "accept anything referenced". C5 inference does not
	// consult it.
	Effects []string
	// ModuleRoots are search roots the (external) module loader consults;
	// the query layer's SourceFileId values are typically relative to one
	// of these.
	ModuleRoots []string
}

// raw is antec.yaml's wire shape: string kind names rather than the typed
// enums Config exposes, the same split the teacher draws between its
// ModelsConfig (wire) and the typed config other packages consume.
type raw struct {
	DefaultInt   string   `yaml:"default_int"`
	DefaultFloat string   `yaml:"default_float"`
	PointerBits  int      `yaml:"pointer_bits"`
	Effects      []string `yaml:"effects"`
	ModuleRoots  []string `yaml:"module_roots"`
}

// Default returns the spec's own defaults (spec.md §4.7): i32, f64, a
// 64-bit pointer width, no declared effect allowlist, and the current
// directory as the sole module root. Load falls back to this when a field
// is absent from antec.yaml.
func Default() *Config {
	return &Config{
		DefaultInt:   types.I32,
		DefaultFloat: types.F64,
		PointerBits:  64,
		ModuleRoots:  []string{"."},
	}
}

// Load reads and parses path as antec.yaml, filling in spec defaults for
// any field the file omits.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var r raw
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	cfg := Default()
	if r.DefaultInt != "" {
		kind, err := parseIntKind(r.DefaultInt)
		if err != nil {
			return nil, fmt.Errorf("config: %s: %w", path, err)
		}
		cfg.DefaultInt = kind
	}
	if r.DefaultFloat != "" {
		kind, err := parseFloatKind(r.DefaultFloat)
		if err != nil {
			return nil, fmt.Errorf("config: %s: %w", path, err)
		}
		cfg.DefaultFloat = kind
	}
	if r.PointerBits != 0 {
		cfg.PointerBits = r.PointerBits
	}
	if len(r.Effects) > 0 {
		cfg.Effects = r.Effects
	}
	if len(r.ModuleRoots) > 0 {
		cfg.ModuleRoots = r.ModuleRoots
	}
	return cfg, nil
}

var intKinds = map[string]types.IntKind{
	"i8": types.I8, "i16": types.I16, "i32": types.I32, "i64": types.I64,
	"u8": types.U8, "u16": types.U16, "u32": types.U32, "u64": types.U64,
}

func parseIntKind(name string) (types.IntKind, error) {
	k, ok := intKinds[name]
	if !ok {
		return 0, fmt.Errorf("unknown default_int kind %q", name)
	}
	return k, nil
}

var floatKinds = map[string]types.FloatKind{
	"f32": types.F32, "f64": types.F64,
}

func parseFloatKind(name string) (types.FloatKind, error) {
	k, ok := floatKinds[name]
	if !ok {
		return 0, fmt.Errorf("unknown default_float kind %q", name)
	}
	return k, nil
}

// AllowsEffect reports whether label is usable without a prior declaration
// error. An empty Effects allowlist means every label is accepted
// (projects that haven't opted into the closed-world check yet).
func (c *Config) AllowsEffect(label string) bool {
	if len(c.Effects) == 0 {
		return true
	}
	for _, e := range c.Effects {
		if e == label {
			return true
		}
	}
	return false
}
