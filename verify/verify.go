// Package verify inspects emitted modules with an independent decoder.
//
// The pipeline's own parser and emitter are checked against wazero: a
// module that wazero compiles, and whose custom sections wazero reports
// back unchanged, is well formed regardless of how it was produced.
package verify

import (
	"context"
	"fmt"
	"sort"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/experimental"
)

// Config holds verifier runtime settings.
type Config struct {
	// MemoryLimitPages caps memory declarations accepted at compile time.
	MemoryLimitPages uint32

	// EnableThreads accepts shared memories and atomic instructions.
	EnableThreads bool
}

// Section is a custom section as reported by wazero.
type Section struct {
	Name string
	Data []byte
}

// Import names an imported function or memory.
type Import struct {
	Module string
	Name   string
}

// Report summarizes a compiled module. wazero consumes the "name"
// section, so it appears as ModuleName rather than in CustomSections.
type Report struct {
	ModuleName     string
	CustomSections []Section
	Exports        []string
	Imports        []Import
}

// Section returns the first custom section called name.
func (r *Report) Section(name string) (Section, bool) {
	for _, s := range r.CustomSections {
		if s.Name == name {
			return s, true
		}
	}
	return Section{}, false
}

// SectionNames lists custom section names in binary order.
func (r *Report) SectionNames() []string {
	names := make([]string, len(r.CustomSections))
	for i, s := range r.CustomSections {
		names[i] = s.Name
	}
	return names
}

// Verifier compiles modules with a dedicated wazero runtime.
type Verifier struct {
	runtime wazero.Runtime
}

// New creates a verifier. cfg may be nil.
func New(ctx context.Context, cfg *Config) *Verifier {
	runtimeCfg := wazero.NewRuntimeConfig().WithCustomSections(true)

	if cfg != nil {
		if cfg.MemoryLimitPages > 0 {
			runtimeCfg = runtimeCfg.WithMemoryLimitPages(cfg.MemoryLimitPages)
		}
		if cfg.EnableThreads {
			runtimeCfg = runtimeCfg.WithCoreFeatures(api.CoreFeaturesV2 | experimental.CoreFeaturesThreads)
		}
	}

	return &Verifier{runtime: wazero.NewRuntimeWithConfig(ctx, runtimeCfg)}
}

// Close releases the runtime.
func (v *Verifier) Close(ctx context.Context) error {
	return v.runtime.Close(ctx)
}

// Inspect compiles data and reports its custom sections, exports and
// imports. Compilation validates the module, so any error means data is
// not a valid module.
func (v *Verifier) Inspect(ctx context.Context, data []byte) (*Report, error) {
	cm, err := v.runtime.CompileModule(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("compile module: %w", err)
	}
	defer cm.Close(ctx)

	r := &Report{ModuleName: cm.Name()}
	for _, cs := range cm.CustomSections() {
		r.CustomSections = append(r.CustomSections, Section{Name: cs.Name(), Data: cs.Data()})
	}

	for name := range cm.ExportedFunctions() {
		r.Exports = append(r.Exports, name)
	}
	for name := range cm.ExportedMemories() {
		r.Exports = append(r.Exports, name)
	}
	sort.Strings(r.Exports)

	for _, f := range cm.ImportedFunctions() {
		if mod, name, ok := f.Import(); ok {
			r.Imports = append(r.Imports, Import{Module: mod, Name: name})
		}
	}
	for _, m := range cm.ImportedMemories() {
		if mod, name, ok := m.Import(); ok {
			r.Imports = append(r.Imports, Import{Module: mod, Name: name})
		}
	}
	return r, nil
}

// Inspect compiles data with a throwaway default verifier.
func Inspect(ctx context.Context, data []byte) (*Report, error) {
	v := New(ctx, nil)
	defer v.Close(ctx)
	return v.Inspect(ctx, data)
}
